package db

import (
	"context"
	"database/sql"
	"fmt"

	"collectible-auction-engine/internal/domain/shared"

	"github.com/google/uuid"
)

// Inventory implements the single-unit inventory contract on the
// application's inventories table
type Inventory struct {
	conn *Connection
}

// NewInventory creates a new Postgres inventory adapter
func NewInventory(conn *Connection) *Inventory {
	return &Inventory{conn: conn}
}

func (i *Inventory) ReserveOne(ctx context.Context, userID, itemID uuid.UUID) error {
	return inventoryReserveOne(ctx, i.conn.GetDB(), userID, itemID)
}

func (i *Inventory) ReturnOne(ctx context.Context, userID, itemID uuid.UUID) error {
	return inventoryAddOne(ctx, i.conn.GetDB(), userID, itemID)
}

func (i *Inventory) GrantOne(ctx context.Context, userID, itemID uuid.UUID) error {
	return inventoryAddOne(ctx, i.conn.GetDB(), userID, itemID)
}

// txInventory is the inventory view inside a per-auction transaction
type txInventory struct {
	tx *sql.Tx
}

func (i *txInventory) ReserveOne(ctx context.Context, userID, itemID uuid.UUID) error {
	return inventoryReserveOne(ctx, i.tx, userID, itemID)
}

func (i *txInventory) ReturnOne(ctx context.Context, userID, itemID uuid.UUID) error {
	return inventoryAddOne(ctx, i.tx, userID, itemID)
}

func (i *txInventory) GrantOne(ctx context.Context, userID, itemID uuid.UUID) error {
	return inventoryAddOne(ctx, i.tx, userID, itemID)
}

func inventoryReserveOne(ctx context.Context, q queryer, userID, itemID uuid.UUID) error {
	// A row with amount 0 is never kept: the last unit removes the row.
	decrement := `UPDATE inventories SET amount = amount - 1 WHERE user_id = $1 AND item_id = $2 AND amount > 1`

	result, err := q.ExecContext(ctx, decrement, userID, itemID)
	if err != nil {
		return fmt.Errorf("failed to reserve item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	remove := `DELETE FROM inventories WHERE user_id = $1 AND item_id = $2 AND amount = 1`

	result, err = q.ExecContext(ctx, remove, userID, itemID)
	if err != nil {
		return fmt.Errorf("failed to reserve item: %w", err)
	}

	rowsAffected, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return shared.ErrItemNotOwned
	}

	return nil
}

func inventoryAddOne(ctx context.Context, q queryer, userID, itemID uuid.UUID) error {
	query := `
		INSERT INTO inventories (user_id, item_id, amount)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, item_id) DO UPDATE SET amount = inventories.amount + 1
	`

	if _, err := q.ExecContext(ctx, query, userID, itemID); err != nil {
		return fmt.Errorf("failed to add item to inventory: %w", err)
	}

	return nil
}
