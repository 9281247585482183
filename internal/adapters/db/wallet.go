package db

import (
	"context"
	"database/sql"
	"fmt"

	"collectible-auction-engine/internal/domain/shared"

	"github.com/google/uuid"
)

// queryer covers both *sql.DB and *sql.Tx so the wallet statements can run
// standalone or inside a per-auction transaction
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Wallet implements the wallet contract on the application's wallets table.
// The engine only calls it through the escrow code paths.
type Wallet struct {
	conn *Connection
}

// NewWallet creates a new Postgres wallet adapter
func NewWallet(conn *Connection) *Wallet {
	return &Wallet{conn: conn}
}

func (w *Wallet) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	return walletBalance(ctx, w.conn.GetDB(), userID)
}

func (w *Wallet) Debit(ctx context.Context, userID uuid.UUID, amount int64) error {
	return walletDebit(ctx, w.conn.GetDB(), userID, amount)
}

func (w *Wallet) Credit(ctx context.Context, userID uuid.UUID, amount int64) error {
	return walletCredit(ctx, w.conn.GetDB(), userID, amount)
}

// txWallet is the wallet view inside a per-auction transaction
type txWallet struct {
	tx *sql.Tx
}

func (w *txWallet) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	return walletBalance(ctx, w.tx, userID)
}

func (w *txWallet) Debit(ctx context.Context, userID uuid.UUID, amount int64) error {
	return walletDebit(ctx, w.tx, userID, amount)
}

func (w *txWallet) Credit(ctx context.Context, userID uuid.UUID, amount int64) error {
	return walletCredit(ctx, w.tx, userID, amount)
}

func walletBalance(ctx context.Context, q queryer, userID uuid.UUID) (int64, error) {
	var balance int64
	err := q.QueryRowContext(ctx, `SELECT balance FROM wallets WHERE user_id = $1`, userID).Scan(&balance)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

func walletDebit(ctx context.Context, q queryer, userID uuid.UUID, amount int64) error {
	// The balance guard in the WHERE clause makes the debit atomic: either
	// the full amount comes off or nothing does.
	query := `UPDATE wallets SET balance = balance - $2 WHERE user_id = $1 AND balance >= $2`

	result, err := q.ExecContext(ctx, query, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to debit wallet: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return shared.ErrInsufficientFunds
	}

	return nil
}

func walletCredit(ctx context.Context, q queryer, userID uuid.UUID, amount int64) error {
	query := `
		INSERT INTO wallets (user_id, balance)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET balance = wallets.balance + $2
	`

	if _, err := q.ExecContext(ctx, query, userID, amount); err != nil {
		return fmt.Errorf("failed to credit wallet: %w", err)
	}

	return nil
}
