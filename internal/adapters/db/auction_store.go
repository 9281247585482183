package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"collectible-auction-engine/internal/domain/auction"
	"collectible-auction-engine/internal/domain/bid"
	"collectible-auction-engine/internal/domain/shared"
	"collectible-auction-engine/internal/ports/outbound"

	"github.com/google/uuid"
)

// AuctionStore implements the auction store interface on Postgres. The
// per-auction atomic unit is a transaction holding a row-level lock
// (SELECT ... FOR UPDATE) on the auction, so bid placement and settlement
// on the same auction serialize at the database while different auctions
// proceed in parallel.
type AuctionStore struct {
	conn *Connection
}

// NewAuctionStore creates a new Postgres auction store
func NewAuctionStore(conn *Connection) *AuctionStore {
	return &AuctionStore{conn: conn}
}

const auctionColumns = `id, item_id, seller_id, min_price, start_time, end_time, status, winner_id, final_price, item_granted, seller_paid, settled, created_at, updated_at`

func scanAuction(row interface{ Scan(...interface{}) error }) (*auction.Auction, error) {
	var a auction.Auction
	err := row.Scan(
		&a.ID,
		&a.ItemID,
		&a.SellerID,
		&a.MinPrice,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&a.WinnerID,
		&a.FinalPrice,
		&a.ItemGranted,
		&a.SellerPaid,
		&a.Settled,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAuction inserts a new auction record
func (s *AuctionStore) CreateAuction(ctx context.Context, a *auction.Auction) error {
	query := `
		INSERT INTO auctions (` + auctionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := s.conn.GetDB().ExecContext(ctx, query,
		a.ID,
		a.ItemID,
		a.SellerID,
		a.MinPrice,
		a.StartTime,
		a.EndTime,
		a.Status,
		a.WinnerID,
		a.FinalPrice,
		a.ItemGranted,
		a.SellerPaid,
		a.Settled,
		a.CreatedAt,
		a.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create auction: %w", err)
	}

	return nil
}

// GetAuction retrieves an auction by ID
func (s *AuctionStore) GetAuction(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`

	a, err := scanAuction(s.conn.GetDB().QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}

	return a, nil
}

// ListActive retrieves active auctions, newest first
func (s *AuctionStore) ListActive(ctx context.Context, limit int) ([]*auction.Auction, error) {
	query := `
		SELECT ` + auctionColumns + `
		FROM auctions
		WHERE status = 'active'
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.conn.GetDB().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list active auctions: %w", err)
	}
	defer rows.Close()

	var auctions []*auction.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		auctions = append(auctions, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auctions: %w", err)
	}

	return auctions, nil
}

// ListExpired retrieves the IDs of active auctions past their deadline
func (s *AuctionStore) ListExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	query := `SELECT id FROM auctions WHERE status = 'active' AND end_time <= $1`

	rows, err := s.conn.GetDB().QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired auctions: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan auction id: %w", err)
		}
		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expired auctions: %w", err)
	}

	return ids, nil
}

// TopBids retrieves the highest bids for an auction, highest first
func (s *AuctionStore) TopBids(ctx context.Context, auctionID uuid.UUID, limit int) ([]*bid.Bid, error) {
	query := `
		SELECT id, auction_id, bidder_id, amount, created_at
		FROM bids
		WHERE auction_id = $1
		ORDER BY amount DESC, created_at ASC
		LIMIT $2
	`

	rows, err := s.conn.GetDB().QueryContext(ctx, query, auctionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get bids: %w", err)
	}
	defer rows.Close()

	var bids []*bid.Bid
	for rows.Next() {
		var b bid.Bid
		if err := rows.Scan(&b.ID, &b.AuctionID, &b.BidderID, &b.Amount, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, &b)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bids: %w", err)
	}

	return bids, nil
}

// WithAuction runs fn inside a transaction holding the auction's row lock
func (s *AuctionStore) WithAuction(ctx context.Context, id uuid.UUID, fn func(tx outbound.AuctionTx) error) error {
	return s.conn.ExecuteTransaction(func(tx *sql.Tx) error {
		query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1 FOR UPDATE`

		a, err := scanAuction(tx.QueryRowContext(ctx, query, id))
		if err != nil {
			if err == sql.ErrNoRows {
				return shared.ErrAuctionNotFound
			}
			return fmt.Errorf("failed to lock auction: %w", err)
		}

		return fn(&auctionTx{tx: tx, a: a})
	})
}

// auctionTx is the Postgres per-auction atomic unit. Every mutation runs on
// the transaction holding the auction's row lock.
type auctionTx struct {
	tx *sql.Tx
	a  *auction.Auction
}

func (t *auctionTx) Auction() *auction.Auction {
	return t.a
}

func (t *auctionTx) LeadingBid(ctx context.Context) (*bid.Bid, error) {
	query := `
		SELECT id, auction_id, bidder_id, amount, created_at
		FROM bids
		WHERE auction_id = $1
		ORDER BY amount DESC, created_at ASC
		LIMIT 1
	`

	var b bid.Bid
	err := t.tx.QueryRowContext(ctx, query, t.a.ID).Scan(&b.ID, &b.AuctionID, &b.BidderID, &b.Amount, &b.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrNoBidsFound
		}
		return nil, fmt.Errorf("failed to get leading bid: %w", err)
	}

	return &b, nil
}

func (t *auctionTx) AppendBid(ctx context.Context, b *bid.Bid) error {
	query := `
		INSERT INTO bids (id, auction_id, bidder_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := t.tx.ExecContext(ctx, query, b.ID, b.AuctionID, b.BidderID, b.Amount, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}

	return nil
}

func (t *auctionTx) ExtendDeadline(ctx context.Context, endTime time.Time) error {
	now := time.Now()
	query := `UPDATE auctions SET end_time = $2, updated_at = $3 WHERE id = $1`

	if _, err := t.tx.ExecContext(ctx, query, t.a.ID, endTime, now); err != nil {
		return fmt.Errorf("failed to extend auction deadline: %w", err)
	}

	t.a.EndTime = endTime
	t.a.UpdatedAt = now
	return nil
}

func (t *auctionTx) RecordOutcome(ctx context.Context, winnerID *uuid.UUID, finalPrice *int64) error {
	now := time.Now()
	// Status is monotonic: a finished auction keeps its recorded outcome.
	query := `
		UPDATE auctions
		SET status = 'finished', winner_id = $2, final_price = $3, updated_at = $4
		WHERE id = $1 AND status = 'active'
	`

	if _, err := t.tx.ExecContext(ctx, query, t.a.ID, winnerID, finalPrice, now); err != nil {
		return fmt.Errorf("failed to record auction outcome: %w", err)
	}

	t.a.RecordOutcome(winnerID, finalPrice)
	return nil
}

func (t *auctionTx) MarkItemGranted(ctx context.Context) error {
	now := time.Now()
	query := `UPDATE auctions SET item_granted = TRUE, settled = seller_paid, updated_at = $2 WHERE id = $1`

	if _, err := t.tx.ExecContext(ctx, query, t.a.ID, now); err != nil {
		return fmt.Errorf("failed to mark item granted: %w", err)
	}

	t.a.ItemGranted = true
	t.a.Settled = t.a.SellerPaid
	t.a.UpdatedAt = now
	return nil
}

func (t *auctionTx) MarkSellerPaid(ctx context.Context) error {
	now := time.Now()
	query := `UPDATE auctions SET seller_paid = TRUE, settled = item_granted, updated_at = $2 WHERE id = $1`

	if _, err := t.tx.ExecContext(ctx, query, t.a.ID, now); err != nil {
		return fmt.Errorf("failed to mark seller paid: %w", err)
	}

	t.a.SellerPaid = true
	t.a.Settled = t.a.ItemGranted
	t.a.UpdatedAt = now
	return nil
}

func (t *auctionTx) Wallet() outbound.Wallet {
	return &txWallet{tx: t.tx}
}

func (t *auctionTx) Inventory() outbound.InventoryReserve {
	return &txInventory{tx: t.tx}
}
