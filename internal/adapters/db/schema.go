package db

import (
	"context"
	"fmt"
)

// Schema statements are create-if-missing so the engine can bootstrap its
// own tables on startup. The wallets and inventories tables belong to the
// surrounding application; the engine only touches them through the escrow
// code paths.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS auctions (
		id UUID PRIMARY KEY,
		item_id UUID NOT NULL,
		seller_id UUID NOT NULL,
		min_price BIGINT NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		winner_id UUID,
		final_price BIGINT,
		item_granted BOOLEAN NOT NULL DEFAULT FALSE,
		seller_paid BOOLEAN NOT NULL DEFAULT FALSE,
		settled BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_auctions_status_end_time ON auctions (status, end_time)`,
	`CREATE TABLE IF NOT EXISTS bids (
		id UUID PRIMARY KEY,
		auction_id UUID NOT NULL REFERENCES auctions (id),
		bidder_id UUID NOT NULL,
		amount BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bids_auction_id ON bids (auction_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS wallets (
		user_id UUID PRIMARY KEY,
		balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS inventories (
		user_id UUID NOT NULL,
		item_id UUID NOT NULL,
		amount INT NOT NULL CHECK (amount > 0),
		PRIMARY KEY (user_id, item_id)
	)`,
}

// EnsureSchema creates the engine's tables and indexes if they do not exist
func (c *Connection) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
