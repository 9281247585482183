package outbound

import (
	"context"
	"time"

	"collectible-auction-engine/internal/domain/auction"
	"collectible-auction-engine/internal/domain/bid"

	"github.com/google/uuid"
)

// AuctionStore is the engine's unit of truth for auction and bid records.
//
// All state-mutating sequences on a single auction go through WithAuction,
// which serializes them per auction id. Different auctions are independent
// and may proceed in parallel.
type AuctionStore interface {
	// CreateAuction inserts a new auction record
	CreateAuction(ctx context.Context, a *auction.Auction) error

	// GetAuction retrieves an auction by ID
	GetAuction(ctx context.Context, id uuid.UUID) (*auction.Auction, error)

	// ListActive retrieves active auctions, newest first
	ListActive(ctx context.Context, limit int) ([]*auction.Auction, error)

	// ListExpired retrieves the IDs of active auctions whose deadline has
	// passed at the given instant
	ListExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error)

	// TopBids retrieves the highest bids for an auction, highest first
	TopBids(ctx context.Context, auctionID uuid.UUID, limit int) ([]*bid.Bid, error)

	// WithAuction runs fn with exclusive access to the auction's rows. No
	// other WithAuction call for the same auction id interleaves with fn.
	// Mutations issued through the AuctionTx, including wallet and inventory
	// movements, commit together when fn returns nil and not at all when it
	// returns an error.
	WithAuction(ctx context.Context, id uuid.UUID, fn func(tx AuctionTx) error) error
}

// AuctionTx is the per-auction atomic unit handed to a WithAuction closure.
type AuctionTx interface {
	// Auction returns the auction row as of lock acquisition
	Auction() *auction.Auction

	// LeadingBid returns the most recently accepted bid, or
	// shared.ErrNoBidsFound when the auction has none
	LeadingBid(ctx context.Context) (*bid.Bid, error)

	// AppendBid inserts a bid into the append-only ledger
	AppendBid(ctx context.Context, b *bid.Bid) error

	// ExtendDeadline moves the auction's end time
	ExtendDeadline(ctx context.Context, endTime time.Time) error

	// RecordOutcome marks the auction finished with the given winner and
	// final price (both nil when unsold)
	RecordOutcome(ctx context.Context, winnerID *uuid.UUID, finalPrice *int64) error

	// MarkItemGranted records that the item half of settlement has been
	// applied; sets settled once both halves are done
	MarkItemGranted(ctx context.Context) error

	// MarkSellerPaid records that the funds half of settlement has been
	// applied; sets settled once both halves are done
	MarkSellerPaid(ctx context.Context) error

	// Wallet returns a wallet view whose movements ride this transaction
	Wallet() Wallet

	// Inventory returns an inventory view whose movements ride this transaction
	Inventory() InventoryReserve
}
