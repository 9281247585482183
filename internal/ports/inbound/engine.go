package inbound

import (
	"context"
	"time"

	"collectible-auction-engine/internal/domain/shared"

	"github.com/google/uuid"
)

// AuctionService defines the auction lifecycle and query operations
type AuctionService interface {
	// CreateAuction reserves one unit of the item from the seller and
	// opens a new auction for it
	CreateAuction(ctx context.Context, req CreateAuctionRequest) (uuid.UUID, error)

	// GetAuction retrieves a single auction's detail
	GetAuction(ctx context.Context, auctionID uuid.UUID) (*AuctionView, error)

	// ListActiveAuctions retrieves active auctions with remaining time
	ListActiveAuctions(ctx context.Context, limit int) ([]AuctionSummary, error)

	// ListTopBids retrieves the highest bids for an auction
	ListTopBids(ctx context.Context, auctionID uuid.UUID, limit int) ([]BidView, error)
}

// BiddingService defines the bid placement operation
type BiddingService interface {
	// PlaceBid validates and applies a single bid, escrowing the
	// bidder's funds and extending the auction deadline
	PlaceBid(ctx context.Context, req PlaceBidRequest) (*BidView, error)
}

// SettlementService defines the idempotent settlement operations
type SettlementService interface {
	// FinalizeExpired finalizes every active auction whose deadline has
	// passed; safe to invoke any number of times
	FinalizeExpired(ctx context.Context) ([]shared.SettlementResult, error)

	// Finalize finalizes a single expired auction
	Finalize(ctx context.Context, auctionID uuid.UUID) (*shared.SettlementResult, error)

	// ManualClaim re-applies the item half of settlement alone
	ManualClaim(ctx context.Context, auctionID uuid.UUID) error

	// ManualCredit re-applies the funds half of settlement alone
	ManualCredit(ctx context.Context, auctionID uuid.UUID) error
}

// request to create an auction
type CreateAuctionRequest struct {
	SellerID uuid.UUID     `json:"seller_id"`
	ItemID   uuid.UUID     `json:"item_id"`
	MinPrice int64         `json:"min_price"`
	Duration time.Duration `json:"duration"`
}

// request to place a bid
type PlaceBidRequest struct {
	AuctionID uuid.UUID `json:"auction_id"`
	BidderID  uuid.UUID `json:"bidder_id"`
	Amount    int64     `json:"amount"`
}

// AuctionView is the read-only detail of one auction
type AuctionView struct {
	ID         uuid.UUID  `json:"id"`
	ItemID     uuid.UUID  `json:"item_id"`
	SellerID   uuid.UUID  `json:"seller_id"`
	MinPrice   int64      `json:"min_price"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    time.Time  `json:"end_time"`
	Status     string     `json:"status"`
	WinnerID   *uuid.UUID `json:"winner_id,omitempty"`
	FinalPrice *int64     `json:"final_price,omitempty"`
	Settled    bool       `json:"settled"`
}

// AuctionSummary is one row of the active-auction listing
type AuctionSummary struct {
	ID        uuid.UUID     `json:"id"`
	ItemID    uuid.UUID     `json:"item_id"`
	MinPrice  int64         `json:"min_price"`
	EndTime   time.Time     `json:"end_time"`
	Remaining time.Duration `json:"remaining"`
}

// BidView is the read-only projection of one bid
type BidView struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auction_id"`
	BidderID  uuid.UUID `json:"bidder_id"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}
