package bid

import (
	"time"

	"github.com/google/uuid"
)

// Bid represents an accepted bid on an auction. Bids form an append-only
// ledger: rows are never updated or deleted, and amounts are strictly
// increasing in insertion order per auction. The leading bid is always the
// most recently accepted one.
type Bid struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auction_id"`
	BidderID  uuid.UUID `json:"bidder_id"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// OutbidBy returns true if a bid of the given amount would outbid this one
func (b *Bid) OutbidBy(amount int64) bool {
	return amount > b.Amount
}
