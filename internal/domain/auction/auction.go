package auction

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the current status of an auction
type Status string

const (
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// Auction represents a timed ascending-price auction for one inventory unit.
// The item is reserved from the seller for the whole lifetime of the auction;
// settlement hands it to exactly one of winner or seller.
type Auction struct {
	ID        uuid.UUID `json:"id"`
	ItemID    uuid.UUID `json:"item_id"`
	SellerID  uuid.UUID `json:"seller_id"`
	MinPrice  int64     `json:"min_price"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    Status    `json:"status"`

	// Set at settlement time, nil while no winning bid exists.
	WinnerID   *uuid.UUID `json:"winner_id,omitempty"`
	FinalPrice *int64     `json:"final_price,omitempty"`

	// Idempotence markers. ItemGranted covers the item half of settlement
	// (grant to winner, or return to seller when unsold), SellerPaid the
	// funds half. Settled is true once both halves have been applied; a
	// crash between the halves leaves exactly one marker set and a retry
	// performs only the missing half.
	ItemGranted bool `json:"item_granted"`
	SellerPaid  bool `json:"seller_paid"`
	Settled     bool `json:"settled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive returns true if the auction is still accepting bids
func (a *Auction) IsActive() bool {
	return a.Status == StatusActive
}

// IsFinished returns true if the auction has been closed
func (a *Auction) IsFinished() bool {
	return a.Status == StatusFinished
}

// Expired returns true if the auction's deadline has passed at the given
// instant. A bid arriving at exactly EndTime is already too late.
func (a *Auction) Expired(now time.Time) bool {
	return !now.Before(a.EndTime)
}

// RemainingTime returns how long the auction has left, zero if expired
func (a *Auction) RemainingTime(now time.Time) time.Duration {
	if a.Expired(now) {
		return 0
	}
	return a.EndTime.Sub(now)
}

// ExtendDeadline resets the countdown to a full timeout window from now.
// Every accepted bid does this, so an auction only ends after a period of
// bidding silence, never at a fixed wall-clock instant.
func (a *Auction) ExtendDeadline(now time.Time, timeout time.Duration) {
	a.EndTime = now.Add(timeout)
	a.UpdatedAt = now
}

// RecordOutcome closes the auction. winnerID and finalPrice are nil for an
// unsold auction. Status is monotonic, so a finished auction is left as is.
func (a *Auction) RecordOutcome(winnerID *uuid.UUID, finalPrice *int64) {
	if a.Status == StatusFinished {
		return
	}
	a.Status = StatusFinished
	a.WinnerID = winnerID
	a.FinalPrice = finalPrice
	a.UpdatedAt = time.Now()
}
