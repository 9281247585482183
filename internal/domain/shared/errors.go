package shared

import (
	"errors"
	"fmt"
)

// Domain-specific errors
var (
	// Auction errors
	ErrAuctionNotFound    = errors.New("auction not found")
	ErrAuctionExpired     = errors.New("auction has ended; no more bids accepted")
	ErrAuctionNotExpired  = errors.New("auction has not reached its end time")
	ErrAuctionNotFinished = errors.New("auction not finished yet")
	ErrInvalidMinPrice    = errors.New("minimum price must be greater than 0")
	ErrInvalidDuration    = errors.New("auction duration must be greater than 0")

	// Bid errors
	ErrInsufficientFunds = errors.New("insufficient funds to place that bid")
	ErrNoBidsFound       = errors.New("no bids found")

	// Inventory errors
	ErrItemNotOwned = errors.New("seller does not own that item")

	// Manual recovery guards; informational, not failures
	ErrAlreadyApplied = errors.New("settlement step already applied")
	ErrNoWinner       = errors.New("no winner for this auction")
	ErrNoFinalPrice   = errors.New("no final price recorded")

	// Gateway message validation errors
	ErrMessageTypeRequired = errors.New("message type is required")
	ErrAuctionIDRequired   = errors.New("auction_id is required")
	ErrInvalidAmount       = errors.New("valid amount is required")
	ErrItemIDRequired      = errors.New("item_id is required")
	ErrInvalidItemIDFormat = errors.New("invalid item_id format")
	ErrMinPriceRequired    = errors.New("min_price is required")
	ErrDurationRequired    = errors.New("duration_seconds is required")
	ErrUnknownMessageType  = errors.New("unknown message type")

	// Gateway handler errors
	ErrClientEventChannelNotFound = errors.New("client event channel not found")
)

// BidTooLowError rejects a bid below the current minimum acceptable amount.
// CurrentMin is the smallest amount that would be accepted right now, so the
// caller can retry correctly.
type BidTooLowError struct {
	CurrentMin int64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid too low: minimum acceptable amount is %d", e.CurrentMin)
}

// IsBidTooLow reports whether err is a BidTooLowError and returns it if so
func IsBidTooLow(err error) (*BidTooLowError, bool) {
	var e *BidTooLowError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
