package outbound

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DeadlineScheduler indexes auction deadlines so the settlement sweeper can
// find due auctions cheaply. It is an optimization, not the unit of truth:
// the sweeper's store scan catches anything the index misses.
type DeadlineScheduler interface {
	// Schedule records or moves an auction's deadline
	Schedule(ctx context.Context, auctionID uuid.UUID, endTime time.Time) error

	// Cancel drops an auction from the index
	Cancel(ctx context.Context, auctionID uuid.UUID) error
}
