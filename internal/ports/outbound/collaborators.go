package outbound

import (
	"context"

	"github.com/google/uuid"
)

// Wallet is the currency contract the engine escrows against. Each call is
// atomic on its own; the engine pairs every debit with a later credit so the
// sum of balances plus escrowed leading bids stays invariant.
type Wallet interface {
	// Balance returns the user's free balance
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)

	// Debit removes amount from the user's balance, failing with
	// shared.ErrInsufficientFunds without any change when the balance
	// is too small
	Debit(ctx context.Context, userID uuid.UUID, amount int64) error

	// Credit adds amount to the user's balance
	Credit(ctx context.Context, userID uuid.UUID, amount int64) error
}

// InventoryReserve is the single-unit inventory contract. ReserveOne takes
// one copy out of the seller's inventory into escrow; settlement hands it
// back with ReturnOne or to the winner with GrantOne.
type InventoryReserve interface {
	// ReserveOne removes one unit of the item from the user's inventory,
	// failing with shared.ErrItemNotOwned when they hold none
	ReserveOne(ctx context.Context, userID, itemID uuid.UUID) error

	// ReturnOne puts one unit of the item back into the user's inventory
	ReturnOne(ctx context.Context, userID, itemID uuid.UUID) error

	// GrantOne adds one unit of the item to the user's inventory
	GrantOne(ctx context.Context, userID, itemID uuid.UUID) error
}

// Notifier delivers best-effort user notifications. Delivery failures are
// swallowed by implementations and never block or roll back engine state;
// the engine only calls Notify after the state change has committed.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, message string)
}
