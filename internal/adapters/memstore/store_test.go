package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"collectible-auction-engine/internal/domain/auction"
	"collectible-auction-engine/internal/domain/bid"
	"collectible-auction-engine/internal/domain/shared"
	"collectible-auction-engine/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuction() *auction.Auction {
	now := time.Now()
	return &auction.Auction{
		ID:        uuid.New(),
		ItemID:    uuid.New(),
		SellerID:  uuid.New(),
		MinPrice:  100,
		StartTime: now,
		EndTime:   now.Add(time.Hour),
		Status:    auction.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestWithAuction_UnknownAuction(t *testing.T) {
	store := NewStore(NewWallet(), NewInventory())

	err := store.WithAuction(context.Background(), uuid.New(), func(tx outbound.AuctionTx) error {
		t.Fatal("closure must not run for an unknown auction")
		return nil
	})
	assert.ErrorIs(t, err, shared.ErrAuctionNotFound)
}

func TestWithAuction_FailedClosureAppliesNothing(t *testing.T) {
	wallet := NewWallet()
	inventory := NewInventory()
	store := NewStore(wallet, inventory)

	a := newTestAuction()
	require.NoError(t, store.CreateAuction(context.Background(), a))

	userID := uuid.New()
	wallet.SetBalance(userID, 1000)
	originalEnd := a.EndTime

	boom := errors.New("boom")
	err := store.WithAuction(context.Background(), a.ID, func(tx outbound.AuctionTx) error {
		if err := tx.Wallet().Debit(context.Background(), userID, 400); err != nil {
			return err
		}
		if err := tx.Inventory().GrantOne(context.Background(), userID, a.ItemID); err != nil {
			return err
		}
		if err := tx.AppendBid(context.Background(), &bid.Bid{
			ID:        uuid.New(),
			AuctionID: a.ID,
			BidderID:  userID,
			Amount:    400,
			CreatedAt: time.Now(),
		}); err != nil {
			return err
		}
		if err := tx.ExtendDeadline(context.Background(), time.Now().Add(time.Minute)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Every staged mutation was discarded
	balance, err := wallet.Balance(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)
	assert.Equal(t, 0, inventory.Count(userID, a.ItemID))

	// The aborted debit released its hold: the full balance is spendable
	require.NoError(t, wallet.Debit(context.Background(), userID, 1000))

	stored, err := store.GetAuction(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, originalEnd, stored.EndTime)

	bids, err := store.TopBids(context.Background(), a.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, bids)
}

func TestWithAuction_CommitsOnSuccess(t *testing.T) {
	wallet := NewWallet()
	inventory := NewInventory()
	store := NewStore(wallet, inventory)

	a := newTestAuction()
	require.NoError(t, store.CreateAuction(context.Background(), a))

	userID := uuid.New()
	wallet.SetBalance(userID, 1000)
	newEnd := time.Now().Add(time.Minute)

	err := store.WithAuction(context.Background(), a.ID, func(tx outbound.AuctionTx) error {
		if err := tx.Wallet().Debit(context.Background(), userID, 400); err != nil {
			return err
		}
		if err := tx.AppendBid(context.Background(), &bid.Bid{
			ID:        uuid.New(),
			AuctionID: a.ID,
			BidderID:  userID,
			Amount:    400,
			CreatedAt: time.Now(),
		}); err != nil {
			return err
		}
		return tx.ExtendDeadline(context.Background(), newEnd)
	})
	require.NoError(t, err)

	balance, err := wallet.Balance(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), balance)

	stored, err := store.GetAuction(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, newEnd, stored.EndTime)

	bids, err := store.TopBids(context.Background(), a.ID, 10)
	require.NoError(t, err)
	require.Len(t, bids, 1)
	assert.Equal(t, int64(400), bids[0].Amount)
}

func TestWithAuction_LeadingBidSeesStagedBids(t *testing.T) {
	wallet := NewWallet()
	store := NewStore(wallet, NewInventory())

	a := newTestAuction()
	require.NoError(t, store.CreateAuction(context.Background(), a))

	err := store.WithAuction(context.Background(), a.ID, func(tx outbound.AuctionTx) error {
		if _, err := tx.LeadingBid(context.Background()); !errors.Is(err, shared.ErrNoBidsFound) {
			t.Fatalf("expected no bids, got %v", err)
		}

		require.NoError(t, tx.AppendBid(context.Background(), &bid.Bid{
			ID:        uuid.New(),
			AuctionID: a.ID,
			BidderID:  uuid.New(),
			Amount:    250,
			CreatedAt: time.Now(),
		}))

		leading, err := tx.LeadingBid(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(250), leading.Amount)
		return nil
	})
	require.NoError(t, err)
}

func TestWithAuction_ConcurrentDebitsCannotOverdraw(t *testing.T) {
	wallet := NewWallet()
	inventory := NewInventory()
	store := NewStore(wallet, inventory)

	first := newTestAuction()
	second := newTestAuction()
	require.NoError(t, store.CreateAuction(context.Background(), first))
	require.NoError(t, store.CreateAuction(context.Background(), second))

	userID := uuid.New()
	wallet.SetBalance(userID, 100)

	// While the first transaction holds a debit of the full balance, a
	// transaction on another auction must not be able to spend the same
	// funds again.
	err := store.WithAuction(context.Background(), first.ID, func(txA outbound.AuctionTx) error {
		require.NoError(t, txA.Wallet().Debit(context.Background(), userID, 100))

		errB := store.WithAuction(context.Background(), second.ID, func(txB outbound.AuctionTx) error {
			return txB.Wallet().Debit(context.Background(), userID, 100)
		})
		assert.ErrorIs(t, errB, shared.ErrInsufficientFunds)
		return nil
	})
	require.NoError(t, err)

	balance, err := wallet.Balance(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
	assert.GreaterOrEqual(t, wallet.TotalBalance(), int64(0))
}

func TestWallet_DebitRejectsOverdraft(t *testing.T) {
	wallet := NewWallet()
	userID := uuid.New()
	wallet.SetBalance(userID, 100)

	err := wallet.Debit(context.Background(), userID, 101)
	assert.ErrorIs(t, err, shared.ErrInsufficientFunds)

	require.NoError(t, wallet.Debit(context.Background(), userID, 100))
	err = wallet.Debit(context.Background(), userID, 1)
	assert.ErrorIs(t, err, shared.ErrInsufficientFunds)
}

func TestInventory_ReserveExhaustsUnits(t *testing.T) {
	inventory := NewInventory()
	userID := uuid.New()
	itemID := uuid.New()
	inventory.Grant(userID, itemID, 2)

	require.NoError(t, inventory.ReserveOne(context.Background(), userID, itemID))
	require.NoError(t, inventory.ReserveOne(context.Background(), userID, itemID))

	err := inventory.ReserveOne(context.Background(), userID, itemID)
	assert.ErrorIs(t, err, shared.ErrItemNotOwned)
	assert.Equal(t, 0, inventory.Count(userID, itemID))
}
