package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"collectible-auction-engine/internal/domain/shared"
	"collectible-auction-engine/internal/ports/inbound"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceBid_FirstBidMustReachMinPrice(t *testing.T) {
	h := newHarness(t)
	auctionID, _, _ := h.newAuction(t, 100, time.Hour)
	bidderID := h.newBidder(10000)

	tests := []struct {
		name    string
		amount  int64
		wantMin int64
	}{
		{name: "below min price", amount: 99, wantMin: 100},
		{name: "far below min price", amount: 1, wantMin: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.bidding.PlaceBid(context.Background(), inbound.PlaceBidRequest{
				AuctionID: auctionID,
				BidderID:  bidderID,
				Amount:    tt.amount,
			})
			tooLow, ok := shared.IsBidTooLow(err)
			require.True(t, ok, "expected a bid-too-low rejection")
			assert.Equal(t, tt.wantMin, tooLow.CurrentMin)
		})
	}

	// Exactly the minimum price is accepted for the first bid
	placed := h.placeBid(t, auctionID, bidderID, 100)
	assert.Equal(t, int64(100), placed.Amount)
	assert.Equal(t, int64(9900), h.balance(t, bidderID))
}

func TestPlaceBid_MustStrictlyExceedLeadingBid(t *testing.T) {
	h := newHarness(t)
	auctionID, _, _ := h.newAuction(t, 100, time.Hour)
	alice := h.newBidder(10000)
	bob := h.newBidder(10000)

	h.placeBid(t, auctionID, alice, 500)

	// A tie does not take the lead
	_, err := h.bidding.PlaceBid(context.Background(), inbound.PlaceBidRequest{
		AuctionID: auctionID,
		BidderID:  bob,
		Amount:    500,
	})
	tooLow, ok := shared.IsBidTooLow(err)
	require.True(t, ok)
	assert.Equal(t, int64(501), tooLow.CurrentMin)

	placed := h.placeBid(t, auctionID, bob, 501)
	assert.Equal(t, int64(501), placed.Amount)
}

func TestPlaceBid_EscrowAndRefund(t *testing.T) {
	h := newHarness(t)
	auctionID, _, _ := h.newAuction(t, 100, time.Hour)
	alice := h.newBidder(1000)
	bob := h.newBidder(1000)

	h.placeBid(t, auctionID, alice, 300)
	assert.Equal(t, int64(700), h.balance(t, alice))

	// Bob takes the lead: his funds go into escrow, Alice is refunded in full
	h.placeBid(t, auctionID, bob, 400)
	assert.Equal(t, int64(1000), h.balance(t, alice))
	assert.Equal(t, int64(600), h.balance(t, bob))

	// The outbid user is told about it
	require.Len(t, h.notifier.received(alice), 1)
	assert.Empty(t, h.notifier.received(bob))
}

func TestPlaceBid_SelfRaiseDebitsOnlyTheDelta(t *testing.T) {
	h := newHarness(t)
	auctionID, _, _ := h.newAuction(t, 100, time.Hour)
	alice := h.newBidder(1000)

	h.placeBid(t, auctionID, alice, 300)
	require.Equal(t, int64(700), h.balance(t, alice))

	h.placeBid(t, auctionID, alice, 450)
	assert.Equal(t, int64(550), h.balance(t, alice))

	// Raising your own bid is not an outbid event
	assert.Empty(t, h.notifier.received(alice))
}

func TestPlaceBid_SelfRaiseSucceedsWhenDeltaIsAffordable(t *testing.T) {
	// The escrowed amount counts as available: a leader with 100 free can
	// still raise 300 -> 400 even though 400 exceeds the free balance.
	h := newHarness(t)
	auctionID, _, _ := h.newAuction(t, 100, time.Hour)
	alice := h.newBidder(400)

	h.placeBid(t, auctionID, alice, 300)
	require.Equal(t, int64(100), h.balance(t, alice))

	h.placeBid(t, auctionID, alice, 400)
	assert.Equal(t, int64(0), h.balance(t, alice))
}

func TestPlaceBid_InsufficientFundsLeavesNoTrace(t *testing.T) {
	h := newHarness(t)
	auctionID, _, _ := h.newAuction(t, 100, time.Hour)
	alice := h.newBidder(1000)
	poor := h.newBidder(200)

	h.placeBid(t, auctionID, alice, 500)
	before, err := h.auctions.GetAuction(context.Background(), auctionID)
	require.NoError(t, err)

	_, err = h.bidding.PlaceBid(context.Background(), inbound.PlaceBidRequest{
		AuctionID: auctionID,
		BidderID:  poor,
		Amount:    600,
	})
	require.ErrorIs(t, err, shared.ErrInsufficientFunds)

	// No partial effects: balances, ledger and deadline are untouched
	assert.Equal(t, int64(200), h.balance(t, poor))
	assert.Equal(t, int64(500), h.balance(t, alice))

	bids, err := h.auctions.ListTopBids(context.Background(), auctionID, 10)
	require.NoError(t, err)
	require.Len(t, bids, 1)
	assert.Equal(t, alice, bids[0].BidderID)

	after, err := h.auctions.GetAuction(context.Background(), auctionID)
	require.NoError(t, err)
	assert.Equal(t, before.EndTime, after.EndTime)
}

func TestPlaceBid_RejectsUnknownAuction(t *testing.T) {
	h := newHarness(t)
	bidderID := h.newBidder(1000)

	_, err := h.bidding.PlaceBid(context.Background(), inbound.PlaceBidRequest{
		AuctionID: uuid.New(),
		BidderID:  bidderID,
		Amount:    100,
	})
	assert.ErrorIs(t, err, shared.ErrAuctionNotFound)
}

func TestPlaceBid_RejectsExpiredAuction(t *testing.T) {
	h := newHarness(t)
	auctionID, _, _ := h.newAuction(t, 100, time.Hour)
	bidderID := h.newBidder(1000)

	h.expire(t, auctionID)

	_, err := h.bidding.PlaceBid(context.Background(), inbound.PlaceBidRequest{
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    500,
	})
	require.ErrorIs(t, err, shared.ErrAuctionExpired)
	assert.Equal(t, int64(1000), h.balance(t, bidderID))
}

func TestPlaceBid_RejectsFinishedAuction(t *testing.T) {
	h := newHarness(t)
	auctionID, _, _ := h.newAuction(t, 100, time.Hour)
	alice := h.newBidder(1000)
	late := h.newBidder(1000)

	h.placeBid(t, auctionID, alice, 200)
	h.expire(t, auctionID)
	_, err := h.settler.Finalize(context.Background(), auctionID)
	require.NoError(t, err)

	_, err = h.bidding.PlaceBid(context.Background(), inbound.PlaceBidRequest{
		AuctionID: auctionID,
		BidderID:  late,
		Amount:    500,
	})
	assert.ErrorIs(t, err, shared.ErrAuctionExpired)
}

func TestPlaceBid_ResetsDeadlineToFullWindow(t *testing.T) {
	h := newHarness(t)
	auctionID, _, _ := h.newAuction(t, 100, time.Hour)
	bidderID := h.newBidder(10000)

	before, err := h.auctions.GetAuction(context.Background(), auctionID)
	require.NoError(t, err)

	start := time.Now()
	h.placeBid(t, auctionID, bidderID, 200)

	after, err := h.auctions.GetAuction(context.Background(), auctionID)
	require.NoError(t, err)

	// The countdown restarts at the bid window even when the previous
	// deadline was much further out.
	assert.True(t, after.EndTime.Before(before.EndTime))
	assert.WithinDuration(t, start.Add(h.bidTimeout), after.EndTime, time.Second)

	// The deadline index follows the new end time
	assert.Equal(t, after.EndTime, h.scheduler.scheduled[auctionID])
}

func TestPlaceBid_AmountsAreStrictlyIncreasing(t *testing.T) {
	h := newHarness(t)
	auctionID, _, _ := h.newAuction(t, 100, time.Hour)
	alice := h.newBidder(100000)
	bob := h.newBidder(100000)

	amounts := []int64{100, 150, 151, 300, 5000}
	bidders := []uuid.UUID{alice, bob, alice, bob, alice}
	for i, amount := range amounts {
		h.placeBid(t, auctionID, bidders[i], amount)
	}

	bids, err := h.auctions.ListTopBids(context.Background(), auctionID, len(amounts))
	require.NoError(t, err)
	require.Len(t, bids, len(amounts))
	for i := 1; i < len(bids); i++ {
		assert.Greater(t, bids[i-1].Amount, bids[i].Amount)
	}
}

func TestPlaceBid_ConcurrentBiddersKeepInvariants(t *testing.T) {
	h := newHarness(t)
	auctionID, _, _ := h.newAuction(t, 1, time.Hour)

	const bidders = 8
	const bidsEach = 25
	seed := int64(100000)

	ids := make([]uuid.UUID, bidders)
	for i := range ids {
		ids[i] = h.newBidder(seed)
	}

	var wg sync.WaitGroup
	for i, bidderID := range ids {
		wg.Add(1)
		go func(offset int64, bidderID uuid.UUID) {
			defer wg.Done()
			for n := int64(0); n < bidsEach; n++ {
				// Most of these lose the race and are rejected as too
				// low; only the interleaving that won may mutate state.
				h.bidding.PlaceBid(context.Background(), inbound.PlaceBidRequest{
					AuctionID: auctionID,
					BidderID:  bidderID,
					Amount:    offset + n*bidders,
				})
			}
		}(int64(i+1), bidderID)
	}
	wg.Wait()

	bids, err := h.auctions.ListTopBids(context.Background(), auctionID, bidders*bidsEach)
	require.NoError(t, err)
	require.NotEmpty(t, bids)
	for i := 1; i < len(bids); i++ {
		assert.Greater(t, bids[i-1].Amount, bids[i].Amount)
	}

	// Exactly the leading amount is escrowed, everything else is in wallets
	leading := bids[0]
	assert.Equal(t, seed*bidders, h.wallet.TotalBalance()+leading.Amount)

	balance := h.balance(t, leading.BidderID)
	assert.Equal(t, seed-leading.Amount, balance)
}

func TestPlaceBid_OneWalletAcrossTwoAuctions(t *testing.T) {
	h := newHarness(t)
	firstID, _, _ := h.newAuction(t, 1, time.Hour)
	secondID, _, _ := h.newAuction(t, 1, time.Hour)
	bidder := h.newBidder(100)

	// Both bids race for the same 100; the escrow holds must prevent the
	// wallet from funding both.
	var wg sync.WaitGroup
	for _, auctionID := range []uuid.UUID{firstID, secondID} {
		wg.Add(1)
		go func(auctionID uuid.UUID) {
			defer wg.Done()
			h.bidding.PlaceBid(context.Background(), inbound.PlaceBidRequest{
				AuctionID: auctionID,
				BidderID:  bidder,
				Amount:    100,
			})
		}(auctionID)
	}
	wg.Wait()

	var escrowed int64
	for _, auctionID := range []uuid.UUID{firstID, secondID} {
		bids, err := h.auctions.ListTopBids(context.Background(), auctionID, 1)
		require.NoError(t, err)
		if len(bids) == 1 {
			escrowed += bids[0].Amount
		}
	}

	// Exactly one bid was accepted and the wallet never went negative
	assert.Equal(t, int64(100), escrowed)
	assert.Equal(t, int64(0), h.balance(t, bidder))
}

func TestPlaceBid_ConservesTotalFunds(t *testing.T) {
	h := newHarness(t)
	auctionID, _, _ := h.newAuction(t, 100, time.Hour)
	alice := h.newBidder(1000)
	bob := h.newBidder(2000)

	h.placeBid(t, auctionID, alice, 200)
	h.placeBid(t, auctionID, bob, 300)
	h.placeBid(t, auctionID, alice, 700)

	// Every crystal is either in a wallet or escrowed behind the leading bid
	assert.Equal(t, int64(3000), h.wallet.TotalBalance()+700)
}
