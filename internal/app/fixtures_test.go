package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"collectible-auction-engine/internal/adapters/memstore"
	"collectible-auction-engine/internal/ports/inbound"
	"collectible-auction-engine/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// recordingNotifier captures notifications for assertions
type recordingNotifier struct {
	mu       sync.Mutex
	messages map[uuid.UUID][]string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{messages: make(map[uuid.UUID][]string)}
}

func (n *recordingNotifier) Notify(ctx context.Context, userID uuid.UUID, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages[userID] = append(n.messages[userID], message)
}

func (n *recordingNotifier) received(userID uuid.UUID) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages[userID]...)
}

// recordingScheduler captures deadline scheduling calls
type recordingScheduler struct {
	mu        sync.Mutex
	scheduled map[uuid.UUID]time.Time
	cancelled map[uuid.UUID]bool
}

func newRecordingScheduler() *recordingScheduler {
	return &recordingScheduler{
		scheduled: make(map[uuid.UUID]time.Time),
		cancelled: make(map[uuid.UUID]bool),
	}
}

func (s *recordingScheduler) Schedule(ctx context.Context, auctionID uuid.UUID, endTime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled[auctionID] = endTime
	return nil
}

func (s *recordingScheduler) Cancel(ctx context.Context, auctionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled[auctionID] = true
	return nil
}

// harness wires the engine services against the in-memory store and fakes
type harness struct {
	wallet    *memstore.Wallet
	inventory *memstore.Inventory
	store     *memstore.Store
	notifier  *recordingNotifier
	scheduler *recordingScheduler
	settler   *Settler
	bidding   *BiddingEngine
	auctions  *AuctionService

	bidTimeout time.Duration
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	wallet := memstore.NewWallet()
	inventory := memstore.NewInventory()
	store := memstore.NewStore(wallet, inventory)
	notifier := newRecordingNotifier()
	scheduler := newRecordingScheduler()
	logger := zerolog.Nop()
	bidTimeout := 10 * time.Second

	settler := NewSettler(SettlerParams{
		Store:     store,
		Notifier:  notifier,
		Scheduler: scheduler,
		Logger:    logger,
	})
	bidding := NewBiddingEngine(BiddingEngineParams{
		Store:      store,
		Settler:    settler,
		Notifier:   notifier,
		Scheduler:  scheduler,
		BidTimeout: bidTimeout,
		Logger:     logger,
	})
	auctions := NewAuctionService(AuctionServiceParams{
		Store:     store,
		Inventory: inventory,
		Settler:   settler,
		Scheduler: scheduler,
		Logger:    logger,
	})

	return &harness{
		wallet:     wallet,
		inventory:  inventory,
		store:      store,
		notifier:   notifier,
		scheduler:  scheduler,
		settler:    settler,
		bidding:    bidding,
		auctions:   auctions,
		bidTimeout: bidTimeout,
	}
}

// newAuction seeds a seller holding one unit of a fresh item and opens an
// auction for it
func (h *harness) newAuction(t *testing.T, minPrice int64, duration time.Duration) (auctionID, sellerID, itemID uuid.UUID) {
	t.Helper()

	sellerID = uuid.New()
	itemID = uuid.New()
	h.inventory.Grant(sellerID, itemID, 1)

	auctionID, err := h.auctions.CreateAuction(context.Background(), inbound.CreateAuctionRequest{
		SellerID: sellerID,
		ItemID:   itemID,
		MinPrice: minPrice,
		Duration: duration,
	})
	require.NoError(t, err)
	return auctionID, sellerID, itemID
}

// newBidder seeds a user with the given balance
func (h *harness) newBidder(balance int64) uuid.UUID {
	bidderID := uuid.New()
	h.wallet.SetBalance(bidderID, balance)
	return bidderID
}

// placeBid is a shorthand for a bid that is expected to succeed
func (h *harness) placeBid(t *testing.T, auctionID, bidderID uuid.UUID, amount int64) *inbound.BidView {
	t.Helper()

	placed, err := h.bidding.PlaceBid(context.Background(), inbound.PlaceBidRequest{
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
	})
	require.NoError(t, err)
	return placed
}

// expire rewrites the auction deadline into the past so settlement becomes due
func (h *harness) expire(t *testing.T, auctionID uuid.UUID) {
	t.Helper()

	err := h.store.WithAuction(context.Background(), auctionID, func(tx outbound.AuctionTx) error {
		return tx.ExtendDeadline(context.Background(), time.Now().Add(-time.Second))
	})
	require.NoError(t, err)
}

func (h *harness) balance(t *testing.T, userID uuid.UUID) int64 {
	t.Helper()

	balance, err := h.wallet.Balance(context.Background(), userID)
	require.NoError(t, err)
	return balance
}
