package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"collectible-auction-engine/internal/domain/auction"
	"collectible-auction-engine/internal/domain/bid"
	"collectible-auction-engine/internal/domain/shared"
	"collectible-auction-engine/internal/ports/outbound"

	"github.com/google/uuid"
)

// Store is a concurrency-safe in-memory AuctionStore. It backs the engine
// tests and local runs without Postgres. Per-auction serialization is a
// mutex per auction id; wallet and inventory movements issued inside a
// WithAuction closure are staged and applied only when the closure commits,
// mirroring the transactional behavior of the Postgres store.
type Store struct {
	mu        sync.RWMutex
	auctions  map[uuid.UUID]*auction.Auction
	bids      map[uuid.UUID][]*bid.Bid
	locks     map[uuid.UUID]*sync.Mutex
	wallet    *Wallet
	inventory *Inventory
}

// NewStore creates a new in-memory store wired to the given collaborator fakes
func NewStore(wallet *Wallet, inventory *Inventory) *Store {
	return &Store{
		auctions:  make(map[uuid.UUID]*auction.Auction),
		bids:      make(map[uuid.UUID][]*bid.Bid),
		locks:     make(map[uuid.UUID]*sync.Mutex),
		wallet:    wallet,
		inventory: inventory,
	}
}

// CreateAuction inserts a new auction record
func (s *Store) CreateAuction(ctx context.Context, a *auction.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *a
	s.auctions[a.ID] = &cp
	s.locks[a.ID] = &sync.Mutex{}
	return nil
}

// GetAuction retrieves an auction by ID
func (s *Store) GetAuction(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.auctions[id]
	if !ok {
		return nil, shared.ErrAuctionNotFound
	}
	cp := *a
	return &cp, nil
}

// ListActive retrieves active auctions, newest first
func (s *Store) ListActive(ctx context.Context, limit int) ([]*auction.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []*auction.Auction
	for _, a := range s.auctions {
		if a.IsActive() {
			cp := *a
			active = append(active, &cp)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})
	if len(active) > limit {
		active = active[:limit]
	}
	return active, nil
}

// ListExpired retrieves the IDs of active auctions past their deadline
func (s *Store) ListExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []uuid.UUID
	for id, a := range s.auctions {
		if a.IsActive() && a.Expired(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// TopBids retrieves the highest bids for an auction, highest first
func (s *Store) TopBids(ctx context.Context, auctionID uuid.UUID, limit int) ([]*bid.Bid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ledger := s.bids[auctionID]
	top := make([]*bid.Bid, 0, len(ledger))
	for _, b := range ledger {
		cp := *b
		top = append(top, &cp)
	}
	sort.Slice(top, func(i, j int) bool {
		return top[i].Amount > top[j].Amount
	})
	if len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}

// WithAuction runs fn holding the auction's mutex. Staged mutations are
// applied only when fn returns nil.
func (s *Store) WithAuction(ctx context.Context, id uuid.UUID, fn func(tx outbound.AuctionTx) error) error {
	s.mu.RLock()
	lock, ok := s.locks[id]
	s.mu.RUnlock()
	if !ok {
		return shared.ErrAuctionNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	row, ok := s.auctions[id]
	if !ok {
		s.mu.RUnlock()
		return shared.ErrAuctionNotFound
	}
	working := *row
	s.mu.RUnlock()

	tx := &memTx{
		store:    s,
		a:        &working,
		walletTx: s.wallet.begin(),
		invTx:    s.inventory.begin(),
	}

	if err := fn(tx); err != nil {
		tx.walletTx.abort()
		return err
	}

	s.mu.Lock()
	s.auctions[id] = tx.a
	s.bids[id] = append(s.bids[id], tx.newBids...)
	s.mu.Unlock()

	tx.walletTx.commit()
	tx.invTx.commit()
	return nil
}

// memTx is the in-memory per-auction atomic unit
type memTx struct {
	store    *Store
	a        *auction.Auction
	newBids  []*bid.Bid
	walletTx *walletTx
	invTx    *inventoryTx
}

func (t *memTx) Auction() *auction.Auction {
	return t.a
}

func (t *memTx) LeadingBid(ctx context.Context) (*bid.Bid, error) {
	if len(t.newBids) > 0 {
		cp := *t.newBids[len(t.newBids)-1]
		return &cp, nil
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	ledger := t.store.bids[t.a.ID]
	if len(ledger) == 0 {
		return nil, shared.ErrNoBidsFound
	}
	// The ledger is append-only with strictly increasing amounts, so the
	// leading bid is the last one.
	cp := *ledger[len(ledger)-1]
	return &cp, nil
}

func (t *memTx) AppendBid(ctx context.Context, b *bid.Bid) error {
	cp := *b
	t.newBids = append(t.newBids, &cp)
	return nil
}

func (t *memTx) ExtendDeadline(ctx context.Context, endTime time.Time) error {
	t.a.EndTime = endTime
	t.a.UpdatedAt = time.Now()
	return nil
}

func (t *memTx) RecordOutcome(ctx context.Context, winnerID *uuid.UUID, finalPrice *int64) error {
	t.a.RecordOutcome(winnerID, finalPrice)
	return nil
}

func (t *memTx) MarkItemGranted(ctx context.Context) error {
	t.a.ItemGranted = true
	t.a.Settled = t.a.ItemGranted && t.a.SellerPaid
	t.a.UpdatedAt = time.Now()
	return nil
}

func (t *memTx) MarkSellerPaid(ctx context.Context) error {
	t.a.SellerPaid = true
	t.a.Settled = t.a.ItemGranted && t.a.SellerPaid
	t.a.UpdatedAt = time.Now()
	return nil
}

func (t *memTx) Wallet() outbound.Wallet {
	return t.walletTx
}

func (t *memTx) Inventory() outbound.InventoryReserve {
	return t.invTx
}
