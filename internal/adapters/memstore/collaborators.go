package memstore

import (
	"context"
	"sync"

	"collectible-auction-engine/internal/domain/shared"

	"github.com/google/uuid"
)

// Wallet is an atomic in-memory wallet fake. reserved tracks, per user, the
// amounts debited by transactions that have not committed or aborted yet, so
// concurrent transactions on different auctions see each other's holds and
// cannot jointly overdraw a balance.
type Wallet struct {
	mu       sync.Mutex
	balances map[uuid.UUID]int64
	reserved map[uuid.UUID]int64
}

// NewWallet creates a new in-memory wallet
func NewWallet() *Wallet {
	return &Wallet{
		balances: make(map[uuid.UUID]int64),
		reserved: make(map[uuid.UUID]int64),
	}
}

// SetBalance seeds a user's balance
func (w *Wallet) SetBalance(userID uuid.UUID, amount int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[userID] = amount
}

// TotalBalance returns the sum of all balances, for conservation checks
func (w *Wallet) TotalBalance() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	var sum int64
	for _, b := range w.balances {
		sum += b
	}
	return sum
}

// Balance returns the user's free balance
func (w *Wallet) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[userID], nil
}

// Debit removes amount from the user's balance
func (w *Wallet) Debit(ctx context.Context, userID uuid.UUID, amount int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.balances[userID]-w.reserved[userID] < amount {
		return shared.ErrInsufficientFunds
	}
	w.balances[userID] -= amount
	return nil
}

// Credit adds amount to the user's balance
func (w *Wallet) Credit(ctx context.Context, userID uuid.UUID, amount int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[userID] += amount
	return nil
}

// walletTx stages wallet movements until its WithAuction closure commits.
// Debits are reserved in the shared Wallet while the transaction is open so
// transactions on other auctions cannot spend the same funds; the
// reservation is released on commit or abort.
type walletTx struct {
	wallet      *Wallet
	delta       map[uuid.UUID]int64
	reservedOwn map[uuid.UUID]int64
}

func (w *Wallet) begin() *walletTx {
	return &walletTx{
		wallet:      w,
		delta:       make(map[uuid.UUID]int64),
		reservedOwn: make(map[uuid.UUID]int64),
	}
}

func (t *walletTx) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	t.wallet.mu.Lock()
	defer t.wallet.mu.Unlock()
	return t.wallet.balances[userID] + t.delta[userID], nil
}

func (t *walletTx) Debit(ctx context.Context, userID uuid.UUID, amount int64) error {
	t.wallet.mu.Lock()
	defer t.wallet.mu.Unlock()
	othersHold := t.wallet.reserved[userID] - t.reservedOwn[userID]
	if t.wallet.balances[userID]+t.delta[userID]-othersHold < amount {
		return shared.ErrInsufficientFunds
	}
	t.delta[userID] -= amount
	t.reservedOwn[userID] += amount
	t.wallet.reserved[userID] += amount
	return nil
}

func (t *walletTx) Credit(ctx context.Context, userID uuid.UUID, amount int64) error {
	t.wallet.mu.Lock()
	defer t.wallet.mu.Unlock()
	t.delta[userID] += amount
	return nil
}

func (t *walletTx) commit() {
	t.wallet.mu.Lock()
	defer t.wallet.mu.Unlock()
	for userID, d := range t.delta {
		t.wallet.balances[userID] += d
	}
	t.release()
}

func (t *walletTx) abort() {
	t.wallet.mu.Lock()
	defer t.wallet.mu.Unlock()
	t.release()
}

// release drops this transaction's holds; the caller holds wallet.mu
func (t *walletTx) release() {
	for userID, r := range t.reservedOwn {
		t.wallet.reserved[userID] -= r
		if t.wallet.reserved[userID] <= 0 {
			delete(t.wallet.reserved, userID)
		}
	}
	t.reservedOwn = make(map[uuid.UUID]int64)
}

// Inventory is an atomic in-memory inventory fake. It tracks unit counts per
// user and item the way the surrounding application's inventory store does.
type Inventory struct {
	mu    sync.Mutex
	units map[uuid.UUID]map[uuid.UUID]int
}

// NewInventory creates a new in-memory inventory
func NewInventory() *Inventory {
	return &Inventory{units: make(map[uuid.UUID]map[uuid.UUID]int)}
}

// Grant seeds a user's inventory with n units of an item
func (inv *Inventory) Grant(userID, itemID uuid.UUID, n int) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.add(userID, itemID, n)
}

// Count returns how many units of an item a user holds
func (inv *Inventory) Count(userID, itemID uuid.UUID) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.units[userID][itemID]
}

// TotalUnits returns the total unit count of an item across all users, for
// conservation checks
func (inv *Inventory) TotalUnits(itemID uuid.UUID) int {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	var sum int
	for _, items := range inv.units {
		sum += items[itemID]
	}
	return sum
}

func (inv *Inventory) add(userID, itemID uuid.UUID, n int) {
	items, ok := inv.units[userID]
	if !ok {
		items = make(map[uuid.UUID]int)
		inv.units[userID] = items
	}
	items[itemID] += n
	if items[itemID] <= 0 {
		delete(items, itemID)
	}
}

// ReserveOne removes one unit of the item from the user's inventory
func (inv *Inventory) ReserveOne(ctx context.Context, userID, itemID uuid.UUID) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.units[userID][itemID] <= 0 {
		return shared.ErrItemNotOwned
	}
	inv.add(userID, itemID, -1)
	return nil
}

// ReturnOne puts one unit of the item back into the user's inventory
func (inv *Inventory) ReturnOne(ctx context.Context, userID, itemID uuid.UUID) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.add(userID, itemID, 1)
	return nil
}

// GrantOne adds one unit of the item to the user's inventory
func (inv *Inventory) GrantOne(ctx context.Context, userID, itemID uuid.UUID) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.add(userID, itemID, 1)
	return nil
}

// inventoryMove is one staged unit movement
type inventoryMove struct {
	userID uuid.UUID
	itemID uuid.UUID
	n      int
}

// inventoryTx stages inventory movements until its closure commits
type inventoryTx struct {
	inventory *Inventory
	moves     []inventoryMove
}

func (inv *Inventory) begin() *inventoryTx {
	return &inventoryTx{inventory: inv}
}

func (t *inventoryTx) ReserveOne(ctx context.Context, userID, itemID uuid.UUID) error {
	t.inventory.mu.Lock()
	defer t.inventory.mu.Unlock()
	held := t.inventory.units[userID][itemID]
	for _, m := range t.moves {
		if m.userID == userID && m.itemID == itemID {
			held += m.n
		}
	}
	if held <= 0 {
		return shared.ErrItemNotOwned
	}
	t.moves = append(t.moves, inventoryMove{userID, itemID, -1})
	return nil
}

func (t *inventoryTx) ReturnOne(ctx context.Context, userID, itemID uuid.UUID) error {
	t.moves = append(t.moves, inventoryMove{userID, itemID, 1})
	return nil
}

func (t *inventoryTx) GrantOne(ctx context.Context, userID, itemID uuid.UUID) error {
	t.moves = append(t.moves, inventoryMove{userID, itemID, 1})
	return nil
}

func (t *inventoryTx) commit() {
	t.inventory.mu.Lock()
	defer t.inventory.mu.Unlock()
	for _, m := range t.moves {
		t.inventory.add(m.userID, m.itemID, m.n)
	}
}
