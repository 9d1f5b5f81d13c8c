package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"bankcore/internal/ledger"
)

// Memory is the in-process Store. Exclusive acquisition is a per-account
// channel mutex bounded by lockTimeout; an atomic unit works on deep
// copies and swaps them in under the catalog lock on commit, so a failed
// unit leaves no partial state behind.
type Memory struct {
	lockTimeout time.Duration

	mu       chanMutex // guards accounts, byNumber, log
	accounts map[uuid.UUID]*ledger.Account
	byNumber map[string]uuid.UUID
	locks    map[uuid.UUID]chanMutex
	log      []*ledger.Transaction
}

// chanMutex is a mutex that supports bounded acquisition.
type chanMutex chan struct{}

func newChanMutex() chanMutex { return make(chanMutex, 1) }

func (m chanMutex) lock()   { m <- struct{}{} }
func (m chanMutex) unlock() { <-m }

func (m chanMutex) lockBounded(ctx context.Context, timeout time.Duration) error {
	select {
	case m <- struct{}{}:
		return nil
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case m <- struct{}{}:
		return nil
	case <-timer.C:
		return ledger.ErrLockTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NewMemory builds a Memory store seeded with the given accounts.
// Account provisioning is external to the core, so seeds are the only way
// accounts come into existence here.
func NewMemory(lockTimeout time.Duration, seed ...*ledger.Account) *Memory {
	m := &Memory{
		lockTimeout: lockTimeout,
		mu:          newChanMutex(),
		accounts:    make(map[uuid.UUID]*ledger.Account, len(seed)),
		byNumber:    make(map[string]uuid.UUID, len(seed)),
		locks:       make(map[uuid.UUID]chanMutex, len(seed)),
	}
	for _, acc := range seed {
		cp := acc.Clone()
		m.accounts[cp.ID] = cp
		m.byNumber[cp.Number] = cp.ID
		m.locks[cp.ID] = newChanMutex()
	}
	return m
}

func (m *Memory) Atomic(ctx context.Context, fn func(Unit) error) error {
	u := &memUnit{store: m, staged: make(map[uuid.UUID]*ledger.Account)}
	defer u.release()

	if err := fn(u); err != nil {
		return err
	}
	u.commit()
	return nil
}

func (m *Memory) FindByNumber(ctx context.Context, number string) (*ledger.Account, error) {
	m.mu.lock()
	defer m.mu.unlock()
	id, ok := m.byNumber[number]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return m.accounts[id].Clone(), nil
}

func (m *Memory) FindAllOwnedBy(ctx context.Context, userID uuid.UUID) ([]*ledger.Account, error) {
	m.mu.lock()
	defer m.mu.unlock()
	var out []*ledger.Account
	for _, acc := range m.accounts {
		if acc.OwnerID == userID {
			out = append(out, acc.Clone())
		}
	}
	sortByNumber(out)
	return out, nil
}

func (m *Memory) FindAll(ctx context.Context) ([]*ledger.Account, error) {
	m.mu.lock()
	defer m.mu.unlock()
	out := make([]*ledger.Account, 0, len(m.accounts))
	for _, acc := range m.accounts {
		out = append(out, acc.Clone())
	}
	sortByNumber(out)
	return out, nil
}

func (m *Memory) TransactionsFor(ctx context.Context, accountID uuid.UUID, limit int) ([]*ledger.Transaction, error) {
	m.mu.lock()
	defer m.mu.unlock()
	var out []*ledger.Transaction
	for i := len(m.log) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		tx := m.log[i]
		if tx.FromAccountID == accountID || (tx.ToAccountID != nil && *tx.ToAccountID == accountID) {
			cp := *tx
			out = append(out, &cp)
		}
	}
	return out, nil
}

func sortByNumber(accs []*ledger.Account) {
	sort.Slice(accs, func(i, j int) bool { return accs[i].Number < accs[j].Number })
}

// memUnit stages mutations until commit. held preserves acquisition order
// so release can run unconditionally from a defer.
type memUnit struct {
	store  *Memory
	held   []uuid.UUID
	staged map[uuid.UUID]*ledger.Account
	dirty  []uuid.UUID
	txs    []*ledger.Transaction
	done   bool
}

func (u *memUnit) AcquireExclusive(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	// Re-acquisition inside one unit returns the working copy.
	if acc, ok := u.staged[id]; ok {
		return acc, nil
	}

	u.store.mu.lock()
	lock, ok := u.store.locks[id]
	u.store.mu.unlock()
	if !ok {
		return nil, ledger.ErrNotFound
	}

	if err := lock.lockBounded(ctx, u.store.lockTimeout); err != nil {
		return nil, err
	}
	u.held = append(u.held, id)

	u.store.mu.lock()
	acc := u.store.accounts[id].Clone()
	u.store.mu.unlock()

	u.staged[id] = acc
	return acc, nil
}

func (u *memUnit) Persist(ctx context.Context, acc *ledger.Account) error {
	staged, ok := u.staged[acc.ID]
	if !ok || staged != acc {
		return fmt.Errorf("persist of account %s not acquired by this unit", acc.ID)
	}
	u.dirty = append(u.dirty, acc.ID)
	return nil
}

func (u *memUnit) AppendTransaction(ctx context.Context, tx *ledger.Transaction) error {
	cp := *tx
	u.txs = append(u.txs, &cp)
	return nil
}

func (u *memUnit) commit() {
	u.store.mu.lock()
	for _, id := range u.dirty {
		acc := u.staged[id].Clone()
		acc.Version++
		u.store.accounts[id] = acc
	}
	u.store.log = append(u.store.log, u.txs...)
	u.store.mu.unlock()
	u.releaseLocks()
	u.done = true
}

func (u *memUnit) release() {
	if u.done {
		return
	}
	u.releaseLocks()
	u.done = true
}

func (u *memUnit) releaseLocks() {
	for i := len(u.held) - 1; i >= 0; i-- {
		u.store.locks[u.held[i]].unlock()
	}
	u.held = nil
}
