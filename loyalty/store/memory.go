// Package store provides Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/loyalty-engine/loyalty"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	transactions map[loyalty.UserID][]loyalty.Transaction // append order = chronological
	profiles     map[loyalty.UserID]loyalty.Profile
}

func NewMemory() *Memory {
	return &Memory{
		transactions: make(map[loyalty.UserID][]loyalty.Transaction),
		profiles:     make(map[loyalty.UserID]loyalty.Profile),
	}
}

// AppendTransaction adds a single transaction. Append-only.
func (m *Memory) AppendTransaction(_ context.Context, tx loyalty.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendLocked(tx)
	return nil
}

func (m *Memory) appendLocked(tx loyalty.Transaction) {
	m.transactions[tx.UserID] = append(m.transactions[tx.UserID], tx)
}

// TransactionsByUser returns a page, newest first.
func (m *Memory) TransactionsByUser(_ context.Context, userID loyalty.UserID, limit, offset int) ([]loyalty.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return pageNewestFirst(m.transactions[userID], limit, offset), nil
}

func pageNewestFirst(txs []loyalty.Transaction, limit, offset int) []loyalty.Transaction {
	if limit <= 0 || offset < 0 {
		return nil
	}
	var result []loyalty.Transaction
	for i := len(txs) - 1 - offset; i >= 0 && len(result) < limit; i-- {
		result = append(result, txs[i])
	}
	return result
}

// TransactionsForReplay returns everything, oldest first.
func (m *Memory) TransactionsForReplay(_ context.Context, userID loyalty.UserID) ([]loyalty.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]loyalty.Transaction, len(m.transactions[userID]))
	copy(result, m.transactions[userID])
	return result, nil
}

func (m *Memory) GetProfile(_ context.Context, userID loyalty.UserID) (*loyalty.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// SaveProfile upserts with a version check: the stored row must be at
// p.Version-1 (or absent when p.Version == 1).
func (m *Memory) SaveProfile(_ context.Context, p loyalty.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveProfileLocked(p)
}

func (m *Memory) saveProfileLocked(p loyalty.Profile) error {
	stored, ok := m.profiles[p.UserID]
	switch {
	case !ok && p.Version != 1:
		return fmt.Errorf("profile %s absent, expected version %d: %w", p.UserID, p.Version-1, loyalty.ErrConflict)
	case ok && stored.Version != p.Version-1:
		return fmt.Errorf("profile %s at version %d, expected %d: %w", p.UserID, stored.Version, p.Version-1, loyalty.ErrConflict)
	}
	m.profiles[p.UserID] = p
	return nil
}

// Users returns every user ID with a profile, sorted for determinism.
func (m *Memory) Users(_ context.Context) ([]loyalty.UserID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]loyalty.UserID, 0, len(m.profiles))
	for id := range m.profiles {
		users = append(users, id)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users, nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction. For the memory store this is
// simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(loyalty.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()

	if err := fn(&txMemoryView{parent: tm}); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

func (tm *TxMemory) snapshot() memorySnapshot {
	txsCopy := make(map[loyalty.UserID][]loyalty.Transaction)
	for k, v := range tm.transactions {
		txsCopy[k] = append([]loyalty.Transaction{}, v...)
	}
	profilesCopy := make(map[loyalty.UserID]loyalty.Profile)
	for k, v := range tm.profiles {
		profilesCopy[k] = v
	}
	return memorySnapshot{transactions: txsCopy, profiles: profilesCopy}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.transactions = s.transactions
	tm.profiles = s.profiles
}

type memorySnapshot struct {
	transactions map[loyalty.UserID][]loyalty.Transaction
	profiles     map[loyalty.UserID]loyalty.Profile
}

// txMemoryView operates on the parent's maps while the parent's mutex is
// held by WithTx.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) AppendTransaction(_ context.Context, tx loyalty.Transaction) error {
	tv.parent.appendLocked(tx)
	return nil
}

func (tv *txMemoryView) TransactionsByUser(_ context.Context, userID loyalty.UserID, limit, offset int) ([]loyalty.Transaction, error) {
	return pageNewestFirst(tv.parent.transactions[userID], limit, offset), nil
}

func (tv *txMemoryView) TransactionsForReplay(_ context.Context, userID loyalty.UserID) ([]loyalty.Transaction, error) {
	result := make([]loyalty.Transaction, len(tv.parent.transactions[userID]))
	copy(result, tv.parent.transactions[userID])
	return result, nil
}

func (tv *txMemoryView) GetProfile(_ context.Context, userID loyalty.UserID) (*loyalty.Profile, error) {
	p, ok := tv.parent.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (tv *txMemoryView) SaveProfile(_ context.Context, p loyalty.Profile) error {
	return tv.parent.saveProfileLocked(p)
}
