/*
store.go - Persistence interface for the ledger and profile summary

PURPOSE:
  Defines the interface between the domain logic and the database. The
  Store persists two things: the append-only transaction log (source of
  truth) and the profile summary row (materialized balance), which must
  commit together.

APPEND-ONLY CONTRACT:
  Transactions have exactly one write operation: AppendTransaction.
  There is no update or delete. Corrections are offsetting transactions.

PROFILE VERSIONING:
  SaveProfile performs an optimistic compare-and-swap: the write carries
  the new version and only succeeds if the stored row is still at
  version-1 (or absent, for version 1). A mismatch returns an error
  wrapping ErrConflict. The per-user lock in the service makes in-process
  conflicts impossible; the CAS guards out-of-band writers.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - loyalty/store/memory.go: In-memory for testing

SEE ALSO:
  - log.go: Higher-level transaction log over Store
  - service.go: Combines both writes inside WithTx
*/
package loyalty

import "context"

// =============================================================================
// STORE - Transaction log + profile summary persistence
// =============================================================================

type Store interface {
	// AppendTransaction persists a ledger entry. This is the only write
	// operation on the log.
	AppendTransaction(ctx context.Context, tx Transaction) error

	// TransactionsByUser returns a page of the user's transactions,
	// newest first. Paging is offset-based; the sequence is finite and
	// not restartable across calls without offset bookkeeping.
	TransactionsByUser(ctx context.Context, userID UserID, limit, offset int) ([]Transaction, error)

	// TransactionsForReplay returns ALL of the user's transactions,
	// oldest first, for full-replay reconciliation.
	TransactionsForReplay(ctx context.Context, userID UserID) ([]Transaction, error)

	// GetProfile returns the profile summary, or (nil, nil) when the
	// user has no profile yet.
	GetProfile(ctx context.Context, userID UserID) (*Profile, error)

	// SaveProfile upserts the summary row, conditioned on p.Version-1
	// being the stored version. Returns an error wrapping ErrConflict
	// on version mismatch.
	SaveProfile(ctx context.Context, p Profile) error
}

// =============================================================================
// TRANSACTIONAL STORE - Atomic append + summary update
// =============================================================================

// TxStore wraps Store with transaction support. The ledger append and the
// profile update commit together or not at all.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error
	// the transaction is rolled back, otherwise committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
