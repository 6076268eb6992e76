/*
log.go - Append-only transaction log

PURPOSE:
  The Log is the immutable source of truth for all balance changes. Every
  earn, redemption, and adjustment is recorded here. The profile summary
  can always be rebuilt by replaying it.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete. Ever.
  2. IMMUTABLE: Once written, transactions cannot be modified
  3. SIGN/KIND AGREEMENT: EARN deltas are non-negative, REDEEM deltas are
     negative, ADJUSTMENT deltas are non-zero

CORRECTIONS:
  Mistakes are never edited away. An offsetting ADJUSTMENT is appended and
  both entries remain in the ledger, so history always explains how the
  balance got to its current state.

SEE ALSO:
  - store.go: Low-level persistence interface
  - projector.go: Balance derivation by replay
*/
package loyalty

import "context"

// =============================================================================
// LOG - Append-only view over the Store
// =============================================================================

// Log enforces ledger invariants in front of a Store. It can be
// constructed over a transaction-scoped Store inside TxStore.WithTx.
type Log struct {
	store Store
}

func NewLog(store Store) *Log {
	return &Log{store: store}
}

// Append validates and persists a transaction.
func (l *Log) Append(ctx context.Context, tx Transaction) error {
	if tx.ID == "" {
		return &ValidationError{Field: "transaction_id", Message: "required"}
	}
	if tx.UserID == "" {
		return &ValidationError{Field: "user_id", Message: "required"}
	}
	if !tx.Kind.Valid() {
		return &ValidationError{Field: "kind", Message: "unknown kind: " + string(tx.Kind)}
	}
	switch tx.Kind {
	case KindEarn:
		if tx.Delta < 0 {
			return &ValidationError{Field: "delta", Message: "EARN delta must be non-negative"}
		}
	case KindRedeem:
		if tx.Delta >= 0 {
			return &ValidationError{Field: "delta", Message: "REDEEM delta must be negative"}
		}
	case KindAdjustment:
		if tx.Delta == 0 {
			return &ValidationError{Field: "delta", Message: "ADJUSTMENT delta must be non-zero"}
		}
	}

	if err := l.store.AppendTransaction(ctx, tx); err != nil {
		return &StorageError{Op: "append transaction", Err: err}
	}
	return nil
}

// ListByUser returns a page of the user's transactions, newest first.
func (l *Log) ListByUser(ctx context.Context, userID UserID, limit, offset int) ([]Transaction, error) {
	txs, err := l.store.TransactionsByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, &StorageError{Op: "list transactions", Err: err}
	}
	return txs, nil
}

// Replay returns all of the user's transactions, oldest first.
func (l *Log) Replay(ctx context.Context, userID UserID) ([]Transaction, error) {
	txs, err := l.store.TransactionsForReplay(ctx, userID)
	if err != nil {
		return nil, &StorageError{Op: "replay transactions", Err: err}
	}
	return txs, nil
}
