/*
projector.go - Balance derivation and reconciliation

PURPOSE:
  Answers "what is this user's balance?" two ways: from the maintained
  profile summary (fast path) and by full replay of the transaction log
  (reconciliation path). The two must always agree; Verify checks it.

WHY BOTH:
  The summary row is updated transactionally alongside every append, so
  reads never pay for a full replay. The replay stays as the ground truth
  for tests and the background reconciliation verifier.

SEE ALSO:
  - log.go: The replayed source of truth
  - api/verifier.go: Periodic drift detection
*/
package loyalty

import "context"

// =============================================================================
// PROJECTOR
// =============================================================================

type Projector struct {
	store Store
}

func NewProjector(store Store) *Projector {
	return &Projector{store: store}
}

// CurrentBalance returns the spendable balance from the summary row.
// Users without a profile have balance 0.
func (p *Projector) CurrentBalance(ctx context.Context, userID UserID) (int64, error) {
	profile, err := p.store.GetProfile(ctx, userID)
	if err != nil {
		return 0, &StorageError{Op: "load profile", Err: err}
	}
	if profile == nil {
		return 0, nil
	}
	return profile.CurrentBalance, nil
}

// LifetimePoints returns the cumulative EARN total from the summary row.
func (p *Projector) LifetimePoints(ctx context.Context, userID UserID) (int64, error) {
	profile, err := p.store.GetProfile(ctx, userID)
	if err != nil {
		return 0, &StorageError{Op: "load profile", Err: err}
	}
	if profile == nil {
		return 0, nil
	}
	return profile.LifetimePoints, nil
}

// =============================================================================
// FULL REPLAY - Reconciliation ground truth
// =============================================================================

// Totals is the result of replaying a user's full ledger.
type Totals struct {
	Balance        int64
	LifetimePoints int64
	Transactions   int
}

// Recompute derives the balance and lifetime total by replaying every
// transaction: balance is the sum of all signed deltas, lifetime counts
// EARN deltas only.
func (p *Projector) Recompute(ctx context.Context, userID UserID) (Totals, error) {
	txs, err := p.store.TransactionsForReplay(ctx, userID)
	if err != nil {
		return Totals{}, &StorageError{Op: "replay transactions", Err: err}
	}

	var t Totals
	for _, tx := range txs {
		t.Balance += tx.Delta
		if tx.Kind == KindEarn {
			t.LifetimePoints += tx.Delta
		}
		t.Transactions++
	}
	return t, nil
}

// Drift describes a disagreement between the summary row and the replay.
type Drift struct {
	UserID          UserID
	SummaryBalance  int64
	ReplayBalance   int64
	SummaryLifetime int64
	ReplayLifetime  int64
}

// Verify replays the ledger and compares it against the summary row.
// Returns nil when they agree (including the no-profile, no-transactions
// case).
func (p *Projector) Verify(ctx context.Context, userID UserID) (*Drift, error) {
	totals, err := p.Recompute(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile, err := p.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, &StorageError{Op: "load profile", Err: err}
	}

	var summaryBalance, summaryLifetime int64
	if profile != nil {
		summaryBalance = profile.CurrentBalance
		summaryLifetime = profile.LifetimePoints
	}

	if summaryBalance == totals.Balance && summaryLifetime == totals.LifetimePoints {
		return nil, nil
	}
	return &Drift{
		UserID:          userID,
		SummaryBalance:  summaryBalance,
		ReplayBalance:   totals.Balance,
		SummaryLifetime: summaryLifetime,
		ReplayLifetime:  totals.LifetimePoints,
	}, nil
}
