/*
verifier.go - Background ledger reconciliation verifier

PURPOSE:
  Periodically recomputes every user's balance and lifetime points by
  replaying the full transaction log and compares the result against the
  materialized profile summary. Any disagreement (drift) is logged.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - The ledger is the source of truth; the summary is a cache of it
  - Drift never occurs when writes go through the service, so a hit
    here means a bug or out-of-band data modification

CONFIGURATION:
  - CheckInterval: How often to verify (default: 1 hour)
  - Enabled: Whether the verifier is active (default: true)

USAGE:
  v := NewLedgerVerifier(store, svc, logger)
  v.Start()
  // ... later
  v.Stop()

SEE ALSO:
  - loyalty/projector.go: Replay and drift detection
  - handlers.go: Per-user verify is also exposed via the admin API
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/warp/loyalty-engine/loyalty"
)

// UserLister enumerates every user with a profile summary. Both store
// implementations satisfy it.
type UserLister interface {
	Users(ctx context.Context) ([]loyalty.UserID, error)
}

// LedgerVerifier periodically reconciles summaries against the ledger.
type LedgerVerifier struct {
	Users         UserLister
	Service       *loyalty.Service
	Logger        *zap.Logger
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewLedgerVerifier creates a new verifier.
func NewLedgerVerifier(users UserLister, svc *loyalty.Service, logger *zap.Logger) *LedgerVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerVerifier{
		Users:         users,
		Service:       svc,
		Logger:        logger,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the verifier.
func (v *LedgerVerifier) Start() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.Enabled {
		v.Logger.Info("verifier disabled, not starting")
		return
	}

	v.ticker = time.NewTicker(v.CheckInterval)
	v.wg.Add(1)

	go v.run()

	v.Logger.Info("verifier started", zap.Duration("interval", v.CheckInterval))
}

// Stop stops the verifier.
func (v *LedgerVerifier) Stop() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.ticker != nil {
		v.ticker.Stop()
		close(v.stop)
		v.wg.Wait()
		v.Logger.Info("verifier stopped")
	}
}

func (v *LedgerVerifier) run() {
	defer v.wg.Done()

	// Run immediately on start
	v.verifyAll()

	for {
		select {
		case <-v.ticker.C:
			v.verifyAll()
		case <-v.stop:
			return
		}
	}
}

func (v *LedgerVerifier) verifyAll() {
	ctx := context.Background()

	users, err := v.Users.Users(ctx)
	if err != nil {
		v.Logger.Error("verifier failed to list users", zap.Error(err))
		return
	}

	checked := 0
	drifted := 0

	for _, userID := range users {
		drift, err := v.Service.Verify(ctx, userID)
		if err != nil {
			v.Logger.Error("verifier failed to check user",
				zap.String("user_id", string(userID)),
				zap.Error(err))
			continue
		}
		checked++

		if drift != nil {
			drifted++
			v.Logger.Warn("ledger drift detected",
				zap.String("user_id", string(drift.UserID)),
				zap.Int64("summary_balance", drift.SummaryBalance),
				zap.Int64("replay_balance", drift.ReplayBalance),
				zap.Int64("summary_lifetime", drift.SummaryLifetime),
				zap.Int64("replay_lifetime", drift.ReplayLifetime))
		}
	}

	if drifted > 0 {
		v.Logger.Warn("verification pass completed with drift",
			zap.Int("checked", checked), zap.Int("drifted", drifted))
	} else if checked > 0 {
		v.Logger.Info("verification pass completed",
			zap.Int("checked", checked))
	}
}

// RunNow triggers an immediate verification pass (for testing/admin).
func (v *LedgerVerifier) RunNow() {
	v.verifyAll()
}
