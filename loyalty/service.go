/*
service.go - The ledger service state machine

PURPOSE:
  The only component other subsystems call. Orchestrates earn/redeem/
  adjust: validates input, atomically appends to the transaction log and
  updates the profile summary, re-resolves the tier, and returns a result
  snapshot.

CONCURRENCY:
  Each mutation executes as a single atomic unit scoped to one user:
  1. A per-user lock serializes mutations from this process.
  2. The profile row's version CAS (see store.go) guards out-of-band
     writers; on a version mismatch the whole read-mutate-commit cycle is
     retried up to RetryBudget times before surfacing ConflictError.
  3. Ledger append and summary update commit inside one store transaction.
  Reads (Profile, History) are served from the latest committed snapshot
  and never take the per-user lock.

TIER TRANSITIONS:
  A tier change is a pure side effect of lifetime points crossing a
  threshold. No separate "upgrade" transaction is recorded, and because
  lifetime points never decrease, tiers only move up.

ADJUSTMENT POLICY:
  Positive adjustments credit the spendable balance only. Lifetime points
  count EARN deltas exclusively, so adjustments are never tier-eligible.
  This is a deployment policy decision; it is pinned by the test suite.

SEE ALSO:
  - log.go: Ledger invariants
  - projector.go: Reconciliation
  - errors.go: The error taxonomy callers branch on
*/
package loyalty

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// SERVICE
// =============================================================================

const (
	defaultRetryBudget = 3
	defaultPageSize    = 20
	maxPageSize        = 100
)

type Service struct {
	Store    TxStore
	Tiers    *TierTable
	Benefits *BenefitCatalog

	// Clock and NewID are injectable for tests.
	Clock func() time.Time
	NewID func() TransactionID

	// RetryBudget bounds CAS retries before ConflictError.
	RetryBudget int

	locks userLocks
}

func NewService(store TxStore, tiers *TierTable, benefits *BenefitCatalog) *Service {
	return &Service{
		Store:       store,
		Tiers:       tiers,
		Benefits:    benefits,
		Clock:       func() time.Time { return time.Now().UTC() },
		NewID:       func() TransactionID { return TransactionID(ksuid.New().String()) },
		RetryBudget: defaultRetryBudget,
	}
}

// =============================================================================
// RESULTS
// =============================================================================

// Result is the snapshot returned by every successful mutation.
type Result struct {
	Transaction    Transaction
	NewBalance     int64
	LifetimePoints int64
	Tier           Tier
	PreviousTier   Tier
	TierChanged    bool

	// Earn only
	PointsAwarded int64
	Multiplier    decimal.Decimal
}

// HistoryPage is one page of a user's transaction history, newest first.
type HistoryPage struct {
	Transactions []Transaction
	Page         int
	PageSize     int

	// HasMore is a heuristic: true iff the page came back full-sized.
	// It is an approximation, not a precise "more data exists" guarantee.
	HasMore bool
}

// ProfileSnapshot bundles everything the profile boundary returns.
type ProfileSnapshot struct {
	Profile          Profile
	Benefits         []Benefit
	Multiplier       decimal.Decimal
	Thresholds       []TierDefinition
	NextTier         Tier // empty at the top tier
	PointsToNextTier int64
}

// TierInfo is the read-only projection for one tier.
type TierInfo struct {
	Definition TierDefinition
	Multiplier decimal.Decimal
	Benefits   []Benefit
}

// =============================================================================
// EARN
// =============================================================================

// Earn credits floor(baseAmount * tier multiplier) points, bumping both
// the spendable balance and the lifetime total, then re-resolves the tier.
func (s *Service) Earn(ctx context.Context, userID UserID, baseAmount int64, source, description, referenceID string) (Result, error) {
	if err := requireUser(userID); err != nil {
		return Result{}, err
	}
	if baseAmount <= 0 {
		return Result{}, &ValidationError{Field: "base_amount", Message: "must be positive"}
	}
	if source == "" {
		return Result{}, &ValidationError{Field: "source", Message: "required"}
	}

	var res Result
	profile, tx, err := s.mutate(ctx, userID, func(p *Profile) (Transaction, error) {
		multiplier := s.Benefits.MultiplierFor(p.Tier)
		points := MultiplyPoints(baseAmount, multiplier)

		res.PreviousTier = p.Tier
		res.PointsAwarded = points
		res.Multiplier = multiplier

		p.CurrentBalance += points
		p.LifetimePoints += points
		p.Tier = s.Tiers.Resolve(p.LifetimePoints)

		return Transaction{
			Delta:       points,
			Kind:        KindEarn,
			Source:      source,
			Description: description,
			ReferenceID: referenceID,
			CreatedBy:   string(userID),
		}, nil
	})
	if err != nil {
		return Result{}, err
	}

	res.Transaction = tx
	res.NewBalance = profile.CurrentBalance
	res.LifetimePoints = profile.LifetimePoints
	res.Tier = profile.Tier
	res.TierChanged = res.Tier != res.PreviousTier
	return res, nil
}

// Award credits an exact number of points without applying the tier
// multiplier. This is the administrative/system-triggered earning path;
// the points still count as EARN, so they raise lifetime points and can
// change the tier.
func (s *Service) Award(ctx context.Context, userID UserID, points int64, source, description, referenceID string) (Result, error) {
	if err := requireUser(userID); err != nil {
		return Result{}, err
	}
	if points <= 0 {
		return Result{}, &ValidationError{Field: "points", Message: "must be positive"}
	}
	if source == "" {
		source = SourceSystemAward
	}

	var res Result
	profile, tx, err := s.mutate(ctx, userID, func(p *Profile) (Transaction, error) {
		res.PreviousTier = p.Tier
		res.PointsAwarded = points
		res.Multiplier = One

		p.CurrentBalance += points
		p.LifetimePoints += points
		p.Tier = s.Tiers.Resolve(p.LifetimePoints)

		return Transaction{
			Delta:       points,
			Kind:        KindEarn,
			Source:      source,
			Description: description,
			ReferenceID: referenceID,
			CreatedBy:   "system",
		}, nil
	})
	if err != nil {
		return Result{}, err
	}

	res.Transaction = tx
	res.NewBalance = profile.CurrentBalance
	res.LifetimePoints = profile.LifetimePoints
	res.Tier = profile.Tier
	res.TierChanged = res.Tier != res.PreviousTier
	return res, nil
}

// =============================================================================
// REDEEM
// =============================================================================

// Redeem debits points from the spendable balance. Lifetime points and
// therefore tier are unchanged. Fails with InsufficientPointsError when
// the debit would drive the balance below zero; the check and the commit
// are atomic with respect to other operations on the same user.
func (s *Service) Redeem(ctx context.Context, userID UserID, points int64, source, description, referenceID string) (Result, error) {
	if err := requireUser(userID); err != nil {
		return Result{}, err
	}
	if points <= 0 {
		return Result{}, &ValidationError{Field: "points", Message: "must be positive"}
	}
	if source == "" {
		return Result{}, &ValidationError{Field: "source", Message: "required"}
	}

	var res Result
	profile, tx, err := s.mutate(ctx, userID, func(p *Profile) (Transaction, error) {
		if p.CurrentBalance-points < 0 {
			return Transaction{}, &InsufficientPointsError{
				UserID:    userID,
				Available: p.CurrentBalance,
				Requested: points,
			}
		}

		res.PreviousTier = p.Tier
		p.CurrentBalance -= points

		return Transaction{
			Delta:       -points,
			Kind:        KindRedeem,
			Source:      source,
			Description: description,
			ReferenceID: referenceID,
			CreatedBy:   string(userID),
		}, nil
	})
	if err != nil {
		return Result{}, err
	}

	res.Transaction = tx
	res.NewBalance = profile.CurrentBalance
	res.LifetimePoints = profile.LifetimePoints
	res.Tier = profile.Tier
	return res, nil
}

// =============================================================================
// ADJUST
// =============================================================================

// Adjust applies a signed administrative correction to the spendable
// balance. Negative adjustments must not overdraw the balance. Lifetime
// points are never touched, so adjustments cannot change the tier.
func (s *Service) Adjust(ctx context.Context, userID UserID, signedPoints int64, reason, adminID string) (Result, error) {
	if err := requireUser(userID); err != nil {
		return Result{}, err
	}
	if signedPoints == 0 {
		return Result{}, &ValidationError{Field: "points", Message: "must be non-zero"}
	}
	if reason == "" {
		return Result{}, &ValidationError{Field: "reason", Message: "required"}
	}
	if adminID == "" {
		return Result{}, &ValidationError{Field: "admin_id", Message: "required"}
	}

	var res Result
	profile, tx, err := s.mutate(ctx, userID, func(p *Profile) (Transaction, error) {
		if signedPoints < 0 && p.CurrentBalance+signedPoints < 0 {
			return Transaction{}, &InsufficientPointsError{
				UserID:    userID,
				Available: p.CurrentBalance,
				Requested: -signedPoints,
			}
		}

		res.PreviousTier = p.Tier
		p.CurrentBalance += signedPoints

		return Transaction{
			Delta:       signedPoints,
			Kind:        KindAdjustment,
			Source:      SourceAdminAdjustment,
			Description: reason,
			CreatedBy:   adminID,
		}, nil
	})
	if err != nil {
		return Result{}, err
	}

	res.Transaction = tx
	res.NewBalance = profile.CurrentBalance
	res.LifetimePoints = profile.LifetimePoints
	res.Tier = profile.Tier
	return res, nil
}

// =============================================================================
// READS
// =============================================================================

// History returns one page of the user's transactions, newest first.
// Page and size are normalized rather than rejected: page < 1 becomes 1,
// size falls back to the default and is capped.
func (s *Service) History(ctx context.Context, userID UserID, page, pageSize int) (HistoryPage, error) {
	if err := requireUser(userID); err != nil {
		return HistoryPage{}, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	log := NewLog(s.Store)
	txs, err := log.ListByUser(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return HistoryPage{}, err
	}

	return HistoryPage{
		Transactions: txs,
		Page:         page,
		PageSize:     pageSize,
		HasMore:      len(txs) == pageSize,
	}, nil
}

// Profile returns the user's summary plus tier context. Unknown users get
// the zero BRONZE profile; nothing is persisted on read.
func (s *Service) Profile(ctx context.Context, userID UserID) (ProfileSnapshot, error) {
	if err := requireUser(userID); err != nil {
		return ProfileSnapshot{}, err
	}

	stored, err := s.Store.GetProfile(ctx, userID)
	if err != nil {
		return ProfileSnapshot{}, &StorageError{Op: "load profile", Err: err}
	}

	profile := NewProfile(userID, s.Clock())
	if stored != nil {
		profile = *stored
	}

	next, _ := s.Tiers.Next(profile.Tier)
	return ProfileSnapshot{
		Profile:          profile,
		Benefits:         s.Benefits.BenefitsFor(profile.Tier),
		Multiplier:       s.Benefits.MultiplierFor(profile.Tier),
		Thresholds:       s.Tiers.Definitions(),
		NextTier:         next,
		PointsToNextTier: s.Tiers.PointsToNext(profile.LifetimePoints),
	}, nil
}

// TierInfo returns the read-only projection for one tier.
func (s *Service) TierInfo(t Tier) (TierInfo, error) {
	def, err := s.Tiers.Definition(t)
	if err != nil {
		return TierInfo{}, err
	}
	return TierInfo{
		Definition: def,
		Multiplier: s.Benefits.MultiplierFor(t),
		Benefits:   s.Benefits.BenefitsFor(t),
	}, nil
}

// AllTiers returns every tier's projection in ascending rank order.
func (s *Service) AllTiers() []TierInfo {
	defs := s.Tiers.Definitions()
	out := make([]TierInfo, 0, len(defs))
	for _, def := range defs {
		out = append(out, TierInfo{
			Definition: def,
			Multiplier: s.Benefits.MultiplierFor(def.Name),
			Benefits:   s.Benefits.BenefitsFor(def.Name),
		})
	}
	return out
}

// Verify exposes the projector's summary-vs-replay reconciliation.
func (s *Service) Verify(ctx context.Context, userID UserID) (*Drift, error) {
	return NewProjector(s.Store).Verify(ctx, userID)
}

// =============================================================================
// MUTATION CORE
// =============================================================================

// mutate runs one atomic read-mutate-commit cycle under the user's lock.
// fn validates business rules against the loaded profile, applies the
// balance changes, and returns the transaction to append (ID, timestamps
// and user are filled in here).
func (s *Service) mutate(ctx context.Context, userID UserID, fn func(p *Profile) (Transaction, error)) (Profile, Transaction, error) {
	unlock := s.locks.lock(userID)
	defer unlock()

	budget := s.RetryBudget
	if budget < 1 {
		budget = 1
	}

	for attempt := 1; ; attempt++ {
		profile, tx, err := s.tryMutate(ctx, userID, fn)
		if err == nil {
			return profile, tx, nil
		}
		if errors.Is(err, ErrConflict) {
			if attempt < budget {
				continue
			}
			return Profile{}, Transaction{}, &ConflictError{UserID: userID, Attempts: attempt}
		}
		return Profile{}, Transaction{}, err
	}
}

func (s *Service) tryMutate(ctx context.Context, userID UserID, fn func(p *Profile) (Transaction, error)) (Profile, Transaction, error) {
	now := s.Clock()
	var (
		committed Profile
		appended  Transaction
	)

	err := s.Store.WithTx(ctx, func(st Store) error {
		stored, err := st.GetProfile(ctx, userID)
		if err != nil {
			return &StorageError{Op: "load profile", Err: err}
		}

		profile := NewProfile(userID, now)
		if stored != nil {
			profile = *stored
		}

		tx, err := fn(&profile)
		if err != nil {
			return err
		}

		tx.ID = s.NewID()
		tx.UserID = userID
		tx.CreatedAt = now

		if err := NewLog(st).Append(ctx, tx); err != nil {
			return err
		}

		profile.Version++
		profile.UpdatedAt = now
		if err := st.SaveProfile(ctx, profile); err != nil {
			if errors.Is(err, ErrConflict) {
				return err
			}
			return &StorageError{Op: "save profile", Err: err}
		}

		committed = profile
		appended = tx
		return nil
	})
	if err != nil {
		// Commit/begin failures from the store arrive untyped.
		if !IsClientError(err) && !IsRetryable(err) {
			err = &StorageError{Op: "commit", Err: err}
		}
		return Profile{}, Transaction{}, err
	}

	return committed, appended, nil
}

func requireUser(userID UserID) error {
	if userID == "" {
		return &ValidationError{Field: "user_id", Message: "required"}
	}
	return nil
}

// =============================================================================
// PER-USER LOCKS
// =============================================================================

// userLocks serializes mutations per user. Locks are never evicted; the
// map is bounded by the active user population.
type userLocks struct {
	mu sync.Mutex
	m  map[UserID]*sync.Mutex
}

func (ul *userLocks) lock(userID UserID) (unlock func()) {
	ul.mu.Lock()
	if ul.m == nil {
		ul.m = make(map[UserID]*sync.Mutex)
	}
	l, ok := ul.m[userID]
	if !ok {
		l = &sync.Mutex{}
		ul.m[userID] = l
	}
	ul.mu.Unlock()

	l.Lock()
	return l.Unlock
}
