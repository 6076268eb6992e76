/*
Package loyalty provides the core points ledger and tier engine.

PURPOSE:
  This package contains the domain types and algorithms for tracking a
  customer's reward-point balance: an append-only transaction log as the
  source of truth, a balance projector that derives spendable balance and
  lifetime earnings, a tier resolver over configurable thresholds, and the
  ledger service that orchestrates earn/redeem/adjust operations.

KEY CONCEPTS IN THIS FILE (types.go):
  - Transaction: An immutable ledger entry recording a signed point delta
  - Profile: The materialized balance summary for one user
  - Tier: A membership level derived purely from lifetime points
  - User/Transaction IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Immutability: Transactions are never modified, only offset
  2. Derivation: Tier and balance are functions of the ledger, never
     independently-mutable state that can drift
  3. Precision: decimal.Decimal for multipliers; int64 for point balances
  4. Auditability: Every transaction carries source, description, reference

USAGE:
  tx := loyalty.Transaction{
      UserID: "user-123",
      Delta:  500,
      Kind:   loyalty.KindEarn,
      Source: loyalty.SourcePurchase,
  }

SEE ALSO:
  - log.go: Append-only transaction log
  - projector.go: Balance derivation and reconciliation
  - tier.go: Tier resolution from lifetime points
  - service.go: The ledger service state machine
*/
package loyalty

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type TransactionID string

// =============================================================================
// TIER - Membership level derived from lifetime points
// =============================================================================

type Tier string

const (
	TierBronze   Tier = "BRONZE"
	TierSilver   Tier = "SILVER"
	TierGold     Tier = "GOLD"
	TierPlatinum Tier = "PLATINUM"
)

// Tiers lists all tiers in ascending rank order.
// The order is load-bearing: resolution and monotonicity checks walk it.
func Tiers() []Tier {
	return []Tier{TierBronze, TierSilver, TierGold, TierPlatinum}
}

// Rank returns the tier's position in the ascending order (BRONZE=0).
// Returns -1 for unknown tiers.
func (t Tier) Rank() int {
	for i, tier := range Tiers() {
		if tier == t {
			return i
		}
	}
	return -1
}

func (t Tier) Valid() bool { return t.Rank() >= 0 }

// ParseTier converts a string to a Tier. Case-sensitive by design:
// tiers are stored and transmitted in their canonical upper-case form.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !t.Valid() {
		return "", &ValidationError{Field: "tier", Message: "unknown tier: " + s}
	}
	return t, nil
}

// =============================================================================
// TRANSACTION - Atomic change to a user's point balance
// =============================================================================

type TransactionKind string

const (
	KindEarn       TransactionKind = "EARN"       // Points credited from activity (tier-multiplied)
	KindRedeem     TransactionKind = "REDEEM"     // Points spent on a reward
	KindAdjustment TransactionKind = "ADJUSTMENT" // Manual admin correction (signed)
)

func (k TransactionKind) Valid() bool {
	switch k {
	case KindEarn, KindRedeem, KindAdjustment:
		return true
	}
	return false
}

// Well-known transaction sources. Source is free-form classification;
// these constants cover the paths this service itself produces.
const (
	SourcePurchase         = "PURCHASE"
	SourceManualRedemption = "MANUAL_REDEMPTION"
	SourceRewardRedemption = "REWARD_REDEMPTION"
	SourceAdminAdjustment  = "ADMIN_ADJUSTMENT"
	SourceSystemAward      = "SYSTEM_AWARD"
)

// Transaction is an immutable ledger entry. Once written it is never
// mutated or deleted; corrections are new offsetting transactions.
type Transaction struct {
	ID          TransactionID
	UserID      UserID
	Delta       int64 // signed; positive credits, negative debits
	Kind        TransactionKind
	Source      string
	Description string
	ReferenceID string // optional correlation to an external order/reward

	// CreatedBy records the actor behind the mutation: a user ID for
	// self-service operations, an admin ID for adjustments, "system"
	// for automated awards.
	CreatedBy string

	CreatedAt time.Time
}

// =============================================================================
// PROFILE - Materialized balance summary for one user
// =============================================================================

// Profile is the maintained summary row updated transactionally alongside
// each ledger append. It must always agree with a full replay of the log;
// Projector.Verify exists to check that.
type Profile struct {
	UserID UserID
	Tier   Tier

	// LifetimePoints is monotonically non-decreasing: only EARN deltas
	// increase it, nothing decreases it.
	LifetimePoints int64

	// CurrentBalance is the spendable total; never negative.
	CurrentBalance int64

	// Version increments on every committed mutation. Writes are
	// conditioned on the previous version (optimistic CAS).
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewProfile returns the lazily-created zero profile for a user.
func NewProfile(userID UserID, now time.Time) Profile {
	return Profile{
		UserID:    userID,
		Tier:      TierBronze,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// =============================================================================
// MULTIPLIER HELPERS
// =============================================================================

// MultiplyPoints applies a tier multiplier to a base amount and floors the
// result: points = floor(base * multiplier).
func MultiplyPoints(base int64, multiplier decimal.Decimal) int64 {
	return decimal.NewFromInt(base).Mul(multiplier).Floor().IntPart()
}

// One is the identity multiplier.
var One = decimal.NewFromInt(1)
