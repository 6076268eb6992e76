/*
benefits.go - Per-tier benefit catalog

PURPOSE:
  Static mapping of tier -> benefits, including the earning multiplier
  applied to EARN operations. Loaded once, validated at load, then read
  concurrently without locking.

MULTIPLIERS:
  Each tier may carry a POINTS_MULTIPLIER benefit with a decimal value
  >= 1.0. Tiers without one default to 1.0. Multipliers must be
  non-decreasing by tier rank so a higher tier never earns slower.

SEE ALSO:
  - tier.go: Tier table
  - service.go: Applies MultiplierFor during Earn
*/
package loyalty

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BENEFITS
// =============================================================================

type BenefitType string

const (
	BenefitPointsMultiplier BenefitType = "POINTS_MULTIPLIER"
	BenefitFreeShipping     BenefitType = "FREE_SHIPPING"
	BenefitPrioritySupport  BenefitType = "PRIORITY_SUPPORT"
	BenefitBirthdayBonus    BenefitType = "BIRTHDAY_BONUS"
	BenefitEarlyAccess      BenefitType = "EARLY_ACCESS"
)

// Benefit is read-only configuration, not user data. Value is the typed
// payload: a decimal string for POINTS_MULTIPLIER ("1.5"), free-form for
// the rest ("true", "2x points in birthday month", ...).
type Benefit struct {
	Tier  Tier
	Type  BenefitType
	Value string
}

// =============================================================================
// BENEFIT CATALOG - Immutable after load
// =============================================================================

type BenefitCatalog struct {
	benefits    map[Tier][]Benefit
	multipliers map[Tier]decimal.Decimal
}

// NewBenefitCatalog validates and indexes the configured benefits.
// Multiplier values must parse as decimals >= 1.0 and be non-decreasing
// by tier rank.
func NewBenefitCatalog(benefits []Benefit) (*BenefitCatalog, error) {
	c := &BenefitCatalog{
		benefits:    make(map[Tier][]Benefit),
		multipliers: make(map[Tier]decimal.Decimal),
	}

	for _, b := range benefits {
		if !b.Tier.Valid() {
			return nil, fmt.Errorf("benefit for %s: %w", b.Tier, ErrUnknownTier)
		}
		if b.Type == BenefitPointsMultiplier {
			m, err := decimal.NewFromString(b.Value)
			if err != nil {
				return nil, fmt.Errorf("multiplier for %s: %q is not a decimal: %w", b.Tier, b.Value, ErrValidation)
			}
			if m.LessThan(One) {
				return nil, fmt.Errorf("multiplier for %s: %s is below 1.0: %w", b.Tier, m, ErrValidation)
			}
			if _, dup := c.multipliers[b.Tier]; dup {
				return nil, fmt.Errorf("multiplier for %s configured twice: %w", b.Tier, ErrValidation)
			}
			c.multipliers[b.Tier] = m
		}
		c.benefits[b.Tier] = append(c.benefits[b.Tier], b)
	}

	// Higher tiers must never earn slower than lower ones.
	prev := One
	for _, tier := range Tiers() {
		m := c.multiplierOrDefault(tier)
		if m.LessThan(prev) {
			return nil, fmt.Errorf("multiplier for %s (%s) decreases below previous tier (%s): %w",
				tier, m, prev, ErrValidation)
		}
		prev = m
	}

	return c, nil
}

// DefaultBenefitCatalog returns the standard benefit configuration.
func DefaultBenefitCatalog() *BenefitCatalog {
	c, err := NewBenefitCatalog([]Benefit{
		{Tier: TierBronze, Type: BenefitPointsMultiplier, Value: "1.0"},
		{Tier: TierSilver, Type: BenefitPointsMultiplier, Value: "1.25"},
		{Tier: TierSilver, Type: BenefitFreeShipping, Value: "true"},
		{Tier: TierGold, Type: BenefitPointsMultiplier, Value: "1.5"},
		{Tier: TierGold, Type: BenefitFreeShipping, Value: "true"},
		{Tier: TierGold, Type: BenefitPrioritySupport, Value: "true"},
		{Tier: TierPlatinum, Type: BenefitPointsMultiplier, Value: "2.0"},
		{Tier: TierPlatinum, Type: BenefitFreeShipping, Value: "true"},
		{Tier: TierPlatinum, Type: BenefitPrioritySupport, Value: "true"},
		{Tier: TierPlatinum, Type: BenefitBirthdayBonus, Value: "true"},
		{Tier: TierPlatinum, Type: BenefitEarlyAccess, Value: "true"},
	})
	if err != nil {
		panic(err) // static configuration, cannot fail
	}
	return c
}

// BenefitsFor returns the benefits configured for a tier (a copy).
func (c *BenefitCatalog) BenefitsFor(t Tier) []Benefit {
	out := make([]Benefit, len(c.benefits[t]))
	copy(out, c.benefits[t])
	return out
}

// MultiplierFor returns the tier's earning multiplier, defaulting to 1.0
// when no POINTS_MULTIPLIER benefit is configured.
func (c *BenefitCatalog) MultiplierFor(t Tier) decimal.Decimal {
	return c.multiplierOrDefault(t)
}

func (c *BenefitCatalog) multiplierOrDefault(t Tier) decimal.Decimal {
	if m, ok := c.multipliers[t]; ok {
		return m
	}
	return One
}
