/*
tier.go - Tier resolution from lifetime points

PURPOSE:
  Maps lifetime-earned points to a tier over a validated threshold table.
  Resolution is a pure function: the tier is always derived from lifetime
  points, never stored as independently-mutable state that can drift.

THRESHOLD MODEL:
  Each tier is configured with an ADVANCE threshold: the lifetime points
  needed to move past it (e.g. BRONZE 1000 means SILVER starts at 1000).
  Entry thresholds derive from the previous tier's advance threshold, with
  the base tier entering at 0. The top tier's advance threshold is the
  final progress milestone shown to users.

  Defaults: 1000 / 5000 / 15000 / 50000, so entry points are
  BRONZE 0, SILVER 1000, GOLD 5000, PLATINUM 15000.

MONOTONICITY:
  Advance thresholds must be strictly increasing across the ordered tier
  list; the table is validated once at load. Because lifetime points never
  decrease, a user's tier is non-decreasing over time.

SEE ALSO:
  - benefits.go: Per-tier benefits and multipliers
  - factory/program.go: Configuration loading and validation
*/
package loyalty

import "fmt"

// =============================================================================
// TIER DEFINITION
// =============================================================================

type TierDefinition struct {
	Name Tier

	// EntryThreshold is the lifetime points required to enter the tier.
	// 0 for the base tier.
	EntryThreshold int64

	// AdvanceThreshold is the lifetime points required to move past the
	// tier. For the top tier this is a display milestone only.
	AdvanceThreshold int64
}

// =============================================================================
// TIER TABLE - Validated, immutable after load
// =============================================================================

// TierTable holds the ordered tier definitions. Immutable after
// construction; safe for concurrent reads without locking.
type TierTable struct {
	defs []TierDefinition
}

// NewTierTable builds and validates a table from per-tier advance
// thresholds. All four tiers must be present and the thresholds strictly
// increasing in rank order.
func NewTierTable(advance map[Tier]int64) (*TierTable, error) {
	defs := make([]TierDefinition, 0, len(Tiers()))
	var prev int64 = -1
	var entry int64 = 0

	for _, tier := range Tiers() {
		threshold, ok := advance[tier]
		if !ok {
			return nil, fmt.Errorf("tier table missing %s: %w", tier, ErrValidation)
		}
		if threshold < 0 {
			return nil, fmt.Errorf("tier %s threshold %d is negative: %w", tier, threshold, ErrValidation)
		}
		if threshold <= prev {
			return nil, fmt.Errorf("tier thresholds must be strictly increasing, %s has %d after %d: %w",
				tier, threshold, prev, ErrValidation)
		}
		defs = append(defs, TierDefinition{
			Name:             tier,
			EntryThreshold:   entry,
			AdvanceThreshold: threshold,
		})
		entry = threshold
		prev = threshold
	}

	return &TierTable{defs: defs}, nil
}

// DefaultTierTable returns the standard 1000/5000/15000/50000 table.
func DefaultTierTable() *TierTable {
	tt, err := NewTierTable(map[Tier]int64{
		TierBronze:   1000,
		TierSilver:   5000,
		TierGold:     15000,
		TierPlatinum: 50000,
	})
	if err != nil {
		panic(err) // static table, cannot fail
	}
	return tt
}

// Resolve returns the highest tier whose entry threshold is <= lifetime.
// Pure function, no side effects.
func (tt *TierTable) Resolve(lifetimePoints int64) Tier {
	current := tt.defs[0].Name
	for _, def := range tt.defs {
		if def.EntryThreshold <= lifetimePoints {
			current = def.Name
		}
	}
	return current
}

// Definitions returns the ordered tier definitions (a copy).
func (tt *TierTable) Definitions() []TierDefinition {
	out := make([]TierDefinition, len(tt.defs))
	copy(out, tt.defs)
	return out
}

// Definition returns the definition for a single tier.
func (tt *TierTable) Definition(t Tier) (TierDefinition, error) {
	for _, def := range tt.defs {
		if def.Name == t {
			return def, nil
		}
	}
	return TierDefinition{}, fmt.Errorf("%s: %w", t, ErrUnknownTier)
}

// Next returns the tier after t, or ("", false) for the top tier.
func (tt *TierTable) Next(t Tier) (Tier, bool) {
	for i, def := range tt.defs {
		if def.Name == t && i+1 < len(tt.defs) {
			return tt.defs[i+1].Name, true
		}
	}
	return "", false
}

// PointsToNext returns how many more lifetime points are needed to reach
// the next tier, or 0 when already at the top.
func (tt *TierTable) PointsToNext(lifetimePoints int64) int64 {
	current := tt.Resolve(lifetimePoints)
	next, ok := tt.Next(current)
	if !ok {
		return 0
	}
	def, err := tt.Definition(next)
	if err != nil {
		return 0
	}
	remaining := def.EntryThreshold - lifetimePoints
	if remaining < 0 {
		return 0
	}
	return remaining
}
