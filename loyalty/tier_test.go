package loyalty_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/loyalty-engine/loyalty"
)

// =============================================================================
// TIER TABLE VALIDATION
// =============================================================================

func TestNewTierTable_MissingTierRejected(t *testing.T) {
	_, err := loyalty.NewTierTable(map[loyalty.Tier]int64{
		loyalty.TierBronze: 1000,
		loyalty.TierSilver: 5000,
		loyalty.TierGold:   15000,
		// PLATINUM missing
	})
	assert.ErrorIs(t, err, loyalty.ErrValidation)
}

func TestNewTierTable_NonIncreasingRejected(t *testing.T) {
	// GIVEN: GOLD's advance threshold is below SILVER's
	// WHEN: Building the table
	// THEN: Validation fails; thresholds must be strictly increasing

	_, err := loyalty.NewTierTable(map[loyalty.Tier]int64{
		loyalty.TierBronze:   1000,
		loyalty.TierSilver:   5000,
		loyalty.TierGold:     5000,
		loyalty.TierPlatinum: 50000,
	})
	assert.ErrorIs(t, err, loyalty.ErrValidation)

	_, err = loyalty.NewTierTable(map[loyalty.Tier]int64{
		loyalty.TierBronze:   1000,
		loyalty.TierSilver:   500,
		loyalty.TierGold:     15000,
		loyalty.TierPlatinum: 50000,
	})
	assert.ErrorIs(t, err, loyalty.ErrValidation)
}

func TestNewTierTable_NegativeThresholdRejected(t *testing.T) {
	_, err := loyalty.NewTierTable(map[loyalty.Tier]int64{
		loyalty.TierBronze:   -1,
		loyalty.TierSilver:   5000,
		loyalty.TierGold:     15000,
		loyalty.TierPlatinum: 50000,
	})
	assert.ErrorIs(t, err, loyalty.ErrValidation)
}

func TestNewTierTable_DerivesEntryThresholds(t *testing.T) {
	// Entry points follow from the previous tier's advance threshold.
	tt := loyalty.DefaultTierTable()

	defs := tt.Definitions()
	require.Len(t, defs, 4)

	assert.Equal(t, int64(0), defs[0].EntryThreshold)
	assert.Equal(t, int64(1000), defs[0].AdvanceThreshold)
	assert.Equal(t, int64(1000), defs[1].EntryThreshold)
	assert.Equal(t, int64(5000), defs[2].EntryThreshold)
	assert.Equal(t, int64(15000), defs[3].EntryThreshold)
	assert.Equal(t, int64(50000), defs[3].AdvanceThreshold)
}

// =============================================================================
// RESOLUTION
// =============================================================================

func TestResolve_Boundaries(t *testing.T) {
	tt := loyalty.DefaultTierTable()

	cases := []struct {
		lifetime int64
		want     loyalty.Tier
	}{
		{0, loyalty.TierBronze},
		{999, loyalty.TierBronze},
		{1000, loyalty.TierSilver},
		{4999, loyalty.TierSilver},
		{5000, loyalty.TierGold},
		{14999, loyalty.TierGold},
		{15000, loyalty.TierPlatinum},
		{1000000, loyalty.TierPlatinum},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, tt.Resolve(c.lifetime), "lifetime=%d", c.lifetime)
	}
}

func TestPointsToNext(t *testing.T) {
	tt := loyalty.DefaultTierTable()

	assert.Equal(t, int64(1000), tt.PointsToNext(0))
	assert.Equal(t, int64(50), tt.PointsToNext(950))
	assert.Equal(t, int64(4000), tt.PointsToNext(1000))
	assert.Equal(t, int64(0), tt.PointsToNext(15000), "top tier has no next")
}

func TestNext(t *testing.T) {
	tt := loyalty.DefaultTierTable()

	next, ok := tt.Next(loyalty.TierBronze)
	assert.True(t, ok)
	assert.Equal(t, loyalty.TierSilver, next)

	_, ok = tt.Next(loyalty.TierPlatinum)
	assert.False(t, ok)
}

func TestDefinition_UnknownTier(t *testing.T) {
	tt := loyalty.DefaultTierTable()

	_, err := tt.Definition("DIAMOND")
	assert.ErrorIs(t, err, loyalty.ErrUnknownTier)
}

// =============================================================================
// BENEFIT CATALOG
// =============================================================================

func TestNewBenefitCatalog_DecreasingMultiplierRejected(t *testing.T) {
	// GIVEN: GOLD configured to earn slower than SILVER
	// WHEN: Building the catalog
	// THEN: Validation fails

	_, err := loyalty.NewBenefitCatalog([]loyalty.Benefit{
		{Tier: loyalty.TierSilver, Type: loyalty.BenefitPointsMultiplier, Value: "1.5"},
		{Tier: loyalty.TierGold, Type: loyalty.BenefitPointsMultiplier, Value: "1.25"},
	})
	assert.ErrorIs(t, err, loyalty.ErrValidation)
}

func TestNewBenefitCatalog_MultiplierBelowOneRejected(t *testing.T) {
	_, err := loyalty.NewBenefitCatalog([]loyalty.Benefit{
		{Tier: loyalty.TierBronze, Type: loyalty.BenefitPointsMultiplier, Value: "0.5"},
	})
	assert.ErrorIs(t, err, loyalty.ErrValidation)
}

func TestNewBenefitCatalog_BadDecimalRejected(t *testing.T) {
	_, err := loyalty.NewBenefitCatalog([]loyalty.Benefit{
		{Tier: loyalty.TierBronze, Type: loyalty.BenefitPointsMultiplier, Value: "fast"},
	})
	assert.ErrorIs(t, err, loyalty.ErrValidation)
}

func TestNewBenefitCatalog_DuplicateMultiplierRejected(t *testing.T) {
	_, err := loyalty.NewBenefitCatalog([]loyalty.Benefit{
		{Tier: loyalty.TierGold, Type: loyalty.BenefitPointsMultiplier, Value: "1.5"},
		{Tier: loyalty.TierGold, Type: loyalty.BenefitPointsMultiplier, Value: "1.6"},
	})
	assert.ErrorIs(t, err, loyalty.ErrValidation)
}

func TestMultiplierFor_DefaultsToOne(t *testing.T) {
	c, err := loyalty.NewBenefitCatalog([]loyalty.Benefit{
		{Tier: loyalty.TierGold, Type: loyalty.BenefitPointsMultiplier, Value: "1.5"},
	})
	require.NoError(t, err)

	assert.True(t, c.MultiplierFor(loyalty.TierBronze).Equal(loyalty.One))
	assert.True(t, c.MultiplierFor(loyalty.TierGold).GreaterThan(loyalty.One))
}

func TestBenefitsFor_ReturnsConfiguredSet(t *testing.T) {
	c := loyalty.DefaultBenefitCatalog()

	gold := c.BenefitsFor(loyalty.TierGold)
	types := make(map[loyalty.BenefitType]bool, len(gold))
	for _, b := range gold {
		types[b.Type] = true
	}
	assert.True(t, types[loyalty.BenefitFreeShipping])
	assert.True(t, types[loyalty.BenefitPrioritySupport])
	assert.False(t, types[loyalty.BenefitEarlyAccess], "early access is PLATINUM only")
}
