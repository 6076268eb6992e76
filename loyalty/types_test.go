package loyalty_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/loyalty-engine/loyalty"
)

func TestMultiplyPoints_Floors(t *testing.T) {
	cases := []struct {
		base       int64
		multiplier string
		want       int64
	}{
		{100, "1.0", 100},
		{100, "1.25", 125},
		{101, "1.25", 126}, // 126.25 floors
		{3, "1.5", 4},      // 4.5 floors
		{1, "1.25", 1},
		{0, "2.0", 0},
	}
	for _, c := range cases {
		m := decimal.RequireFromString(c.multiplier)
		assert.Equal(t, c.want, loyalty.MultiplyPoints(c.base, m),
			"%d * %s", c.base, c.multiplier)
	}
}

func TestParseTier(t *testing.T) {
	tier, err := loyalty.ParseTier("GOLD")
	assert.NoError(t, err)
	assert.Equal(t, loyalty.TierGold, tier)

	// Canonical form only
	_, err = loyalty.ParseTier("gold")
	assert.ErrorIs(t, err, loyalty.ErrValidation)

	_, err = loyalty.ParseTier("DIAMOND")
	assert.ErrorIs(t, err, loyalty.ErrValidation)
}

func TestTierRank_AscendingOrder(t *testing.T) {
	assert.Equal(t, 0, loyalty.TierBronze.Rank())
	assert.Equal(t, 3, loyalty.TierPlatinum.Rank())
	assert.Equal(t, -1, loyalty.Tier("DIAMOND").Rank())
	assert.True(t, loyalty.TierGold.Rank() > loyalty.TierSilver.Rank())
}

func TestErrorTaxonomy(t *testing.T) {
	// Structured errors unwrap to their sentinels and classify correctly.
	var err error

	err = &loyalty.ValidationError{Field: "points", Message: "must be positive"}
	assert.True(t, errors.Is(err, loyalty.ErrValidation))
	assert.True(t, loyalty.IsClientError(err))
	assert.False(t, loyalty.IsRetryable(err))

	err = &loyalty.InsufficientPointsError{UserID: "u1", Available: 100, Requested: 150}
	assert.True(t, errors.Is(err, loyalty.ErrInsufficientPoints))
	assert.True(t, loyalty.IsClientError(err))
	assert.False(t, loyalty.IsRetryable(err))

	err = &loyalty.StorageError{Op: "append", Err: errors.New("disk full")}
	assert.True(t, errors.Is(err, loyalty.ErrStorage))
	assert.False(t, loyalty.IsClientError(err))
	assert.True(t, loyalty.IsRetryable(err))

	err = &loyalty.ConflictError{UserID: "u1", Attempts: 3}
	assert.True(t, errors.Is(err, loyalty.ErrConflict))
	assert.True(t, loyalty.IsRetryable(err))
}
