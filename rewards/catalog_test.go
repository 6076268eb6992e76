package rewards_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/loyalty-engine/rewards"
)

func TestNewCatalog_Validation(t *testing.T) {
	_, err := rewards.NewCatalog([]rewards.Item{
		{ID: "", Name: "Nameless", PointsCost: 100},
	})
	assert.Error(t, err, "missing id")

	_, err = rewards.NewCatalog([]rewards.Item{
		{ID: "freebie", Name: "Freebie", PointsCost: 0},
	})
	assert.Error(t, err, "non-positive cost")

	_, err = rewards.NewCatalog([]rewards.Item{
		{ID: "dup", Name: "A", PointsCost: 100},
		{ID: "dup", Name: "B", PointsCost: 200},
	})
	assert.Error(t, err, "duplicate id")
}

func TestLookup(t *testing.T) {
	c := rewards.DefaultCatalog()

	item, err := c.Lookup("gift-card-10")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), item.PointsCost)
	assert.Equal(t, rewards.CategoryGiftCard, item.Category)

	_, err = c.Lookup("jetpack")
	assert.ErrorIs(t, err, rewards.ErrRewardNotFound)

	// In the default catalog the tasting event is listed but unavailable
	_, err = c.Lookup("tasting-event")
	assert.ErrorIs(t, err, rewards.ErrRewardOutOfStock)
}

func TestItems_ConfigurationOrder(t *testing.T) {
	c, err := rewards.NewCatalog([]rewards.Item{
		{ID: "b", Name: "B", PointsCost: 200, InStock: true},
		{ID: "a", Name: "A", PointsCost: 100, InStock: true},
	})
	require.NoError(t, err)

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].ID)
	assert.Equal(t, "a", items[1].ID)
}
