/*
Package rewards provides the redeemable reward catalog.

PURPOSE:
  Defines what point balances can be spent on. The catalog is read-only
  configuration: the redeem-by-reward-id path looks an item up here to
  price the redemption before the ledger service debits the balance.

KEY DIFFERENCE FROM THE LEDGER:
  Items are merchandising data, not user data. Stock status gates
  redemption but nothing here mutates balances - that stays with
  loyalty.Service.

SEE ALSO:
  - loyalty/service.go: Redeem operation
  - api/handlers.go: Redemption endpoint wiring
*/
package rewards

import (
	"errors"
	"fmt"
)

// =============================================================================
// REWARD ITEMS
// =============================================================================

type Category string

const (
	CategoryGiftCard    Category = "gift_card"
	CategoryMerchandise Category = "merchandise"
	CategoryExperience  Category = "experience"
	CategoryDonation    Category = "donation"
	CategoryDiscount    Category = "discount"
)

// Item represents something that can be redeemed with points.
type Item struct {
	ID          string
	Name        string
	Description string
	PointsCost  int64
	Category    Category
	InStock     bool
}

// =============================================================================
// CATALOG - Immutable after load
// =============================================================================

var (
	ErrRewardNotFound   = errors.New("reward not found")
	ErrRewardOutOfStock = errors.New("reward out of stock")
)

type Catalog struct {
	items map[string]Item
	order []string
}

// NewCatalog validates and indexes the configured items.
func NewCatalog(items []Item) (*Catalog, error) {
	c := &Catalog{items: make(map[string]Item, len(items))}
	for _, item := range items {
		if item.ID == "" {
			return nil, fmt.Errorf("reward %q has no id", item.Name)
		}
		if item.PointsCost <= 0 {
			return nil, fmt.Errorf("reward %s has non-positive cost %d", item.ID, item.PointsCost)
		}
		if _, dup := c.items[item.ID]; dup {
			return nil, fmt.Errorf("reward %s configured twice", item.ID)
		}
		c.items[item.ID] = item
		c.order = append(c.order, item.ID)
	}
	return c, nil
}

// DefaultCatalog returns the standard demo catalog.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog([]Item{
		{ID: "gift-card-10", Name: "$10 Gift Card", PointsCost: 1000, Category: CategoryGiftCard, InStock: true},
		{ID: "gift-card-50", Name: "$50 Gift Card", PointsCost: 4500, Category: CategoryGiftCard, InStock: true},
		{ID: "free-shipping-month", Name: "Free Shipping for a Month", PointsCost: 750, Category: CategoryDiscount, InStock: true},
		{ID: "tote-bag", Name: "Canvas Tote Bag", PointsCost: 500, Category: CategoryMerchandise, InStock: true},
		{ID: "tasting-event", Name: "Private Tasting Event", PointsCost: 20000, Category: CategoryExperience, InStock: false},
		{ID: "tree-donation", Name: "Plant a Tree", PointsCost: 250, Category: CategoryDonation, InStock: true},
	})
	if err != nil {
		panic(err) // static configuration, cannot fail
	}
	return c
}

// Lookup returns an item by ID, requiring it to be redeemable now.
func (c *Catalog) Lookup(id string) (Item, error) {
	item, ok := c.items[id]
	if !ok {
		return Item{}, fmt.Errorf("%s: %w", id, ErrRewardNotFound)
	}
	if !item.InStock {
		return Item{}, fmt.Errorf("%s: %w", id, ErrRewardOutOfStock)
	}
	return item, nil
}

// Items returns all items in configuration order.
func (c *Catalog) Items() []Item {
	out := make([]Item, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out
}
