/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Provides pre-built scenarios that populate the ledger with realistic
  data for testing and demos. Each scenario drives the real service
  operations, so the seeded data obeys every ledger invariant.

AVAILABLE SCENARIOS:
  new-member:        Single purchase, BRONZE, simple case
  silver-shopper:    Repeat buyer who crossed into SILVER with redemptions
  platinum-regular:  Heavy earner at PLATINUM with an admin correction

HOW SCENARIOS WORK:
  Each loader seeds a fresh user ID and replays a sequence of purchases,
  awards, redemptions, and adjustments through the ledger service.
  Existing data is left alone; loaders use fixed user IDs, so reloading
  a scenario against a persistent store will keep appending.

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "silver-shopper"}

NOTE:
  Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Shared response helpers
  - loyalty/service.go: The operations being replayed
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/loyalty-engine/loyalty"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "new-member",
		Name:        "New Member",
		Description: "First purchase, BRONZE tier, 1.0x multiplier",
	},
	{
		ID:          "silver-shopper",
		Name:        "Silver Shopper",
		Description: "Repeat buyer past the SILVER threshold with redemptions",
	},
	{
		ID:          "platinum-regular",
		Name:        "Platinum Regular",
		Description: "Heavy earner at PLATINUM with redemptions and an admin correction",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the most recently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario seeds a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	ctx := r.Context()

	var err error
	switch req.ScenarioID {
	case "new-member":
		err = h.loadNewMemberScenario(ctx)
	case "silver-shopper":
		err = h.loadSilverShopperScenario(ctx)
	case "platinum-regular":
		err = h.loadPlatinumRegularScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "unknown scenario", nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadNewMemberScenario(ctx context.Context) error {
	// One $50 purchase at 10 points/dollar: 500 points, BRONZE, 1.0x.
	_, err := h.Service.Earn(ctx, "demo-new-member",
		50*h.Program.PointsPerDollar, loyalty.SourcePurchase, "First purchase", "order-1001")
	return err
}

func (h *Handler) loadSilverShopperScenario(ctx context.Context) error {
	user := loyalty.UserID("demo-silver-shopper")

	// Three purchases push lifetime past the 1000-point SILVER entry.
	purchases := []struct {
		dollars int64
		order   string
	}{
		{45, "order-2001"},
		{30, "order-2002"},
		{60, "order-2003"},
	}
	for _, p := range purchases {
		if _, err := h.Service.Earn(ctx, user,
			p.dollars*h.Program.PointsPerDollar, loyalty.SourcePurchase, "Purchase", p.order); err != nil {
			return err
		}
	}

	// Birthday bonus and a small redemption.
	if _, err := h.Service.Award(ctx, user, 100, loyalty.SourceSystemAward, "Birthday bonus", ""); err != nil {
		return err
	}
	_, err := h.Service.Redeem(ctx, user, 250, loyalty.SourceRewardRedemption, "Plant a Tree", "tree-donation")
	return err
}

func (h *Handler) loadPlatinumRegularScenario(ctx context.Context) error {
	user := loyalty.UserID("demo-platinum-regular")

	// A year of large orders; the later ones earn at higher multipliers
	// as the tier climbs.
	for i, dollars := range []int64{400, 350, 500, 300, 450, 250} {
		order := fmt.Sprintf("order-3%03d", i+1)
		if _, err := h.Service.Earn(ctx, user,
			dollars*h.Program.PointsPerDollar, loyalty.SourcePurchase, "Purchase", order); err != nil {
			return err
		}
	}

	// Gift card redemptions along the way.
	if _, err := h.Service.Redeem(ctx, user, 4500, loyalty.SourceRewardRedemption, "$50 Gift Card", "gift-card-50"); err != nil {
		return err
	}
	if _, err := h.Service.Redeem(ctx, user, 1000, loyalty.SourceRewardRedemption, "$10 Gift Card", "gift-card-10"); err != nil {
		return err
	}

	// Support credited points back after a damaged shipment.
	_, err := h.Service.Adjust(ctx, user, 500, "Damaged shipment goodwill credit", "admin-demo")
	return err
}
