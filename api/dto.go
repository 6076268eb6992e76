/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Validation is done in handlers and the ledger service, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - loyalty/service.go: The domain results being marshaled
*/
package api

import (
	"time"

	"github.com/warp/loyalty-engine/loyalty"
	"github.com/warp/loyalty-engine/rewards"
)

// =============================================================================
// PROFILE
// =============================================================================

// ProfileDTO represents a user's loyalty profile in API responses.
type ProfileDTO struct {
	UserID         string `json:"user_id"`
	Tier           string `json:"tier"`
	LifetimePoints int64  `json:"lifetime_points"`
	CurrentBalance int64  `json:"current_balance"`
	UpdatedAt      string `json:"updated_at,omitempty"`
}

// ProfileResponse bundles the profile with its tier context.
type ProfileResponse struct {
	Profile          ProfileDTO   `json:"profile"`
	Multiplier       string       `json:"multiplier"`
	Benefits         []BenefitDTO `json:"benefits"`
	TierThresholds   []TierDefDTO `json:"tier_thresholds"`
	NextTier         string       `json:"next_tier,omitempty"`
	PointsToNextTier int64        `json:"points_to_next_tier"`
}

// =============================================================================
// TRANSACTIONS / HISTORY
// =============================================================================

// TransactionDTO represents one ledger entry.
type TransactionDTO struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Delta       int64  `json:"delta"`
	Kind        string `json:"kind"`
	Source      string `json:"source"`
	Description string `json:"description,omitempty"`
	ReferenceID string `json:"reference_id,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// PaginationDTO describes the page that was returned. HasMore is a
// heuristic: true iff the page came back full-sized.
type PaginationDTO struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"has_more"`
}

type HistoryResponse struct {
	Transactions []TransactionDTO `json:"transactions"`
	Pagination   PaginationDTO    `json:"pagination"`
}

// =============================================================================
// MUTATION REQUESTS/RESPONSES
// =============================================================================

// AwardPointsRequest credits points outside the purchase path.
type AwardPointsRequest struct {
	Points      int64  `json:"points"`
	Source      string `json:"source,omitempty"`
	Description string `json:"description,omitempty"`
	ReferenceID string `json:"reference_id,omitempty"`
}

// RedeemPointsRequest spends points, either a raw amount or a catalog
// reward (reward_id wins when both are set).
type RedeemPointsRequest struct {
	Points      int64  `json:"points,omitempty"`
	RewardID    string `json:"reward_id,omitempty"`
	Description string `json:"description,omitempty"`
}

// SimulatePurchaseRequest drives the tier-multiplied earning path.
type SimulatePurchaseRequest struct {
	Amount  float64 `json:"amount"`
	OrderID string  `json:"order_id,omitempty"`
}

// AdjustPointsRequest is the administrative correction path.
type AdjustPointsRequest struct {
	UserID  string `json:"user_id"`
	Points  int64  `json:"points"`
	Reason  string `json:"reason"`
	AdminID string `json:"admin_id"`
}

// OperationResponse is the result snapshot of a successful mutation.
type OperationResponse struct {
	Transaction    TransactionDTO `json:"transaction"`
	NewBalance     int64          `json:"new_balance"`
	LifetimePoints int64          `json:"lifetime_points"`
	Tier           string         `json:"tier"`
	TierChanged    bool           `json:"tier_changed"`

	// Earn path only
	PointsAwarded     int64  `json:"points_awarded,omitempty"`
	MultiplierApplied string `json:"multiplier_applied,omitempty"`
}

// =============================================================================
// TIERS / BENEFITS / REWARDS
// =============================================================================

type TierDefDTO struct {
	Name             string `json:"name"`
	EntryThreshold   int64  `json:"entry_threshold"`
	AdvanceThreshold int64  `json:"advance_threshold"`
}

type BenefitDTO struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type TierInfoDTO struct {
	Name             string       `json:"name"`
	EntryThreshold   int64        `json:"entry_threshold"`
	AdvanceThreshold int64        `json:"advance_threshold"`
	Multiplier       string       `json:"multiplier"`
	Benefits         []BenefitDTO `json:"benefits"`
}

type RewardDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PointsCost  int64  `json:"points_cost"`
	Category    string `json:"category"`
	InStock     bool   `json:"in_stock"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse carries the error category so clients can branch on it
// instead of matching message substrings.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toProfileDTO(p loyalty.Profile) ProfileDTO {
	return ProfileDTO{
		UserID:         string(p.UserID),
		Tier:           string(p.Tier),
		LifetimePoints: p.LifetimePoints,
		CurrentBalance: p.CurrentBalance,
		UpdatedAt:      formatTime(p.UpdatedAt),
	}
}

func toTransactionDTO(tx loyalty.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:          string(tx.ID),
		UserID:      string(tx.UserID),
		Delta:       tx.Delta,
		Kind:        string(tx.Kind),
		Source:      tx.Source,
		Description: tx.Description,
		ReferenceID: tx.ReferenceID,
		CreatedBy:   tx.CreatedBy,
		CreatedAt:   formatTime(tx.CreatedAt),
	}
}

func toOperationResponse(res loyalty.Result) OperationResponse {
	out := OperationResponse{
		Transaction:    toTransactionDTO(res.Transaction),
		NewBalance:     res.NewBalance,
		LifetimePoints: res.LifetimePoints,
		Tier:           string(res.Tier),
		TierChanged:    res.TierChanged,
	}
	if res.Transaction.Kind == loyalty.KindEarn {
		out.PointsAwarded = res.PointsAwarded
		out.MultiplierApplied = res.Multiplier.String()
	}
	return out
}

func toTierInfoDTO(info loyalty.TierInfo) TierInfoDTO {
	benefits := make([]BenefitDTO, 0, len(info.Benefits))
	for _, b := range info.Benefits {
		benefits = append(benefits, BenefitDTO{Type: string(b.Type), Value: b.Value})
	}
	return TierInfoDTO{
		Name:             string(info.Definition.Name),
		EntryThreshold:   info.Definition.EntryThreshold,
		AdvanceThreshold: info.Definition.AdvanceThreshold,
		Multiplier:       info.Multiplier.String(),
		Benefits:         benefits,
	}
}

func toRewardDTO(item rewards.Item) RewardDTO {
	return RewardDTO{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		PointsCost:  item.PointsCost,
		Category:    string(item.Category),
		InStock:     item.InStock,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
