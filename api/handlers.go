/*
handlers.go - HTTP API handlers for the loyalty ledger

PURPOSE:
  Exposes the ledger service via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Users:
    GET    /api/users/{id}/profile          Profile + tier context
    GET    /api/users/{id}/points/history   Paged transaction history
    POST   /api/users/{id}/points/award     Exact-point credit (no multiplier)
    POST   /api/users/{id}/points/redeem    Spend points or redeem a reward
    POST   /api/users/{id}/purchase         Simulated purchase (tier-multiplied)

  Tiers & rewards:
    GET    /api/tiers                        All tiers with thresholds/benefits
    GET    /api/tiers/{tier}/benefits        One tier's benefit set
    GET    /api/rewards                      Redeemable reward catalog

  Admin:
    POST   /api/admin/adjustments            Signed balance correction

  Scenarios:
    GET    /api/scenarios                    List demo scenarios
    POST   /api/scenarios/load               Seed a demo scenario

ERROR HANDLING:
  The error taxonomy maps to HTTP statuses:
  - 400: validation errors (rejected before any write)
  - 404: unknown tier / reward
  - 409: insufficient points (business error, not retryable)
  - 500: storage failures (retryable)
  - 503: write-conflict retry budget exhausted (retryable with backoff)
  The category travels in the response body; clients never need to match
  message substrings.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - loyalty/service.go: The operations behind every endpoint
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/loyalty-engine/factory"
	"github.com/warp/loyalty-engine/loyalty"
	"github.com/warp/loyalty-engine/rewards"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *loyalty.Service
	Program *factory.Program
	Logger  *zap.Logger

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler. A nil logger disables logging.
func NewHandler(service *loyalty.Service, program *factory.Program, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Service: service,
		Program: program,
		Logger:  logger,
	}
}

// =============================================================================
// PROFILE & HISTORY
// =============================================================================

// GetProfile returns the user's loyalty profile with tier context.
// GET /api/users/{id}/profile
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := loyalty.UserID(chi.URLParam(r, "id"))

	snapshot, err := h.Service.Profile(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	benefits := make([]BenefitDTO, 0, len(snapshot.Benefits))
	for _, b := range snapshot.Benefits {
		benefits = append(benefits, BenefitDTO{Type: string(b.Type), Value: b.Value})
	}
	thresholds := make([]TierDefDTO, 0, len(snapshot.Thresholds))
	for _, def := range snapshot.Thresholds {
		thresholds = append(thresholds, TierDefDTO{
			Name:             string(def.Name),
			EntryThreshold:   def.EntryThreshold,
			AdvanceThreshold: def.AdvanceThreshold,
		})
	}

	writeJSON(w, http.StatusOK, ProfileResponse{
		Profile:          toProfileDTO(snapshot.Profile),
		Multiplier:       snapshot.Multiplier.String(),
		Benefits:         benefits,
		TierThresholds:   thresholds,
		NextTier:         string(snapshot.NextTier),
		PointsToNextTier: snapshot.PointsToNextTier,
	})
}

// GetHistory returns a page of the user's transactions, newest first.
// GET /api/users/{id}/points/history?page=1&limit=20
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID := loyalty.UserID(chi.URLParam(r, "id"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.Service.History(r.Context(), userID, page, limit)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	dtos := make([]TransactionDTO, 0, len(result.Transactions))
	for _, tx := range result.Transactions {
		dtos = append(dtos, toTransactionDTO(tx))
	}

	writeJSON(w, http.StatusOK, HistoryResponse{
		Transactions: dtos,
		Pagination: PaginationDTO{
			Page:    result.Page,
			Limit:   result.PageSize,
			HasMore: result.HasMore,
		},
	})
}

// =============================================================================
// MUTATIONS
// =============================================================================

// AwardPoints credits an exact number of points (no tier multiplier).
// POST /api/users/{id}/points/award
func (h *Handler) AwardPoints(w http.ResponseWriter, r *http.Request) {
	userID := loyalty.UserID(chi.URLParam(r, "id"))

	var req AwardPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	res, err := h.Service.Award(r.Context(), userID, req.Points, req.Source, req.Description, req.ReferenceID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOperationResponse(res))
}

// RedeemPoints spends points, either a raw amount or a catalog reward.
// POST /api/users/{id}/points/redeem
func (h *Handler) RedeemPoints(w http.ResponseWriter, r *http.Request) {
	userID := loyalty.UserID(chi.URLParam(r, "id"))

	var req RedeemPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	points := req.Points
	source := loyalty.SourceManualRedemption
	referenceID := ""
	description := req.Description

	if req.RewardID != "" {
		item, err := h.Program.Rewards.Lookup(req.RewardID)
		if err != nil {
			if errors.Is(err, rewards.ErrRewardNotFound) {
				writeError(w, http.StatusNotFound, "reward not found", err)
			} else {
				writeError(w, http.StatusConflict, "reward not redeemable", err)
			}
			return
		}
		points = item.PointsCost
		source = loyalty.SourceRewardRedemption
		referenceID = item.ID
		if description == "" {
			description = item.Name
		}
	}

	res, err := h.Service.Redeem(r.Context(), userID, points, source, description, referenceID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOperationResponse(res))
}

// SimulatePurchase runs the tier-multiplied earning path for a purchase:
// base points = floor(amount * points_per_dollar), then Earn applies the
// tier multiplier on top.
// POST /api/users/{id}/purchase
func (h *Handler) SimulatePurchase(w http.ResponseWriter, r *http.Request) {
	userID := loyalty.UserID(chi.URLParam(r, "id"))

	var req SimulatePurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive", nil)
		return
	}

	base := decimal.NewFromFloat(req.Amount).
		Mul(decimal.NewFromInt(h.Program.PointsPerDollar)).
		Floor().IntPart()
	if base <= 0 {
		writeError(w, http.StatusBadRequest, "amount too small to earn points", nil)
		return
	}

	res, err := h.Service.Earn(r.Context(), userID, base, loyalty.SourcePurchase, "Purchase", req.OrderID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOperationResponse(res))
}

// AdjustPoints applies a signed administrative correction.
// POST /api/admin/adjustments
func (h *Handler) AdjustPoints(w http.ResponseWriter, r *http.Request) {
	var req AdjustPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	res, err := h.Service.Adjust(r.Context(), loyalty.UserID(req.UserID), req.Points, req.Reason, req.AdminID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOperationResponse(res))
}

// =============================================================================
// TIERS & REWARDS
// =============================================================================

// ListTiers returns all tiers with thresholds, multipliers, and benefits.
// GET /api/tiers
func (h *Handler) ListTiers(w http.ResponseWriter, r *http.Request) {
	infos := h.Service.AllTiers()
	dtos := make([]TierInfoDTO, 0, len(infos))
	for _, info := range infos {
		dtos = append(dtos, toTierInfoDTO(info))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTierBenefits returns one tier's benefit set.
// GET /api/tiers/{tier}/benefits
func (h *Handler) GetTierBenefits(w http.ResponseWriter, r *http.Request) {
	tier, err := loyalty.ParseTier(chi.URLParam(r, "tier"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown tier", err)
		return
	}

	info, err := h.Service.TierInfo(tier)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTierInfoDTO(info))
}

// ListRewards returns the redeemable reward catalog.
// GET /api/rewards
func (h *Handler) ListRewards(w http.ResponseWriter, r *http.Request) {
	items := h.Program.Rewards.Items()
	dtos := make([]RewardDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, toRewardDTO(item))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Health is a liveness probe.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the error taxonomy to HTTP statuses and a stable
// machine-readable code.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse{Details: err.Error(), Retryable: loyalty.IsRetryable(err)}
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, loyalty.ErrValidation):
		status = http.StatusBadRequest
		resp.Error = "invalid input"
		resp.Code = "validation_error"
	case errors.Is(err, loyalty.ErrInsufficientPoints):
		status = http.StatusConflict
		resp.Error = "insufficient points"
		resp.Code = "insufficient_points"
	case errors.Is(err, loyalty.ErrUnknownTier):
		status = http.StatusNotFound
		resp.Error = "unknown tier"
		resp.Code = "unknown_tier"
	case errors.Is(err, loyalty.ErrConflict):
		status = http.StatusServiceUnavailable
		resp.Error = "write conflict, retry with backoff"
		resp.Code = "conflict"
	default:
		resp.Error = "storage failure"
		resp.Code = "storage_error"
	}

	if status >= http.StatusInternalServerError {
		h.Logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("code", resp.Code),
			zap.Error(err),
		)
	}

	writeJSON(w, status, resp)
}
