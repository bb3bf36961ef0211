// Package handlers provides HTTP handlers for rebalance planning.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/atlasfin/rebalancer/internal/clients/pricing"
	"github.com/atlasfin/rebalancer/internal/domain"
	"github.com/atlasfin/rebalancer/internal/modules/classify"
	"github.com/atlasfin/rebalancer/internal/modules/history"
	"github.com/atlasfin/rebalancer/internal/modules/planning"
)

// Defaults applied when the request omits constraints, matching the agent
// this service replaces.
const (
	defaultMaxTurnover   = 0.2
	defaultMinTradeValue = 100.0
)

// Handler handles rebalance planning HTTP requests
type Handler struct {
	planner     *planning.Planner
	priceSource pricing.Source
	classifier  *classify.Classifier
	historyRepo *history.Repository
	log         zerolog.Logger
}

// NewHandler creates a new planning handler. priceSource, classifier and
// historyRepo are optional; a nil priceSource makes inline quotes mandatory.
func NewHandler(
	planner *planning.Planner,
	priceSource pricing.Source,
	classifier *classify.Classifier,
	historyRepo *history.Repository,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		planner:     planner,
		priceSource: priceSource,
		classifier:  classifier,
		historyRepo: historyRepo,
		log:         log.With().Str("handler", "planning").Logger(),
	}
}

// PlanRequest is the wire form of a planning call. Quotes are optional -
// when absent the server fetches a snapshot from the Price Source.
type PlanRequest struct {
	Portfolio   domain.Portfolio        `json:"portfolio"`
	Targets     domain.TargetAllocation `json:"targets"`
	Constraints *domain.Constraints     `json:"constraints,omitempty"`
	CategoryMap domain.CategoryMap      `json:"category_map,omitempty"`
	Quotes      domain.QuoteSet         `json:"quotes,omitempty"`
}

// HandlePlan handles POST /api/rebalance/plan
func (h *Handler) HandlePlan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		h.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	if len(req.Portfolio.Positions) == 0 {
		h.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "portfolio.positions is required")
		return
	}

	constraints := domain.Constraints{
		MaxTurnover:   defaultMaxTurnover,
		MinTradeValue: defaultMinTradeValue,
	}
	if req.Constraints != nil {
		constraints = *req.Constraints
	}

	quotes := req.Quotes
	if quotes == nil {
		if h.priceSource == nil {
			h.writeError(w, http.StatusBadRequest, "BAD_REQUEST", "quotes are required when no price source is configured")
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
		defer cancel()
		fetched, err := h.priceSource.GetPrices(ctx, req.Portfolio.Symbols())
		if err != nil {
			h.log.Error().Err(err).Msg("Price source unavailable")
			h.writeError(w, http.StatusBadGateway, "PRICE_SOURCE_UNAVAILABLE", err.Error())
			return
		}
		quotes = fetched
	}

	categories := req.CategoryMap
	if categories == nil && h.classifier != nil && h.targetsAreCategories(req.Targets) {
		categories = h.classifier.Classify(req.Portfolio.Symbols())
	}

	result, err := h.planner.PlanWithRejections(planning.PlanRequest{
		Portfolio:   req.Portfolio,
		Quotes:      quotes,
		Targets:     req.Targets,
		Constraints: constraints,
		Categories:  categories,
	})
	if err != nil {
		status, code := classifyError(err)
		h.log.Warn().Err(err).Str("code", code).Msg("Plan rejected")
		h.writeError(w, status, code, err.Error())
		return
	}

	requestID := middleware.GetReqID(r.Context())
	auditUUID := ""
	if h.historyRepo != nil {
		id, err := h.historyRepo.Record(result.Plan, requestID)
		if err != nil {
			// The plan is still valid - recording is best effort
			h.log.Warn().Err(err).Msg("Failed to record plan in history")
		} else {
			auditUUID = id
		}
	}

	filtered := make([]map[string]interface{}, 0, len(result.Filtered))
	for _, f := range result.Filtered {
		filtered = append(filtered, map[string]interface{}{
			"symbol": f.Candidate.Symbol,
			"action": f.Candidate.Action,
			"value":  f.Candidate.EstimatedValue,
			"reason": f.Reason,
		})
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"plan":            result.Plan,
			"filtered_trades": filtered,
		},
		"metadata": map[string]interface{}{
			"timestamp":  time.Now().Format(time.RFC3339),
			"request_id": requestID,
			"audit_uuid": auditUUID,
			"note":       "Dry-run plan - no trades executed",
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

// HandleHistory handles GET /api/rebalance/history
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if h.historyRepo == nil {
		h.writeError(w, http.StatusNotFound, "HISTORY_DISABLED", "plan history is not configured")
		return
	}

	entries, err := h.historyRepo.List(50)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list plan history")
		h.writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to list plan history")
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"plans": entries,
			"count": len(entries),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

// targetsAreCategories reports whether every target key is a known style
// category, which means the caller is targeting buckets rather than symbols.
func (h *Handler) targetsAreCategories(targets domain.TargetAllocation) bool {
	if len(targets) == 0 {
		return false
	}
	known := h.classifier.Categories()
	for key := range targets {
		if !known[key] {
			return false
		}
	}
	return true
}

// classifyError maps the engine's error taxonomy to HTTP status and code.
func classifyError(err error) (int, string) {
	var (
		missingPrice  *domain.MissingPriceError
		emptyPort     *domain.EmptyPortfolioError
		invalidPort   *domain.InvalidPortfolioError
		invalidTarget *domain.InvalidTargetError
		unallocatable *domain.UnallocatableCategoryError
		invalidConstr *domain.InvalidConstraintError
	)
	switch {
	case errors.As(err, &missingPrice):
		return http.StatusUnprocessableEntity, "MISSING_PRICE"
	case errors.As(err, &emptyPort):
		return http.StatusUnprocessableEntity, "EMPTY_PORTFOLIO"
	case errors.As(err, &invalidPort):
		return http.StatusUnprocessableEntity, "INVALID_PORTFOLIO"
	case errors.As(err, &invalidTarget):
		return http.StatusUnprocessableEntity, "INVALID_TARGET"
	case errors.As(err, &unallocatable):
		return http.StatusUnprocessableEntity, "UNALLOCATABLE_CATEGORY"
	case errors.As(err, &invalidConstr):
		return http.StatusUnprocessableEntity, "INVALID_CONSTRAINT"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

// writeError writes a structured error response
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
