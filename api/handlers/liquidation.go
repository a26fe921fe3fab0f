package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/openalpha/dsc-chain/api/types"
)

const (
	defaultCandidateLimit = 50
	maxCandidateLimit     = 500
)

// LiquidationHandler handles liquidation and risk requests
type LiquidationHandler struct {
	service types.LiquidationService
}

// NewLiquidationHandler creates a new liquidation handler
func NewLiquidationHandler(service types.LiquidationService) *LiquidationHandler {
	return &LiquidationHandler{service: service}
}

// RegisterRoutes registers liquidation routes
func (h *LiquidationHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/v1/liquidations", h.Liquidate).Methods(http.MethodPost)
	r.HandleFunc("/v1/liquidations/candidates", h.Candidates).Methods(http.MethodGet)
}

// Liquidate handles POST /v1/liquidations
func (h *LiquidationHandler) Liquidate(w http.ResponseWriter, r *http.Request) {
	var req types.LiquidateRequest
	if !decode(w, r, &req) {
		return
	}
	req.Liquidator = userOf(r, req.Liquidator)

	result, err := h.service.Liquidate(r.Context(), &req)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"liquidation": result})
}

// Candidates handles GET /v1/liquidations/candidates?limit=N
func (h *LiquidationHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	limit := defaultCandidateLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxCandidateLimit {
		limit = maxCandidateLimit
	}

	positions, err := h.service.Candidates(r.Context(), limit)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"candidates": positions,
		"total":      len(positions),
	})
}
