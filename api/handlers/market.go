package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/openalpha/dsc-chain/api/types"
)

const defaultEventLimit = 100

// MarketHandler serves engine configuration, prices and the event journal.
// Operator routes are registered only when enabled.
type MarketHandler struct {
	service  types.MarketService
	operator bool
}

// NewMarketHandler creates a new market handler
func NewMarketHandler(service types.MarketService, operator bool) *MarketHandler {
	return &MarketHandler{service: service, operator: operator}
}

// RegisterRoutes registers market routes
func (h *MarketHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/v1/params", h.Params).Methods(http.MethodGet)
	r.HandleFunc("/v1/collateral", h.Collateral).Methods(http.MethodGet)
	r.HandleFunc("/v1/balances/{user}", h.Balances).Methods(http.MethodGet)
	r.HandleFunc("/v1/events", h.Events).Methods(http.MethodGet)

	if h.operator {
		r.HandleFunc("/v1/operator/price", h.SetPrice).Methods(http.MethodPost)
		r.HandleFunc("/v1/operator/fund", h.Fund).Methods(http.MethodPost)
	}
}

// Params handles GET /v1/params
func (h *MarketHandler) Params(w http.ResponseWriter, r *http.Request) {
	params, err := h.service.Params(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"params": params})
}

// Collateral handles GET /v1/collateral
func (h *MarketHandler) Collateral(w http.ResponseWriter, r *http.Request) {
	collateral, err := h.service.Collateral(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"collateral": collateral})
}

// Balances handles GET /v1/balances/{user}
func (h *MarketHandler) Balances(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	balances, err := h.service.Balances(r.Context(), user)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":     user,
		"balances": balances,
	})
}

// Events handles GET /v1/events?since=SEQ&limit=N
func (h *MarketHandler) Events(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var since uint64
	if s := query.Get("since"); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_since", "since must be a sequence number")
			return
		}
		since = v
	}
	limit := defaultEventLimit
	if s := query.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	events, err := h.service.Events(r.Context(), since, limit)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

// SetPrice handles POST /v1/operator/price
func (h *MarketHandler) SetPrice(w http.ResponseWriter, r *http.Request) {
	var req types.PriceRequest
	if !decode(w, r, &req) {
		return
	}
	collateral, err := h.service.SetPrice(r.Context(), &req)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"collateral": collateral})
}

// Fund handles POST /v1/operator/fund
func (h *MarketHandler) Fund(w http.ResponseWriter, r *http.Request) {
	var req types.FundRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.service.Fund(r.Context(), &req); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"funded": true})
}
