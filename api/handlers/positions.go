package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/openalpha/dsc-chain/api/types"
)

// UserHeader carries the caller address when the body omits it
const UserHeader = "X-User-Address"

// PositionHandler handles collateral and debt requests
type PositionHandler struct {
	service types.PositionService
}

// NewPositionHandler creates a new position handler
func NewPositionHandler(service types.PositionService) *PositionHandler {
	return &PositionHandler{service: service}
}

// RegisterRoutes registers position routes
func (h *PositionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/v1/positions/deposit", h.Deposit).Methods(http.MethodPost)
	r.HandleFunc("/v1/positions/mint", h.Mint).Methods(http.MethodPost)
	r.HandleFunc("/v1/positions/deposit-and-mint", h.DepositAndMint).Methods(http.MethodPost)
	r.HandleFunc("/v1/positions/redeem", h.Redeem).Methods(http.MethodPost)
	r.HandleFunc("/v1/positions/redeem-for-dsc", h.RedeemForDsc).Methods(http.MethodPost)
	r.HandleFunc("/v1/positions/burn", h.Burn).Methods(http.MethodPost)
	r.HandleFunc("/v1/positions/{user}", h.GetPosition).Methods(http.MethodGet)
}

func userOf(r *http.Request, body string) string {
	if body != "" {
		return body
	}
	return r.Header.Get(UserHeader)
}

// GetPosition handles GET /v1/positions/{user}
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	pos, err := h.service.GetPosition(r.Context(), mux.Vars(r)["user"])
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"position": pos})
}

// Deposit handles POST /v1/positions/deposit
func (h *PositionHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req types.CollateralRequest
	if !decode(w, r, &req) {
		return
	}
	req.User = userOf(r, req.User)

	pos, err := h.service.DepositCollateral(r.Context(), &req)
	respondPosition(w, pos, err)
}

// Mint handles POST /v1/positions/mint
func (h *PositionHandler) Mint(w http.ResponseWriter, r *http.Request) {
	var req types.AmountRequest
	if !decode(w, r, &req) {
		return
	}
	req.User = userOf(r, req.User)

	pos, err := h.service.MintDsc(r.Context(), &req)
	respondPosition(w, pos, err)
}

// DepositAndMint handles POST /v1/positions/deposit-and-mint
func (h *PositionHandler) DepositAndMint(w http.ResponseWriter, r *http.Request) {
	var req types.CombinedRequest
	if !decode(w, r, &req) {
		return
	}
	req.User = userOf(r, req.User)

	pos, err := h.service.DepositCollateralAndMintDsc(r.Context(), &req)
	respondPosition(w, pos, err)
}

// Redeem handles POST /v1/positions/redeem
func (h *PositionHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req types.CollateralRequest
	if !decode(w, r, &req) {
		return
	}
	req.User = userOf(r, req.User)

	pos, err := h.service.RedeemCollateral(r.Context(), &req)
	respondPosition(w, pos, err)
}

// RedeemForDsc handles POST /v1/positions/redeem-for-dsc
func (h *PositionHandler) RedeemForDsc(w http.ResponseWriter, r *http.Request) {
	var req types.CombinedRequest
	if !decode(w, r, &req) {
		return
	}
	req.User = userOf(r, req.User)

	pos, err := h.service.RedeemCollateralForDsc(r.Context(), &req)
	respondPosition(w, pos, err)
}

// Burn handles POST /v1/positions/burn
func (h *PositionHandler) Burn(w http.ResponseWriter, r *http.Request) {
	var req types.AmountRequest
	if !decode(w, r, &req) {
		return
	}
	req.User = userOf(r, req.User)

	pos, err := h.service.BurnDsc(r.Context(), &req)
	respondPosition(w, pos, err)
}

func respondPosition(w http.ResponseWriter, pos *types.Position, err error) {
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"position": pos})
}
