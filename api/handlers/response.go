package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"

	oracletypes "github.com/openalpha/dsc-chain/x/oracle/types"
	stabletypes "github.com/openalpha/dsc-chain/x/stablecoin/types"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

// writeEngineError maps an engine error onto an HTTP status and error code
func writeEngineError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err.Error())
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, sdkerrors.ErrPanic):
		return http.StatusInternalServerError, "operation_aborted"
	case errors.Is(err, sdkerrors.ErrInvalidAddress),
		errors.Is(err, sdkerrors.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, oracletypes.ErrUnauthorized):
		return http.StatusForbidden, "not_authorized"
	case errors.Is(err, oracletypes.ErrFeedNotFound),
		errors.Is(err, oracletypes.ErrNoRoundData):
		return http.StatusServiceUnavailable, "oracle_unavailable"
	}

	kind := stabletypes.KindOf(err)
	switch kind {
	case stabletypes.KindInvalidInput:
		return http.StatusBadRequest, kind.String()
	case stabletypes.KindNotAuthorized:
		return http.StatusForbidden, kind.String()
	case stabletypes.KindSolvencyViolation, stabletypes.KindArithmeticFailure:
		return http.StatusUnprocessableEntity, kind.String()
	case stabletypes.KindExternalCallFailed:
		return http.StatusBadGateway, kind.String()
	case stabletypes.KindOracleUnavailable:
		return http.StatusServiceUnavailable, kind.String()
	}
	return http.StatusInternalServerError, "internal_error"
}

// decode reads a JSON body into v, writing a 400 on failure
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body: "+err.Error())
		return false
	}
	return true
}
