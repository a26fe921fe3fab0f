package types

import (
	"errors"

	errorsmod "cosmossdk.io/errors"
)

// Module error codes
var (
	ErrAmountZero                 = errorsmod.Register(ModuleName, 1, "amount must be more than zero")
	ErrTokenAndFeedLengthMismatch = errorsmod.Register(ModuleName, 2, "token addresses and price feed addresses must be same length")
	ErrAssetNotAllowed            = errorsmod.Register(ModuleName, 3, "token not allowed as collateral")
	ErrTransferFailed             = errorsmod.Register(ModuleName, 4, "transfer failed")
	ErrHealthFactorBroken         = errorsmod.Register(ModuleName, 5, "health factor below minimum")
	ErrMintFailed                 = errorsmod.Register(ModuleName, 6, "mint failed")
	ErrHealthFactorOk             = errorsmod.Register(ModuleName, 7, "health factor ok, position cannot be liquidated")
	ErrHealthFactorNotImproved    = errorsmod.Register(ModuleName, 8, "health factor not improved by liquidation")
	ErrUnderflow                  = errorsmod.Register(ModuleName, 9, "ledger underflow")
	ErrOracleUnavailable          = errorsmod.Register(ModuleName, 10, "price feed unavailable")
	ErrReentrantCall              = errorsmod.Register(ModuleName, 11, "reentrant call")
	ErrInvalidAddress             = errorsmod.Register(ModuleName, 12, "invalid address")
	ErrDuplicateCollateral        = errorsmod.Register(ModuleName, 13, "collateral token already registered")
	ErrInvalidParams              = errorsmod.Register(ModuleName, 14, "invalid params")
)

// ErrorKind groups module errors by how a caller should react to them
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidInput
	KindNotAuthorized
	KindExternalCallFailed
	KindSolvencyViolation
	KindArithmeticFailure
	KindOracleUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindNotAuthorized:
		return "not_authorized"
	case KindExternalCallFailed:
		return "external_call_failed"
	case KindSolvencyViolation:
		return "solvency_violation"
	case KindArithmeticFailure:
		return "arithmetic_failure"
	case KindOracleUnavailable:
		return "oracle_unavailable"
	default:
		return "unknown"
	}
}

var errorKinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrAmountZero, KindInvalidInput},
	{ErrTokenAndFeedLengthMismatch, KindInvalidInput},
	{ErrInvalidAddress, KindInvalidInput},
	{ErrDuplicateCollateral, KindInvalidInput},
	{ErrInvalidParams, KindInvalidInput},
	{ErrAssetNotAllowed, KindNotAuthorized},
	{ErrReentrantCall, KindNotAuthorized},
	{ErrTransferFailed, KindExternalCallFailed},
	{ErrMintFailed, KindExternalCallFailed},
	{ErrHealthFactorBroken, KindSolvencyViolation},
	{ErrHealthFactorOk, KindSolvencyViolation},
	{ErrHealthFactorNotImproved, KindSolvencyViolation},
	{ErrUnderflow, KindArithmeticFailure},
	{ErrOracleUnavailable, KindOracleUnavailable},
}

// KindOf classifies err. Errors from other modules are KindUnknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	for _, ek := range errorKinds {
		if errors.Is(err, ek.err) {
			return ek.kind
		}
	}
	return KindUnknown
}
