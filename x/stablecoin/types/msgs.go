package types

import (
	"context"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
)

// MsgServer defines the stablecoin module's operations. Requests are plain
// JSON structs served by the dscapi gateway; the chain binary routes no
// stablecoin transactions.
type MsgServer interface {
	DepositCollateral(context.Context, *MsgDepositCollateral) (*MsgPositionResponse, error)
	MintDsc(context.Context, *MsgMintDsc) (*MsgPositionResponse, error)
	DepositCollateralAndMintDsc(context.Context, *MsgDepositCollateralAndMintDsc) (*MsgPositionResponse, error)
	RedeemCollateral(context.Context, *MsgRedeemCollateral) (*MsgPositionResponse, error)
	RedeemCollateralForDsc(context.Context, *MsgRedeemCollateralForDsc) (*MsgPositionResponse, error)
	BurnDsc(context.Context, *MsgBurnDsc) (*MsgPositionResponse, error)
	Liquidate(context.Context, *MsgLiquidate) (*MsgLiquidateResponse, error)
}

func validateSender(sender string) error {
	if _, err := sdk.AccAddressFromBech32(sender); err != nil {
		return sdkerrors.ErrInvalidAddress.Wrapf("invalid sender address: %s", err)
	}
	return nil
}

func validateAmount(field string, amount math.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return ErrAmountZero.Wrap(field)
	}
	return nil
}

func validateToken(token string) error {
	if err := sdk.ValidateDenom(token); err != nil {
		return ErrAssetNotAllowed.Wrap(err.Error())
	}
	return nil
}

// ============ MsgDepositCollateral ============

// MsgDepositCollateral locks collateral with the engine
type MsgDepositCollateral struct {
	Sender string   `json:"sender"`
	Token  string   `json:"token"`
	Amount math.Int `json:"amount"`
}

// ValidateBasic performs stateless checks
func (msg *MsgDepositCollateral) ValidateBasic() error {
	if err := validateSender(msg.Sender); err != nil {
		return err
	}
	if err := validateToken(msg.Token); err != nil {
		return err
	}
	return validateAmount("amount", msg.Amount)
}

// ============ MsgMintDsc ============

// MsgMintDsc mints pegged tokens against deposited collateral
type MsgMintDsc struct {
	Sender string   `json:"sender"`
	Amount math.Int `json:"amount"`
}

// ValidateBasic performs stateless checks
func (msg *MsgMintDsc) ValidateBasic() error {
	if err := validateSender(msg.Sender); err != nil {
		return err
	}
	return validateAmount("amount", msg.Amount)
}

// ============ MsgDepositCollateralAndMintDsc ============

// MsgDepositCollateralAndMintDsc deposits collateral and mints in one message
type MsgDepositCollateralAndMintDsc struct {
	Sender           string   `json:"sender"`
	Token            string   `json:"token"`
	CollateralAmount math.Int `json:"collateral_amount"`
	DscAmount        math.Int `json:"dsc_amount"`
}

// ValidateBasic performs stateless checks. Amounts are left to the keeper,
// which may continue past a failed deposit.
func (msg *MsgDepositCollateralAndMintDsc) ValidateBasic() error {
	if err := validateSender(msg.Sender); err != nil {
		return err
	}
	if msg.CollateralAmount.IsNil() || msg.DscAmount.IsNil() {
		return ErrAmountZero.Wrap("amounts are required")
	}
	return nil
}

// ============ MsgRedeemCollateral ============

// MsgRedeemCollateral withdraws collateral back to the sender
type MsgRedeemCollateral struct {
	Sender string   `json:"sender"`
	Token  string   `json:"token"`
	Amount math.Int `json:"amount"`
}

// ValidateBasic performs stateless checks
func (msg *MsgRedeemCollateral) ValidateBasic() error {
	if err := validateSender(msg.Sender); err != nil {
		return err
	}
	if err := validateToken(msg.Token); err != nil {
		return err
	}
	return validateAmount("amount", msg.Amount)
}

// ============ MsgRedeemCollateralForDsc ============

// MsgRedeemCollateralForDsc burns debt and withdraws collateral
type MsgRedeemCollateralForDsc struct {
	Sender           string   `json:"sender"`
	Token            string   `json:"token"`
	CollateralAmount math.Int `json:"collateral_amount"`
	DscAmount        math.Int `json:"dsc_amount"`
}

// ValidateBasic performs stateless checks
func (msg *MsgRedeemCollateralForDsc) ValidateBasic() error {
	if err := validateSender(msg.Sender); err != nil {
		return err
	}
	if err := validateToken(msg.Token); err != nil {
		return err
	}
	if err := validateAmount("collateral_amount", msg.CollateralAmount); err != nil {
		return err
	}
	return validateAmount("dsc_amount", msg.DscAmount)
}

// ============ MsgBurnDsc ============

// MsgBurnDsc repays debt by burning pegged tokens
type MsgBurnDsc struct {
	Sender string   `json:"sender"`
	Amount math.Int `json:"amount"`
}

// ValidateBasic performs stateless checks
func (msg *MsgBurnDsc) ValidateBasic() error {
	if err := validateSender(msg.Sender); err != nil {
		return err
	}
	return validateAmount("amount", msg.Amount)
}

// ============ MsgLiquidate ============

// MsgLiquidate covers part of an unhealthy user's debt in exchange for
// their collateral plus a bonus
type MsgLiquidate struct {
	Liquidator  string   `json:"liquidator"`
	Token       string   `json:"token"`
	User        string   `json:"user"`
	DebtToCover math.Int `json:"debt_to_cover"`
}

// ValidateBasic performs stateless checks
func (msg *MsgLiquidate) ValidateBasic() error {
	if err := validateSender(msg.Liquidator); err != nil {
		return err
	}
	if _, err := sdk.AccAddressFromBech32(msg.User); err != nil {
		return sdkerrors.ErrInvalidAddress.Wrapf("invalid user address: %s", err)
	}
	if err := validateToken(msg.Token); err != nil {
		return err
	}
	return validateAmount("debt_to_cover", msg.DebtToCover)
}

// ============ Responses ============

// MsgPositionResponse reports the sender's position after an operation
type MsgPositionResponse struct {
	TotalDscMinted  math.Int `json:"total_dsc_minted"`
	CollateralValue math.Int `json:"collateral_value_in_usd"`
	HealthFactor    math.Int `json:"health_factor"`
}

// MsgLiquidateResponse reports the outcome of a liquidation
type MsgLiquidateResponse struct {
	CollateralSeized     math.Int `json:"collateral_seized"`
	Bonus                math.Int `json:"bonus"`
	StartingHealthFactor math.Int `json:"starting_health_factor"`
	EndingHealthFactor   math.Int `json:"ending_health_factor"`
}
