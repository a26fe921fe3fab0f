package keeper

import (
	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/dsc-chain/x/stablecoin/types"
)

// LiquidationResult describes a completed liquidation
type LiquidationResult struct {
	CollateralSeized     math.Int
	Bonus                math.Int
	StartingHealthFactor math.Int
	EndingHealthFactor   math.Int
}

// LiquidationEngine lets third parties repay debt of unhealthy accounts in
// exchange for their collateral plus a bonus
type LiquidationEngine struct {
	keeper *Keeper
}

// NewLiquidationEngine creates a new liquidation engine
func NewLiquidationEngine(keeper *Keeper) *LiquidationEngine {
	return &LiquidationEngine{keeper: keeper}
}

// Liquidate covers debtToCover of user's debt with the liquidator's tokens
// and pays the liquidator the equivalent amount of token plus the bonus.
// The liquidation must strictly improve user's health factor and must leave
// the liquidator healthy.
func (le *LiquidationEngine) Liquidate(ctx sdk.Context, liquidator sdk.AccAddress, token string, user sdk.AccAddress, debtToCover math.Int) (*LiquidationResult, error) {
	k := le.keeper
	if err := requirePositive(debtToCover); err != nil {
		return nil, err
	}

	params := k.GetParams(ctx)
	userAddr := user.String()

	startingHealthFactor := k.HealthFactor(ctx, userAddr)
	if startingHealthFactor.GTE(params.MinHealthFactor) {
		return nil, errorsmod.Wrapf(types.ErrHealthFactorOk, "account %s health factor %s", userAddr, startingHealthFactor)
	}

	tokenAmountFromDebtCovered := k.GetTokenAmountFromUsd(ctx, token, debtToCover)
	bonus, totalCollateralToRedeem := types.LiquidationSeize(params, tokenAmountFromDebtCovered)

	if err := k.redeemCollateral(ctx, token, totalCollateralToRedeem, user, liquidator); err != nil {
		return nil, err
	}
	if err := k.burnDsc(ctx, debtToCover, user, liquidator); err != nil {
		return nil, err
	}

	endingHealthFactor := k.HealthFactor(ctx, userAddr)
	if endingHealthFactor.LTE(startingHealthFactor) {
		return nil, errorsmod.Wrapf(types.ErrHealthFactorNotImproved, "account %s health factor %s -> %s", userAddr, startingHealthFactor, endingHealthFactor)
	}
	if err := k.checkHealthFactor(ctx, liquidator.String()); err != nil {
		return nil, err
	}

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeLiquidation,
			sdk.NewAttribute(types.AttributeKeyLiquidator, liquidator.String()),
			sdk.NewAttribute(types.AttributeKeyUser, userAddr),
			sdk.NewAttribute(types.AttributeKeyToken, token),
			sdk.NewAttribute(types.AttributeKeyDebtCovered, debtToCover.String()),
			sdk.NewAttribute(types.AttributeKeyAmount, totalCollateralToRedeem.String()),
			sdk.NewAttribute(types.AttributeKeyBonus, bonus.String()),
			sdk.NewAttribute(types.AttributeKeyHealthBefore, startingHealthFactor.String()),
			sdk.NewAttribute(types.AttributeKeyHealthAfter, endingHealthFactor.String()),
		),
	)

	k.Logger().Info("account liquidated",
		"user", userAddr,
		"liquidator", liquidator.String(),
		"token", token,
		"debt_covered", debtToCover.String(),
		"collateral_seized", totalCollateralToRedeem.String(),
		"health_factor_before", startingHealthFactor.String(),
		"health_factor_after", endingHealthFactor.String(),
	)

	return &LiquidationResult{
		CollateralSeized:     totalCollateralToRedeem,
		Bonus:                bonus,
		StartingHealthFactor: startingHealthFactor,
		EndingHealthFactor:   endingHealthFactor,
	}, nil
}
