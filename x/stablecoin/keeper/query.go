package keeper

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/dsc-chain/x/stablecoin/types"
)

// AccountInformation is the solvency summary of one account
type AccountInformation struct {
	User                 string   `json:"user"`
	TotalDscMinted       math.Int `json:"total_dsc_minted"`
	CollateralValueInUsd math.Int `json:"collateral_value_in_usd"`
	HealthFactor         math.Int `json:"health_factor"`
}

// QueryServer defines the stablecoin QueryServer
type QueryServer struct {
	keeper *Keeper
}

// NewQueryServerImpl creates a new QueryServer instance
func NewQueryServerImpl(keeper *Keeper) *QueryServer {
	return &QueryServer{keeper: keeper}
}

// Params returns the engine parameters
func (q *QueryServer) Params(ctx context.Context) types.Params {
	return q.keeper.GetParams(sdk.UnwrapSDKContext(ctx))
}

// Precision returns the fixed-point scale of the engine
func (q *QueryServer) Precision(ctx context.Context) math.Int {
	return q.Params(ctx).Precision
}

// AdditionalFeedPrecision returns the factor lifting feed answers to engine precision
func (q *QueryServer) AdditionalFeedPrecision(ctx context.Context) math.Int {
	return q.Params(ctx).AdditionalFeedPrecision
}

// LiquidationThreshold returns the share of collateral value counted toward solvency
func (q *QueryServer) LiquidationThreshold(ctx context.Context) math.Int {
	return q.Params(ctx).LiquidationThreshold
}

// LiquidationBonus returns the liquidator's bonus in liquidation-precision units
func (q *QueryServer) LiquidationBonus(ctx context.Context) math.Int {
	return q.Params(ctx).LiquidationBonus
}

// MinHealthFactor returns the solvency floor
func (q *QueryServer) MinHealthFactor(ctx context.Context) math.Int {
	return q.Params(ctx).MinHealthFactor
}

// CollateralTokens returns the approved collateral tokens in registration order
func (q *QueryServer) CollateralTokens(ctx context.Context) []string {
	return q.keeper.GetCollateralTokens(sdk.UnwrapSDKContext(ctx))
}

// CollateralTokenPriceFeed returns the feed id that prices token
func (q *QueryServer) CollateralTokenPriceFeed(ctx context.Context, token string) (string, error) {
	feedID, found := q.keeper.GetCollateralTokenPriceFeed(sdk.UnwrapSDKContext(ctx), token)
	if !found {
		return "", errorsmod.Wrap(types.ErrAssetNotAllowed, token)
	}
	return feedID, nil
}

// CollateralBalanceOfUser returns the deposit of token held for user
func (q *QueryServer) CollateralBalanceOfUser(ctx context.Context, user, token string) (math.Int, error) {
	if _, err := sdk.AccAddressFromBech32(user); err != nil {
		return math.ZeroInt(), errorsmod.Wrap(types.ErrInvalidAddress, err.Error())
	}
	return q.keeper.GetCollateralDeposited(sdk.UnwrapSDKContext(ctx), user, token), nil
}

// UserDeposits returns every deposit record of user
func (q *QueryServer) UserDeposits(ctx context.Context, user string) ([]types.CollateralDeposit, error) {
	if _, err := sdk.AccAddressFromBech32(user); err != nil {
		return nil, errorsmod.Wrap(types.ErrInvalidAddress, err.Error())
	}
	return q.keeper.GetUserDeposits(sdk.UnwrapSDKContext(ctx), user), nil
}

// AccountInformation returns debt, collateral value and health factor of user
func (q *QueryServer) AccountInformation(ctx context.Context, user string) (*AccountInformation, error) {
	if _, err := sdk.AccAddressFromBech32(user); err != nil {
		return nil, errorsmod.Wrap(types.ErrInvalidAddress, err.Error())
	}
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	totalDscMinted, collateralValueInUsd := q.keeper.GetAccountInformation(sdkCtx, user)
	return &AccountInformation{
		User:                 user,
		TotalDscMinted:       totalDscMinted,
		CollateralValueInUsd: collateralValueInUsd,
		HealthFactor:         types.CalculateHealthFactor(q.keeper.GetParams(sdkCtx), totalDscMinted, collateralValueInUsd),
	}, nil
}

// AccountCollateralValue returns the total collateral value of user
func (q *QueryServer) AccountCollateralValue(ctx context.Context, user string) (math.Int, error) {
	if _, err := sdk.AccAddressFromBech32(user); err != nil {
		return math.ZeroInt(), errorsmod.Wrap(types.ErrInvalidAddress, err.Error())
	}
	return q.keeper.GetAccountCollateralValue(sdk.UnwrapSDKContext(ctx), user), nil
}

// HealthFactor returns the health factor of user
func (q *QueryServer) HealthFactor(ctx context.Context, user string) (math.Int, error) {
	if _, err := sdk.AccAddressFromBech32(user); err != nil {
		return math.ZeroInt(), errorsmod.Wrap(types.ErrInvalidAddress, err.Error())
	}
	return q.keeper.HealthFactor(sdk.UnwrapSDKContext(ctx), user), nil
}

// CalculateHealthFactor evaluates the health factor formula for arbitrary inputs
func (q *QueryServer) CalculateHealthFactor(ctx context.Context, totalDscMinted, collateralValueInUsd math.Int) math.Int {
	return types.CalculateHealthFactor(q.Params(ctx), totalDscMinted, collateralValueInUsd)
}

// UsdValue returns the value of amount of token
func (q *QueryServer) UsdValue(ctx context.Context, token string, amount math.Int) math.Int {
	return q.keeper.GetUsdValue(sdk.UnwrapSDKContext(ctx), token, amount)
}

// TokenAmountFromUsd returns how much of token is worth usdAmount
func (q *QueryServer) TokenAmountFromUsd(ctx context.Context, token string, usdAmount math.Int) math.Int {
	return q.keeper.GetTokenAmountFromUsd(sdk.UnwrapSDKContext(ctx), token, usdAmount)
}

// LiquidationCandidates returns up to limit accounts below the minimum
// health factor, least healthy first
func (q *QueryServer) LiquidationCandidates(ctx context.Context, limit int) []AccountRisk {
	return q.keeper.LiquidationCandidates(sdk.UnwrapSDKContext(ctx), limit)
}
