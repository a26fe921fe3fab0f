package keeper

import (
	"context"

	sdk "github.com/cosmos/cosmos-sdk/types"
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"

	"github.com/openalpha/dsc-chain/metrics"
	"github.com/openalpha/dsc-chain/x/stablecoin/types"
)

type msgServer struct {
	*Keeper
}

// NewMsgServerImpl returns an implementation of the MsgServer interface.
// Every message runs atomically: nothing it wrote survives a failure.
func NewMsgServerImpl(keeper *Keeper) types.MsgServer {
	return &msgServer{Keeper: keeper}
}

var _ types.MsgServer = msgServer{}

func parseAddress(addr string) (sdk.AccAddress, error) {
	acc, err := sdk.AccAddressFromBech32(addr)
	if err != nil {
		return nil, sdkerrors.ErrInvalidAddress.Wrapf("%s: %s", addr, err)
	}
	return acc, nil
}

// run executes one position operation and records its outcome
func (m msgServer) run(ctx sdk.Context, operation string, fn func(ctx sdk.Context) error) error {
	timer := metrics.NewTimer()
	err := m.execute(ctx, fn)
	metrics.GetCollector().RecordOperation(operation, types.KindOf(err).String(), err == nil, timer.ElapsedMs())
	return err
}

func (m msgServer) positionResponse(ctx sdk.Context, user string) *types.MsgPositionResponse {
	totalDscMinted, collateralValueInUsd := m.GetAccountInformation(ctx, user)
	params := m.GetParams(ctx)
	healthFactor := types.CalculateHealthFactor(params, totalDscMinted, collateralValueInUsd)
	metrics.GetCollector().RecordHealthFactor(healthFactor, types.MaxHealthFactor, params.Precision)
	return &types.MsgPositionResponse{
		TotalDscMinted:  totalDscMinted,
		CollateralValue: collateralValueInUsd,
		HealthFactor:    healthFactor,
	}
}

// DepositCollateral handles MsgDepositCollateral
func (m msgServer) DepositCollateral(goCtx context.Context, msg *types.MsgDepositCollateral) (*types.MsgPositionResponse, error) {
	ctx := sdk.UnwrapSDKContext(goCtx)
	sender, err := parseAddress(msg.Sender)
	if err != nil {
		return nil, err
	}

	err = m.run(ctx, "deposit", func(ctx sdk.Context) error {
		return m.Keeper.DepositCollateral(ctx, sender, msg.Token, msg.Amount)
	})
	if err != nil {
		return nil, err
	}
	metrics.GetCollector().RecordCollateralFlow(msg.Token, "in", msg.Amount)
	return m.positionResponse(ctx, msg.Sender), nil
}

// MintDsc handles MsgMintDsc
func (m msgServer) MintDsc(goCtx context.Context, msg *types.MsgMintDsc) (*types.MsgPositionResponse, error) {
	ctx := sdk.UnwrapSDKContext(goCtx)
	sender, err := parseAddress(msg.Sender)
	if err != nil {
		return nil, err
	}

	err = m.run(ctx, "mint", func(ctx sdk.Context) error {
		return m.Keeper.MintDsc(ctx, sender, msg.Amount)
	})
	if err != nil {
		return nil, err
	}
	metrics.GetCollector().RecordDscSupply("mint", msg.Amount)
	return m.positionResponse(ctx, msg.Sender), nil
}

// DepositCollateralAndMintDsc handles MsgDepositCollateralAndMintDsc
func (m msgServer) DepositCollateralAndMintDsc(goCtx context.Context, msg *types.MsgDepositCollateralAndMintDsc) (*types.MsgPositionResponse, error) {
	ctx := sdk.UnwrapSDKContext(goCtx)
	sender, err := parseAddress(msg.Sender)
	if err != nil {
		return nil, err
	}

	err = m.run(ctx, "deposit_and_mint", func(ctx sdk.Context) error {
		return m.Keeper.DepositCollateralAndMintDsc(ctx, sender, msg.Token, msg.CollateralAmount, msg.DscAmount)
	})
	if err != nil {
		return nil, err
	}
	metrics.GetCollector().RecordCollateralFlow(msg.Token, "in", msg.CollateralAmount)
	metrics.GetCollector().RecordDscSupply("mint", msg.DscAmount)
	return m.positionResponse(ctx, msg.Sender), nil
}

// RedeemCollateral handles MsgRedeemCollateral
func (m msgServer) RedeemCollateral(goCtx context.Context, msg *types.MsgRedeemCollateral) (*types.MsgPositionResponse, error) {
	ctx := sdk.UnwrapSDKContext(goCtx)
	sender, err := parseAddress(msg.Sender)
	if err != nil {
		return nil, err
	}

	err = m.run(ctx, "redeem", func(ctx sdk.Context) error {
		return m.Keeper.RedeemCollateral(ctx, sender, msg.Token, msg.Amount)
	})
	if err != nil {
		return nil, err
	}
	metrics.GetCollector().RecordCollateralFlow(msg.Token, "out", msg.Amount)
	return m.positionResponse(ctx, msg.Sender), nil
}

// RedeemCollateralForDsc handles MsgRedeemCollateralForDsc
func (m msgServer) RedeemCollateralForDsc(goCtx context.Context, msg *types.MsgRedeemCollateralForDsc) (*types.MsgPositionResponse, error) {
	ctx := sdk.UnwrapSDKContext(goCtx)
	sender, err := parseAddress(msg.Sender)
	if err != nil {
		return nil, err
	}

	err = m.run(ctx, "redeem_for_dsc", func(ctx sdk.Context) error {
		return m.Keeper.RedeemCollateralForDsc(ctx, sender, msg.Token, msg.CollateralAmount, msg.DscAmount)
	})
	if err != nil {
		return nil, err
	}
	metrics.GetCollector().RecordCollateralFlow(msg.Token, "out", msg.CollateralAmount)
	metrics.GetCollector().RecordDscSupply("burn", msg.DscAmount)
	return m.positionResponse(ctx, msg.Sender), nil
}

// BurnDsc handles MsgBurnDsc
func (m msgServer) BurnDsc(goCtx context.Context, msg *types.MsgBurnDsc) (*types.MsgPositionResponse, error) {
	ctx := sdk.UnwrapSDKContext(goCtx)
	sender, err := parseAddress(msg.Sender)
	if err != nil {
		return nil, err
	}

	err = m.run(ctx, "burn", func(ctx sdk.Context) error {
		return m.Keeper.BurnDsc(ctx, sender, msg.Amount)
	})
	if err != nil {
		return nil, err
	}
	metrics.GetCollector().RecordDscSupply("burn", msg.Amount)
	return m.positionResponse(ctx, msg.Sender), nil
}

// Liquidate handles MsgLiquidate
func (m msgServer) Liquidate(goCtx context.Context, msg *types.MsgLiquidate) (*types.MsgLiquidateResponse, error) {
	ctx := sdk.UnwrapSDKContext(goCtx)
	liquidator, err := parseAddress(msg.Liquidator)
	if err != nil {
		return nil, err
	}
	user, err := parseAddress(msg.User)
	if err != nil {
		return nil, err
	}

	var result *LiquidationResult
	err = m.run(ctx, "liquidate", func(ctx sdk.Context) error {
		var lerr error
		result, lerr = NewLiquidationEngine(m.Keeper).Liquidate(ctx, liquidator, msg.Token, user, msg.DebtToCover)
		return lerr
	})
	if err != nil {
		return nil, err
	}

	collector := metrics.GetCollector()
	collector.RecordLiquidation(msg.Token, msg.DebtToCover, result.CollateralSeized)
	collector.RecordHealthFactor(result.EndingHealthFactor, types.MaxHealthFactor, m.GetParams(ctx).Precision)
	return &types.MsgLiquidateResponse{
		CollateralSeized:     result.CollateralSeized,
		Bonus:                result.Bonus,
		StartingHealthFactor: result.StartingHealthFactor,
		EndingHealthFactor:   result.EndingHealthFactor,
	}, nil
}
