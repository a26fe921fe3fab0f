package keeper_test

import (
	"testing"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/dsc-chain/metrics"
	"github.com/openalpha/dsc-chain/x/stablecoin/keeper"
	"github.com/openalpha/dsc-chain/x/stablecoin/testutil"
	"github.com/openalpha/dsc-chain/x/stablecoin/types"
)

func setupMsgServer(t *testing.T) (*testutil.Env, types.MsgServer) {
	t.Helper()
	env := setupEnv(t)
	return env, keeper.NewMsgServerImpl(env.Keeper)
}

func TestMsgServerSolvencyBoundary(t *testing.T) {
	env, srv := setupMsgServer(t)
	user := testAddr("user")
	env.Bank.Fund(env.Ctx, user, sdk.NewCoins(sdk.NewCoin(weth, e18(1))))

	resp, err := srv.DepositCollateral(env.Ctx, &types.MsgDepositCollateral{Sender: user.String(), Token: weth, Amount: e18(1)})
	require.NoError(t, err)
	require.True(t, resp.CollateralValue.Equal(e18(2000)))
	require.True(t, resp.HealthFactor.Equal(types.MaxHealthFactor))

	// a rejected mint leaves no trace
	_, err = srv.MintDsc(env.Ctx, &types.MsgMintDsc{Sender: user.String(), Amount: e18(1001)})
	require.ErrorIs(t, err, types.ErrHealthFactorBroken)
	require.Equal(t, types.KindSolvencyViolation, types.KindOf(err))
	require.True(t, env.Keeper.GetDscMinted(env.Ctx, user.String()).IsZero())
	require.True(t, env.Bank.GetBalance(env.Ctx, user, types.DscDenom).Amount.IsZero())

	resp, err = srv.MintDsc(env.Ctx, &types.MsgMintDsc{Sender: user.String(), Amount: e18(1000)})
	require.NoError(t, err)
	require.True(t, resp.TotalDscMinted.Equal(e18(1000)))
	require.True(t, resp.HealthFactor.Equal(e18(1)))
	require.True(t, env.Bank.GetBalance(env.Ctx, user, types.DscDenom).Amount.Equal(e18(1000)))
}

func TestMsgServerInvalidSender(t *testing.T) {
	env, srv := setupMsgServer(t)

	_, err := srv.BurnDsc(env.Ctx, &types.MsgBurnDsc{Sender: "not-an-address", Amount: e18(1)})
	require.ErrorIs(t, err, sdkerrors.ErrInvalidAddress)

	_, err = srv.Liquidate(env.Ctx, &types.MsgLiquidate{Liquidator: testAddr("liq").String(), Token: weth, User: "bad", DebtToCover: e18(1)})
	require.ErrorIs(t, err, sdkerrors.ErrInvalidAddress)
}

func TestMsgServerRedeemCollateralForDsc(t *testing.T) {
	env, srv := setupMsgServer(t)
	user := testAddr("user")
	openPosition(t, env, user, e18(10), e18(100))

	resp, err := srv.RedeemCollateralForDsc(env.Ctx, &types.MsgRedeemCollateralForDsc{
		Sender:           user.String(),
		Token:            weth,
		CollateralAmount: e18(4),
		DscAmount:        e18(40),
	})
	require.NoError(t, err)
	require.True(t, resp.TotalDscMinted.Equal(e18(60)))
	require.True(t, resp.CollateralValue.Equal(e18(12000)))
}

func TestLiquidateImprovesHealth(t *testing.T) {
	env, srv := setupMsgServer(t)
	user, liquidator := testAddr("user"), testAddr("liquidator")
	openPosition(t, env, user, e18(10), e18(100))

	// 10 ETH at 18 USD backs 90 DSC against 100 owed
	require.NoError(t, env.SetPrice(ethFeed, e8(18)))
	openPosition(t, env, liquidator, e18(20), e18(100))

	resp, err := srv.Liquidate(env.Ctx, &types.MsgLiquidate{
		Liquidator:  liquidator.String(),
		Token:       weth,
		User:        user.String(),
		DebtToCover: e18(100),
	})
	require.NoError(t, err)

	// 100 USD is 5.555... ETH, plus a 10% bonus
	require.Equal(t, "6111111111111111110", resp.CollateralSeized.String())
	require.Equal(t, "555555555555555555", resp.Bonus.String())
	require.Equal(t, "900000000000000000", resp.StartingHealthFactor.String())
	require.True(t, resp.EndingHealthFactor.GT(resp.StartingHealthFactor))

	require.True(t, env.Keeper.GetDscMinted(env.Ctx, user.String()).IsZero())
	require.Equal(t, "3888888888888888890", env.Keeper.GetCollateralDeposited(env.Ctx, user.String(), weth).String())
	require.Equal(t, "6111111111111111110", env.Bank.GetBalance(env.Ctx, liquidator, weth).Amount.String())
	require.True(t, env.Bank.GetBalance(env.Ctx, liquidator, types.DscDenom).Amount.IsZero())

	// the liquidator's own position is untouched
	require.True(t, env.Keeper.GetDscMinted(env.Ctx, liquidator.String()).Equal(e18(100)))
	require.True(t, env.Keeper.GetCollateralDeposited(env.Ctx, liquidator.String(), weth).Equal(e18(20)))
}

func TestLiquidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		price   math.Int
		cover   math.Int
		wantErr error
	}{
		{"healthy account", e8(2000), e18(10), types.ErrHealthFactorOk},
		{"zero debt to cover", e8(18), math.ZeroInt(), types.ErrAmountZero},
		// collateral worth 105 against 100 owed cannot pay a 10% bonus
		{"health not improved", math.NewInt(10_50000000), e18(10), types.ErrHealthFactorNotImproved},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env, srv := setupMsgServer(t)
			user, liquidator := testAddr("user"), testAddr("liquidator")
			openPosition(t, env, user, e18(10), e18(100))
			openPosition(t, env, liquidator, e18(100), e18(10))
			require.NoError(t, env.SetPrice(ethFeed, tc.price))

			_, err := srv.Liquidate(env.Ctx, &types.MsgLiquidate{
				Liquidator:  liquidator.String(),
				Token:       weth,
				User:        user.String(),
				DebtToCover: tc.cover,
			})
			require.ErrorIs(t, err, tc.wantErr)

			require.True(t, env.Keeper.GetDscMinted(env.Ctx, user.String()).Equal(e18(100)))
			require.True(t, env.Keeper.GetCollateralDeposited(env.Ctx, user.String(), weth).Equal(e18(10)))
			require.True(t, env.Bank.GetBalance(env.Ctx, liquidator, types.DscDenom).Amount.Equal(e18(10)))
			require.True(t, env.Bank.GetBalance(env.Ctx, liquidator, weth).Amount.IsZero())
		})
	}
}

func TestMsgServerReleasesGuardAfterPanic(t *testing.T) {
	env, srv := setupMsgServer(t)
	user := testAddr("user")
	openPosition(t, env, user, e18(10), e18(100))

	env.Bank.FailBurn = true
	require.Panics(t, func() {
		_, _ = srv.BurnDsc(env.Ctx, &types.MsgBurnDsc{Sender: user.String(), Amount: e18(10)})
	})
	require.True(t, env.Keeper.GetDscMinted(env.Ctx, user.String()).Equal(e18(100)))

	env.Bank.FailBurn = false
	resp, err := srv.BurnDsc(env.Ctx, &types.MsgBurnDsc{Sender: user.String(), Amount: e18(10)})
	require.NoError(t, err)
	require.True(t, resp.TotalDscMinted.Equal(e18(90)))
}

func TestMsgServerDepositAndMintRecordsFlows(t *testing.T) {
	env, srv := setupMsgServer(t)
	user := testAddr("flows")
	env.Bank.Fund(env.Ctx, user, sdk.NewCoins(sdk.NewCoin(wbtc, e18(3))))

	collector := metrics.GetCollector()
	collateralIn := collector.CollateralFlow.WithLabelValues(wbtc, "in")
	minted := collector.DscSupplyFlow.WithLabelValues("mint")
	inBefore, mintBefore := promtestutil.ToFloat64(collateralIn), promtestutil.ToFloat64(minted)

	resp, err := srv.DepositCollateralAndMintDsc(env.Ctx, &types.MsgDepositCollateralAndMintDsc{
		Sender:           user.String(),
		Token:            wbtc,
		CollateralAmount: e18(3),
		DscAmount:        e18(500),
	})
	require.NoError(t, err)
	require.True(t, resp.CollateralValue.Equal(e18(3000)))

	require.InDelta(t, 3, promtestutil.ToFloat64(collateralIn)-inBefore, 1e-9)
	require.InDelta(t, 500, promtestutil.ToFloat64(minted)-mintBefore, 1e-9)
}
