package keeper_test

import (
	"testing"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/dsc-chain/x/stablecoin/keeper"
	"github.com/openalpha/dsc-chain/x/stablecoin/testutil"
	"github.com/openalpha/dsc-chain/x/stablecoin/types"
)

func countEvents(events sdk.Events, eventType string) int {
	var n int
	for _, ev := range events {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

// recoverError runs fn and returns the error it panicked with
func recoverError(t *testing.T, fn func()) (err error) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		var ok bool
		err, ok = r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
	}()
	fn()
	return nil
}

func TestDepositEmitsBeforeTransfer(t *testing.T) {
	env := setupEnv(t)
	k := env.Keeper
	user := testAddr("user")
	env.Bank.Fund(env.Ctx, user, sdk.NewCoins(sdk.NewCoin(weth, e18(5))))
	env.Bank.FailSendToModule = true

	ctx, _ := env.Ctx.CacheContext()
	err := k.DepositCollateral(ctx, user, weth, e18(5))
	require.ErrorIs(t, err, types.ErrTransferFailed)
	require.Equal(t, types.KindExternalCallFailed, types.KindOf(err))

	// ledger entry and event precede the failed pull
	require.Equal(t, 1, countEvents(ctx.EventManager().Events(), types.EventTypeCollateralDeposited))
	require.True(t, k.GetCollateralDeposited(ctx, user.String(), weth).Equal(e18(5)))

	// the message boundary discards both
	srv := keeper.NewMsgServerImpl(k)
	_, err = srv.DepositCollateral(env.Ctx, &types.MsgDepositCollateral{Sender: user.String(), Token: weth, Amount: e18(5)})
	require.ErrorIs(t, err, types.ErrTransferFailed)
	require.Zero(t, countEvents(env.Ctx.EventManager().Events(), types.EventTypeCollateralDeposited))
	require.True(t, k.GetCollateralDeposited(env.Ctx, user.String(), weth).IsZero())
	require.True(t, env.Bank.GetBalance(env.Ctx, user, weth).Amount.Equal(e18(5)))
}

func TestBankFailuresAbortOperations(t *testing.T) {
	tests := []struct {
		name    string
		fail    func(b *testutil.BankKeeper)
		run     func(srv types.MsgServer, env *testutil.Env, user sdk.AccAddress) error
		wantErr error
	}{
		{
			name: "redeem payout",
			fail: func(b *testutil.BankKeeper) { b.FailSendFromModule = true },
			run: func(srv types.MsgServer, env *testutil.Env, user sdk.AccAddress) error {
				_, err := srv.RedeemCollateral(env.Ctx, &types.MsgRedeemCollateral{Sender: user.String(), Token: weth, Amount: e18(1)})
				return err
			},
			wantErr: types.ErrTransferFailed,
		},
		{
			name: "mint",
			fail: func(b *testutil.BankKeeper) { b.FailMint = true },
			run: func(srv types.MsgServer, env *testutil.Env, user sdk.AccAddress) error {
				_, err := srv.MintDsc(env.Ctx, &types.MsgMintDsc{Sender: user.String(), Amount: e18(10)})
				return err
			},
			wantErr: types.ErrMintFailed,
		},
		{
			name: "mint delivery",
			fail: func(b *testutil.BankKeeper) { b.FailSendFromModule = true },
			run: func(srv types.MsgServer, env *testutil.Env, user sdk.AccAddress) error {
				_, err := srv.MintDsc(env.Ctx, &types.MsgMintDsc{Sender: user.String(), Amount: e18(10)})
				return err
			},
			wantErr: types.ErrMintFailed,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env, srv := setupMsgServer(t)
			user := testAddr("user")
			openPosition(t, env, user, e18(10), e18(100))

			tc.fail(env.Bank)
			err := tc.run(srv, env, user)
			require.ErrorIs(t, err, tc.wantErr)
			require.Equal(t, types.KindExternalCallFailed, types.KindOf(err))

			require.True(t, env.Keeper.GetCollateralDeposited(env.Ctx, user.String(), weth).Equal(e18(10)))
			require.True(t, env.Keeper.GetDscMinted(env.Ctx, user.String()).Equal(e18(100)))
			require.True(t, env.Bank.GetBalance(env.Ctx, user, types.DscDenom).Amount.Equal(e18(100)))
			require.True(t, env.Bank.GetBalance(env.Ctx, user, weth).Amount.IsZero())
		})
	}
}

func TestBurnDscPanicsWhenPullFails(t *testing.T) {
	env := setupEnv(t)
	k := env.Keeper
	user := testAddr("user")
	openPosition(t, env, user, e18(10), e18(100))

	env.Bank.FailSendToModule = true
	ctx, _ := env.Ctx.CacheContext()
	err := recoverError(t, func() {
		_ = k.BurnDsc(ctx, user, e18(40))
	})
	require.ErrorIs(t, err, types.ErrTransferFailed)

	require.True(t, k.GetDscMinted(env.Ctx, user.String()).Equal(e18(100)))
	require.True(t, env.Bank.GetBalance(env.Ctx, user, types.DscDenom).Amount.Equal(e18(100)))
}

func TestMintWithUnavailablePrice(t *testing.T) {
	env, srv := setupMsgServer(t)
	k := env.Keeper
	user := testAddr("user")
	openPosition(t, env, user, e18(10), math.ZeroInt())

	require.NoError(t, env.SetPrice(ethFeed, math.NewInt(-1)))
	require.True(t, k.GetAccountCollateralValue(env.Ctx, user.String()).IsZero())
	require.True(t, k.HealthFactor(env.Ctx, user.String()).Equal(types.MaxHealthFactor))

	// ten deposited ETH back nothing while the feed answers -1
	_, err := srv.MintDsc(env.Ctx, &types.MsgMintDsc{Sender: user.String(), Amount: e18(1)})
	require.ErrorIs(t, err, types.ErrHealthFactorBroken)
	require.True(t, k.GetDscMinted(env.Ctx, user.String()).IsZero())
	require.True(t, env.Bank.GetBalance(env.Ctx, user, types.DscDenom).Amount.IsZero())

	require.NoError(t, env.SetPrice(ethFeed, e8(2000)))
	resp, err := srv.MintDsc(env.Ctx, &types.MsgMintDsc{Sender: user.String(), Amount: e18(1)})
	require.NoError(t, err)
	require.True(t, resp.HealthFactor.Equal(e18(10000)))
}

func TestLiquidateWithUnavailablePriceSeizesNothing(t *testing.T) {
	env, srv := setupMsgServer(t)
	k := env.Keeper
	user, liquidator := testAddr("user"), testAddr("liquidator")
	openPosition(t, env, user, e18(10), e18(100))

	// the liquidator is backed by wbtc, which keeps its price
	env.Bank.Fund(env.Ctx, liquidator, sdk.NewCoins(sdk.NewCoin(wbtc, e18(10))))
	require.NoError(t, k.DepositCollateral(env.Ctx, liquidator, wbtc, e18(10)))
	require.NoError(t, k.MintDsc(env.Ctx, liquidator, e18(100)))

	require.NoError(t, env.SetPrice(ethFeed, math.NewInt(-1)))
	require.True(t, k.HealthFactor(env.Ctx, user.String()).IsZero())
	require.True(t, k.GetTokenAmountFromUsd(env.Ctx, weth, e18(100)).IsZero())

	resp, err := srv.Liquidate(env.Ctx, &types.MsgLiquidate{
		Liquidator:  liquidator.String(),
		Token:       weth,
		User:        user.String(),
		DebtToCover: e18(100),
	})
	require.NoError(t, err)
	require.True(t, resp.CollateralSeized.IsZero())
	require.True(t, resp.Bonus.IsZero())
	require.True(t, resp.StartingHealthFactor.IsZero())
	require.True(t, resp.EndingHealthFactor.Equal(types.MaxHealthFactor))

	// the debt is repaid and the user keeps every deposited token
	require.True(t, k.GetDscMinted(env.Ctx, user.String()).IsZero())
	require.True(t, k.GetCollateralDeposited(env.Ctx, user.String(), weth).Equal(e18(10)))
	require.True(t, env.Bank.GetBalance(env.Ctx, liquidator, weth).Amount.IsZero())
	require.True(t, env.Bank.GetBalance(env.Ctx, liquidator, types.DscDenom).Amount.IsZero())
	require.True(t, k.GetDscMinted(env.Ctx, liquidator.String()).Equal(e18(100)))
}
