package keeper_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/dsc-chain/x/stablecoin/testutil"
	"github.com/openalpha/dsc-chain/x/stablecoin/types"
)

const (
	weth    = "weth"
	wbtc    = "wbtc"
	ethFeed = "eth-usd"
	btcFeed = "btc-usd"
)

// e18 returns n whole tokens of an 18-decimal asset
func e18(n int64) math.Int {
	return math.NewIntWithDecimal(n, 18)
}

// e8 returns an 8-decimal feed answer of n
func e8(n int64) math.Int {
	return math.NewIntWithDecimal(n, 8)
}

func testAddr(name string) sdk.AccAddress {
	return sdk.AccAddress(fmt.Sprintf("%-20s", name))
}

func setupEnv(t *testing.T) *testutil.Env {
	t.Helper()
	env, err := testutil.NewEnv(log.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, env.AddCollateral(weth, ethFeed, e8(2000)))
	require.NoError(t, env.AddCollateral(wbtc, btcFeed, e8(1000)))
	return env
}

// openPosition funds user, deposits collateral of weth and mints debt
func openPosition(t *testing.T, env *testutil.Env, user sdk.AccAddress, collateral, debt math.Int) {
	t.Helper()
	env.Bank.Fund(env.Ctx, user, sdk.NewCoins(sdk.NewCoin(weth, collateral)))
	require.NoError(t, env.Keeper.DepositCollateral(env.Ctx, user, weth, collateral))
	if debt.IsPositive() {
		require.NoError(t, env.Keeper.MintDsc(env.Ctx, user, debt))
	}
}

func TestRegisterCollateralTokens(t *testing.T) {
	env, err := testutil.NewEnv(log.NewNopLogger())
	require.NoError(t, err)
	k, ctx := env.Keeper, env.Ctx

	tests := []struct {
		name    string
		tokens  []string
		feeds   []string
		wantErr error
	}{
		{"length mismatch", []string{weth, wbtc}, []string{ethFeed}, types.ErrTokenAndFeedLengthMismatch},
		{"pegged token", []string{types.DscDenom}, []string{"dsc-usd"}, types.ErrAssetNotAllowed},
		{"invalid denom", []string{"1x"}, []string{"x-usd"}, types.ErrAssetNotAllowed},
		{"valid", []string{weth, wbtc}, []string{ethFeed, btcFeed}, nil},
		{"duplicate", []string{weth}, []string{ethFeed}, types.ErrDuplicateCollateral},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := k.RegisterCollateralTokens(ctx, tc.tokens, tc.feeds)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}

	require.Equal(t, []string{weth, wbtc}, k.GetCollateralTokens(ctx))
	feed, found := k.GetCollateralTokenPriceFeed(ctx, wbtc)
	require.True(t, found)
	require.Equal(t, btcFeed, feed)
	require.False(t, k.IsAllowedToken(ctx, "usdc"))
}

func TestGetUsdValue(t *testing.T) {
	env := setupEnv(t)
	k, ctx := env.Keeper, env.Ctx

	// 15 ETH at 2000 USD
	require.True(t, k.GetUsdValue(ctx, weth, e18(15)).Equal(e18(30000)))
	// 100 USD buys 0.05 ETH
	require.True(t, k.GetTokenAmountFromUsd(ctx, weth, e18(100)).Equal(math.NewIntWithDecimal(5, 16)))
	require.True(t, k.GetUsdValue(ctx, wbtc, e18(2)).Equal(e18(2000)))
}

func TestOracleDegradesToZero(t *testing.T) {
	env := setupEnv(t)
	k := env.Keeper

	// unregistered token
	require.True(t, k.GetUsdValue(env.Ctx, "usdc", e18(1)).IsZero())

	// registered token whose feed has no rounds
	require.NoError(t, k.RegisterCollateralTokens(env.Ctx, []string{"link"}, []string{"link-usd"}))
	require.True(t, k.GetUsdValue(env.Ctx, "link", e18(1)).IsZero())
	require.True(t, k.GetTokenAmountFromUsd(env.Ctx, "link", e18(1)).IsZero())

	// negative and zero answers
	require.NoError(t, env.SetPrice(ethFeed, math.NewInt(-1)))
	require.True(t, k.GetUsdValue(env.Ctx, weth, e18(1)).IsZero())
	require.True(t, k.GetTokenAmountFromUsd(env.Ctx, weth, e18(100)).IsZero())
	require.NoError(t, env.SetPrice(ethFeed, math.ZeroInt()))
	require.True(t, k.GetUsdValue(env.Ctx, weth, e18(1)).IsZero())

	// recovery
	require.NoError(t, env.SetPrice(ethFeed, e8(3000)))
	require.True(t, k.GetUsdValue(env.Ctx, weth, e18(1)).Equal(e18(3000)))
}

func TestMintAtLimit(t *testing.T) {
	env := setupEnv(t)
	k := env.Keeper
	user := testAddr("user")

	openPosition(t, env, user, e18(1), math.ZeroInt())
	require.True(t, k.GetAccountCollateralValue(env.Ctx, user.String()).Equal(e18(2000)))

	// exactly at the minimum health factor
	require.NoError(t, k.MintDsc(env.Ctx, user, e18(1000)))
	require.True(t, k.HealthFactor(env.Ctx, user.String()).Equal(e18(1)))
	require.True(t, env.Bank.GetBalance(env.Ctx, user, types.DscDenom).Amount.Equal(e18(1000)))

	// one more token breaks it
	err := k.MintDsc(env.Ctx, user, e18(1))
	require.ErrorIs(t, err, types.ErrHealthFactorBroken)
	require.Equal(t, types.KindSolvencyViolation, types.KindOf(err))
}

func TestDepositCollateral(t *testing.T) {
	env := setupEnv(t)
	k := env.Keeper
	user := testAddr("depositor")
	env.Bank.Fund(env.Ctx, user, sdk.NewCoins(sdk.NewCoin(weth, e18(10))))

	tests := []struct {
		name    string
		token   string
		amount  math.Int
		wantErr error
	}{
		{"zero amount", weth, math.ZeroInt(), types.ErrAmountZero},
		{"unknown token", "usdc", e18(1), types.ErrAssetNotAllowed},
		{"insufficient balance", weth, e18(11), types.ErrTransferFailed},
		{"valid", weth, e18(4), nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx, _ := env.Ctx.CacheContext()
			if tc.wantErr == nil {
				ctx = env.Ctx
			}
			err := k.DepositCollateral(ctx, user, tc.token, tc.amount)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}

	require.True(t, k.GetCollateralDeposited(env.Ctx, user.String(), weth).Equal(e18(4)))
	require.True(t, env.Bank.ModuleBalance(env.Ctx, types.ModuleName, weth).Equal(e18(4)))
	require.True(t, env.Bank.GetBalance(env.Ctx, user, weth).Amount.Equal(e18(6)))

	var deposited bool
	for _, event := range env.Ctx.EventManager().Events() {
		if event.Type == types.EventTypeCollateralDeposited {
			deposited = true
		}
	}
	require.True(t, deposited)
}

func TestLedgerUnderflow(t *testing.T) {
	env := setupEnv(t)
	k := env.Keeper
	user := testAddr("user")
	openPosition(t, env, user, e18(10), e18(100))

	ctx, _ := env.Ctx.CacheContext()
	err := k.RedeemCollateral(ctx, user, weth, e18(11))
	require.ErrorIs(t, err, types.ErrUnderflow)
	require.Equal(t, types.KindArithmeticFailure, types.KindOf(err))

	ctx, _ = env.Ctx.CacheContext()
	err = k.BurnDsc(ctx, user, e18(101))
	require.ErrorIs(t, err, types.ErrUnderflow)

	require.True(t, k.GetCollateralDeposited(env.Ctx, user.String(), weth).Equal(e18(10)))
	require.True(t, k.GetDscMinted(env.Ctx, user.String()).Equal(e18(100)))
}

func TestRedeemCollateral(t *testing.T) {
	env := setupEnv(t)
	k := env.Keeper
	user := testAddr("user")
	openPosition(t, env, user, e18(10), e18(5000))

	// 5000 DSC needs 5 ETH at 2000 USD
	ctx, _ := env.Ctx.CacheContext()
	require.ErrorIs(t, k.RedeemCollateral(ctx, user, weth, e18(6)), types.ErrHealthFactorBroken)

	require.NoError(t, k.RedeemCollateral(env.Ctx, user, weth, e18(5)))
	require.True(t, k.GetCollateralDeposited(env.Ctx, user.String(), weth).Equal(e18(5)))
	require.True(t, env.Bank.GetBalance(env.Ctx, user, weth).Amount.Equal(e18(5)))
	require.True(t, k.HealthFactor(env.Ctx, user.String()).Equal(e18(1)))
}

func TestRedeemCollateralForDsc(t *testing.T) {
	env := setupEnv(t)
	k := env.Keeper
	user := testAddr("user")
	openPosition(t, env, user, e18(10), e18(100))

	require.ErrorIs(t, k.RedeemCollateralForDsc(env.Ctx, user, weth, math.ZeroInt(), e18(1)), types.ErrAmountZero)
	require.ErrorIs(t, k.RedeemCollateralForDsc(env.Ctx, user, weth, e18(1), math.ZeroInt()), types.ErrAmountZero)

	require.NoError(t, k.RedeemCollateralForDsc(env.Ctx, user, weth, e18(10), e18(100)))
	require.True(t, k.GetDscMinted(env.Ctx, user.String()).IsZero())
	require.True(t, k.GetCollateralDeposited(env.Ctx, user.String(), weth).IsZero())
	require.True(t, env.Bank.GetBalance(env.Ctx, user, types.DscDenom).Amount.IsZero())
	require.True(t, env.Bank.GetBalance(env.Ctx, user, weth).Amount.Equal(e18(10)))
	require.True(t, k.HealthFactor(env.Ctx, user.String()).Equal(types.MaxHealthFactor))

	// zero balances remain readable
	deposits := k.GetUserDeposits(env.Ctx, user.String())
	require.Len(t, deposits, 1)
	require.True(t, deposits[0].Amount.IsZero())
}

func TestBurnDscPanicsWhenBurnFails(t *testing.T) {
	env := setupEnv(t)
	k := env.Keeper
	user := testAddr("user")
	openPosition(t, env, user, e18(10), e18(100))

	env.Bank.FailBurn = true
	ctx, _ := env.Ctx.CacheContext()
	require.Panics(t, func() {
		_ = k.BurnDsc(ctx, user, e18(50))
	})

	env.Bank.FailBurn = false
	require.NoError(t, k.BurnDsc(env.Ctx, user, e18(50)))
	require.True(t, k.GetDscMinted(env.Ctx, user.String()).Equal(e18(50)))
}

func TestDepositCollateralAndMintDsc(t *testing.T) {
	tests := []struct {
		name       string
		strict     bool
		wantErr    error
		wantDebt   math.Int
		wantLedger math.Int
	}{
		{"permissive mints despite failed deposit", false, nil, e18(500), e18(1)},
		{"strict aborts on failed deposit", true, types.ErrTransferFailed, math.ZeroInt(), e18(1)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := setupEnv(t)
			k := env.Keeper
			params := k.GetParams(env.Ctx)
			params.StrictDepositAndMint = tc.strict
			k.SetParams(env.Ctx, params)

			user := testAddr("user")
			openPosition(t, env, user, e18(1), math.ZeroInt())

			// the wallet is empty so the second deposit cannot be pulled
			err := k.DepositCollateralAndMintDsc(env.Ctx, user, weth, e18(3), e18(500))
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.True(t, k.GetDscMinted(env.Ctx, user.String()).Equal(tc.wantDebt))
			require.True(t, k.GetCollateralDeposited(env.Ctx, user.String(), weth).Equal(tc.wantLedger))
		})
	}
}

func TestReentrancyGuard(t *testing.T) {
	env := setupEnv(t)
	k := env.Keeper

	err := k.Execute(env.Ctx, func(ctx sdk.Context) error {
		return k.Execute(ctx, func(sdk.Context) error { return nil })
	})
	require.ErrorIs(t, err, types.ErrReentrantCall)

	// released after the outer call returns
	require.NoError(t, k.Execute(env.Ctx, func(sdk.Context) error { return nil }))
}

func TestExecuteDiscardsFailedWrites(t *testing.T) {
	env := setupEnv(t)
	k := env.Keeper
	user := testAddr("user")
	env.Bank.Fund(env.Ctx, user, sdk.NewCoins(sdk.NewCoin(weth, e18(1))))

	err := k.Execute(env.Ctx, func(ctx sdk.Context) error {
		if err := k.DepositCollateral(ctx, user, weth, e18(1)); err != nil {
			return err
		}
		return k.MintDsc(ctx, user, e18(1001))
	})
	require.ErrorIs(t, err, types.ErrHealthFactorBroken)
	require.True(t, k.GetCollateralDeposited(env.Ctx, user.String(), weth).IsZero())
	require.True(t, k.GetDscMinted(env.Ctx, user.String()).IsZero())
	require.True(t, env.Bank.GetBalance(env.Ctx, user, weth).Amount.Equal(e18(1)))
}

func TestLiquidationCandidates(t *testing.T) {
	env := setupEnv(t)
	k := env.Keeper

	alice, bob, carol := testAddr("alice"), testAddr("bob"), testAddr("carol")
	openPosition(t, env, alice, e18(10), e18(9000))
	openPosition(t, env, bob, e18(10), e18(6000))
	openPosition(t, env, carol, e18(10), e18(1000))

	// ETH halves: alice at 0.55, bob at 0.83, carol at 5
	require.NoError(t, env.SetPrice(ethFeed, e8(1000)))

	queue := k.BuildRiskQueue(env.Ctx)
	require.Equal(t, 3, queue.Len())
	least, ok := queue.Min()
	require.True(t, ok)
	require.Equal(t, alice.String(), least.User)

	candidates := k.LiquidationCandidates(env.Ctx, 0)
	require.Len(t, candidates, 2)
	require.Equal(t, alice.String(), candidates[0].User)
	require.Equal(t, bob.String(), candidates[1].User)

	require.Len(t, k.LiquidationCandidates(env.Ctx, 1), 1)
}

func TestGenesisRoundTrip(t *testing.T) {
	env := setupEnv(t)
	user := testAddr("user")
	openPosition(t, env, user, e18(3), e18(1500))

	exported := env.Keeper.ExportGenesis(env.Ctx)
	require.NoError(t, exported.Validate())
	require.Equal(t, []string{weth, wbtc}, exported.CollateralTokens)
	require.Equal(t, []string{ethFeed, btcFeed}, exported.PriceFeeds)

	fresh, err := testutil.NewEnv(log.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, fresh.Keeper.InitGenesis(fresh.Ctx, exported))

	want, err := json.Marshal(exported)
	require.NoError(t, err)
	got, err := json.Marshal(fresh.Keeper.ExportGenesis(fresh.Ctx))
	require.NoError(t, err)
	require.JSONEq(t, string(want), string(got))
	require.True(t, fresh.Keeper.GetDscMinted(fresh.Ctx, user.String()).Equal(e18(1500)))

	metadata, found := fresh.Bank.GetDenomMetaData(fresh.Ctx, types.DscDenom)
	require.True(t, found)
	require.Equal(t, types.DscSymbol, metadata.Symbol)
}

func TestInitGenesisRejectsMismatch(t *testing.T) {
	env, err := testutil.NewEnv(log.NewNopLogger())
	require.NoError(t, err)

	gs := types.DefaultGenesis()
	gs.CollateralTokens = []string{weth}
	require.ErrorIs(t, gs.Validate(), types.ErrTokenAndFeedLengthMismatch)
	require.ErrorIs(t, env.Keeper.InitGenesis(env.Ctx, gs), types.ErrTokenAndFeedLengthMismatch)
}
