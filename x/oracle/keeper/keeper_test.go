package keeper_test

import (
	"testing"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"cosmossdk.io/store"
	"cosmossdk.io/store/metrics"
	storetypes "cosmossdk.io/store/types"
	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	dbm "github.com/cosmos/cosmos-db"
	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/dsc-chain/x/oracle/keeper"
	"github.com/openalpha/dsc-chain/x/oracle/types"
)

const testAuthority = "authority"

func setupKeeper(t *testing.T) (*keeper.Keeper, sdk.Context) {
	t.Helper()

	storeKey := storetypes.NewKVStoreKey(types.StoreKey)
	db := dbm.NewMemDB()
	stateStore := store.NewCommitMultiStore(db, log.NewNopLogger(), metrics.NewNoOpMetrics())
	stateStore.MountStoreWithDB(storeKey, storetypes.StoreTypeIAVL, db)
	require.NoError(t, stateStore.LoadLatestVersion())

	cdc := codec.NewProtoCodec(codectypes.NewInterfaceRegistry())
	k := keeper.NewKeeper(cdc, storeKey, testAuthority, log.NewNopLogger())

	ctx := sdk.NewContext(stateStore, cmtproto.Header{Height: 1, Time: time.Unix(1_700_000_000, 0)}, false, log.NewNopLogger())
	return k, ctx
}

func TestLatestRoundData(t *testing.T) {
	k, ctx := setupKeeper(t)

	_, err := k.LatestRoundData(ctx, "eth-usd")
	require.ErrorIs(t, err, types.ErrFeedNotFound)

	require.NoError(t, k.RegisterFeed(ctx, types.Feed{FeedID: "eth-usd", Decimals: 8}))
	_, err = k.LatestRoundData(ctx, "eth-usd")
	require.ErrorIs(t, err, types.ErrNoRoundData)

	first, err := k.SubmitRound(ctx, testAuthority, "eth-usd", math.NewInt(2000_00000000), 0)
	require.NoError(t, err)
	require.Equal(t, uint64(1), first.RoundID)

	ctx = ctx.WithBlockTime(ctx.BlockTime().Add(time.Minute))
	second, err := k.SubmitRound(ctx, testAuthority, "eth-usd", math.NewInt(-1), 0)
	require.NoError(t, err)
	require.Equal(t, uint64(2), second.RoundID)

	latest, err := k.LatestRoundData(ctx, "eth-usd")
	require.NoError(t, err)
	require.Equal(t, uint64(2), latest.RoundID)
	require.Equal(t, uint64(2), latest.AnsweredInRound)
	require.True(t, latest.Answer.Equal(math.NewInt(-1)))
	require.Equal(t, ctx.BlockTime().Unix(), latest.UpdatedAt)

	old, err := k.GetRoundData(ctx, "eth-usd", 1)
	require.NoError(t, err)
	require.True(t, old.Answer.Equal(math.NewInt(2000_00000000)))
}

func TestSubmitRoundAuthorization(t *testing.T) {
	k, ctx := setupKeeper(t)
	require.NoError(t, k.RegisterFeed(ctx, types.Feed{FeedID: "btc-usd", Decimals: 8}))

	tests := []struct {
		name     string
		reporter string
		feedID   string
		wantErr  error
	}{
		{"authority", testAuthority, "btc-usd", nil},
		{"unknown reporter", "mallory", "btc-usd", types.ErrUnauthorized},
		{"unknown feed", testAuthority, "doge-usd", types.ErrFeedNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := k.SubmitRound(ctx, tc.reporter, tc.feedID, math.NewInt(1), 0)
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.wantErr)
		})
	}

	k.SetReporter(ctx, "relayer")
	_, err := k.SubmitRound(ctx, "relayer", "btc-usd", math.NewInt(5), 0)
	require.NoError(t, err)
}

func TestRegisterFeedTwice(t *testing.T) {
	k, ctx := setupKeeper(t)
	require.NoError(t, k.RegisterFeed(ctx, types.Feed{FeedID: "eth-usd", Decimals: 8}))
	require.ErrorIs(t, k.RegisterFeed(ctx, types.Feed{FeedID: "eth-usd", Decimals: 18}), types.ErrFeedExists)
	require.Error(t, k.RegisterFeed(ctx, types.Feed{FeedID: ""}))
}

func TestGenesisRoundTrip(t *testing.T) {
	k, ctx := setupKeeper(t)

	gs := &types.GenesisState{
		Reporters: []string{"relayer"},
		Feeds:     []types.Feed{{FeedID: "eth-usd", Decimals: 8}},
		Rounds: []types.RoundData{
			{FeedID: "eth-usd", RoundID: 7, Answer: math.NewInt(1800_00000000), AnsweredInRound: 7},
		},
	}
	require.NoError(t, gs.Validate())
	k.InitGenesis(ctx, gs)

	latest, err := k.LatestRoundData(ctx, "eth-usd")
	require.NoError(t, err)
	require.Equal(t, uint64(7), latest.RoundID)

	next, err := k.SubmitRound(ctx, "relayer", "eth-usd", math.NewInt(1900_00000000), 0)
	require.NoError(t, err)
	require.Equal(t, uint64(8), next.RoundID)

	exported := k.ExportGenesis(ctx)
	require.Equal(t, []string{"relayer"}, exported.Reporters)
	require.Len(t, exported.Rounds, 2)
}

func TestGenesisValidate(t *testing.T) {
	feed := types.Feed{FeedID: "eth-usd", Decimals: 8}
	tests := []struct {
		name    string
		gs      types.GenesisState
		wantErr bool
	}{
		{"default", *types.DefaultGenesis(), false},
		{"duplicate feed", types.GenesisState{Feeds: []types.Feed{feed, feed}}, true},
		{"round for unknown feed", types.GenesisState{Rounds: []types.RoundData{{FeedID: "x", RoundID: 1, Answer: math.OneInt()}}}, true},
		{"decreasing rounds", types.GenesisState{
			Feeds: []types.Feed{feed},
			Rounds: []types.RoundData{
				{FeedID: "eth-usd", RoundID: 2, Answer: math.OneInt()},
				{FeedID: "eth-usd", RoundID: 1, Answer: math.OneInt()},
			},
		}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.gs.Validate()
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
