package keeper

import (
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/dsc-chain/x/oracle/types"
)

// InitGenesis loads feeds, reporters and historical rounds
func (k *Keeper) InitGenesis(ctx sdk.Context, gs *types.GenesisState) {
	for _, reporter := range gs.Reporters {
		k.SetReporter(ctx, reporter)
	}
	for _, feed := range gs.Feeds {
		k.SetFeed(ctx, feed)
	}
	for _, round := range gs.Rounds {
		k.setRound(ctx, round)
	}
}

// ExportGenesis returns the module state
func (k *Keeper) ExportGenesis(ctx sdk.Context) *types.GenesisState {
	gs := types.DefaultGenesis()
	gs.Reporters = append(gs.Reporters, k.GetAllReporters(ctx)...)
	gs.Feeds = append(gs.Feeds, k.GetAllFeeds(ctx)...)
	gs.Rounds = append(gs.Rounds, k.GetAllRounds(ctx)...)
	return gs
}
