package keeper

import (
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/dsc-chain/x/stablecoin/types"
)

// InitGenesis sets the parameters, registers collateral and loads ledgers.
// The pegged token's bank metadata is registered as well.
func (k *Keeper) InitGenesis(ctx sdk.Context, gs *types.GenesisState) error {
	k.SetParams(ctx, gs.Params)
	if err := k.RegisterCollateralTokens(ctx, gs.CollateralTokens, gs.PriceFeeds); err != nil {
		return err
	}
	for _, deposit := range gs.Deposits {
		k.setCollateralDeposited(ctx, deposit.User, deposit.Token, deposit.Amount)
	}
	for _, debt := range gs.Debts {
		k.setDscMinted(ctx, debt.User, debt.Amount)
	}
	k.bankKeeper.SetDenomMetaData(ctx, types.DscMetadata())
	return nil
}

// ExportGenesis returns the module state
func (k *Keeper) ExportGenesis(ctx sdk.Context) *types.GenesisState {
	gs := types.DefaultGenesis()
	gs.Params = k.GetParams(ctx)
	for _, token := range k.GetCollateralTokens(ctx) {
		feedID, _ := k.GetCollateralTokenPriceFeed(ctx, token)
		gs.CollateralTokens = append(gs.CollateralTokens, token)
		gs.PriceFeeds = append(gs.PriceFeeds, feedID)
	}
	gs.Deposits = append(gs.Deposits, k.GetAllDeposits(ctx)...)
	gs.Debts = append(gs.Debts, k.GetAllDebts(ctx)...)
	return gs
}
