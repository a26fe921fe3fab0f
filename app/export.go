package app

import (
	"encoding/json"

	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	servertypes "github.com/cosmos/cosmos-sdk/server/types"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"

	oracletypes "github.com/openalpha/dsc-chain/x/oracle/types"
	stablecointypes "github.com/openalpha/dsc-chain/x/stablecoin/types"
)

// ExportAppStateAndValidators exports the bank, oracle and stablecoin state
// at the last committed height
func (app *App) ExportAppStateAndValidators(forZeroHeight bool) (servertypes.ExportedApp, error) {
	ctx := app.NewContextLegacy(true, cmtproto.Header{Height: app.LastBlockHeight()})

	height := app.LastBlockHeight() + 1
	if forZeroHeight {
		height = 0
	}

	bankGenesis, err := app.appCodec.MarshalJSON(app.BankKeeper.ExportGenesis(ctx))
	if err != nil {
		return servertypes.ExportedApp{}, err
	}

	appState, err := json.MarshalIndent(map[string]json.RawMessage{
		banktypes.ModuleName:       bankGenesis,
		oracletypes.ModuleName:     app.oracleModule.ExportGenesis(ctx),
		stablecointypes.ModuleName: app.stablecoinModule.ExportGenesis(ctx),
	}, "", "  ")
	if err != nil {
		return servertypes.ExportedApp{}, err
	}

	return servertypes.ExportedApp{
		AppState:        appState,
		Height:          height,
		ConsensusParams: app.GetConsensusParams(ctx),
	}, nil
}
