// Package localchain runs the stablecoin and oracle keepers on one
// in-memory multistore, without consensus. The dscapi gateway serves it.
package localchain

import (
	"fmt"
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

	oraclekeeper "github.com/openalpha/dsc-chain/x/oracle/keeper"
	oracletypes "github.com/openalpha/dsc-chain/x/oracle/types"
	"github.com/openalpha/dsc-chain/x/stablecoin/keeper"
	"github.com/openalpha/dsc-chain/x/stablecoin/types"
)

// OracleAuthority administers feeds on a local chain
const OracleAuthority = "oracle-authority"

// Chain is a stablecoin keeper wired to the real oracle keeper and a
// store-backed bank
type Chain struct {
	Ctx    sdk.Context
	Keeper *keeper.Keeper
	Oracle *oraclekeeper.Keeper
	Bank   *Bank
}

// New mounts fresh stores and builds the keepers. When wrap is set, the
// stablecoin keeper moves funds through wrap(bank) instead of bank itself.
func New(logger log.Logger, wrap func(*Bank) types.BankKeeper) (*Chain, error) {
	storeKey := storetypes.NewKVStoreKey(types.StoreKey)
	tstoreKey := storetypes.NewTransientStoreKey(types.TStoreKey)
	oracleKey := storetypes.NewKVStoreKey(oracletypes.StoreKey)
	bankKey := storetypes.NewKVStoreKey("bank")

	db := dbm.NewMemDB()
	stateStore := store.NewCommitMultiStore(db, log.NewNopLogger(), metrics.NewNoOpMetrics())
	stateStore.MountStoreWithDB(storeKey, storetypes.StoreTypeIAVL, db)
	stateStore.MountStoreWithDB(oracleKey, storetypes.StoreTypeIAVL, db)
	stateStore.MountStoreWithDB(bankKey, storetypes.StoreTypeIAVL, db)
	stateStore.MountStoreWithDB(tstoreKey, storetypes.StoreTypeTransient, nil)
	if err := stateStore.LoadLatestVersion(); err != nil {
		return nil, fmt.Errorf("failed to load store: %w", err)
	}

	bank := NewBank(bankKey)
	var funds types.BankKeeper = bank
	if wrap != nil {
		funds = wrap(bank)
	}

	cdc := codec.NewProtoCodec(codectypes.NewInterfaceRegistry())
	oracle := oraclekeeper.NewKeeper(cdc, oracleKey, OracleAuthority, logger)
	k := keeper.NewKeeper(cdc, storeKey, tstoreKey, funds, oracle, logger)

	ctx := sdk.NewContext(stateStore, cmtproto.Header{
		Height: 1,
		Time:   time.Unix(1_700_000_000, 0),
	}, false, logger)

	return &Chain{Ctx: ctx, Keeper: k, Oracle: oracle, Bank: bank}, nil
}

// AddCollateral registers an 8-decimal feed priced at price and approves
// token against it
func (c *Chain) AddCollateral(token, feedID string, price math.Int) error {
	if err := c.Oracle.RegisterFeed(c.Ctx, oracletypes.Feed{FeedID: feedID, Description: token + " / USD", Decimals: 8}); err != nil {
		return err
	}
	if _, err := c.Oracle.SubmitRound(c.Ctx, OracleAuthority, feedID, price, 0); err != nil {
		return err
	}
	return c.Keeper.RegisterCollateralTokens(c.Ctx, []string{token}, []string{feedID})
}

// SetPrice publishes a new round on feedID one second after the last block
func (c *Chain) SetPrice(feedID string, price math.Int) error {
	c.Ctx = c.Ctx.WithBlockTime(c.Ctx.BlockTime().Add(time.Second))
	_, err := c.Oracle.SubmitRound(c.Ctx, OracleAuthority, feedID, price, 0)
	return err
}
