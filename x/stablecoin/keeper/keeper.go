package keeper

import (
	"encoding/json"

	"cosmossdk.io/log"
	storetypes "cosmossdk.io/store/types"
	"github.com/cosmos/cosmos-sdk/codec"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/dsc-chain/x/stablecoin/types"
)

// Keeper owns the collateral and debt ledgers of the stable token engine
type Keeper struct {
	cdc          codec.BinaryCodec
	storeKey     storetypes.StoreKey
	tstoreKey    storetypes.StoreKey
	bankKeeper   types.BankKeeper
	oracleKeeper types.OracleKeeper
	logger       log.Logger
}

// NewKeeper creates a new stablecoin keeper
func NewKeeper(
	cdc codec.BinaryCodec,
	storeKey storetypes.StoreKey,
	tstoreKey storetypes.StoreKey,
	bankKeeper types.BankKeeper,
	oracleKeeper types.OracleKeeper,
	logger log.Logger,
) *Keeper {
	return &Keeper{
		cdc:          cdc,
		storeKey:     storeKey,
		tstoreKey:    tstoreKey,
		bankKeeper:   bankKeeper,
		oracleKeeper: oracleKeeper,
		logger:       logger.With("module", "x/stablecoin"),
	}
}

// Logger returns the module logger
func (k *Keeper) Logger() log.Logger {
	return k.logger
}

// GetStore returns the KVStore
func (k *Keeper) GetStore(ctx sdk.Context) storetypes.KVStore {
	return ctx.KVStore(k.storeKey)
}

// ============ Params ============

// SetParams saves the engine parameters
func (k *Keeper) SetParams(ctx sdk.Context, params types.Params) {
	bz, _ := json.Marshal(params)
	k.GetStore(ctx).Set(types.ParamsKey, bz)
}

// GetParams returns the engine parameters, falling back to the defaults
func (k *Keeper) GetParams(ctx sdk.Context) types.Params {
	bz := k.GetStore(ctx).Get(types.ParamsKey)
	if bz == nil {
		return types.DefaultParams()
	}
	var params types.Params
	if err := json.Unmarshal(bz, &params); err != nil {
		return types.DefaultParams()
	}
	return params
}

// ============ Reentrancy guard ============

// acquireGuard marks an engine call as in progress for the rest of the
// transaction. A nested engine call fails until releaseGuard runs.
func (k *Keeper) acquireGuard(ctx sdk.Context) error {
	store := ctx.TransientStore(k.tstoreKey)
	if store.Has(types.ReentrancyGuardKey) {
		return types.ErrReentrantCall
	}
	store.Set(types.ReentrancyGuardKey, []byte{1})
	return nil
}

func (k *Keeper) releaseGuard(ctx sdk.Context) {
	ctx.TransientStore(k.tstoreKey).Delete(types.ReentrancyGuardKey)
}

// execute runs fn under the reentrancy guard on a cached context and writes
// the cache only if fn succeeds. A panic inside fn leaves the parent context
// untouched and propagates.
func (k *Keeper) execute(ctx sdk.Context, fn func(ctx sdk.Context) error) error {
	if err := k.acquireGuard(ctx); err != nil {
		return err
	}
	defer k.releaseGuard(ctx)

	cacheCtx, write := ctx.CacheContext()
	if err := fn(cacheCtx); err != nil {
		return err
	}
	write()
	return nil
}
