package keeper

import sdk "github.com/cosmos/cosmos-sdk/types"

// Execute exposes the guarded cached execution to tests
func (k *Keeper) Execute(ctx sdk.Context, fn func(ctx sdk.Context) error) error {
	return k.execute(ctx, fn)
}
