package keeper

import (
	"encoding/json"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/dsc-chain/x/stablecoin/types"
)

// ============ Collateral ledger ============

// GetCollateralDeposited returns how much of token user has deposited
func (k *Keeper) GetCollateralDeposited(ctx sdk.Context, user, token string) math.Int {
	bz := k.GetStore(ctx).Get(types.CollateralDepositKey(user, token))
	if bz == nil {
		return math.ZeroInt()
	}
	var deposit types.CollateralDeposit
	if err := json.Unmarshal(bz, &deposit); err != nil || deposit.Amount.IsNil() {
		return math.ZeroInt()
	}
	return deposit.Amount
}

// setCollateralDeposited stores a deposit. Zero balances are kept.
func (k *Keeper) setCollateralDeposited(ctx sdk.Context, user, token string, amount math.Int) {
	bz, _ := json.Marshal(types.CollateralDeposit{User: user, Token: token, Amount: amount})
	k.GetStore(ctx).Set(types.CollateralDepositKey(user, token), bz)
}

func (k *Keeper) increaseCollateral(ctx sdk.Context, user, token string, delta math.Int) math.Int {
	updated := k.GetCollateralDeposited(ctx, user, token).Add(delta)
	k.setCollateralDeposited(ctx, user, token, updated)
	return updated
}

func (k *Keeper) decreaseCollateral(ctx sdk.Context, user, token string, delta math.Int) (math.Int, error) {
	current := k.GetCollateralDeposited(ctx, user, token)
	if delta.GT(current) {
		return current, errorsmod.Wrapf(types.ErrUnderflow, "collateral %s of %s: have %s, need %s", token, user, current, delta)
	}
	updated := current.Sub(delta)
	k.setCollateralDeposited(ctx, user, token, updated)
	return updated, nil
}

// GetUserDeposits returns every deposit record of user
func (k *Keeper) GetUserDeposits(ctx sdk.Context, user string) []types.CollateralDeposit {
	return k.iterateDeposits(ctx, types.CollateralDepositUserPrefix(user))
}

// GetAllDeposits returns every deposit record
func (k *Keeper) GetAllDeposits(ctx sdk.Context) []types.CollateralDeposit {
	return k.iterateDeposits(ctx, types.CollateralDepositKeyPrefix)
}

func (k *Keeper) iterateDeposits(ctx sdk.Context, prefix []byte) []types.CollateralDeposit {
	iterator := storetypes.KVStorePrefixIterator(k.GetStore(ctx), prefix)
	defer iterator.Close()

	var deposits []types.CollateralDeposit
	for ; iterator.Valid(); iterator.Next() {
		var deposit types.CollateralDeposit
		if err := json.Unmarshal(iterator.Value(), &deposit); err != nil {
			continue
		}
		deposits = append(deposits, deposit)
	}
	return deposits
}

// ============ Debt ledger ============

// GetDscMinted returns the pegged-token debt of user
func (k *Keeper) GetDscMinted(ctx sdk.Context, user string) math.Int {
	bz := k.GetStore(ctx).Get(types.DscMintedKey(user))
	if bz == nil {
		return math.ZeroInt()
	}
	var debt types.DscDebt
	if err := json.Unmarshal(bz, &debt); err != nil || debt.Amount.IsNil() {
		return math.ZeroInt()
	}
	return debt.Amount
}

func (k *Keeper) setDscMinted(ctx sdk.Context, user string, amount math.Int) {
	bz, _ := json.Marshal(types.DscDebt{User: user, Amount: amount})
	k.GetStore(ctx).Set(types.DscMintedKey(user), bz)
}

func (k *Keeper) increaseDebt(ctx sdk.Context, user string, delta math.Int) math.Int {
	updated := k.GetDscMinted(ctx, user).Add(delta)
	k.setDscMinted(ctx, user, updated)
	return updated
}

func (k *Keeper) decreaseDebt(ctx sdk.Context, user string, delta math.Int) (math.Int, error) {
	current := k.GetDscMinted(ctx, user)
	if delta.GT(current) {
		return current, errorsmod.Wrapf(types.ErrUnderflow, "debt of %s: have %s, burning %s", user, current, delta)
	}
	updated := current.Sub(delta)
	k.setDscMinted(ctx, user, updated)
	return updated, nil
}

// GetAllDebts returns every debt record
func (k *Keeper) GetAllDebts(ctx sdk.Context) []types.DscDebt {
	iterator := storetypes.KVStorePrefixIterator(k.GetStore(ctx), types.DscMintedKeyPrefix)
	defer iterator.Close()

	var debts []types.DscDebt
	for ; iterator.Valid(); iterator.Next() {
		var debt types.DscDebt
		if err := json.Unmarshal(iterator.Value(), &debt); err != nil {
			continue
		}
		debts = append(debts, debt)
	}
	return debts
}
