package keeper

import (
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/dsc-chain/x/stablecoin/types"
)

func coinsOf(denom string, amount math.Int) sdk.Coins {
	return sdk.NewCoins(sdk.Coin{Denom: denom, Amount: amount})
}

func requirePositive(amount math.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return types.ErrAmountZero
	}
	return nil
}

// DepositCollateral credits amount of token to user and pulls it into
// module custody. The ledger entry and event precede the transfer.
func (k *Keeper) DepositCollateral(ctx sdk.Context, user sdk.AccAddress, token string, amount math.Int) error {
	if err := requirePositive(amount); err != nil {
		return err
	}
	if !k.IsAllowedToken(ctx, token) {
		return errorsmod.Wrap(types.ErrAssetNotAllowed, token)
	}

	userAddr := user.String()
	k.increaseCollateral(ctx, userAddr, token, amount)

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeCollateralDeposited,
			sdk.NewAttribute(types.AttributeKeyUser, userAddr),
			sdk.NewAttribute(types.AttributeKeyToken, token),
			sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
		),
	)

	if err := k.bankKeeper.SendCoinsFromAccountToModule(ctx, user, types.ModuleName, coinsOf(token, amount)); err != nil {
		return errorsmod.Wrapf(types.ErrTransferFailed, "deposit %s%s from %s: %s", amount, token, userAddr, err)
	}

	k.Logger().Info("collateral deposited", "user", userAddr, "token", token, "amount", amount.String())
	return nil
}

// MintDsc records amount of new debt, mints it to user and then requires
// user to remain above the minimum health factor.
func (k *Keeper) MintDsc(ctx sdk.Context, user sdk.AccAddress, amount math.Int) error {
	if err := requirePositive(amount); err != nil {
		return err
	}

	userAddr := user.String()
	k.increaseDebt(ctx, userAddr, amount)

	coins := coinsOf(types.DscDenom, amount)
	if err := k.bankKeeper.MintCoins(ctx, types.ModuleName, coins); err != nil {
		return errorsmod.Wrap(types.ErrMintFailed, err.Error())
	}
	if err := k.bankKeeper.SendCoinsFromModuleToAccount(ctx, types.ModuleName, user, coins); err != nil {
		return errorsmod.Wrap(types.ErrMintFailed, err.Error())
	}

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeDscMinted,
			sdk.NewAttribute(types.AttributeKeyUser, userAddr),
			sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
		),
	)

	return k.checkHealthFactor(ctx, userAddr)
}

// DepositCollateralAndMintDsc deposits and then mints. With
// StrictDepositAndMint unset a failed deposit is logged and discarded, its
// partial effects included, and the mint is still attempted.
func (k *Keeper) DepositCollateralAndMintDsc(ctx sdk.Context, user sdk.AccAddress, token string, collateralAmount, dscAmount math.Int) error {
	depositCtx, write := ctx.CacheContext()
	if err := k.DepositCollateral(depositCtx, user, token, collateralAmount); err != nil {
		if k.GetParams(ctx).StrictDepositAndMint {
			return err
		}
		k.Logger().Error("deposit failed, minting anyway",
			"user", user.String(),
			"token", token,
			"amount", collateralAmount.String(),
			"error", err,
		)
	} else {
		write()
	}

	return k.MintDsc(ctx, user, dscAmount)
}

// RedeemCollateral returns amount of token from custody to user
func (k *Keeper) RedeemCollateral(ctx sdk.Context, user sdk.AccAddress, token string, amount math.Int) error {
	if err := requirePositive(amount); err != nil {
		return err
	}
	if err := k.redeemCollateral(ctx, token, amount, user, user); err != nil {
		return err
	}
	return k.checkHealthFactor(ctx, user.String())
}

// RedeemCollateralForDsc burns dscAmount of the caller's debt, funded by the
// caller, then redeems collateralAmount of token
func (k *Keeper) RedeemCollateralForDsc(ctx sdk.Context, user sdk.AccAddress, token string, collateralAmount, dscAmount math.Int) error {
	if err := requirePositive(collateralAmount); err != nil {
		return err
	}
	if err := requirePositive(dscAmount); err != nil {
		return err
	}

	if err := k.burnDsc(ctx, dscAmount, user, user); err != nil {
		return err
	}
	if err := k.redeemCollateral(ctx, token, collateralAmount, user, user); err != nil {
		return err
	}
	return k.checkHealthFactor(ctx, user.String())
}

// BurnDsc repays amount of the caller's own debt
func (k *Keeper) BurnDsc(ctx sdk.Context, user sdk.AccAddress, amount math.Int) error {
	if err := requirePositive(amount); err != nil {
		return err
	}
	if err := k.burnDsc(ctx, amount, user, user); err != nil {
		return err
	}
	return k.checkHealthFactor(ctx, user.String())
}

// redeemCollateral debits from's ledger and sends the tokens to to. Only
// from's ledger is touched.
func (k *Keeper) redeemCollateral(ctx sdk.Context, token string, amount math.Int, from, to sdk.AccAddress) error {
	fromAddr, toAddr := from.String(), to.String()
	if _, err := k.decreaseCollateral(ctx, fromAddr, token, amount); err != nil {
		return err
	}

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeCollateralRedeemed,
			sdk.NewAttribute(types.AttributeKeyRedeemedFrom, fromAddr),
			sdk.NewAttribute(types.AttributeKeyRedeemedTo, toAddr),
			sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
			sdk.NewAttribute(types.AttributeKeyToken, token),
		),
	)

	if err := k.bankKeeper.SendCoinsFromModuleToAccount(ctx, types.ModuleName, to, coinsOf(token, amount)); err != nil {
		return errorsmod.Wrapf(types.ErrTransferFailed, "redeem %s%s to %s: %s", amount, token, toAddr, err)
	}

	k.Logger().Info("collateral redeemed", "from", fromAddr, "to", toAddr, "token", token, "amount", amount.String())
	return nil
}

// burnDsc reduces onBehalfOf's debt, then pulls the tokens from dscFrom and
// destroys them. Once the debt is reduced a failed pull or burn would leave
// debt and supply out of step, so it panics instead of returning.
func (k *Keeper) burnDsc(ctx sdk.Context, amount math.Int, onBehalfOf, dscFrom sdk.AccAddress) error {
	if _, err := k.decreaseDebt(ctx, onBehalfOf.String(), amount); err != nil {
		return err
	}

	coins := coinsOf(types.DscDenom, amount)
	if err := k.bankKeeper.SendCoinsFromAccountToModule(ctx, dscFrom, types.ModuleName, coins); err != nil {
		panic(fmt.Errorf("%w: pulling %s%s from %s after debt reduction: %v", types.ErrTransferFailed, amount, types.DscDenom, dscFrom, err))
	}
	if err := k.bankKeeper.BurnCoins(ctx, types.ModuleName, coins); err != nil {
		panic(fmt.Errorf("%w: burning %s%s after debt reduction: %v", types.ErrTransferFailed, amount, types.DscDenom, err))
	}

	ctx.EventManager().EmitEvent(
		sdk.NewEvent(
			types.EventTypeDscBurned,
			sdk.NewAttribute(types.AttributeKeyOnBehalfOf, onBehalfOf.String()),
			sdk.NewAttribute(types.AttributeKeyPayer, dscFrom.String()),
			sdk.NewAttribute(types.AttributeKeyAmount, amount.String()),
		),
	)
	return nil
}
