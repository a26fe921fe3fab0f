package keeper

import (
	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/dsc-chain/x/stablecoin/types"
)

// GetAccountCollateralValue sums the pegged-token value of every collateral
// token deposited by user
func (k *Keeper) GetAccountCollateralValue(ctx sdk.Context, user string) math.Int {
	total := math.ZeroInt()
	for _, token := range k.GetCollateralTokens(ctx) {
		amount := k.GetCollateralDeposited(ctx, user, token)
		if amount.IsZero() {
			continue
		}
		total = total.Add(k.GetUsdValue(ctx, token, amount))
	}
	return total
}

// GetAccountInformation returns the debt and total collateral value of user
func (k *Keeper) GetAccountInformation(ctx sdk.Context, user string) (totalDscMinted, collateralValueInUsd math.Int) {
	return k.GetDscMinted(ctx, user), k.GetAccountCollateralValue(ctx, user)
}

// HealthFactor returns the solvency ratio of user. It never writes state.
func (k *Keeper) HealthFactor(ctx sdk.Context, user string) math.Int {
	totalDscMinted, collateralValueInUsd := k.GetAccountInformation(ctx, user)
	return types.CalculateHealthFactor(k.GetParams(ctx), totalDscMinted, collateralValueInUsd)
}

// checkHealthFactor fails when user is below the minimum health factor
func (k *Keeper) checkHealthFactor(ctx sdk.Context, user string) error {
	healthFactor := k.HealthFactor(ctx, user)
	if healthFactor.LT(k.GetParams(ctx).MinHealthFactor) {
		return errorsmod.Wrapf(types.ErrHealthFactorBroken, "account %s health factor %s", user, healthFactor)
	}
	return nil
}
