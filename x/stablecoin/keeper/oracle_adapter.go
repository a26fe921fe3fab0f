package keeper

import (
	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/dsc-chain/metrics"
	"github.com/openalpha/dsc-chain/x/stablecoin/types"
)

// price reads the latest answer of the feed registered for token. Missing
// feeds, failed reads and non-positive answers all report ErrOracleUnavailable.
func (k *Keeper) price(ctx sdk.Context, token string) (math.Int, error) {
	feedID, found := k.GetCollateralTokenPriceFeed(ctx, token)
	if !found {
		return math.ZeroInt(), errorsmod.Wrapf(types.ErrOracleUnavailable, "no price feed for %s", token)
	}

	round, err := k.oracleKeeper.LatestRoundData(ctx, feedID)
	if err != nil {
		return math.ZeroInt(), errorsmod.Wrapf(types.ErrOracleUnavailable, "feed %s: %s", feedID, err)
	}
	if round.Answer.IsNil() || !round.Answer.IsPositive() {
		return math.ZeroInt(), errorsmod.Wrapf(types.ErrOracleUnavailable, "feed %s answered %s", feedID, round.Answer)
	}
	return round.Answer, nil
}

// GetUsdValue returns the pegged-token value of amount of token. An
// unavailable price values the amount at zero.
func (k *Keeper) GetUsdValue(ctx sdk.Context, token string, amount math.Int) math.Int {
	price, err := k.price(ctx, token)
	if err != nil {
		k.Logger().Debug("valuing collateral at zero", "token", token, "error", err)
		metrics.GetCollector().RecordOracleUnavailable(token)
		return math.ZeroInt()
	}
	return types.UsdValue(k.GetParams(ctx), price, amount)
}

// GetTokenAmountFromUsd returns how much of token is worth usdAmount. An
// unavailable price converts to zero.
func (k *Keeper) GetTokenAmountFromUsd(ctx sdk.Context, token string, usdAmount math.Int) math.Int {
	price, err := k.price(ctx, token)
	if err != nil {
		k.Logger().Debug("converting usd to zero tokens", "token", token, "error", err)
		return math.ZeroInt()
	}
	return types.TokenAmountFromUsd(k.GetParams(ctx), price, usdAmount)
}
