package keeper

import (
	"encoding/binary"

	errorsmod "cosmossdk.io/errors"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/dsc-chain/x/stablecoin/types"
)

// RegisterCollateralTokens populates the registry from parallel token and
// feed lists. The registry is insert-only.
func (k *Keeper) RegisterCollateralTokens(ctx sdk.Context, tokens, feeds []string) error {
	if len(tokens) != len(feeds) {
		return errorsmod.Wrapf(types.ErrTokenAndFeedLengthMismatch, "%d tokens, %d feeds", len(tokens), len(feeds))
	}
	for i, token := range tokens {
		if err := k.addCollateralToken(ctx, token, feeds[i]); err != nil {
			return err
		}
	}
	return nil
}

func (k *Keeper) addCollateralToken(ctx sdk.Context, token, feedID string) error {
	if err := sdk.ValidateDenom(token); err != nil {
		return errorsmod.Wrap(types.ErrAssetNotAllowed, err.Error())
	}
	if token == types.DscDenom {
		return errorsmod.Wrapf(types.ErrAssetNotAllowed, "%s cannot back itself", token)
	}
	if k.IsAllowedToken(ctx, token) {
		return errorsmod.Wrap(types.ErrDuplicateCollateral, token)
	}

	store := k.GetStore(ctx)
	count := k.collateralTokenCount(ctx)
	store.Set(types.CollateralTokenKey(count), []byte(token))
	store.Set(types.PriceFeedKey(token), []byte(feedID))

	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, count+1)
	store.Set(types.CollateralTokenCountKey, bz)

	k.Logger().Info("collateral token registered", "token", token, "feed", feedID)
	return nil
}

func (k *Keeper) collateralTokenCount(ctx sdk.Context) uint64 {
	bz := k.GetStore(ctx).Get(types.CollateralTokenCountKey)
	if bz == nil {
		return 0
	}
	return binary.BigEndian.Uint64(bz)
}

// GetCollateralTokens returns the approved collateral tokens in registration order
func (k *Keeper) GetCollateralTokens(ctx sdk.Context) []string {
	iterator := storetypes.KVStorePrefixIterator(k.GetStore(ctx), types.CollateralTokenKeyPrefix)
	defer iterator.Close()

	var tokens []string
	for ; iterator.Valid(); iterator.Next() {
		tokens = append(tokens, string(iterator.Value()))
	}
	return tokens
}

// GetCollateralTokenPriceFeed returns the feed id that prices token
func (k *Keeper) GetCollateralTokenPriceFeed(ctx sdk.Context, token string) (string, bool) {
	bz := k.GetStore(ctx).Get(types.PriceFeedKey(token))
	if bz == nil {
		return "", false
	}
	return string(bz), true
}

// IsAllowedToken reports whether token is registered collateral
func (k *Keeper) IsAllowedToken(ctx sdk.Context, token string) bool {
	return k.GetStore(ctx).Has(types.PriceFeedKey(token))
}
