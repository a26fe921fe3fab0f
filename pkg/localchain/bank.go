package localchain

import (
	"context"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	sdkerrors "github.com/cosmos/cosmos-sdk/types/errors"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
)

// Bank is a store-backed bank for running the engine outside a full app.
// Balances live in its own KVStore so they follow cache contexts.
type Bank struct {
	storeKey storetypes.StoreKey
}

// NewBank returns a bank that keeps balances under storeKey
func NewBank(storeKey storetypes.StoreKey) *Bank {
	return &Bank{storeKey: storeKey}
}

var metadataKey = []byte("metadata/")

func balanceKey(addr sdk.AccAddress, denom string) []byte {
	return []byte(fmt.Sprintf("balance/%s/%s", addr.String(), denom))
}

func (b *Bank) store(ctx context.Context) storetypes.KVStore {
	return sdk.UnwrapSDKContext(ctx).KVStore(b.storeKey)
}

func (b *Bank) balance(ctx context.Context, addr sdk.AccAddress, denom string) math.Int {
	bz := b.store(ctx).Get(balanceKey(addr, denom))
	if bz == nil {
		return math.ZeroInt()
	}
	amount, ok := math.NewIntFromString(string(bz))
	if !ok {
		return math.ZeroInt()
	}
	return amount
}

func (b *Bank) setBalance(ctx context.Context, addr sdk.AccAddress, denom string, amount math.Int) {
	b.store(ctx).Set(balanceKey(addr, denom), []byte(amount.String()))
}

func (b *Bank) add(ctx context.Context, addr sdk.AccAddress, coins sdk.Coins) {
	for _, coin := range coins {
		b.setBalance(ctx, addr, coin.Denom, b.balance(ctx, addr, coin.Denom).Add(coin.Amount))
	}
}

func (b *Bank) sub(ctx context.Context, addr sdk.AccAddress, coins sdk.Coins) error {
	for _, coin := range coins {
		if b.balance(ctx, addr, coin.Denom).LT(coin.Amount) {
			return errorsmod.Wrapf(sdkerrors.ErrInsufficientFunds, "%s has %s%s, needs %s", addr, b.balance(ctx, addr, coin.Denom), coin.Denom, coin)
		}
	}
	for _, coin := range coins {
		b.setBalance(ctx, addr, coin.Denom, b.balance(ctx, addr, coin.Denom).Sub(coin.Amount))
	}
	return nil
}

// Fund credits coins to addr out of thin air
func (b *Bank) Fund(ctx context.Context, addr sdk.AccAddress, coins sdk.Coins) {
	b.add(ctx, addr, coins)
}

// ModuleBalance returns the balance of a module account
func (b *Bank) ModuleBalance(ctx context.Context, moduleName, denom string) math.Int {
	return b.balance(ctx, authtypes.NewModuleAddress(moduleName), denom)
}

// GetBalance returns the balance of denom held by addr
func (b *Bank) GetBalance(ctx context.Context, addr sdk.AccAddress, denom string) sdk.Coin {
	return sdk.Coin{Denom: denom, Amount: b.balance(ctx, addr, denom)}
}

// MintCoins creates coins in a module account
func (b *Bank) MintCoins(ctx context.Context, moduleName string, amt sdk.Coins) error {
	b.add(ctx, authtypes.NewModuleAddress(moduleName), amt)
	return nil
}

// BurnCoins destroys coins held by a module account
func (b *Bank) BurnCoins(ctx context.Context, moduleName string, amt sdk.Coins) error {
	return b.sub(ctx, authtypes.NewModuleAddress(moduleName), amt)
}

// SendCoinsFromModuleToAccount moves coins out of a module account
func (b *Bank) SendCoinsFromModuleToAccount(ctx context.Context, senderModule string, recipientAddr sdk.AccAddress, amt sdk.Coins) error {
	if err := b.sub(ctx, authtypes.NewModuleAddress(senderModule), amt); err != nil {
		return err
	}
	b.add(ctx, recipientAddr, amt)
	return nil
}

// SendCoinsFromAccountToModule moves coins into a module account
func (b *Bank) SendCoinsFromAccountToModule(ctx context.Context, senderAddr sdk.AccAddress, recipientModule string, amt sdk.Coins) error {
	if err := b.sub(ctx, senderAddr, amt); err != nil {
		return err
	}
	b.add(ctx, authtypes.NewModuleAddress(recipientModule), amt)
	return nil
}

// SetDenomMetaData records denom metadata
func (b *Bank) SetDenomMetaData(ctx context.Context, denomMetaData banktypes.Metadata) {
	bz, _ := denomMetaData.Marshal()
	b.store(ctx).Set(append(append([]byte{}, metadataKey...), denomMetaData.Base...), bz)
}

// GetDenomMetaData returns recorded denom metadata
func (b *Bank) GetDenomMetaData(ctx context.Context, denom string) (banktypes.Metadata, bool) {
	bz := b.store(ctx).Get(append(append([]byte{}, metadataKey...), denom...))
	if bz == nil {
		return banktypes.Metadata{}, false
	}
	var metadata banktypes.Metadata
	if err := metadata.Unmarshal(bz); err != nil {
		return banktypes.Metadata{}, false
	}
	return metadata, true
}
