package testutil

import (
	"context"
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/dsc-chain/pkg/localchain"
)

// BankKeeper wraps the local chain bank with switches that make the
// matching call return an error
type BankKeeper struct {
	*localchain.Bank

	FailSendToModule   bool
	FailSendFromModule bool
	FailMint           bool
	FailBurn           bool
}

// MintCoins creates coins in a module account
func (b *BankKeeper) MintCoins(ctx context.Context, moduleName string, amt sdk.Coins) error {
	if b.FailMint {
		return fmt.Errorf("mint disabled")
	}
	return b.Bank.MintCoins(ctx, moduleName, amt)
}

// BurnCoins destroys coins held by a module account
func (b *BankKeeper) BurnCoins(ctx context.Context, moduleName string, amt sdk.Coins) error {
	if b.FailBurn {
		return fmt.Errorf("burn disabled")
	}
	return b.Bank.BurnCoins(ctx, moduleName, amt)
}

// SendCoinsFromModuleToAccount moves coins out of a module account
func (b *BankKeeper) SendCoinsFromModuleToAccount(ctx context.Context, senderModule string, recipientAddr sdk.AccAddress, amt sdk.Coins) error {
	if b.FailSendFromModule {
		return fmt.Errorf("transfers from %s disabled", senderModule)
	}
	return b.Bank.SendCoinsFromModuleToAccount(ctx, senderModule, recipientAddr, amt)
}

// SendCoinsFromAccountToModule moves coins into a module account
func (b *BankKeeper) SendCoinsFromAccountToModule(ctx context.Context, senderAddr sdk.AccAddress, recipientModule string, amt sdk.Coins) error {
	if b.FailSendToModule {
		return fmt.Errorf("transfers to %s disabled", recipientModule)
	}
	return b.Bank.SendCoinsFromAccountToModule(ctx, senderAddr, recipientModule, amt)
}
