package types

import (
	"fmt"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
)

// CollateralDeposit is the amount of one collateral token deposited by a user
type CollateralDeposit struct {
	User   string   `json:"user"`
	Token  string   `json:"token"`
	Amount math.Int `json:"amount"`
}

// DscDebt is the pegged-token debt minted by a user
type DscDebt struct {
	User   string   `json:"user"`
	Amount math.Int `json:"amount"`
}

// GenesisState defines the stablecoin module's genesis state. CollateralTokens
// and PriceFeeds are parallel lists: token i is priced by feed i.
type GenesisState struct {
	Params           Params              `json:"params"`
	CollateralTokens []string            `json:"collateral_tokens"`
	PriceFeeds       []string            `json:"price_feeds"`
	Deposits         []CollateralDeposit `json:"deposits"`
	Debts            []DscDebt           `json:"debts"`
}

// DefaultGenesis returns the default genesis state
func DefaultGenesis() *GenesisState {
	return &GenesisState{
		Params:           DefaultParams(),
		CollateralTokens: []string{},
		PriceFeeds:       []string{},
		Deposits:         []CollateralDeposit{},
		Debts:            []DscDebt{},
	}
}

// Validate performs basic genesis state validation
func (gs GenesisState) Validate() error {
	if err := gs.Params.Validate(); err != nil {
		return err
	}
	if len(gs.CollateralTokens) != len(gs.PriceFeeds) {
		return fmt.Errorf("%w: %d tokens, %d feeds", ErrTokenAndFeedLengthMismatch, len(gs.CollateralTokens), len(gs.PriceFeeds))
	}

	allowed := make(map[string]bool, len(gs.CollateralTokens))
	for i, token := range gs.CollateralTokens {
		if err := sdk.ValidateDenom(token); err != nil {
			return fmt.Errorf("collateral token %d: %w", i, err)
		}
		if token == DscDenom {
			return fmt.Errorf("%w: %s cannot back itself", ErrAssetNotAllowed, DscDenom)
		}
		if allowed[token] {
			return fmt.Errorf("%w: %s", ErrDuplicateCollateral, token)
		}
		if gs.PriceFeeds[i] == "" {
			return fmt.Errorf("collateral token %s has an empty price feed", token)
		}
		allowed[token] = true
	}

	for _, d := range gs.Deposits {
		if _, err := sdk.AccAddressFromBech32(d.User); err != nil {
			return fmt.Errorf("%w: deposit user %s", ErrInvalidAddress, d.User)
		}
		if !allowed[d.Token] {
			return fmt.Errorf("%w: deposit of %s", ErrAssetNotAllowed, d.Token)
		}
		if d.Amount.IsNil() || d.Amount.IsNegative() {
			return fmt.Errorf("%w: deposit of %s by %s", ErrUnderflow, d.Token, d.User)
		}
	}
	for _, d := range gs.Debts {
		if _, err := sdk.AccAddressFromBech32(d.User); err != nil {
			return fmt.Errorf("%w: debt user %s", ErrInvalidAddress, d.User)
		}
		if d.Amount.IsNil() || d.Amount.IsNegative() {
			return fmt.Errorf("%w: debt of %s", ErrUnderflow, d.User)
		}
	}
	return nil
}

// DscMetadata returns the bank metadata of the pegged token
func DscMetadata() banktypes.Metadata {
	return banktypes.Metadata{
		Description: "Over-collateralized stable token pegged to USD",
		DenomUnits: []*banktypes.DenomUnit{
			{Denom: DscDenom, Exponent: 0},
			{Denom: DscDisplayDenom, Exponent: DscDecimals},
		},
		Base:    DscDenom,
		Display: DscDisplayDenom,
		Name:    DscName,
		Symbol:  DscSymbol,
	}
}
