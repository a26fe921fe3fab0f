package types

import (
	"fmt"
	"math/big"

	"cosmossdk.io/math"
)

// Engine constants
var (
	DefaultPrecision               = math.NewIntWithDecimal(1, 18)
	DefaultAdditionalFeedPrecision = math.NewIntWithDecimal(1, 10)
	DefaultLiquidationThreshold    = math.NewInt(50)
	DefaultLiquidationPrecision    = math.NewInt(100)
	DefaultMinHealthFactor         = math.NewIntWithDecimal(1, 18)
	DefaultLiquidationBonus        = math.NewInt(10)

	// MaxHealthFactor is reported for accounts without debt
	MaxHealthFactor = math.NewIntFromBigInt(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)))
)

// Params holds the engine parameters. They are fixed at genesis.
type Params struct {
	Precision               math.Int `json:"precision"`
	AdditionalFeedPrecision math.Int `json:"additional_feed_precision"`
	LiquidationThreshold    math.Int `json:"liquidation_threshold"`
	LiquidationPrecision    math.Int `json:"liquidation_precision"`
	MinHealthFactor         math.Int `json:"min_health_factor"`
	LiquidationBonus        math.Int `json:"liquidation_bonus"`

	// StrictDepositAndMint makes a failed deposit abort a combined
	// deposit-and-mint. When false the mint is attempted anyway.
	StrictDepositAndMint bool `json:"strict_deposit_and_mint"`
}

// DefaultParams returns the default engine parameters
func DefaultParams() Params {
	return Params{
		Precision:               DefaultPrecision,
		AdditionalFeedPrecision: DefaultAdditionalFeedPrecision,
		LiquidationThreshold:    DefaultLiquidationThreshold,
		LiquidationPrecision:    DefaultLiquidationPrecision,
		MinHealthFactor:         DefaultMinHealthFactor,
		LiquidationBonus:        DefaultLiquidationBonus,
		StrictDepositAndMint:    false,
	}
}

// Validate checks that every parameter is usable as a divisor or multiplier
func (p Params) Validate() error {
	positive := []struct {
		name  string
		value math.Int
	}{
		{"precision", p.Precision},
		{"additional_feed_precision", p.AdditionalFeedPrecision},
		{"liquidation_threshold", p.LiquidationThreshold},
		{"liquidation_precision", p.LiquidationPrecision},
		{"min_health_factor", p.MinHealthFactor},
	}
	for _, f := range positive {
		if f.value.IsNil() || !f.value.IsPositive() {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidParams, f.name)
		}
	}
	if p.LiquidationBonus.IsNil() || p.LiquidationBonus.IsNegative() {
		return fmt.Errorf("%w: liquidation_bonus must not be negative", ErrInvalidParams)
	}
	if p.LiquidationThreshold.GT(p.LiquidationPrecision) {
		return fmt.Errorf("%w: liquidation_threshold exceeds liquidation_precision", ErrInvalidParams)
	}
	return nil
}
