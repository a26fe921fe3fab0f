package types

import "cosmossdk.io/math"

// UsdValue converts amount of a collateral token into pegged-token units.
// price carries the feed's own decimals; AdditionalFeedPrecision lifts it to
// Precision. Multiplications happen before the division.
func UsdValue(p Params, price, amount math.Int) math.Int {
	if !price.IsPositive() || amount.IsZero() {
		return math.ZeroInt()
	}
	return price.Mul(p.AdditionalFeedPrecision).Mul(amount).Quo(p.Precision)
}

// TokenAmountFromUsd converts a pegged-token amount into collateral units at
// price. It is the inverse of UsdValue up to integer rounding.
func TokenAmountFromUsd(p Params, price, usdAmount math.Int) math.Int {
	if !price.IsPositive() {
		return math.ZeroInt()
	}
	return usdAmount.Mul(p.Precision).Quo(price.Mul(p.AdditionalFeedPrecision))
}

// CalculateHealthFactor returns the ratio of risk-adjusted collateral value
// to debt, scaled by Precision. Accounts without debt get MaxHealthFactor.
func CalculateHealthFactor(p Params, totalDscMinted, collateralValueInUsd math.Int) math.Int {
	if totalDscMinted.IsZero() {
		return MaxHealthFactor
	}
	adjusted := collateralValueInUsd.Mul(p.LiquidationThreshold).Quo(p.LiquidationPrecision)
	return adjusted.Mul(p.Precision).Quo(totalDscMinted)
}

// LiquidationSeize returns the collateral paid to a liquidator for
// tokenAmount of covered debt: the amount plus the liquidation bonus.
func LiquidationSeize(p Params, tokenAmount math.Int) (bonus, total math.Int) {
	bonus = tokenAmount.Mul(p.LiquidationBonus).Quo(p.LiquidationPrecision)
	return bonus, tokenAmount.Add(bonus)
}
