package types

// Event types and attribute keys
const (
	EventTypeCollateralDeposited = "collateral_deposited"
	EventTypeCollateralRedeemed  = "collateral_redeemed"
	EventTypeDscMinted           = "dsc_minted"
	EventTypeDscBurned           = "dsc_burned"
	EventTypeLiquidation         = "liquidation"

	AttributeKeyUser         = "user"
	AttributeKeyToken        = "token"
	AttributeKeyAmount       = "amount"
	AttributeKeyRedeemedFrom = "redeemed_from"
	AttributeKeyRedeemedTo   = "redeemed_to"
	AttributeKeyOnBehalfOf   = "on_behalf_of"
	AttributeKeyPayer        = "payer"
	AttributeKeyLiquidator   = "liquidator"
	AttributeKeyDebtCovered  = "debt_covered"
	AttributeKeyBonus        = "bonus"
	AttributeKeyHealthBefore = "health_factor_before"
	AttributeKeyHealthAfter  = "health_factor_after"
)
