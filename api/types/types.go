package types

import (
	"context"
	"time"
)

// Position is a user's debt, collateral and solvency in the API response.
// Amounts are base-10 integer strings in 18-decimal units.
type Position struct {
	User                 string            `json:"user"`
	TotalDscMinted       string            `json:"total_dsc_minted"`
	CollateralValueInUsd string            `json:"collateral_value_in_usd"`
	HealthFactor         string            `json:"health_factor"`
	Deposits             map[string]string `json:"deposits,omitempty"`
	UpdatedAt            int64             `json:"updated_at"`
}

// Collateral describes an approved collateral token
type Collateral struct {
	Token    string `json:"token"`
	FeedID   string `json:"feed_id"`
	UsdPrice string `json:"usd_price"`
}

// Liquidation is the outcome of a liquidation call
type Liquidation struct {
	User                 string    `json:"user"`
	Liquidator           string    `json:"liquidator"`
	Token                string    `json:"token"`
	DebtCovered          string    `json:"debt_covered"`
	CollateralSeized     string    `json:"collateral_seized"`
	Bonus                string    `json:"bonus"`
	StartingHealthFactor string    `json:"starting_health_factor"`
	EndingHealthFactor   string    `json:"ending_health_factor"`
	Position             *Position `json:"position"`
}

// Params mirrors the engine parameters
type Params struct {
	Precision               string `json:"precision"`
	AdditionalFeedPrecision string `json:"additional_feed_precision"`
	LiquidationThreshold    string `json:"liquidation_threshold"`
	LiquidationPrecision    string `json:"liquidation_precision"`
	MinHealthFactor         string `json:"min_health_factor"`
	LiquidationBonus        string `json:"liquidation_bonus"`
	StrictDepositAndMint    bool   `json:"strict_deposit_and_mint"`
}

// Event is one engine event recorded in the journal
type Event struct {
	Sequence   uint64            `json:"sequence"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	Height     int64             `json:"height"`
	Timestamp  int64             `json:"timestamp"`
}

// CollateralRequest moves collateral in or out of the engine
type CollateralRequest struct {
	User   string `json:"user"`
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

// AmountRequest mints or burns pegged tokens
type AmountRequest struct {
	User   string `json:"user"`
	Amount string `json:"amount"`
}

// CombinedRequest pairs a collateral movement with a mint or burn
type CombinedRequest struct {
	User             string `json:"user"`
	Token            string `json:"token"`
	CollateralAmount string `json:"collateral_amount"`
	DscAmount        string `json:"dsc_amount"`
}

// LiquidateRequest covers part of an unhealthy user's debt
type LiquidateRequest struct {
	Liquidator  string `json:"liquidator"`
	User        string `json:"user"`
	Token       string `json:"token"`
	DebtToCover string `json:"debt_to_cover"`
}

// PriceRequest publishes a new oracle answer for a collateral token
type PriceRequest struct {
	Token  string `json:"token"`
	Answer string `json:"answer"`
}

// FundRequest credits a wallet on a local engine
type FundRequest struct {
	User   string `json:"user"`
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// PositionService defines the user-facing engine operations
type PositionService interface {
	GetPosition(ctx context.Context, user string) (*Position, error)
	DepositCollateral(ctx context.Context, req *CollateralRequest) (*Position, error)
	MintDsc(ctx context.Context, req *AmountRequest) (*Position, error)
	DepositCollateralAndMintDsc(ctx context.Context, req *CombinedRequest) (*Position, error)
	RedeemCollateral(ctx context.Context, req *CollateralRequest) (*Position, error)
	RedeemCollateralForDsc(ctx context.Context, req *CombinedRequest) (*Position, error)
	BurnDsc(ctx context.Context, req *AmountRequest) (*Position, error)
}

// LiquidationService defines liquidation and risk scanning
type LiquidationService interface {
	Liquidate(ctx context.Context, req *LiquidateRequest) (*Liquidation, error)
	Candidates(ctx context.Context, limit int) ([]*Position, error)
}

// MarketService defines read access to engine configuration and prices,
// plus the operator controls of a local engine
type MarketService interface {
	Params(ctx context.Context) (*Params, error)
	Collateral(ctx context.Context) ([]*Collateral, error)
	SetPrice(ctx context.Context, req *PriceRequest) (*Collateral, error)
	Fund(ctx context.Context, req *FundRequest) error
	Balances(ctx context.Context, user string) (map[string]string, error)
	Events(ctx context.Context, since uint64, limit int) ([]*Event, error)
}

// EngineService is everything the HTTP layer needs
type EngineService interface {
	PositionService
	LiquidationService
	MarketService
}

// NowMillis returns the current timestamp in milliseconds
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
