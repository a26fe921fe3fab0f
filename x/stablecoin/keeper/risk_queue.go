package keeper

import (
	"bytes"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/google/btree"

	"github.com/openalpha/dsc-chain/x/stablecoin/types"
)

const riskQueueDegree = 32

// AccountRisk is an indebted account with its current solvency
type AccountRisk struct {
	User                 string   `json:"user"`
	TotalDscMinted       math.Int `json:"total_dsc_minted"`
	CollateralValueInUsd math.Int `json:"collateral_value_in_usd"`
	HealthFactor         math.Int `json:"health_factor"`
}

// riskItem orders accounts by ascending health factor, ties by address
type riskItem struct {
	risk AccountRisk
}

// Less implements btree.Item
func (a *riskItem) Less(b btree.Item) bool {
	other := b.(*riskItem)
	if !a.risk.HealthFactor.Equal(other.risk.HealthFactor) {
		return a.risk.HealthFactor.LT(other.risk.HealthFactor)
	}
	return bytes.Compare([]byte(a.risk.User), []byte(other.risk.User)) < 0
}

// RiskQueue is a snapshot of indebted accounts sorted from least to most
// healthy. It is built per query and never persisted.
type RiskQueue struct {
	tree *btree.BTree
}

// NewRiskQueue returns an empty queue
func NewRiskQueue() *RiskQueue {
	return &RiskQueue{tree: btree.New(riskQueueDegree)}
}

// Push adds an account to the queue
func (q *RiskQueue) Push(risk AccountRisk) {
	q.tree.ReplaceOrInsert(&riskItem{risk: risk})
}

// Len returns the number of queued accounts
func (q *RiskQueue) Len() int {
	return q.tree.Len()
}

// Below returns up to limit accounts whose health factor is strictly below
// threshold, least healthy first. limit <= 0 means no limit.
func (q *RiskQueue) Below(threshold math.Int, limit int) []AccountRisk {
	var out []AccountRisk
	q.tree.Ascend(func(i btree.Item) bool {
		risk := i.(*riskItem).risk
		if risk.HealthFactor.GTE(threshold) {
			return false
		}
		out = append(out, risk)
		return limit <= 0 || len(out) < limit
	})
	return out
}

// Min returns the least healthy account
func (q *RiskQueue) Min() (AccountRisk, bool) {
	item := q.tree.Min()
	if item == nil {
		return AccountRisk{}, false
	}
	return item.(*riskItem).risk, true
}

// BuildRiskQueue snapshots every account with outstanding debt
func (k *Keeper) BuildRiskQueue(ctx sdk.Context) *RiskQueue {
	queue := NewRiskQueue()
	params := k.GetParams(ctx)
	for _, debt := range k.GetAllDebts(ctx) {
		if debt.Amount.IsZero() {
			continue
		}
		totalDscMinted, collateralValueInUsd := k.GetAccountInformation(ctx, debt.User)
		queue.Push(AccountRisk{
			User:                 debt.User,
			TotalDscMinted:       totalDscMinted,
			CollateralValueInUsd: collateralValueInUsd,
			HealthFactor:         types.CalculateHealthFactor(params, totalDscMinted, collateralValueInUsd),
		})
	}
	return queue
}

// LiquidationCandidates returns accounts below the minimum health factor,
// least healthy first
func (k *Keeper) LiquidationCandidates(ctx sdk.Context, limit int) []AccountRisk {
	return k.BuildRiskQueue(ctx).Below(k.GetParams(ctx).MinHealthFactor, limit)
}
