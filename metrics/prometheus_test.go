package metrics

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestToUnits(t *testing.T) {
	tests := []struct {
		name   string
		amount math.Int
		want   float64
	}{
		{"nil", math.Int{}, 0},
		{"zero", math.ZeroInt(), 0},
		{"one token", math.NewIntWithDecimal(1, 18), 1},
		{"fraction", math.NewIntWithDecimal(25, 16), 0.25},
		{"large", math.NewIntWithDecimal(5000, 18), 5000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.want, ToUnits(tt.amount), 1e-9)
		})
	}
}

func TestRecordingHelpers(t *testing.T) {
	c := GetCollector()
	require.Same(t, c, GetCollector())

	c.RecordDscSupply("mint", math.NewIntWithDecimal(3, 18))
	c.RecordDscSupply("mint", math.NewIntWithDecimal(2, 18))
	require.InDelta(t, 5, testutil.ToFloat64(c.DscSupplyFlow.WithLabelValues("mint")), 1e-9)

	c.RecordOperation("mint_dsc", "solvency_violation", false, 1.5)
	require.InDelta(t, 1, testutil.ToFloat64(c.OperationsTotal.WithLabelValues("mint_dsc", "failure", "solvency_violation")), 1e-9)

	c.RecordOracleRound("eth-usd", math.NewInt(2000_00000000), 8)
	require.InDelta(t, 2000, testutil.ToFloat64(c.OraclePrice.WithLabelValues("eth-usd")), 1e-9)

	c.RecordOracleUnavailable("wbtc")
	require.InDelta(t, 1, testutil.ToFloat64(c.OracleUnavailable.WithLabelValues("wbtc")), 1e-9)
}
