package stablecoin_test

import (
	"testing"

	"github.com/cosmos/cosmos-sdk/types/module"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/dsc-chain/x/oracle"
	"github.com/openalpha/dsc-chain/x/stablecoin"
)

// The node routes no module transactions, so neither module may advertise
// a msg service or tx commands that would reach nothing.
func TestModulesExposeNoTxSurface(t *testing.T) {
	type txCommander interface{ GetTxCmd() *cobra.Command }

	modules := map[string]interface{}{
		"stablecoin": stablecoin.AppModule{},
		"oracle":     oracle.AppModule{},
	}
	for name, mod := range modules {
		t.Run(name, func(t *testing.T) {
			_, hasServices := mod.(module.HasServices)
			require.False(t, hasServices)
			_, hasTx := mod.(txCommander)
			require.False(t, hasTx)
		})
	}
}

func TestQueryCommands(t *testing.T) {
	cmd := stablecoin.AppModuleBasic{}.GetQueryCmd()
	require.NotNil(t, cmd)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	require.ElementsMatch(t, []string{"params", "collateral-tokens", "collateral-balance", "account-info"}, names)
}
