package testutil

import (
	"cosmossdk.io/log"

	"github.com/openalpha/dsc-chain/pkg/localchain"
	"github.com/openalpha/dsc-chain/x/stablecoin/types"
)

// OracleAuthority administers feeds in an Env
const OracleAuthority = localchain.OracleAuthority

// Env is a local chain whose stablecoin keeper moves funds through a
// BankKeeper that tests can make fail
type Env struct {
	*localchain.Chain
	Bank *BankKeeper
}

// NewEnv mounts fresh stores and builds the keepers
func NewEnv(logger log.Logger) (*Env, error) {
	bank := &BankKeeper{}
	chain, err := localchain.New(logger, func(b *localchain.Bank) types.BankKeeper {
		bank.Bank = b
		return bank
	})
	if err != nil {
		return nil, err
	}
	return &Env{Chain: chain, Bank: bank}, nil
}
