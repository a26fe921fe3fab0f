package cli

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"cosmossdk.io/math"
	"github.com/spf13/cobra"

	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/flags"

	oracletypes "github.com/openalpha/dsc-chain/x/oracle/types"
	"github.com/openalpha/dsc-chain/x/stablecoin/types"
)

// GetQueryCmd returns the cli query commands for the stablecoin module
func GetQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        types.ModuleName,
		Short:                      "Querying commands for the stablecoin module",
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	cmd.AddCommand(
		CmdQueryParams(),
		CmdQueryCollateralTokens(),
		CmdQueryCollateralBalance(),
		CmdQueryAccountInformation(),
	)

	return cmd
}

// storeReader reads module state straight from the node's stores
type storeReader struct {
	clientCtx client.Context
}

func (r storeReader) get(key []byte, storeName string) ([]byte, error) {
	bz, _, err := r.clientCtx.QueryStore(key, storeName)
	return bz, err
}

func (r storeReader) params() (types.Params, error) {
	bz, err := r.get(types.ParamsKey, types.StoreKey)
	if err != nil || len(bz) == 0 {
		return types.DefaultParams(), err
	}
	var params types.Params
	err = json.Unmarshal(bz, &params)
	return params, err
}

func (r storeReader) collateralTokens() ([]string, []string, error) {
	bz, err := r.get(types.CollateralTokenCountKey, types.StoreKey)
	if err != nil || len(bz) != 8 {
		return nil, nil, err
	}
	count := binary.BigEndian.Uint64(bz)

	tokens := make([]string, 0, count)
	feeds := make([]string, 0, count)
	for i := uint64(0); i < count; i++ {
		token, err := r.get(types.CollateralTokenKey(i), types.StoreKey)
		if err != nil {
			return nil, nil, err
		}
		feed, err := r.get(types.PriceFeedKey(string(token)), types.StoreKey)
		if err != nil {
			return nil, nil, err
		}
		tokens = append(tokens, string(token))
		feeds = append(feeds, string(feed))
	}
	return tokens, feeds, nil
}

func (r storeReader) deposit(user, token string) (math.Int, error) {
	bz, err := r.get(types.CollateralDepositKey(user, token), types.StoreKey)
	if err != nil || len(bz) == 0 {
		return math.ZeroInt(), err
	}
	var deposit types.CollateralDeposit
	if err := json.Unmarshal(bz, &deposit); err != nil {
		return math.ZeroInt(), err
	}
	return deposit.Amount, nil
}

func (r storeReader) debt(user string) (math.Int, error) {
	bz, err := r.get(types.DscMintedKey(user), types.StoreKey)
	if err != nil || len(bz) == 0 {
		return math.ZeroInt(), err
	}
	var debt types.DscDebt
	if err := json.Unmarshal(bz, &debt); err != nil {
		return math.ZeroInt(), err
	}
	return debt.Amount, nil
}

// latestAnswer returns zero when the feed has no usable round
func (r storeReader) latestAnswer(feedID string) (math.Int, error) {
	idBz, err := r.get(oracletypes.LatestRoundKey(feedID), oracletypes.StoreKey)
	if err != nil || len(idBz) != 8 {
		return math.ZeroInt(), err
	}
	bz, err := r.get(oracletypes.RoundKey(feedID, binary.BigEndian.Uint64(idBz)), oracletypes.StoreKey)
	if err != nil || len(bz) == 0 {
		return math.ZeroInt(), err
	}
	var round oracletypes.RoundData
	if err := json.Unmarshal(bz, &round); err != nil {
		return math.ZeroInt(), err
	}
	return round.Answer, nil
}

// CmdQueryParams returns the command to query the engine parameters
func CmdQueryParams() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Query the engine parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientQueryContext(cmd)
			if err != nil {
				return err
			}
			params, err := storeReader{clientCtx}.params()
			if err != nil {
				return err
			}
			return printJSON(cmd, params)
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// CmdQueryCollateralTokens returns the command to list approved collateral
func CmdQueryCollateralTokens() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collateral-tokens",
		Short: "List approved collateral tokens and their price feeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientQueryContext(cmd)
			if err != nil {
				return err
			}
			tokens, feeds, err := storeReader{clientCtx}.collateralTokens()
			if err != nil {
				return err
			}

			out := make([]map[string]string, 0, len(tokens))
			for i, token := range tokens {
				out = append(out, map[string]string{"token": token, "price_feed": feeds[i]})
			}
			return printJSON(cmd, out)
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// CmdQueryCollateralBalance returns the command to query one deposit
func CmdQueryCollateralBalance() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collateral-balance [user] [token]",
		Short: "Query how much of a token a user has deposited",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientQueryContext(cmd)
			if err != nil {
				return err
			}
			amount, err := storeReader{clientCtx}.deposit(args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd, types.CollateralDeposit{User: args[0], Token: args[1], Amount: amount})
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// CmdQueryAccountInformation returns the command to query debt, collateral
// value and health factor of an account
func CmdQueryAccountInformation() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account-info [user]",
		Short: "Query an account's debt, collateral value and health factor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientQueryContext(cmd)
			if err != nil {
				return err
			}
			reader := storeReader{clientCtx}
			user := args[0]

			params, err := reader.params()
			if err != nil {
				return err
			}
			tokens, feeds, err := reader.collateralTokens()
			if err != nil {
				return err
			}
			debt, err := reader.debt(user)
			if err != nil {
				return err
			}

			collateralValue := math.ZeroInt()
			for i, token := range tokens {
				amount, err := reader.deposit(user, token)
				if err != nil {
					return err
				}
				if amount.IsZero() {
					continue
				}
				price, err := reader.latestAnswer(feeds[i])
				if err != nil {
					return err
				}
				collateralValue = collateralValue.Add(types.UsdValue(params, price, amount))
			}

			return printJSON(cmd, map[string]string{
				"user":                    user,
				"total_dsc_minted":        debt.String(),
				"collateral_value_in_usd": collateralValue.String(),
				"health_factor":           types.CalculateHealthFactor(params, debt, collateralValue).String(),
			})
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	cmd.Println(string(output))
	return nil
}
