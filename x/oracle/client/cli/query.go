package cli

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cosmos/cosmos-sdk/client"
	"github.com/cosmos/cosmos-sdk/client/flags"

	"github.com/openalpha/dsc-chain/x/oracle/types"
)

// GetQueryCmd returns the cli query commands for the oracle module
func GetQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                        types.ModuleName,
		Short:                      "Querying commands for the oracle module",
		DisableFlagParsing:         true,
		SuggestionsMinimumDistance: 2,
		RunE:                       client.ValidateCmd,
	}

	cmd.AddCommand(
		CmdQueryFeed(),
		CmdQueryLatestRound(),
	)

	return cmd
}

// CmdQueryFeed returns the command to query a feed definition
func CmdQueryFeed() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feed [feed-id]",
		Short: "Query a price feed definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientQueryContext(cmd)
			if err != nil {
				return err
			}

			bz, _, err := clientCtx.QueryStore(types.FeedKey(args[0]), types.StoreKey)
			if err != nil {
				return err
			}
			if len(bz) == 0 {
				return fmt.Errorf("feed not found: %s", args[0])
			}

			var feed types.Feed
			if err := json.Unmarshal(bz, &feed); err != nil {
				return err
			}
			return printJSON(cmd, feed)
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

// CmdQueryLatestRound returns the command to query the latest round of a feed
func CmdQueryLatestRound() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "latest-round [feed-id]",
		Short: "Query the latest round data of a price feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCtx, err := client.GetClientQueryContext(cmd)
			if err != nil {
				return err
			}

			idBz, _, err := clientCtx.QueryStore(types.LatestRoundKey(args[0]), types.StoreKey)
			if err != nil {
				return err
			}
			if len(idBz) != 8 {
				return fmt.Errorf("no round data for feed: %s", args[0])
			}

			bz, _, err := clientCtx.QueryStore(types.RoundKey(args[0], binary.BigEndian.Uint64(idBz)), types.StoreKey)
			if err != nil {
				return err
			}

			var round types.RoundData
			if err := json.Unmarshal(bz, &round); err != nil {
				return err
			}
			return printJSON(cmd, round)
		},
	}

	flags.AddQueryFlagsToCmd(cmd)
	return cmd
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(output))
	return nil
}
