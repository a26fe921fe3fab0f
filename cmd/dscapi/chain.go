package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openalpha/dsc-chain/pkg/grpcclient"
)

const (
	flagGRPC    = "grpc"
	flagHeight  = "height"
	flagTimeout = "timeout"
)

func newChainAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain-account [user]",
		Short: "Read a user's position from a running dscd node over gRPC",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			config := grpcclient.DefaultConfig()
			config.GRPCAddr, _ = f.GetString(flagGRPC)
			config.Height, _ = f.GetInt64(flagHeight)
			config.Timeout, _ = f.GetDuration(flagTimeout)
			config.PoolSize = 1

			client, err := grpcclient.NewClient(config)
			if err != nil {
				return err
			}
			defer client.Close()

			acc, err := client.AccountInformation(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			deposits := make(map[string]string, len(acc.Deposits))
			for token, amount := range acc.Deposits {
				deposits[token] = amount.String()
			}
			out, err := json.MarshalIndent(map[string]interface{}{
				"user":                    acc.User,
				"total_dsc_minted":        acc.TotalDscMinted.String(),
				"collateral_value_in_usd": acc.CollateralValueInUsd.String(),
				"health_factor":           acc.HealthFactor.String(),
				"deposits":                deposits,
			}, "", "  ")
			if err != nil {
				return fmt.Errorf("encode output: %w", err)
			}
			cmd.Println(string(out))
			return nil
		},
	}

	f := cmd.Flags()
	f.String(flagGRPC, grpcclient.DefaultConfig().GRPCAddr, "Node gRPC address")
	f.Int64(flagHeight, 0, "Block height to read (0 for latest)")
	f.Duration(flagTimeout, 5*time.Second, "Per-query timeout")
	return cmd
}
