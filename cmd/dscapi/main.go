package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/openalpha/dsc-chain/api"
)

const (
	flagHost            = "host"
	flagPort            = "port"
	flagNoRateLimit     = "no-rate-limit"
	flagOperator        = "operator"
	flagCollateral      = "collateral"
	flagJournalCapacity = "journal-capacity"
	flagAllowedOrigins  = "allowed-origins"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dscapi",
		Short: "HTTP and WebSocket gateway for a local DSC engine",
		Long: `Runs an in-memory DSC engine and serves it over HTTP and WebSocket.

Collateral is given as token:feed:answer, where answer is the 8-decimal
USD price reported by the feed, e.g. weth:eth-usd:200000000000.`,
		RunE: runServer,
	}

	f := cmd.Flags()
	f.String(flagHost, "0.0.0.0", "Server host")
	f.Int(flagPort, 8080, "Server port")
	f.Bool(flagNoRateLimit, false, "Disable rate limiting (benchmarks only)")
	f.Bool(flagOperator, true, "Expose price and faucet routes")
	f.StringSlice(flagCollateral, nil, "Collateral tokens as token:feed:answer (default weth and wbtc)")
	f.Int(flagJournalCapacity, 10000, "Number of engine events retained for /v1/events")
	f.StringSlice(flagAllowedOrigins, []string{"*"}, "Allowed WebSocket origins")

	cmd.AddCommand(newChainAccountCmd())
	return cmd
}

func parseCollateral(specs []string) ([]api.CollateralConfig, error) {
	if len(specs) == 0 {
		return api.DefaultCollateral(), nil
	}
	out := make([]api.CollateralConfig, 0, len(specs))
	for _, entry := range specs {
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid collateral %q: want token:feed:answer", entry)
		}
		price, ok := math.NewIntFromString(parts[2])
		if !ok {
			return nil, fmt.Errorf("invalid collateral %q: bad answer %q", entry, parts[2])
		}
		out = append(out, api.CollateralConfig{Token: parts[0], FeedID: parts[1], Price: price})
	}
	return out, nil
}

// serverConfig reads the API configuration from the command flags
func serverConfig(f *pflag.FlagSet) *api.Config {
	config := api.DefaultConfig()
	config.Host, _ = f.GetString(flagHost)
	config.Port, _ = f.GetInt(flagPort)
	config.DisableRateLimit, _ = f.GetBool(flagNoRateLimit)
	config.EnableOperator, _ = f.GetBool(flagOperator)
	config.AllowedOrigins, _ = f.GetStringSlice(flagAllowedOrigins)
	return config
}

func runServer(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	specs, _ := f.GetStringSlice(flagCollateral)
	capacity, _ := f.GetInt(flagJournalCapacity)

	logger := log.NewLogger(os.Stdout).With("service", "dscapi")

	collateral, err := parseCollateral(specs)
	if err != nil {
		return err
	}
	service, err := api.NewKeeperService(logger, collateral, api.NewJournal(capacity))
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	config := serverConfig(f)
	server := api.NewServer(config, service, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logger.Info("DSC API server started", "addr", fmt.Sprintf("%s:%d", config.Host, config.Port), "collateral", len(collateral))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Error("server shutdown failed", "error", err)
		return err
	}
	logger.Info("server exited")
	return nil
}
