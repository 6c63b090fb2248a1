package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "positiontools",
		Short:        "Uniswap V3 position mutation tools",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	compoundCmd := &cobra.Command{
		Use:   "compound",
		Short: "Collect a position's fees and reinvest them as liquidity",
		RunE:  runCompound,
	}
	addEngineFlags(compoundCmd)
	compoundCmd.Flags().Uint64("position", 0, "position token id")

	root.AddCommand(compoundCmd)

	remintCmd := &cobra.Command{
		Use:   "remint",
		Short: "Close a position and reopen it over a new tick range",
		RunE:  runRemint,
	}
	addEngineFlags(remintCmd)
	remintCmd.Flags().Uint64("position", 0, "position token id")
	remintCmd.Flags().Int32("tick-lower", 0, "new lower tick")
	remintCmd.Flags().Int32("tick-upper", 0, "new upper tick")
	remintCmd.Flags().String("price-lower", "", "new lower bound as token1/token0 price (overrides tick-lower)")
	remintCmd.Flags().String("price-upper", "", "new upper bound as token1/token0 price (overrides tick-upper)")

	root.AddCommand(remintCmd)

	withdrawCmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Remove liquidity and deliver the proceeds, optionally converted to one token",
		RunE:  runWithdraw,
	}
	addEngineFlags(withdrawCmd)
	withdrawCmd.Flags().Uint64("position", 0, "position token id")
	withdrawCmd.Flags().String("liquidity", "", "liquidity to remove (empty or 0 removes all)")
	withdrawCmd.Flags().String("mode", "keep", "delivery mode (keep, token0, token1)")
	withdrawCmd.Flags().String("min-amount-out", "", "minimum swap output when converting (0 accepts any price)")

	root.AddCommand(withdrawCmd)

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Sample the registry for positions with uncollected fees",
		RunE:  runScan,
	}
	scanCmd.Flags().String("rpc", "", "node RPC URL")
	scanCmd.Flags().String("position-manager", "", "position manager contract address")
	scanCmd.Flags().Int("count", 10, "candidates to find")
	scanCmd.Flags().Int("max-probes", 0, "sampling budget, 0 means 100x count")
	scanCmd.Flags().Int64("seed", 0, "sampling seed, 0 means time-based")
	scanCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	scanCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	scanCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(scanCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "node RPC URL")
	cmd.Flags().String("private-key", "", "hex private key of the operator account")
	cmd.Flags().String("position-manager", "", "position manager contract address")
	cmd.Flags().String("factory", "", "pool factory contract address")
	cmd.Flags().String("router", "", "swap router contract address")
	cmd.Flags().Duration("deadline", 10*time.Minute, "transaction deadline")
	cmd.Flags().Duration("op-timeout", 10*time.Minute, "overall operation timeout")
	cmd.Flags().String("out", "./data/operations.jsonl", "operation log JSONL path")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN for the operation log (overrides out)")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
