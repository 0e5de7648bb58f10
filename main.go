package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "clmm",
		Short:        "Concentrated liquidity pool simulator",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a scenario through the pool engine",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("scenario", "./data/scenario.json", "scenario JSON path")
	simulateCmd.Flags().String("events-out", "./data/events.jsonl", "output events JSONL path")
	simulateCmd.Flags().String("results-out", "./data/results.json", "output results JSON path")
	simulateCmd.Flags().String("metrics-out", "", "optional prometheus text file for engine metrics")
	simulateCmd.Flags().String("pg-dsn", "", "Postgres DSN, the final pool is saved when set")
	simulateCmd.Flags().Uint16("tick-spacing", 10, "tick spacing when the scenario sets none")
	simulateCmd.Flags().Uint32("trade-fee-rate", 2500, "trade fee rate in hundredths of a bip")
	simulateCmd.Flags().Uint32("protocol-fee-rate", 120000, "protocol share of the trade fee")
	simulateCmd.Flags().Uint32("fund-fee-rate", 40000, "fund share of the trade fee")
	simulateCmd.Flags().Uint64("snapshot-interval", 3600, "seconds between snapshots, 0 keeps only the final one")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(simulateCmd)

	inspectCmd := &cobra.Command{
		Use:   "inspect <pool-account-file>",
		Short: "Decode a pool account and print a summary",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}

	root.AddCommand(inspectCmd)

	tickCmd := &cobra.Command{
		Use:   "tick",
		Short: "Convert between ticks, sqrt prices and prices",
		RunE:  runTick,
	}

	tickCmd.Flags().Int32("tick", 0, "tick to convert")
	tickCmd.Flags().String("sqrt-price", "", "Q64.64 sqrt price to convert")
	tickCmd.Flags().String("price", "", "decimal price to convert")
	tickCmd.Flags().Uint8("decimals0", 0, "decimals of token 0")
	tickCmd.Flags().Uint8("decimals1", 0, "decimals of token 1")

	root.AddCommand(tickCmd)

	return root
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
