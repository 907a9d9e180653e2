package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "toknswap",
		Short:        "Constant-product AMM engine",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("state-file", "./data/state.json", "engine snapshot file (ignored with --pg-dsn)")
	flags.String("pg-dsn", "", "Postgres DSN for snapshots, events and pair listings")
	flags.String("snapshot-name", "default", "snapshot row name in Postgres")
	flags.String("events", "./data/events.jsonl", "event log JSONL path, empty to disable")
	flags.String("from", "", "caller address")
	flags.Uint64("chain-id", 31337, "chain id stamped on events")
	flags.String("deadline", "20m", "deadline as unix seconds or a duration from now")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newInitCmd(),
		newTokenCmd(),
		newPairCmd(),
		newAdminCmd(),
		newLiquidityCmd(),
		newSwapCmd(),
		newQuoteCmd(),
		newServeCmd(),
		newEventsCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
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

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
