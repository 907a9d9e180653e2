package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kaym0/UniswapV2-Rework/internal/aggregate"
	"github.com/kaym0/UniswapV2-Rework/internal/config"
	"github.com/kaym0/UniswapV2-Rework/internal/dex"
	"github.com/kaym0/UniswapV2-Rework/internal/model"
	"github.com/kaym0/UniswapV2-Rework/internal/storage"
)

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect the engine event log",
	}

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode the JSONL event log into typed events, one per line",
		RunE:  runEventsDecode,
	}
	decodeCmd.Flags().String("in", "", "event log path (default --events)")
	decodeCmd.Flags().String("event", "", "only this event name, e.g. Swap")
	decodeCmd.Flags().String("address", "", "only events emitted by this address")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate pool swap volume, fees, TVL and APR per time window",
		RunE:  runEventsStats,
	}
	statsCmd.Flags().String("in", "", "event log path (default --events)")
	statsCmd.Flags().Duration("window", time.Hour, "window size")
	statsCmd.Flags().Uint64("since", 0, "skip events before this unix timestamp")

	cmd.AddCommand(decodeCmd, statsCmd)
	return cmd
}

// decodeLog reads and decodes the event log at in. Records the codec does
// not know are skipped; records that fail to decode are logged and skipped.
func decodeLog(in string, logger *zap.Logger) ([]model.TypedEvent, error) {
	codec, err := dex.NewEventCodec()
	if err != nil {
		return nil, err
	}
	records, err := storage.ReadJsonl(in)
	if err != nil {
		return nil, err
	}
	out := make([]model.TypedEvent, 0, len(records))
	for _, record := range records {
		if len(record.Topics) == 0 || !codec.CanDecode(record.Topics[0]) {
			continue
		}
		event, err := codec.Decode(record)
		if err != nil {
			logger.Warn("decode failed",
				zap.Uint64("block_number", record.BlockNumber),
				zap.Uint64("log_index", record.LogIndex),
				zap.String("tx_hash", record.TxHash),
				zap.Error(err),
			)
			continue
		}
		out = append(out, *event)
	}
	return out, nil
}

func runEventsStats(cmd *cobra.Command, _ []string) error {
	window, _ := cmd.Flags().GetDuration("window")
	since, _ := cmd.Flags().GetUint64("since")
	if window < time.Second {
		return fmt.Errorf("--window must be at least 1s")
	}

	s, err := openSession(cmd, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	in, _ := cmd.Flags().GetString("in")
	if in == "" {
		in = s.cfg.Events
	}
	if in == "" {
		return fmt.Errorf("input path is required")
	}
	events, err := decodeLog(in, s.logger)
	if err != nil {
		return err
	}

	pools := aggregate.PoolsFromPairs(s.engine.Pairs(), s.engine.Tokens())
	agg := aggregate.NewAggregator(aggregate.Config{
		WindowSeconds: uint64(window / time.Second),
		From:          since,
	}, pools, s.logger)
	metrics, err := agg.Run(events)
	if err != nil {
		return err
	}
	if s.pg != nil {
		if err := s.pg.UpsertWindowMetrics(s.ctx, metrics); err != nil {
			return fmt.Errorf("upsert window metrics: %w", err)
		}
	}
	return printJSON(cmd, metrics)
}

func runEventsDecode(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	in, _ := cmd.Flags().GetString("in")
	if in == "" {
		in = cfg.Events
	}
	if in == "" {
		return fmt.Errorf("input path is required")
	}
	eventName, _ := cmd.Flags().GetString("event")
	var address string
	if raw, _ := cmd.Flags().GetString("address"); raw != "" {
		addr, err := config.ParseAddress(raw)
		if err != nil {
			return fmt.Errorf("--address: %w", err)
		}
		address = addr.Hex()
	}

	events, err := decodeLog(in, logger)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	var written int
	for _, event := range events {
		if address != "" && !strings.EqualFold(event.Address, address) {
			continue
		}
		if eventName != "" && !strings.EqualFold(event.EventName, eventName) {
			continue
		}
		if err := enc.Encode(event); err != nil {
			return fmt.Errorf("write: %w", err)
		}
		written++
	}

	logger.Info("decode complete",
		zap.String("in", in),
		zap.Int("decoded", len(events)),
		zap.Int("written", written),
	)
	return nil
}
