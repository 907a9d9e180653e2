package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kaym0/UniswapV2-Rework/internal/api"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve pair listings, quotes and metrics over HTTP",
		Long: "Serve pair listings, quotes and metrics over HTTP.\n" +
			"The saved state is loaded once at startup; restart to pick up later changes.",
		RunE: runServe,
	}
	cmd.Flags().String("listen", ":8545", "listen address")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s, err := openSession(cmd, sessionOptions{registry: reg})
	if err != nil {
		return err
	}
	defer s.Close()

	h, err := api.NewHandler(s.engine, reg, s.logger)
	if err != nil {
		return err
	}

	s.logger.Info("serve start",
		zap.String("listen", s.cfg.Listen),
		zap.Uint64("sequence", s.engine.Sequence()),
		zap.Int("pairs", len(s.engine.AllPairs())),
	)
	return api.Serve(s.ctx, s.cfg.Listen, h, s.logger)
}
