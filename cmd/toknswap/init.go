package main

import (
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kaym0/UniswapV2-Rework/internal/amm"
	"github.com/kaym0/UniswapV2-Rework/internal/engine"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Deploy the factory, router, liquidity manager and wrapped native token",
		RunE:  runInit,
	}
	cmd.Flags().String("pair-suffix", "TLP", "suffix of pool share token names")
	cmd.Flags().Uint64("fee-numerator", amm.DefaultFee.Numerator, "swap fee numerator of the default implementation")
	cmd.Flags().Uint64("fee-denominator", amm.DefaultFee.Denominator, "swap fee denominator of the default implementation")
	cmd.Flags().Uint64("minimum-shares", amm.MinimumShares, "shares locked at the first deposit")
	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	numerator, _ := cmd.Flags().GetUint64("fee-numerator")
	denominator, _ := cmd.Flags().GetUint64("fee-denominator")
	minimum, _ := cmd.Flags().GetUint64("minimum-shares")
	fee := amm.Fee{Numerator: numerator, Denominator: denominator}
	if err := fee.Validate(); err != nil {
		return err
	}

	s, err := openSession(cmd, sessionOptions{
		fresh: true,
		engine: engine.Config{
			Fee:           fee,
			MinimumShares: uint256.NewInt(minimum),
		},
	})
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Save(); err != nil {
		return err
	}
	addrs := s.engine.Addresses()
	s.logger.Info("engine initialized",
		zap.String("factory", addrs.Factory.Hex()),
		zap.String("router", addrs.Router.Hex()),
		zap.String("liquidity", addrs.Liquidity.Hex()),
		zap.String("wrapped", addrs.Wrapped.Hex()),
	)
	return printJSON(cmd, addrs)
}
