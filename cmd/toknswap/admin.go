package main

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/kaym0/UniswapV2-Rework/internal/amm"
)

type factoryOutput struct {
	Version         uint64                 `json:"version"`
	Owner           string                 `json:"owner"`
	Implementation  string                 `json:"implementation"`
	FeeTo           string                 `json:"fee_to"`
	PairSuffix      string                 `json:"pair_suffix"`
	Implementations []implementationOutput `json:"implementations"`
}

type implementationOutput struct {
	Address        string `json:"address"`
	FeeNumerator   uint64 `json:"fee_numerator"`
	FeeDenominator uint64 `json:"fee_denominator"`
	MinimumShares  string `json:"minimum_shares"`
}

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Factory owner operations",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the factory configuration and registered implementations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return view(cmd, func(s *session) (interface{}, error) {
				return factoryView(s), nil
			})
		},
	}

	implCmd := &cobra.Command{
		Use:   "implementation",
		Short: "Manage pool implementations",
	}
	implDeployCmd := &cobra.Command{
		Use:   "deploy",
		Short: "Register a new pool implementation",
		RunE:  runImplementationDeploy,
	}
	implDeployCmd.Flags().Uint64("fee-numerator", amm.DefaultFee.Numerator, "swap fee numerator")
	implDeployCmd.Flags().Uint64("fee-denominator", amm.DefaultFee.Denominator, "swap fee denominator")
	implDeployCmd.Flags().Uint64("minimum-shares", amm.MinimumShares, "shares locked at the first deposit")
	implSetCmd := &cobra.Command{
		Use:   "set",
		Short: "Use a registered implementation for new pools",
		RunE:  runImplementationSet,
	}
	implSetCmd.Flags().String("address", "", "implementation address")
	implCmd.AddCommand(implDeployCmd, implSetCmd)

	feeToCmd := &cobra.Command{
		Use:   "fee-to",
		Short: "Set the protocol fee recipient; the zero address disables the fee",
		RunE:  runFeeTo,
	}
	feeToCmd.Flags().String("address", "", "recipient address")

	suffixCmd := &cobra.Command{
		Use:   "suffix",
		Short: "Set the suffix of new pool share names",
		RunE:  runSuffix,
	}
	suffixCmd.Flags().String("suffix", "", "share name suffix")

	ownerCmd := &cobra.Command{
		Use:   "owner",
		Short: "Transfer factory ownership",
		RunE:  runOwner,
	}
	ownerCmd.Flags().String("address", "", "new owner")

	cmd.AddCommand(showCmd, implCmd, feeToCmd, suffixCmd, ownerCmd)
	return cmd
}

func factoryView(s *session) factoryOutput {
	cfg := s.engine.FactoryConfig()
	out := factoryOutput{
		Version:        cfg.Version,
		Owner:          cfg.Owner.Hex(),
		Implementation: cfg.Implementation.Hex(),
		FeeTo:          cfg.FeeTo.Hex(),
		PairSuffix:     cfg.PairSuffix,
	}
	for _, impl := range s.engine.Implementations() {
		out.Implementations = append(out.Implementations, implementationOutput{
			Address:        impl.Address.Hex(),
			FeeNumerator:   impl.Fee.Numerator,
			FeeDenominator: impl.Fee.Denominator,
			MinimumShares:  impl.MinimumShares.Dec(),
		})
	}
	return out
}

func runImplementationDeploy(cmd *cobra.Command, _ []string) error {
	numerator, _ := cmd.Flags().GetUint64("fee-numerator")
	denominator, _ := cmd.Flags().GetUint64("fee-denominator")
	minimum, _ := cmd.Flags().GetUint64("minimum-shares")
	fee := amm.Fee{Numerator: numerator, Denominator: denominator}

	return mutate(cmd, func(s *session, caller common.Address) (interface{}, error) {
		addr, err := s.engine.DeployImplementation(s.ctx, caller, fee, uint256.NewInt(minimum))
		if err != nil {
			return nil, err
		}
		return addressOutput{Address: addr.Hex()}, nil
	})
}

func runImplementationSet(cmd *cobra.Command, _ []string) error {
	return mutate(cmd, func(s *session, caller common.Address) (interface{}, error) {
		impl, err := s.addressFlag(cmd, "address")
		if err != nil {
			return nil, err
		}
		if err := s.engine.SetImplementation(s.ctx, caller, impl); err != nil {
			return nil, err
		}
		return factoryView(s), nil
	})
}

func runFeeTo(cmd *cobra.Command, _ []string) error {
	return mutate(cmd, func(s *session, caller common.Address) (interface{}, error) {
		feeTo, err := s.addressFlag(cmd, "address")
		if err != nil {
			return nil, err
		}
		if err := s.engine.UpdateFeeTo(s.ctx, caller, feeTo); err != nil {
			return nil, err
		}
		return factoryView(s), nil
	})
}

func runSuffix(cmd *cobra.Command, _ []string) error {
	suffix, _ := cmd.Flags().GetString("suffix")
	return mutate(cmd, func(s *session, caller common.Address) (interface{}, error) {
		if err := s.engine.UpdatePairSuffix(s.ctx, caller, suffix); err != nil {
			return nil, err
		}
		return factoryView(s), nil
	})
}

func runOwner(cmd *cobra.Command, _ []string) error {
	return mutate(cmd, func(s *session, caller common.Address) (interface{}, error) {
		owner, err := s.addressFlag(cmd, "address")
		if err != nil {
			return nil, err
		}
		if err := s.engine.TransferOwnership(s.ctx, caller, owner); err != nil {
			return nil, err
		}
		return factoryView(s), nil
	})
}
