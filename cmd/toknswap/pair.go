package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

type addressOutput struct {
	Address string `json:"address"`
}

func newPairCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Create and inspect pools",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create the pool of two tokens with the current implementation",
		RunE:  runPairCreate,
	}
	createCmd.Flags().String("token-a", "", "first token")
	createCmd.Flags().String("token-b", "", "second token")

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Show the pool of two tokens",
		RunE:  runPairGet,
	}
	getCmd.Flags().String("token-a", "", "first token")
	getCmd.Flags().String("token-b", "", "second token")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List every pool in creation order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return view(cmd, func(s *session) (interface{}, error) {
				return s.engine.Pairs(), nil
			})
		},
	}

	addressCmd := &cobra.Command{
		Use:   "address",
		Short: "Compute a pool address without creating it",
		RunE:  runPairAddress,
	}
	addressCmd.Flags().String("token-a", "", "first token")
	addressCmd.Flags().String("token-b", "", "second token")
	addressCmd.Flags().String("implementation", "", "implementation address (default current)")

	skimCmd := &cobra.Command{
		Use:   "skim",
		Short: "Send a pool's balances above its reserves to --to",
		RunE:  runPairSkim,
	}
	skimCmd.Flags().String("pair", "", "pool address")
	skimCmd.Flags().String("to", "", "recipient (default --from)")

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Set a pool's reserves to its balances",
		RunE:  runPairSync,
	}
	syncCmd.Flags().String("pair", "", "pool address")

	cmd.AddCommand(createCmd, getCmd, listCmd, addressCmd, skimCmd, syncCmd)
	return cmd
}

func (s *session) tokenPair(cmd *cobra.Command) (common.Address, common.Address, error) {
	a, err := s.addressFlag(cmd, "token-a")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	b, err := s.addressFlag(cmd, "token-b")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return a, b, nil
}

func runPairCreate(cmd *cobra.Command, _ []string) error {
	return mutate(cmd, func(s *session, caller common.Address) (interface{}, error) {
		a, b, err := s.tokenPair(cmd)
		if err != nil {
			return nil, err
		}
		if _, err := s.engine.CreatePair(s.ctx, caller, a, b); err != nil {
			return nil, err
		}
		pair, _ := s.engine.Pair(a, b)
		return pair, nil
	})
}

func runPairGet(cmd *cobra.Command, _ []string) error {
	return view(cmd, func(s *session) (interface{}, error) {
		a, b, err := s.tokenPair(cmd)
		if err != nil {
			return nil, err
		}
		pair, ok := s.engine.Pair(a, b)
		if !ok {
			return nil, fmt.Errorf("no pool for %s and %s", a.Hex(), b.Hex())
		}
		return pair, nil
	})
}

func runPairAddress(cmd *cobra.Command, _ []string) error {
	return view(cmd, func(s *session) (interface{}, error) {
		a, b, err := s.tokenPair(cmd)
		if err != nil {
			return nil, err
		}
		impl, err := s.optionalAddressFlag(cmd, "implementation", s.engine.FactoryConfig().Implementation)
		if err != nil {
			return nil, err
		}
		addr, err := s.engine.ComputeAddress(impl, a, b)
		if err != nil {
			return nil, err
		}
		return addressOutput{Address: addr.Hex()}, nil
	})
}

func runPairSkim(cmd *cobra.Command, _ []string) error {
	return mutate(cmd, func(s *session, caller common.Address) (interface{}, error) {
		pair, err := s.addressFlag(cmd, "pair")
		if err != nil {
			return nil, err
		}
		to, err := s.optionalAddressFlag(cmd, "to", caller)
		if err != nil {
			return nil, err
		}
		return nil, s.engine.Skim(s.ctx, pair, to)
	})
}

func runPairSync(cmd *cobra.Command, _ []string) error {
	return mutate(cmd, func(s *session, _ common.Address) (interface{}, error) {
		pair, err := s.addressFlag(cmd, "pair")
		if err != nil {
			return nil, err
		}
		return nil, s.engine.Sync(s.ctx, pair)
	})
}
