package main

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/kaym0/UniswapV2-Rework/internal/liquidity"
)

type liquidityOutput struct {
	Pool    string `json:"pool"`
	AmountA string `json:"amount_a"`
	AmountB string `json:"amount_b"`
	Shares  string `json:"shares,omitempty"`
}

func newLiquidityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "liquidity",
		Short: "Deposit into and withdraw from pools through the liquidity manager",
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Deposit at the pool ratio, creating the pool if missing",
		Long: "Deposit at the pool ratio, creating the pool if missing.\n" +
			"With --eth, --token-b is the wrapped token and --amount-b is the native value sent.",
		RunE: runLiquidityAdd,
	}
	addCmd.Flags().String("token-a", "", "first token")
	addCmd.Flags().String("token-b", "", "second token (ignored with --eth)")
	addCmd.Flags().String("amount-a", "", "desired amount of token-a")
	addCmd.Flags().String("amount-b", "", "desired amount of token-b, or native value with --eth")
	addCmd.Flags().String("min-a", "", "minimum amount of token-a")
	addCmd.Flags().String("min-b", "", "minimum amount of token-b")
	addCmd.Flags().String("to", "", "share recipient (default --from)")
	addCmd.Flags().Bool("eth", false, "pair token-a with native value")

	removeCmd := &cobra.Command{
		Use:   "remove",
		Short: "Burn shares and withdraw both tokens",
		RunE:  runLiquidityRemove,
	}
	removeCmd.Flags().String("token-a", "", "first token")
	removeCmd.Flags().String("token-b", "", "second token (ignored with --eth)")
	removeCmd.Flags().String("shares", "", "shares to burn")
	removeCmd.Flags().String("min-a", "", "minimum amount of token-a")
	removeCmd.Flags().String("min-b", "", "minimum amount of token-b")
	removeCmd.Flags().String("to", "", "recipient (default --from)")
	removeCmd.Flags().Bool("eth", false, "withdraw the wrapped side as native value")

	cmd.AddCommand(addCmd, removeCmd)
	return cmd
}

func runLiquidityAdd(cmd *cobra.Command, _ []string) error {
	eth, _ := cmd.Flags().GetBool("eth")
	return mutate(cmd, func(s *session, caller common.Address) (interface{}, error) {
		a, err := s.addressFlag(cmd, "token-a")
		if err != nil {
			return nil, err
		}
		amountA, err := amountFlag(cmd, "amount-a")
		if err != nil {
			return nil, err
		}
		amountB, err := amountFlag(cmd, "amount-b")
		if err != nil {
			return nil, err
		}
		minA, err := optionalAmountFlag(cmd, "min-a")
		if err != nil {
			return nil, err
		}
		minB, err := optionalAmountFlag(cmd, "min-b")
		if err != nil {
			return nil, err
		}
		to, err := s.optionalAddressFlag(cmd, "to", caller)
		if err != nil {
			return nil, err
		}
		deadline, err := s.Deadline()
		if err != nil {
			return nil, err
		}

		var res liquidity.AddResult
		if eth {
			res, err = s.engine.AddLiquidityETH(s.ctx, caller, a, amountB, amountA, minA, minB, to, deadline)
		} else {
			b, berr := s.addressFlag(cmd, "token-b")
			if berr != nil {
				return nil, berr
			}
			res, err = s.engine.AddLiquidity(s.ctx, caller, a, b, amountA, amountB, minA, minB, to, deadline)
		}
		if err != nil {
			return nil, err
		}
		return liquidityOutput{
			Pool:    res.Pool.Hex(),
			AmountA: res.AmountA.Dec(),
			AmountB: res.AmountB.Dec(),
			Shares:  res.Shares.Dec(),
		}, nil
	})
}

func runLiquidityRemove(cmd *cobra.Command, _ []string) error {
	eth, _ := cmd.Flags().GetBool("eth")
	return mutate(cmd, func(s *session, caller common.Address) (interface{}, error) {
		a, err := s.addressFlag(cmd, "token-a")
		if err != nil {
			return nil, err
		}
		shares, err := amountFlag(cmd, "shares")
		if err != nil {
			return nil, err
		}
		minA, err := optionalAmountFlag(cmd, "min-a")
		if err != nil {
			return nil, err
		}
		minB, err := optionalAmountFlag(cmd, "min-b")
		if err != nil {
			return nil, err
		}
		to, err := s.optionalAddressFlag(cmd, "to", caller)
		if err != nil {
			return nil, err
		}
		deadline, err := s.Deadline()
		if err != nil {
			return nil, err
		}

		var res liquidity.RemoveResult
		if eth {
			res, err = s.engine.RemoveLiquidityETH(s.ctx, caller, a, shares, minA, minB, to, deadline)
		} else {
			b, berr := s.addressFlag(cmd, "token-b")
			if berr != nil {
				return nil, berr
			}
			res, err = s.engine.RemoveLiquidity(s.ctx, caller, a, b, shares, minA, minB, to, deadline)
		}
		if err != nil {
			return nil, err
		}
		return liquidityOutput{
			Pool:    res.Pool.Hex(),
			AmountA: res.AmountA.Dec(),
			AmountB: res.AmountB.Dec(),
		}, nil
	})
}
