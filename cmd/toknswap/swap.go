package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
)

type swapOutput struct {
	Path    []string `json:"path"`
	Amounts []string `json:"amounts"`
}

func newSwapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Swap along a path of pools through the router",
	}

	exactInCmd := &cobra.Command{
		Use:   "exact-in",
		Short: "Spend exactly --amount of the first path token",
		RunE:  func(cmd *cobra.Command, _ []string) error { return runSwap(cmd, true) },
	}
	exactOutCmd := &cobra.Command{
		Use:   "exact-out",
		Short: "Receive exactly --amount of the last path token",
		RunE:  func(cmd *cobra.Command, _ []string) error { return runSwap(cmd, false) },
	}
	for _, c := range []*cobra.Command{exactInCmd, exactOutCmd} {
		c.Flags().String("path", "", "comma separated token path; wrapped/weth name the wrapped token")
		c.Flags().String("amount", "", "exact amount")
		c.Flags().String("limit", "", "minimum output for exact-in, maximum input for exact-out")
		c.Flags().String("to", "", "recipient (default --from)")
		c.Flags().Bool("eth-in", false, "pay native value; the path must start with the wrapped token")
		c.Flags().Bool("eth-out", false, "receive native value; the path must end with the wrapped token")
	}

	cmd.AddCommand(exactInCmd, exactOutCmd)
	return cmd
}

func runSwap(cmd *cobra.Command, exactIn bool) error {
	ethIn, _ := cmd.Flags().GetBool("eth-in")
	ethOut, _ := cmd.Flags().GetBool("eth-out")
	if ethIn && ethOut {
		return fmt.Errorf("--eth-in and --eth-out are exclusive")
	}
	if raw, _ := cmd.Flags().GetString("limit"); ethIn && !exactIn && raw == "" {
		return fmt.Errorf("--limit is the native value sent and is required with --eth-in")
	}

	return mutate(cmd, func(s *session, caller common.Address) (interface{}, error) {
		path, err := s.pathFlag(cmd, "path")
		if err != nil {
			return nil, err
		}
		amount, err := amountFlag(cmd, "amount")
		if err != nil {
			return nil, err
		}
		limit, err := swapLimit(cmd, exactIn)
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

		e := s.engine
		var amounts []*uint256.Int
		switch {
		case exactIn && ethIn:
			amounts, err = e.SwapExactETHForTokens(s.ctx, caller, amount, limit, path, to, deadline)
		case exactIn && ethOut:
			amounts, err = e.SwapExactTokensForETH(s.ctx, caller, amount, limit, path, to, deadline)
		case exactIn:
			amounts, err = e.SwapExactTokensForTokens(s.ctx, caller, amount, limit, path, to, deadline)
		case ethIn:
			// the native value sent is the input cap; the unspent part is refunded
			amounts, err = e.SwapETHForExactTokens(s.ctx, caller, limit, amount, path, to, deadline)
		case ethOut:
			amounts, err = e.SwapTokensForExactETH(s.ctx, caller, amount, limit, path, to, deadline)
		default:
			amounts, err = e.SwapTokensForExactTokens(s.ctx, caller, amount, limit, path, to, deadline)
		}
		if err != nil {
			return nil, err
		}

		out := swapOutput{Amounts: amountStrings(amounts)}
		for _, addr := range path {
			out.Path = append(out.Path, addr.Hex())
		}
		return out, nil
	})
}

// swapLimit defaults to no bound: zero minimum output, or an unlimited input.
func swapLimit(cmd *cobra.Command, exactIn bool) (*uint256.Int, error) {
	if raw, _ := cmd.Flags().GetString("limit"); raw != "" {
		return amountFlag(cmd, "limit")
	}
	if exactIn {
		return new(uint256.Int), nil
	}
	return new(uint256.Int).SetAllOne(), nil
}
