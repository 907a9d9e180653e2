package main

import (
	"github.com/spf13/cobra"
)

func newQuoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a swap path without executing it",
	}

	outCmd := &cobra.Command{
		Use:   "out",
		Short: "Amounts received along --path for an input of --amount",
		RunE:  func(cmd *cobra.Command, _ []string) error { return runQuote(cmd, true) },
	}
	inCmd := &cobra.Command{
		Use:   "in",
		Short: "Amounts required along --path for an output of --amount",
		RunE:  func(cmd *cobra.Command, _ []string) error { return runQuote(cmd, false) },
	}
	for _, c := range []*cobra.Command{outCmd, inCmd} {
		c.Flags().String("path", "", "comma separated token path")
		c.Flags().String("amount", "", "amount")
	}

	cmd.AddCommand(outCmd, inCmd)
	return cmd
}

func runQuote(cmd *cobra.Command, out bool) error {
	return view(cmd, func(s *session) (interface{}, error) {
		path, err := s.pathFlag(cmd, "path")
		if err != nil {
			return nil, err
		}
		amount, err := amountFlag(cmd, "amount")
		if err != nil {
			return nil, err
		}
		quote := s.engine.GetAmountsIn
		if out {
			quote = s.engine.GetAmountsOut
		}
		amounts, err := quote(amount, path)
		if err != nil {
			return nil, err
		}
		res := swapOutput{Amounts: amountStrings(amounts)}
		for _, addr := range path {
			res.Path = append(res.Path, addr.Hex())
		}
		return res, nil
	})
}
