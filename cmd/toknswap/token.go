package main

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kaym0/UniswapV2-Rework/internal/chain"
	"github.com/kaym0/UniswapV2-Rework/internal/dex"
)

type balanceOutput struct {
	Token   string `json:"token"`
	Holder  string `json:"holder"`
	Balance string `json:"balance"`
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Deploy, import and move tokens",
	}

	deployCmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a plain ERC20 from --from",
		RunE:  runTokenDeploy,
	}
	deployCmd.Flags().String("name", "", "token name")
	deployCmd.Flags().String("symbol", "", "token symbol")
	deployCmd.Flags().Uint8("decimals", 18, "token decimals")
	deployCmd.Flags().String("mint", "", "amount minted to --from after deployment")

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Mirror a live ERC20 at its address, reading metadata over RPC",
		RunE:  runTokenImport,
	}
	importCmd.Flags().String("address", "", "token address on the live chain")
	importCmd.Flags().String("rpc", "", "RPC URL")
	importCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	importCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List deployed and imported tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return view(cmd, func(s *session) (interface{}, error) {
				return s.engine.Tokens(), nil
			})
		},
	}

	balanceCmd := &cobra.Command{
		Use:   "balance",
		Short: "Show a token, share or native balance",
		RunE:  runTokenBalance,
	}
	balanceCmd.Flags().String("token", "", "token or pool address; empty for the native asset")
	balanceCmd.Flags().String("holder", "", "holder address (default --from)")

	mintCmd := &cobra.Command{
		Use:   "mint",
		Short: "Mint a plain token",
		RunE:  runTokenMint,
	}
	mintCmd.Flags().String("token", "", "token address")
	mintCmd.Flags().String("to", "", "recipient (default --from)")
	mintCmd.Flags().String("amount", "", "amount")

	fundCmd := &cobra.Command{
		Use:   "fund",
		Short: "Credit native value",
		RunE:  runTokenFund,
	}
	fundCmd.Flags().String("to", "", "recipient (default --from)")
	fundCmd.Flags().String("amount", "", "amount")

	approveCmd := &cobra.Command{
		Use:   "approve",
		Short: "Approve a spender; pool share tokens included",
		RunE:  runTokenApprove,
	}
	approveCmd.Flags().String("token", "", "token or pool address")
	approveCmd.Flags().String("spender", "", "spender address, or router/liquidity")
	approveCmd.Flags().String("amount", "", "allowance")

	transferCmd := &cobra.Command{
		Use:   "transfer",
		Short: "Transfer tokens from --from",
		RunE:  runTokenTransfer,
	}
	transferCmd.Flags().String("token", "", "token or pool address")
	transferCmd.Flags().String("to", "", "recipient")
	transferCmd.Flags().String("amount", "", "amount")

	wrapCmd := &cobra.Command{
		Use:   "wrap",
		Short: "Convert native value into the wrapped token",
		RunE:  func(cmd *cobra.Command, _ []string) error { return runWrap(cmd, true) },
	}
	wrapCmd.Flags().String("amount", "", "amount")
	unwrapCmd := &cobra.Command{
		Use:   "unwrap",
		Short: "Convert the wrapped token back into native value",
		RunE:  func(cmd *cobra.Command, _ []string) error { return runWrap(cmd, false) },
	}
	unwrapCmd.Flags().String("amount", "", "amount")

	cmd.AddCommand(deployCmd, importCmd, listCmd, balanceCmd, mintCmd, fundCmd, approveCmd, transferCmd, wrapCmd, unwrapCmd)
	return cmd
}

func runTokenDeploy(cmd *cobra.Command, _ []string) error {
	name, _ := cmd.Flags().GetString("name")
	symbol, _ := cmd.Flags().GetString("symbol")
	decimals, _ := cmd.Flags().GetUint8("decimals")
	if symbol == "" {
		return fmt.Errorf("--symbol is required")
	}
	if name == "" {
		name = symbol
	}

	return mutate(cmd, func(s *session, caller common.Address) (interface{}, error) {
		meta, err := s.engine.DeployToken(s.ctx, caller, name, symbol, decimals)
		if err != nil {
			return nil, err
		}
		if raw, _ := cmd.Flags().GetString("mint"); raw != "" {
			amount, err := amountFlag(cmd, "mint")
			if err != nil {
				return nil, err
			}
			if err := s.engine.MintToken(s.ctx, common.HexToAddress(meta.Address), caller, amount); err != nil {
				return nil, err
			}
		}
		return meta, nil
	})
}

func runTokenImport(cmd *cobra.Command, _ []string) error {
	s, err := openSession(cmd, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	if s.cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	addr, err := s.addressFlag(cmd, "address")
	if err != nil {
		return err
	}

	client, err := chain.NewClient(s.ctx, s.cfg.RPCURL, chain.ClientConfig{
		MaxRetries:   s.cfg.MaxRetries,
		RetryBackoff: s.cfg.RetryBackoff,
	}, s.logger)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer client.Close()

	meta, err := dex.FetchTokenMeta(s.ctx, client, addr, s.logger)
	if err != nil {
		return fmt.Errorf("fetch token metadata: %w", err)
	}
	meta, err = s.engine.ImportToken(s.ctx, meta)
	if err != nil {
		return err
	}
	if err := s.Save(); err != nil {
		return err
	}
	s.logger.Info("token imported",
		zap.String("address", meta.Address),
		zap.String("symbol", meta.Symbol),
		zap.Uint8("decimals", meta.Decimals),
	)
	return printJSON(cmd, meta)
}

func runTokenBalance(cmd *cobra.Command, _ []string) error {
	return view(cmd, func(s *session) (interface{}, error) {
		var holder common.Address
		if raw, _ := cmd.Flags().GetString("holder"); raw != "" {
			addr, err := s.addressFlag(cmd, "holder")
			if err != nil {
				return nil, err
			}
			holder = addr
		} else {
			addr, err := s.Caller()
			if err != nil {
				return nil, err
			}
			holder = addr
		}

		raw, _ := cmd.Flags().GetString("token")
		if raw == "" {
			return balanceOutput{Token: "native", Holder: holder.Hex(), Balance: s.engine.NativeBalance(holder).Dec()}, nil
		}
		tok, err := s.addressFlag(cmd, "token")
		if err != nil {
			return nil, err
		}
		balance, err := s.engine.BalanceOf(tok, holder)
		if err != nil {
			return nil, err
		}
		return balanceOutput{Token: tok.Hex(), Holder: holder.Hex(), Balance: balance.Dec()}, nil
	})
}

func runTokenMint(cmd *cobra.Command, _ []string) error {
	return mutate(cmd, func(s *session, caller common.Address) (interface{}, error) {
		tok, err := s.addressFlag(cmd, "token")
		if err != nil {
			return nil, err
		}
		to, err := s.optionalAddressFlag(cmd, "to", caller)
		if err != nil {
			return nil, err
		}
		amount, err := amountFlag(cmd, "amount")
		if err != nil {
			return nil, err
		}
		if err := s.engine.MintToken(s.ctx, tok, to, amount); err != nil {
			return nil, err
		}
		balance, err := s.engine.BalanceOf(tok, to)
		if err != nil {
			return nil, err
		}
		return balanceOutput{Token: tok.Hex(), Holder: to.Hex(), Balance: balance.Dec()}, nil
	})
}

func runTokenFund(cmd *cobra.Command, _ []string) error {
	return mutate(cmd, func(s *session, caller common.Address) (interface{}, error) {
		to, err := s.optionalAddressFlag(cmd, "to", caller)
		if err != nil {
			return nil, err
		}
		amount, err := amountFlag(cmd, "amount")
		if err != nil {
			return nil, err
		}
		if err := s.engine.Fund(s.ctx, to, amount); err != nil {
			return nil, err
		}
		return balanceOutput{Token: "native", Holder: to.Hex(), Balance: s.engine.NativeBalance(to).Dec()}, nil
	})
}

func runTokenApprove(cmd *cobra.Command, _ []string) error {
	return mutate(cmd, func(s *session, caller common.Address) (interface{}, error) {
		tok, err := s.addressFlag(cmd, "token")
		if err != nil {
			return nil, err
		}
		spender, err := s.addressFlag(cmd, "spender")
		if err != nil {
			return nil, err
		}
		amount, err := amountFlag(cmd, "amount")
		if err != nil {
			return nil, err
		}
		return nil, s.engine.Approve(s.ctx, caller, tok, spender, amount)
	})
}

func runTokenTransfer(cmd *cobra.Command, _ []string) error {
	return mutate(cmd, func(s *session, caller common.Address) (interface{}, error) {
		tok, err := s.addressFlag(cmd, "token")
		if err != nil {
			return nil, err
		}
		to, err := s.addressFlag(cmd, "to")
		if err != nil {
			return nil, err
		}
		amount, err := amountFlag(cmd, "amount")
		if err != nil {
			return nil, err
		}
		return nil, s.engine.Transfer(s.ctx, caller, tok, to, amount)
	})
}

func runWrap(cmd *cobra.Command, wrap bool) error {
	return mutate(cmd, func(s *session, caller common.Address) (interface{}, error) {
		amount, err := amountFlag(cmd, "amount")
		if err != nil {
			return nil, err
		}
		if wrap {
			err = s.engine.Wrap(s.ctx, caller, amount)
		} else {
			err = s.engine.Unwrap(s.ctx, caller, amount)
		}
		if err != nil {
			return nil, err
		}
		wrapped := s.engine.Addresses().Wrapped
		balance, err := s.engine.BalanceOf(wrapped, caller)
		if err != nil {
			return nil, err
		}
		return balanceOutput{Token: wrapped.Hex(), Holder: caller.Hex(), Balance: balance.Dec()}, nil
	})
}
