package main

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/kaym0/UniswapV2-Rework/internal/config"
)

// addressFlag reads an address flag. The names of the built-in contracts
// (router, liquidity, factory, wrapped) are accepted in place of their
// addresses.
func (s *session) addressFlag(cmd *cobra.Command, name string) (common.Address, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return common.Address{}, fmt.Errorf("--%s is required", name)
	}
	addr, err := s.resolve(raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("--%s: %w", name, err)
	}
	return addr, nil
}

// optionalAddressFlag falls back to def when the flag is empty.
func (s *session) optionalAddressFlag(cmd *cobra.Command, name string, def common.Address) (common.Address, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return def, nil
	}
	return s.addressFlag(cmd, name)
}

func (s *session) resolve(raw string) (common.Address, error) {
	addrs := s.engine.Addresses()
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "router":
		return addrs.Router, nil
	case "liquidity":
		return addrs.Liquidity, nil
	case "factory":
		return addrs.Factory, nil
	case "wrapped", "weth":
		return addrs.Wrapped, nil
	}
	return config.ParseAddress(raw)
}

func (s *session) pathFlag(cmd *cobra.Command, name string) ([]common.Address, error) {
	raw, _ := cmd.Flags().GetString(name)
	parts := strings.Split(raw, ",")
	path := make([]common.Address, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		addr, err := s.resolve(part)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", name, err)
		}
		path = append(path, addr)
	}
	return path, nil
}

func amountFlag(cmd *cobra.Command, name string) (*uint256.Int, error) {
	raw, _ := cmd.Flags().GetString(name)
	amount, err := config.ParseAmount(raw)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return amount, nil
}

// optionalAmountFlag returns zero for an empty flag.
func optionalAmountFlag(cmd *cobra.Command, name string) (*uint256.Int, error) {
	raw, _ := cmd.Flags().GetString(name)
	if strings.TrimSpace(raw) == "" {
		return new(uint256.Int), nil
	}
	return amountFlag(cmd, name)
}

func amountStrings(amounts []*uint256.Int) []string {
	out := make([]string, len(amounts))
	for i, v := range amounts {
		out[i] = v.Dec()
	}
	return out
}
