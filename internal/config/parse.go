package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ParseAddress converts a hex string into common.Address.
func ParseAddress(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %q", input)
	}
	return common.HexToAddress(input), nil
}

// ParseAddresses converts string addresses into common.Address, skipping
// blanks.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range cleanStrings(inputs) {
		addr, err := ParseAddress(input)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, addr)
	}
	return addresses, nil
}

// ParsePath parses a comma-separated swap path.
func ParsePath(input string) ([]common.Address, error) {
	path, err := ParseAddresses(splitAndClean(input))
	if err != nil {
		return nil, fmt.Errorf("path: %w", err)
	}
	if len(path) < 2 {
		return nil, fmt.Errorf("path needs at least two tokens, got %d", len(path))
	}
	return path, nil
}

// ParseAmount parses a base-10 integer amount. Hex with a 0x prefix is also
// accepted.
func ParseAmount(input string) (*uint256.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("amount is required")
	}
	var (
		amount *uint256.Int
		err    error
	)
	if strings.HasPrefix(input, "0x") || strings.HasPrefix(input, "0X") {
		amount, err = uint256.FromHex(input)
	} else {
		amount, err = uint256.FromDecimal(input)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", input, err)
	}
	return amount, nil
}

// ParseDeadline accepts unix seconds or a duration relative to now such as
// "20m".
func ParseDeadline(input string, now time.Time) (uint64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, fmt.Errorf("deadline is required")
	}
	if ts, err := strconv.ParseUint(input, 10, 64); err == nil {
		return ts, nil
	}
	d, err := time.ParseDuration(input)
	if err != nil {
		return 0, fmt.Errorf("invalid deadline %q", input)
	}
	if d < 0 {
		return 0, fmt.Errorf("deadline %q is in the past", input)
	}
	return uint64(now.Add(d).Unix()), nil
}
