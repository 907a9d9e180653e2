package amm

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every engine component. Callers classify failures
// with errors.Is; components add context with fmt.Errorf("...: %w", err).
var (
	// ErrValidation covers expired deadlines, identical or zero tokens and malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrPairExists is returned by a second createPair for the same unordered pair.
	ErrPairExists = errors.New("pair already exists")
	// ErrInsufficientLiquidity is returned when a pool is missing, empty, or cannot cover an output.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrInsufficientOutput is returned when a realized output is below the caller's bound.
	ErrInsufficientOutput = errors.New("insufficient output amount")
	// ErrExcessiveInput is returned when a required input exceeds the caller's bound.
	ErrExcessiveInput = errors.New("excessive input amount")
	// ErrInvariantViolation is returned when the fee-adjusted constant product decreases.
	ErrInvariantViolation = errors.New("constant product invariant violated")
	// ErrUnauthorized is returned when a non-owner calls an admin operation.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrLocked is returned when a pool entry point is re-entered during a call.
	ErrLocked = errors.New("pool locked")
	// ErrOverflow is returned when an amount leaves the representable range.
	ErrOverflow = errors.New("arithmetic overflow")
)

// Refinements of ErrValidation.
var (
	ErrExpired             = fmt.Errorf("%w: deadline expired", ErrValidation)
	ErrIdenticalTokens     = fmt.Errorf("%w: identical tokens", ErrValidation)
	ErrZeroToken           = fmt.Errorf("%w: zero token address", ErrValidation)
	ErrInvalidPath         = fmt.Errorf("%w: invalid path", ErrValidation)
	ErrInvalidFee          = fmt.Errorf("%w: invalid fee", ErrValidation)
	ErrInvalidRecipient    = fmt.Errorf("%w: invalid recipient", ErrValidation)
	ErrInsufficientInput   = fmt.Errorf("%w: insufficient input amount", ErrValidation)
	ErrInsufficientAmountA = fmt.Errorf("%w: insufficient amount of token A", ErrValidation)
	ErrInsufficientAmountB = fmt.Errorf("%w: insufficient amount of token B", ErrValidation)
)

// Kind returns a short label for err, used for metrics and HTTP mapping.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrPairExists):
		return "pair_exists"
	case errors.Is(err, ErrInsufficientLiquidity):
		return "insufficient_liquidity"
	case errors.Is(err, ErrInsufficientOutput):
		return "insufficient_output"
	case errors.Is(err, ErrExcessiveInput):
		return "excessive_input"
	case errors.Is(err, ErrInvariantViolation):
		return "invariant_violation"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrLocked):
		return "locked"
	case errors.Is(err, ErrOverflow):
		return "overflow"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "other"
	}
}
