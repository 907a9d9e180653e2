package pool

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/kaym0/UniswapV2-Rework/internal/amm"
	"github.com/kaym0/UniswapV2-Rework/internal/model"
)

// ImplementationState converts impl to its persisted form.
func ImplementationState(impl Implementation) model.ImplementationState {
	return model.ImplementationState{
		Address:        impl.Address.Hex(),
		FeeNumerator:   impl.Fee.Numerator,
		FeeDenominator: impl.Fee.Denominator,
		MinimumShares:  impl.MinimumShares.Dec(),
	}
}

// ImplementationFromState parses a persisted implementation.
func ImplementationFromState(st model.ImplementationState) (Implementation, error) {
	minimum, err := uint256.FromDecimal(st.MinimumShares)
	if err != nil {
		return Implementation{}, fmt.Errorf("implementation %s minimum shares: %w", st.Address, err)
	}
	impl := Implementation{
		Address:       common.HexToAddress(st.Address),
		Fee:           amm.Fee{Numerator: st.FeeNumerator, Denominator: st.FeeDenominator},
		MinimumShares: minimum,
	}
	if err := impl.Fee.Validate(); err != nil {
		return Implementation{}, err
	}
	return impl, nil
}

// State captures the pool's own fields. Share balances live in the host
// ledger and are persisted with it.
func (p *Pool) State() model.PoolState {
	return model.PoolState{
		Address:            p.address.Hex(),
		Factory:            p.factory.Hex(),
		Implementation:     ImplementationState(p.impl),
		Token0:             p.Token0().Hex(),
		Token1:             p.Token1().Hex(),
		Reserve0:           p.reserve0.Dec(),
		Reserve1:           p.reserve1.Dec(),
		KLast:              p.kLast.Dec(),
		BlockTimestampLast: p.blockTimestampLast,
		Name:               p.name,
		Symbol:             p.symbol,
		CreatedAt:          p.createdAt,
	}
}

// Restore rebuilds a pool from st. cfg supplies the environment; its
// address, factory, implementation and labels are taken from st.
func Restore(cfg Config, st model.PoolState) (*Pool, error) {
	impl, err := ImplementationFromState(st.Implementation)
	if err != nil {
		return nil, err
	}
	cfg.Address = common.HexToAddress(st.Address)
	cfg.Factory = common.HexToAddress(st.Factory)
	cfg.Implementation = impl
	cfg.Name = st.Name
	cfg.Symbol = st.Symbol

	p, err := New(cfg)
	if err != nil {
		return nil, err
	}

	if p.token0, err = p.host.Token(common.HexToAddress(st.Token0)); err != nil {
		return nil, fmt.Errorf("restore pool %s: %w", st.Address, err)
	}
	if p.token1, err = p.host.Token(common.HexToAddress(st.Token1)); err != nil {
		return nil, fmt.Errorf("restore pool %s: %w", st.Address, err)
	}
	for _, field := range []struct {
		dst **uint256.Int
		src string
	}{
		{&p.reserve0, st.Reserve0},
		{&p.reserve1, st.Reserve1},
		{&p.kLast, st.KLast},
	} {
		v, err := uint256.FromDecimal(field.src)
		if err != nil {
			return nil, fmt.Errorf("restore pool %s: %w", st.Address, err)
		}
		*field.dst = v
	}
	p.blockTimestampLast = st.BlockTimestampLast
	p.createdAt = st.CreatedAt
	return p, nil
}
