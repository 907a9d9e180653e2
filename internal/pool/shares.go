package pool

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/kaym0/UniswapV2-Rework/internal/model"
	"github.com/kaym0/UniswapV2-Rework/internal/token"
)

var _ token.ERC20 = (*Pool)(nil)

// Address is the pool's own address, which is also its share token.
func (p *Pool) Address() common.Address { return p.address }

// Name is the share token name, fixed at creation.
func (p *Pool) Name() string { return p.name }

// Symbol is the share token symbol, fixed at creation.
func (p *Pool) Symbol() string { return p.symbol }

func (p *Pool) Decimals() uint8 { return ShareDecimals }

func (p *Pool) TotalSupply() *uint256.Int {
	return p.host.Supply(p.address)
}

func (p *Pool) BalanceOf(holder common.Address) *uint256.Int {
	return p.host.Balance(p.address, holder)
}

func (p *Pool) Allowance(owner, spender common.Address) *uint256.Int {
	return p.host.Allowance(p.address, owner, spender)
}

func (p *Pool) Approve(owner, spender common.Address, amount *uint256.Int) error {
	p.host.SetAllowance(p.address, owner, spender, amount)
	p.emit(model.EventApproval, model.ApprovalEventData{
		Owner:   owner.Hex(),
		Spender: spender.Hex(),
		Value:   amount.Dec(),
	})
	return nil
}

func (p *Pool) Transfer(from, to common.Address, amount *uint256.Int) error {
	if err := p.host.Move(p.address, from, to, amount); err != nil {
		return fmt.Errorf("%s transfer: %w", p.symbol, err)
	}
	p.emitTransfer(from, to, amount)
	return nil
}

func (p *Pool) TransferFrom(spender, from, to common.Address, amount *uint256.Int) error {
	if err := p.host.SpendAllowance(p.address, from, spender, amount); err != nil {
		return fmt.Errorf("%s transferFrom: %w", p.symbol, err)
	}
	return p.Transfer(from, to, amount)
}

func (p *Pool) mintShares(to common.Address, amount *uint256.Int) error {
	if err := p.host.Mint(p.address, to, amount); err != nil {
		return fmt.Errorf("mint shares: %w", err)
	}
	p.emitTransfer(common.Address{}, to, amount)
	return nil
}

func (p *Pool) burnShares(from common.Address, amount *uint256.Int) error {
	if err := p.host.Burn(p.address, from, amount); err != nil {
		return fmt.Errorf("burn shares: %w", err)
	}
	p.emitTransfer(from, common.Address{}, amount)
	return nil
}

func (p *Pool) emitTransfer(from, to common.Address, amount *uint256.Int) {
	p.emit(model.EventTransfer, model.TransferEventData{
		From:  from.Hex(),
		To:    to.Hex(),
		Value: amount.Dec(),
	})
}
