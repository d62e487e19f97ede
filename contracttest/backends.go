// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contracttest

import (
	"errors"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"

	"github.com/luxfi/amm/contract"
)

var balancePrefix = []byte("balance")

// MockERC20 is a fungible token whose balances live in the MockStateDB under
// the token's own address, so snapshots roll token moves back together with
// pool state.
type MockERC20 struct {
	Addr common.Address

	// FailTransfers makes every transfer report failure, standing in for a
	// token that returns false or reverts.
	FailTransfers bool
}

// NewMockERC20 creates a token at addr.
func NewMockERC20(addr common.Address) *MockERC20 {
	return &MockERC20{Addr: addr}
}

func (t *MockERC20) balanceSlot(owner common.Address) common.Hash {
	h := blake3.New()
	h.Write(balancePrefix)
	h.Write(owner.Bytes())
	var key common.Hash
	h.Digest().Read(key[:])
	return key
}

func (t *MockERC20) BalanceOf(db contract.StateDB, owner common.Address) *big.Int {
	word := db.GetState(t.Addr, t.balanceSlot(owner))
	return new(big.Int).SetBytes(word[:])
}

func (t *MockERC20) setBalance(db contract.StateDB, owner common.Address, value *big.Int) {
	db.SetState(t.Addr, t.balanceSlot(owner), common.BigToHash(value))
}

func (t *MockERC20) Transfer(db contract.StateDB, from, to common.Address, amount *big.Int) error {
	if t.FailTransfers {
		return errors.New("transfer rejected")
	}
	if amount.Sign() < 0 {
		return errors.New("negative amount")
	}
	balance := t.BalanceOf(db, from)
	if balance.Cmp(amount) < 0 {
		return errors.New("insufficient balance")
	}
	t.setBalance(db, from, new(big.Int).Sub(balance, amount))
	t.setBalance(db, to, new(big.Int).Add(t.BalanceOf(db, to), amount))
	return nil
}

// Mint seeds a balance out of thin air.
func (t *MockERC20) Mint(db contract.StateDB, to common.Address, amount *big.Int) {
	t.setBalance(db, to, new(big.Int).Add(t.BalanceOf(db, to), amount))
}

// CalleeFunc adapts a closure to the SwapCallee capability.
type CalleeFunc func(db contract.StateDB, sender common.Address, amount0, amount1 *big.Int, data []byte) error

func (f CalleeFunc) OnSwap(db contract.StateDB, sender common.Address, amount0, amount1 *big.Int, data []byte) error {
	return f(db, sender, amount0, amount1, data)
}

// MockBackends resolves tokens and swap callees for tests.
type MockBackends struct {
	tokens  map[common.Address]contract.ERC20
	callees map[common.Address]contract.SwapCallee
}

func NewMockBackends() *MockBackends {
	return &MockBackends{
		tokens:  make(map[common.Address]contract.ERC20),
		callees: make(map[common.Address]contract.SwapCallee),
	}
}

// AddToken registers a token backend.
func (b *MockBackends) AddToken(t *MockERC20) *MockERC20 {
	b.tokens[t.Addr] = t
	return t
}

// AddCallee registers a swap callee at addr.
func (b *MockBackends) AddCallee(addr common.Address, c contract.SwapCallee) {
	b.callees[addr] = c
}

func (b *MockBackends) Token(addr common.Address) contract.ERC20 {
	return b.tokens[addr]
}

func (b *MockBackends) SwapCallee(addr common.Address) contract.SwapCallee {
	return b.callees[addr]
}

var (
	_ contract.ERC20      = (*MockERC20)(nil)
	_ contract.Backends   = (*MockBackends)(nil)
	_ contract.SwapCallee = (CalleeFunc)(nil)
)
