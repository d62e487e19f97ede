// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package contract defines the host interfaces shared by the AMM precompile
// family: the EVM state accessor, the external token backends the pairs move
// value through, and the stateful-precompile plumbing used to register the
// factory on chain.
package contract

import (
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
)

// StateDB is the subset of EVM state the AMM family reads and writes.
// Snapshot/RevertToSnapshot carry the host's all-or-nothing transaction
// semantics: every guarded pair operation reverts to its entry snapshot on
// failure.
type StateDB interface {
	GetState(addr common.Address, key common.Hash) common.Hash
	SetState(addr common.Address, key common.Hash, value common.Hash)

	Snapshot() int
	RevertToSnapshot(int)

	AddLog(*types.Log)

	Exist(addr common.Address) bool
	CreateAccount(addr common.Address)

	GetBlockNumber() uint64
	GetTimestamp() uint64
}

// ERC20 is the external fungible-asset contract a pair holds reserves in.
// Transfer reports failure both for an explicit false return and for a
// revert; the pair maps either to its TRANSFER_FAILED error.
type ERC20 interface {
	BalanceOf(db StateDB, owner common.Address) *big.Int
	Transfer(db StateDB, from, to common.Address, amount *big.Int) error
}

// SwapCallee is the flash-swap capability of a swap recipient. It is invoked
// mid-swap, after outputs have been optimistically transferred, and must have
// delivered the owed input asset(s) to the pair before it returns.
type SwapCallee interface {
	OnSwap(db StateDB, sender common.Address, amount0 *big.Int, amount1 *big.Int, data []byte) error
}

// Backends resolves external collaborators by address.
type Backends interface {
	// Token returns the ERC20 backend for an asset address, or nil when the
	// address is not a known token.
	Token(addr common.Address) ERC20

	// SwapCallee returns the flash-swap capability of addr, or nil when addr
	// does not implement one.
	SwapCallee(addr common.Address) SwapCallee
}

// AccessibleState is the execution context handed to a precompile Run.
type AccessibleState interface {
	GetStateDB() StateDB
}

// StatefulPrecompiledContract is a precompile that can read and modify state.
type StatefulPrecompiledContract interface {
	Run(
		accessibleState AccessibleState,
		caller common.Address,
		addr common.Address,
		input []byte,
		suppliedGas uint64,
		readOnly bool,
	) (ret []byte, remainingGas uint64, err error)
}

// Configurator applies a precompile config to state at activation.
type Configurator interface {
	MakeConfig() Config
	Configure(cfg Config, state StateDB) error
}
