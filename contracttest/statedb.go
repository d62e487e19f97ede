// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package contracttest provides the mock host used by the AMM package tests:
// a snapshotting StateDB, ERC20 token backends backed by that state, and
// swap-callee adapters.
package contracttest

import (
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"

	"github.com/luxfi/amm/contract"
)

// MockStateDB implements contract.StateDB over in-memory maps with full
// snapshot/revert support, so failed operations can be asserted to leave no
// partial state and no events.
type MockStateDB struct {
	state    map[common.Address]map[common.Hash]common.Hash
	accounts map[common.Address]struct{}
	logs     []*types.Log

	snapshots []mockSnapshot

	timestamp   uint64
	blockNumber uint64
}

type mockSnapshot struct {
	state    map[common.Address]map[common.Hash]common.Hash
	accounts map[common.Address]struct{}
	logCount int
}

// NewMockStateDB returns an empty state at timestamp zero.
func NewMockStateDB() *MockStateDB {
	return &MockStateDB{
		state:    make(map[common.Address]map[common.Hash]common.Hash),
		accounts: make(map[common.Address]struct{}),
	}
}

func (m *MockStateDB) GetState(addr common.Address, key common.Hash) common.Hash {
	return m.state[addr][key]
}

func (m *MockStateDB) SetState(addr common.Address, key common.Hash, value common.Hash) {
	slots, ok := m.state[addr]
	if !ok {
		slots = make(map[common.Hash]common.Hash)
		m.state[addr] = slots
	}
	slots[key] = value
}

func (m *MockStateDB) Snapshot() int {
	m.snapshots = append(m.snapshots, mockSnapshot{
		state:    copyState(m.state),
		accounts: copyAccounts(m.accounts),
		logCount: len(m.logs),
	})
	return len(m.snapshots) - 1
}

func (m *MockStateDB) RevertToSnapshot(id int) {
	if id < 0 || id >= len(m.snapshots) {
		panic("revert to unknown snapshot")
	}
	snap := m.snapshots[id]
	m.state = snap.state
	m.accounts = snap.accounts
	m.logs = m.logs[:snap.logCount]
	m.snapshots = m.snapshots[:id]
}

func (m *MockStateDB) AddLog(l *types.Log) {
	m.logs = append(m.logs, l)
}

// Logs returns every emitted log in order.
func (m *MockStateDB) Logs() []*types.Log {
	return m.logs
}

func (m *MockStateDB) Exist(addr common.Address) bool {
	_, ok := m.accounts[addr]
	return ok
}

func (m *MockStateDB) CreateAccount(addr common.Address) {
	m.accounts[addr] = struct{}{}
}

func (m *MockStateDB) GetBlockNumber() uint64 { return m.blockNumber }

func (m *MockStateDB) GetTimestamp() uint64 { return m.timestamp }

// SetTimestamp pins the ambient wall clock, in seconds.
func (m *MockStateDB) SetTimestamp(ts uint64) { m.timestamp = ts }

// AdvanceTime moves the clock forward by d seconds.
func (m *MockStateDB) AdvanceTime(d uint64) { m.timestamp += d }

// SetBlockNumber pins the block height stamped on logs.
func (m *MockStateDB) SetBlockNumber(n uint64) { m.blockNumber = n }

func copyState(src map[common.Address]map[common.Hash]common.Hash) map[common.Address]map[common.Hash]common.Hash {
	dst := make(map[common.Address]map[common.Hash]common.Hash, len(src))
	for addr, slots := range src {
		copied := make(map[common.Hash]common.Hash, len(slots))
		for k, v := range slots {
			copied[k] = v
		}
		dst[addr] = copied
	}
	return dst
}

func copyAccounts(src map[common.Address]struct{}) map[common.Address]struct{} {
	dst := make(map[common.Address]struct{}, len(src))
	for addr := range src {
		dst[addr] = struct{}{}
	}
	return dst
}

var _ contract.StateDB = (*MockStateDB)(nil)
