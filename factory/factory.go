// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package factory mints at most one pair per unordered asset pair, at an
// address derivable from (factory, canonical pair) alone, and administers
// the protocol-fee recipient.
package factory

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	"github.com/luxfi/geth/crypto"
	log "github.com/luxfi/log"
	"github.com/zeebo/blake3"

	"github.com/luxfi/amm/contract"
	"github.com/luxfi/amm/pair"
)

var (
	ErrIdenticalAddresses = errors.New("identical addresses")
	ErrZeroAddress        = errors.New("zero address")
	ErrPairExists         = errors.New("pair exists")
	ErrForbidden          = errors.New("forbidden")
	ErrPairNotFound       = errors.New("pair not found")
)

// PairCreatedTopic is keccak of the canonical PairCreated signature.
var PairCreatedTopic = crypto.Keccak256Hash([]byte("PairCreated(address,address,address,uint256)"))

// Storage layout under the factory address.
//
//	slot 0: feeTo
//	slot 1: feeToSetter
//	slot 2: allPairs length
//
// The registry mappings live under hashed keys: the pair address is stored
// symmetrically under both token orderings, plus once per insertion index.
var (
	slotFeeTo          = common.Hash{31: 0x00}
	slotFeeToSetter    = common.Hash{31: 0x01}
	slotAllPairsLength = common.Hash{31: 0x02}

	pairMapPrefix   = []byte("pair")
	pairIndexPrefix = []byte("pairs")
)

// pairCodeHash seeds the deterministic pair-address derivation.
var pairCodeHash = crypto.Keccak256Hash([]byte("github.com/luxfi/amm/pair"))

func storageKey(prefix []byte, parts ...[]byte) common.Hash {
	h := blake3.New()
	h.Write(prefix)
	for _, p := range parts {
		h.Write(p)
	}
	var key common.Hash
	h.Digest().Read(key[:])
	return key
}

// SortTokens returns the canonical (token0, token1) ordering.
func SortTokens(tokenA, tokenB common.Address) (common.Address, common.Address) {
	if bytes.Compare(tokenA.Bytes(), tokenB.Bytes()) < 0 {
		return tokenA, tokenB
	}
	return tokenB, tokenA
}

// PairFor derives the pair address for a token pair. Pure: the same
// (factory, canonical pair) always yields the same address.
func PairFor(factory, tokenA, tokenB common.Address) common.Address {
	token0, token1 := SortTokens(tokenA, tokenB)
	salt := crypto.Keccak256Hash(token0.Bytes(), token1.Bytes())
	return crypto.CreateAddress2(factory, salt, pairCodeHash.Bytes())
}

// Factory owns the pair registry and the protocol-fee configuration.
// Registry and fee state live in the host StateDB under the factory address;
// the struct caches instantiated pair engines.
type Factory struct {
	mu       sync.RWMutex
	address  common.Address
	chainID  *big.Int
	backends contract.Backends
	log      log.Logger
	pairs    map[common.Address]*pair.Pair
}

// New creates a factory bound to its precompile address and chain.
func New(address common.Address, chainID *big.Int, backends contract.Backends, logger log.Logger) *Factory {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &Factory{
		address:  address,
		chainID:  new(big.Int).Set(chainID),
		backends: backends,
		log:      logger,
		pairs:    make(map[common.Address]*pair.Pair),
	}
}

// Address returns the factory's own address.
func (f *Factory) Address() common.Address { return f.address }

// SetBackends wires the external token and callee resolvers. Must be called
// before the first pair operation.
func (f *Factory) SetBackends(backends contract.Backends) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.backends = backends
}

// Initialize seeds the administrator and optional initial fee recipient.
func (f *Factory) Initialize(db contract.StateDB, feeToSetter, feeTo common.Address) {
	db.SetState(f.address, slotFeeToSetter, addressWord(feeToSetter))
	db.SetState(f.address, slotFeeTo, addressWord(feeTo))
}

// FeeTo returns the protocol-fee recipient; the zero address means disabled.
// Pairs query this once per liquidity event.
func (f *Factory) FeeTo(db contract.StateDB) common.Address {
	return wordAddress(db.GetState(f.address, slotFeeTo))
}

// FeeToSetter returns the administrator allowed to rotate the recipient.
func (f *Factory) FeeToSetter(db contract.StateDB) common.Address {
	return wordAddress(db.GetState(f.address, slotFeeToSetter))
}

// SetFeeTo rotates the protocol-fee recipient; the zero address disables
// protocol fees.
func (f *Factory) SetFeeTo(db contract.StateDB, caller, feeTo common.Address) error {
	if caller != f.FeeToSetter(db) {
		return ErrForbidden
	}
	db.SetState(f.address, slotFeeTo, addressWord(feeTo))
	f.log.Debug("feeTo updated", "factory", f.address, "feeTo", feeTo)
	return nil
}

// SetFeeToSetter hands the administrator role to a new address.
func (f *Factory) SetFeeToSetter(db contract.StateDB, caller, feeToSetter common.Address) error {
	if caller != f.FeeToSetter(db) {
		return ErrForbidden
	}
	db.SetState(f.address, slotFeeToSetter, addressWord(feeToSetter))
	f.log.Debug("feeToSetter updated", "factory", f.address, "feeToSetter", feeToSetter)
	return nil
}

// AllPairsLength returns the number of pairs ever created.
func (f *Factory) AllPairsLength(db contract.StateDB) uint64 {
	return new(big.Int).SetBytes(db.GetState(f.address, slotAllPairsLength).Bytes()).Uint64()
}

// AllPairs returns the pair created at insertion index i (0-based).
func (f *Factory) AllPairs(db contract.StateDB, i uint64) common.Address {
	return wordAddress(db.GetState(f.address, f.indexSlot(i)))
}

// GetPair returns the pair address for a token pair in either order, or the
// zero address when none exists.
func (f *Factory) GetPair(db contract.StateDB, tokenA, tokenB common.Address) common.Address {
	return wordAddress(db.GetState(f.address, f.mapSlot(tokenA, tokenB)))
}

// CreatePair mints the unique pair for an unordered token pair and registers
// it under both orderings.
func (f *Factory) CreatePair(db contract.StateDB, tokenA, tokenB common.Address) (*pair.Pair, error) {
	if tokenA == tokenB {
		return nil, ErrIdenticalAddresses
	}
	token0, token1 := SortTokens(tokenA, tokenB)
	if token0 == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	if f.GetPair(db, token0, token1) != (common.Address{}) {
		return nil, ErrPairExists
	}

	pairAddr := PairFor(f.address, token0, token1)
	if !db.Exist(pairAddr) {
		db.CreateAccount(pairAddr)
	}

	db.SetState(f.address, f.mapSlot(token0, token1), addressWord(pairAddr))
	db.SetState(f.address, f.mapSlot(token1, token0), addressWord(pairAddr))
	length := f.AllPairsLength(db)
	db.SetState(f.address, f.indexSlot(length), addressWord(pairAddr))
	db.SetState(f.address, slotAllPairsLength, common.BigToHash(new(big.Int).SetUint64(length+1)))

	p := pair.New(f.address, pairAddr, token0, token1, f.chainID, f.backends, f, f.log)
	f.mu.Lock()
	f.pairs[pairAddr] = p
	f.mu.Unlock()

	f.emitPairCreated(db, token0, token1, pairAddr, length+1)
	f.log.Info("pair created",
		"factory", f.address, "token0", token0, "token1", token1,
		"pair", pairAddr, "index", length+1)
	return p, nil
}

// Pair returns the engine for a registered token pair, rehydrating it from
// the registry when this factory instance has not seen it yet.
func (f *Factory) Pair(db contract.StateDB, tokenA, tokenB common.Address) (*pair.Pair, error) {
	pairAddr := f.GetPair(db, tokenA, tokenB)
	if pairAddr == (common.Address{}) {
		return nil, ErrPairNotFound
	}

	f.mu.RLock()
	p, ok := f.pairs[pairAddr]
	f.mu.RUnlock()
	if ok {
		return p, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.pairs[pairAddr]; ok {
		return p, nil
	}
	token0, token1 := SortTokens(tokenA, tokenB)
	p = pair.New(f.address, pairAddr, token0, token1, f.chainID, f.backends, f, f.log)
	f.pairs[pairAddr] = p
	return p, nil
}

func (f *Factory) mapSlot(tokenA, tokenB common.Address) common.Hash {
	return storageKey(pairMapPrefix, tokenA.Bytes(), tokenB.Bytes())
}

func (f *Factory) indexSlot(i uint64) common.Hash {
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], i)
	return storageKey(pairIndexPrefix, idx[:])
}

func (f *Factory) emitPairCreated(db contract.StateDB, token0, token1, pairAddr common.Address, index uint64) {
	data := make([]byte, 0, 64)
	data = append(data, addressWord(pairAddr).Bytes()...)
	data = append(data, common.BigToHash(new(big.Int).SetUint64(index)).Bytes()...)
	db.AddLog(&types.Log{
		Address: f.address,
		Topics: []common.Hash{
			PairCreatedTopic,
			addressWord(token0),
			addressWord(token1),
		},
		Data:        data,
		BlockNumber: db.GetBlockNumber(),
	})
}

func addressWord(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func wordAddress(word common.Hash) common.Address {
	return common.BytesToAddress(word.Bytes())
}
