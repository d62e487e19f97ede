// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pair

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"

	"github.com/luxfi/amm/contract"
)

// Storage layout, all slots under the pair's own address.
//
//	slot 0: reserve0 (u112) | reserve1 (u112) | blockTimestampLast (u32),
//	        packed into a single word so the triple is read atomically
//	slot 1: price0CumulativeLast (u256, wrapping)
//	slot 2: price1CumulativeLast (u256, wrapping)
//	slot 3: kLast (u256)
//	slot 4: totalSupply (u256)
//
// Balance, allowance and permit-nonce mappings live under hashed keys.
var (
	slotReserves         = common.Hash{31: 0x00}
	slotPrice0Cumulative = common.Hash{31: 0x01}
	slotPrice1Cumulative = common.Hash{31: 0x02}
	slotKLast            = common.Hash{31: 0x03}
	slotTotalSupply      = common.Hash{31: 0x04}

	balancePrefix   = []byte("balance")
	allowancePrefix = []byte("allowance")
	noncePrefix     = []byte("nonce")
)

// storageKey derives a mapping slot from a prefix and key parts.
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

// maxUint112 bounds both reserves.
var maxUint112 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 112), big.NewInt(1))

// getReserves unpacks the reserve word.
func (p *Pair) getReserves(db contract.StateDB) (r0, r1 *uint256.Int, blockTimestampLast uint32) {
	word := db.GetState(p.address, slotReserves)
	r0 = new(uint256.Int).SetBytes(word[18:32])
	r1 = new(uint256.Int).SetBytes(word[4:18])
	blockTimestampLast = uint32(word[0])<<24 | uint32(word[1])<<16 | uint32(word[2])<<8 | uint32(word[3])
	return r0, r1, blockTimestampLast
}

// setReserves packs both reserves and the timestamp into the reserve word.
// Callers guarantee both values fit in 112 bits.
func (p *Pair) setReserves(db contract.StateDB, r0, r1 *uint256.Int, blockTimestampLast uint32) {
	var word common.Hash
	word[0] = byte(blockTimestampLast >> 24)
	word[1] = byte(blockTimestampLast >> 16)
	word[2] = byte(blockTimestampLast >> 8)
	word[3] = byte(blockTimestampLast)
	b1 := r1.Bytes()
	copy(word[18-len(b1):18], b1)
	b0 := r0.Bytes()
	copy(word[32-len(b0):32], b0)
	db.SetState(p.address, slotReserves, word)
}

func (p *Pair) getWord(db contract.StateDB, slot common.Hash) *uint256.Int {
	word := db.GetState(p.address, slot)
	return new(uint256.Int).SetBytes(word[:])
}

func (p *Pair) setWord(db contract.StateDB, slot common.Hash, value *uint256.Int) {
	db.SetState(p.address, slot, common.Hash(value.Bytes32()))
}

func (p *Pair) getBig(db contract.StateDB, slot common.Hash) *big.Int {
	word := db.GetState(p.address, slot)
	return new(big.Int).SetBytes(word[:])
}

// setBig writes a nonnegative integer that must fit in one word.
func (p *Pair) setBig(db contract.StateDB, slot common.Hash, value *big.Int) error {
	if value.Sign() < 0 {
		return ErrUnderflow
	}
	if value.BitLen() > 256 {
		return ErrOverflow
	}
	db.SetState(p.address, slot, common.BigToHash(value))
	return nil
}

func (p *Pair) balanceSlot(owner common.Address) common.Hash {
	return storageKey(balancePrefix, owner.Bytes())
}

func (p *Pair) allowanceSlot(owner, spender common.Address) common.Hash {
	return storageKey(allowancePrefix, owner.Bytes(), spender.Bytes())
}

func (p *Pair) nonceSlot(owner common.Address) common.Hash {
	return storageKey(noncePrefix, owner.Bytes())
}
