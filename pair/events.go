// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pair

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	"github.com/luxfi/geth/crypto"

	"github.com/luxfi/amm/contract"
)

// Event topics, keccak of the canonical signatures.
var (
	TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	ApprovalTopic = crypto.Keccak256Hash([]byte("Approval(address,address,uint256)"))
	MintTopic     = crypto.Keccak256Hash([]byte("Mint(address,uint256,uint256)"))
	BurnTopic     = crypto.Keccak256Hash([]byte("Burn(address,uint256,uint256,address)"))
	SwapTopic     = crypto.Keccak256Hash([]byte("Swap(address,uint256,uint256,uint256,uint256,address)"))
	SyncTopic     = crypto.Keccak256Hash([]byte("Sync(uint112,uint112)"))
)

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func packWords(values ...*big.Int) []byte {
	data := make([]byte, 0, 32*len(values))
	for _, v := range values {
		word := common.BigToHash(v)
		data = append(data, word.Bytes()...)
	}
	return data
}

func (p *Pair) emit(db contract.StateDB, topics []common.Hash, data []byte) {
	db.AddLog(&types.Log{
		Address:     p.address,
		Topics:      topics,
		Data:        data,
		BlockNumber: db.GetBlockNumber(),
	})
}

func (p *Pair) emitTransfer(db contract.StateDB, from, to common.Address, value *big.Int) {
	p.emit(db,
		[]common.Hash{TransferTopic, addressTopic(from), addressTopic(to)},
		packWords(value))
}

func (p *Pair) emitApproval(db contract.StateDB, owner, spender common.Address, value *big.Int) {
	p.emit(db,
		[]common.Hash{ApprovalTopic, addressTopic(owner), addressTopic(spender)},
		packWords(value))
}

func (p *Pair) emitMint(db contract.StateDB, sender common.Address, amount0, amount1 *big.Int) {
	p.emit(db,
		[]common.Hash{MintTopic, addressTopic(sender)},
		packWords(amount0, amount1))
}

func (p *Pair) emitBurn(db contract.StateDB, sender common.Address, amount0, amount1 *big.Int, to common.Address) {
	p.emit(db,
		[]common.Hash{BurnTopic, addressTopic(sender), addressTopic(to)},
		packWords(amount0, amount1))
}

func (p *Pair) emitSwap(db contract.StateDB, sender common.Address, amount0In, amount1In, amount0Out, amount1Out *big.Int, to common.Address) {
	p.emit(db,
		[]common.Hash{SwapTopic, addressTopic(sender), addressTopic(to)},
		packWords(amount0In, amount1In, amount0Out, amount1Out))
}

func (p *Pair) emitSync(db contract.StateDB, reserve0, reserve1 *uint256.Int) {
	p.emit(db,
		[]common.Hash{SyncTopic},
		packWords(reserve0.ToBig(), reserve1.ToBig()))
}
