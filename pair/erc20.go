// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pair

import (
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"

	"github.com/luxfi/amm/contract"
)

// Liquidity-share token metadata.
const (
	TokenName     = "Uniswap V2"
	TokenSymbol   = "UNI-V2"
	TokenDecimals = 18
)

// EIP-712 type hashes for the signed-approval path.
var (
	eip712DomainTypeHash = crypto.Keccak256Hash([]byte(
		"EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	permitTypeHash = crypto.Keccak256Hash([]byte(
		"Permit(address owner,address spender,uint256 value,uint256 nonce,uint256 deadline)"))

	nameHash    = crypto.Keccak256Hash([]byte(TokenName))
	versionHash = crypto.Keccak256Hash([]byte("1"))
)

// maxUint256 is the unlimited-allowance sentinel.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// computeDomainSeparator binds permit signatures to the chain and to this
// pair. Recomputed at construction, never cached across relocations.
func computeDomainSeparator(chainID *big.Int, pairAddr common.Address) common.Hash {
	enc := make([]byte, 0, 5*32)
	enc = append(enc, eip712DomainTypeHash.Bytes()...)
	enc = append(enc, nameHash.Bytes()...)
	enc = append(enc, versionHash.Bytes()...)
	enc = append(enc, common.BigToHash(chainID).Bytes()...)
	enc = append(enc, addressTopic(pairAddr).Bytes()...)
	return crypto.Keccak256Hash(enc)
}

// TotalSupply returns the share supply.
func (p *Pair) TotalSupply(db contract.StateDB) *big.Int {
	return p.getBig(db, slotTotalSupply)
}

// BalanceOf returns owner's share balance.
func (p *Pair) BalanceOf(db contract.StateDB, owner common.Address) *big.Int {
	return p.getBig(db, p.balanceSlot(owner))
}

// Allowance returns the remaining spender allowance.
func (p *Pair) Allowance(db contract.StateDB, owner, spender common.Address) *big.Int {
	return p.getBig(db, p.allowanceSlot(owner, spender))
}

// Nonces returns owner's permit nonce.
func (p *Pair) Nonces(db contract.StateDB, owner common.Address) *big.Int {
	return p.getBig(db, p.nonceSlot(owner))
}

// DomainSeparator returns the EIP-712 domain binding digest.
func (p *Pair) DomainSeparator() common.Hash {
	return p.domainSeparator
}

// mintShares creates value shares for to.
func (p *Pair) mintShares(db contract.StateDB, to common.Address, value *big.Int) error {
	supply := new(big.Int).Add(p.TotalSupply(db), value)
	if err := p.setBig(db, slotTotalSupply, supply); err != nil {
		return err
	}
	balance := new(big.Int).Add(p.BalanceOf(db, to), value)
	if err := p.setBig(db, p.balanceSlot(to), balance); err != nil {
		return err
	}
	p.emitTransfer(db, common.Address{}, to, value)
	return nil
}

// burnShares destroys value shares held by from.
func (p *Pair) burnShares(db contract.StateDB, from common.Address, value *big.Int) error {
	balance := new(big.Int).Sub(p.BalanceOf(db, from), value)
	if err := p.setBig(db, p.balanceSlot(from), balance); err != nil {
		return err
	}
	supply := new(big.Int).Sub(p.TotalSupply(db), value)
	if err := p.setBig(db, slotTotalSupply, supply); err != nil {
		return err
	}
	p.emitTransfer(db, from, common.Address{}, value)
	return nil
}

func (p *Pair) transferShares(db contract.StateDB, from, to common.Address, value *big.Int) error {
	if value.Sign() < 0 {
		return ErrUnderflow
	}
	fromBalance := new(big.Int).Sub(p.BalanceOf(db, from), value)
	if err := p.setBig(db, p.balanceSlot(from), fromBalance); err != nil {
		return err
	}
	toBalance := new(big.Int).Add(p.BalanceOf(db, to), value)
	if err := p.setBig(db, p.balanceSlot(to), toBalance); err != nil {
		return err
	}
	p.emitTransfer(db, from, to, value)
	return nil
}

// Approve sets spender's allowance to exactly value. Last write wins; callers
// accept the known read-modify-write race.
func (p *Pair) Approve(db contract.StateDB, owner, spender common.Address, value *big.Int) error {
	if err := p.setBig(db, p.allowanceSlot(owner, spender), value); err != nil {
		return err
	}
	p.emitApproval(db, owner, spender, value)
	return nil
}

// Transfer moves value shares from the caller to to.
func (p *Pair) Transfer(db contract.StateDB, caller, to common.Address, value *big.Int) error {
	return p.transferShares(db, caller, to, value)
}

// TransferFrom moves value shares from from to to on the caller's allowance.
// The max-uint256 allowance is the unlimited sentinel and is left unchanged.
func (p *Pair) TransferFrom(db contract.StateDB, caller, from, to common.Address, value *big.Int) error {
	// Validate before any write so a failure leaves no partial state.
	if value.Sign() < 0 || p.BalanceOf(db, from).Cmp(value) < 0 {
		return ErrUnderflow
	}
	allowance := p.Allowance(db, from, caller)
	if allowance.Cmp(maxUint256) != 0 {
		remaining := new(big.Int).Sub(allowance, value)
		if err := p.setBig(db, p.allowanceSlot(from, caller), remaining); err != nil {
			return err
		}
	}
	return p.transferShares(db, from, to, value)
}

// Permit commits an off-chain signed allowance. The signature covers
// (owner, spender, value, nonce, deadline) under this pair's EIP-712 domain;
// the nonce increments exactly once per success, so a signature cannot be
// replayed.
func (p *Pair) Permit(
	db contract.StateDB,
	owner, spender common.Address,
	value, deadline *big.Int,
	v byte, r, s common.Hash,
) error {
	now := new(big.Int).SetUint64(db.GetTimestamp())
	if deadline.Cmp(now) < 0 {
		return ErrExpired
	}
	if value.Sign() < 0 {
		return ErrUnderflow
	}

	nonce := p.Nonces(db, owner)

	structEnc := make([]byte, 0, 6*32)
	structEnc = append(structEnc, permitTypeHash.Bytes()...)
	structEnc = append(structEnc, addressTopic(owner).Bytes()...)
	structEnc = append(structEnc, addressTopic(spender).Bytes()...)
	structEnc = append(structEnc, common.BigToHash(value).Bytes()...)
	structEnc = append(structEnc, common.BigToHash(nonce).Bytes()...)
	structEnc = append(structEnc, common.BigToHash(deadline).Bytes()...)
	structHash := crypto.Keccak256Hash(structEnc)

	digest := crypto.Keccak256Hash(
		[]byte{0x19, 0x01},
		p.domainSeparator.Bytes(),
		structHash.Bytes(),
	)

	if v != 27 && v != 28 {
		return ErrInvalidSignature
	}
	sig := make([]byte, 65)
	copy(sig[0:32], r.Bytes())
	copy(sig[32:64], s.Bytes())
	sig[64] = v - 27

	pub, err := crypto.Ecrecover(digest.Bytes(), sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	recovered := common.BytesToAddress(crypto.Keccak256(pub[1:])[12:])
	if recovered == (common.Address{}) || recovered != owner {
		return ErrInvalidSignature
	}

	if err := p.setBig(db, p.nonceSlot(owner), new(big.Int).Add(nonce, big.NewInt(1))); err != nil {
		return err
	}
	return p.Approve(db, owner, spender, value)
}
