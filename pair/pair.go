// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pair implements the constant-product liquidity pool. Each pair
// holds reserves of two external assets, prices swaps by enforcing the
// product invariant with a 0.30% input-side fee, accumulates time-weighted
// prices in UQ112x112, and issues a fungible liquidity share with an EIP-712
// signed-approval path.
//
// Inputs are never trusted from the caller: every operation derives amounts
// from balance deltas against the last recorded reserves, which is what makes
// the flash-swap callback safe.
package pair

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"

	"github.com/luxfi/amm/contract"
	"github.com/luxfi/amm/uq112x112"
)

// MinimumLiquidity is permanently locked at the zero address by the first
// mint, keeping the share supply strictly positive forever after.
const MinimumLiquidity = 1000

// FeeSource reports the protocol-fee recipient; the zero address disables
// protocol fees. The factory implements this.
type FeeSource interface {
	FeeTo(db contract.StateDB) common.Address
}

// Pair is one constant-product pool over a canonical asset pair
// (token0 < token1). All mutable state lives in the host StateDB under the
// pair's address; the struct itself carries only immutable identity and the
// reentrancy latch.
type Pair struct {
	mu     sync.Mutex
	locked bool

	factory common.Address
	address common.Address
	token0  common.Address
	token1  common.Address

	chainID         *big.Int
	domainSeparator common.Hash

	backends contract.Backends
	fees     FeeSource
	log      log.Logger
}

// New binds a pair to its factory, address and canonical token ordering.
// The factory guarantees token0 < token1.
func New(
	factory, address, token0, token1 common.Address,
	chainID *big.Int,
	backends contract.Backends,
	fees FeeSource,
	logger log.Logger,
) *Pair {
	if logger == nil {
		logger = log.NewNoOpLogger()
	}
	return &Pair{
		factory:         factory,
		address:         address,
		token0:          token0,
		token1:          token1,
		chainID:         new(big.Int).Set(chainID),
		domainSeparator: computeDomainSeparator(chainID, address),
		backends:        backends,
		fees:            fees,
		log:             logger,
	}
}

// Address returns the pair's own address.
func (p *Pair) Address() common.Address { return p.address }

// Factory returns the creating factory's address.
func (p *Pair) Factory() common.Address { return p.factory }

// Token0 returns the lower-addressed asset.
func (p *Pair) Token0() common.Address { return p.token0 }

// Token1 returns the higher-addressed asset.
func (p *Pair) Token1() common.Address { return p.token1 }

// GetReserves returns both reserves and the timestamp of the last reserve
// update, read atomically from the packed reserve word.
func (p *Pair) GetReserves(db contract.StateDB) (reserve0, reserve1 *big.Int, blockTimestampLast uint32) {
	r0, r1, ts := p.getReserves(db)
	return r0.ToBig(), r1.ToBig(), ts
}

// Price0CumulativeLast returns the wrapping integral of token1/token0.
func (p *Pair) Price0CumulativeLast(db contract.StateDB) *big.Int {
	return p.getBig(db, slotPrice0Cumulative)
}

// Price1CumulativeLast returns the wrapping integral of token0/token1.
func (p *Pair) Price1CumulativeLast(db contract.StateDB) *big.Int {
	return p.getBig(db, slotPrice1Cumulative)
}

// KLast returns reserve0*reserve1 as of the last liquidity event with
// protocol fees on, zero otherwise.
func (p *Pair) KLast(db contract.StateDB) *big.Int {
	return p.getBig(db, slotKLast)
}

// enter acquires the pair's critical section; a reentrant call fails LOCKED.
func (p *Pair) enter() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.locked {
		return ErrLocked
	}
	p.locked = true
	return nil
}

func (p *Pair) exit() {
	p.mu.Lock()
	p.locked = false
	p.mu.Unlock()
}

// guarded runs body inside the critical section and reverts all state
// mutations, events included, on failure.
func (p *Pair) guarded(db contract.StateDB, body func() error) error {
	if err := p.enter(); err != nil {
		return err
	}
	defer p.exit()
	snap := db.Snapshot()
	if err := body(); err != nil {
		db.RevertToSnapshot(snap)
		return err
	}
	return nil
}

func (p *Pair) token(token common.Address) (contract.ERC20, error) {
	backend := p.backends.Token(token)
	if backend == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, token.Hex())
	}
	return backend, nil
}

func (p *Pair) tokenBalance(db contract.StateDB, token common.Address) (*big.Int, error) {
	backend, err := p.token(token)
	if err != nil {
		return nil, err
	}
	return backend.BalanceOf(db, p.address), nil
}

// safeTransfer moves pool-held assets out, mapping both reverts and explicit
// false returns to TRANSFER_FAILED.
func (p *Pair) safeTransfer(db contract.StateDB, token, to common.Address, amount *big.Int) error {
	backend, err := p.token(token)
	if err != nil {
		return err
	}
	if err := backend.Transfer(db, p.address, to, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return nil
}

// update records balances as the new reserves and advances the cumulative
// price integrals. Runs at the end of every economic operation; only the
// kLast refresh in mint and burn comes after it.
func (p *Pair) update(db contract.StateDB, balance0, balance1 *big.Int, r0, r1 *uint256.Int) error {
	if balance0.Cmp(maxUint112) > 0 || balance1.Cmp(maxUint112) > 0 {
		return ErrOverflow
	}

	_, _, tsLast := p.getReserves(db)
	now := uint32(db.GetTimestamp())
	elapsed := now - tsLast // deliberate u32 wraparound

	if elapsed > 0 && !r0.IsZero() && !r1.IsZero() {
		// The accumulators wrap at 2^256; consumers difference two samples.
		dt := uint256.NewInt(uint64(elapsed))

		cum0 := p.getWord(db, slotPrice0Cumulative)
		cum0.Add(cum0, new(uint256.Int).Mul(uq112x112.Div(uq112x112.Encode(r1), r0), dt))
		p.setWord(db, slotPrice0Cumulative, cum0)

		cum1 := p.getWord(db, slotPrice1Cumulative)
		cum1.Add(cum1, new(uint256.Int).Mul(uq112x112.Div(uq112x112.Encode(r0), r1), dt))
		p.setWord(db, slotPrice1Cumulative, cum1)
	}

	nb0, _ := uint256.FromBig(balance0)
	nb1, _ := uint256.FromBig(balance1)
	p.setReserves(db, nb0, nb1, now)
	p.emitSync(db, nb0, nb1)
	return nil
}

// mintFee materializes the protocol's share of fee growth: 1/6 of the growth
// in sqrt(k) since the last liquidity event, minted to the factory's feeTo.
// With fees off any stale kLast is cleared, forfeiting unmaterialized accrual.
func (p *Pair) mintFee(db contract.StateDB, r0, r1 *uint256.Int) (bool, error) {
	feeTo := p.fees.FeeTo(db)
	feeOn := feeTo != (common.Address{})
	kLast := p.KLast(db)

	if feeOn {
		if kLast.Sign() != 0 {
			rootK := isqrt(new(big.Int).Mul(r0.ToBig(), r1.ToBig()))
			rootKLast := isqrt(kLast)
			if rootK.Cmp(rootKLast) > 0 {
				numerator := new(big.Int).Mul(p.TotalSupply(db), new(big.Int).Sub(rootK, rootKLast))
				denominator := new(big.Int).Add(new(big.Int).Mul(rootK, big.NewInt(5)), rootKLast)
				liquidity := new(big.Int).Div(numerator, denominator)
				if liquidity.Sign() > 0 {
					if err := p.mintShares(db, feeTo, liquidity); err != nil {
						return feeOn, err
					}
				}
			}
		}
	} else if kLast.Sign() != 0 {
		p.setWord(db, slotKLast, new(uint256.Int))
	}
	return feeOn, nil
}

// setKLastFromReserves records k after a liquidity event while fees are on.
func (p *Pair) setKLastFromReserves(db contract.StateDB) error {
	r0, r1, _ := p.getReserves(db)
	return p.setBig(db, slotKLast, new(big.Int).Mul(r0.ToBig(), r1.ToBig()))
}

// Mint issues liquidity shares for assets the caller has already transferred
// to the pair. The first mint locks MinimumLiquidity shares at the zero
// address forever.
func (p *Pair) Mint(db contract.StateDB, caller, to common.Address) (*big.Int, error) {
	var liquidity *big.Int
	err := p.guarded(db, func() error {
		var err error
		liquidity, err = p.mint(db, caller, to)
		return err
	})
	if err != nil {
		return nil, err
	}
	return liquidity, nil
}

func (p *Pair) mint(db contract.StateDB, caller, to common.Address) (*big.Int, error) {
	r0, r1, _ := p.getReserves(db)
	balance0, err := p.tokenBalance(db, p.token0)
	if err != nil {
		return nil, err
	}
	balance1, err := p.tokenBalance(db, p.token1)
	if err != nil {
		return nil, err
	}
	amount0 := new(big.Int).Sub(balance0, r0.ToBig())
	amount1 := new(big.Int).Sub(balance1, r1.ToBig())
	if amount0.Sign() < 0 || amount1.Sign() < 0 {
		return nil, ErrUnderflow
	}

	feeOn, err := p.mintFee(db, r0, r1)
	if err != nil {
		return nil, err
	}

	var liquidity *big.Int
	totalSupply := p.TotalSupply(db) // must be read after mintFee
	if totalSupply.Sign() == 0 {
		liquidity = new(big.Int).Sub(isqrt(new(big.Int).Mul(amount0, amount1)), big.NewInt(MinimumLiquidity))
		if liquidity.Sign() < 0 {
			return nil, ErrUnderflow
		}
		if err := p.mintShares(db, common.Address{}, big.NewInt(MinimumLiquidity)); err != nil {
			return nil, err
		}
	} else {
		if r0.IsZero() || r1.IsZero() {
			return nil, ErrInsufficientLiquidity
		}
		liquidity = minBig(
			new(big.Int).Div(new(big.Int).Mul(amount0, totalSupply), r0.ToBig()),
			new(big.Int).Div(new(big.Int).Mul(amount1, totalSupply), r1.ToBig()),
		)
	}
	if liquidity.Sign() == 0 {
		return nil, ErrInsufficientLiquidityMinted
	}
	if err := p.mintShares(db, to, liquidity); err != nil {
		return nil, err
	}

	if err := p.update(db, balance0, balance1, r0, r1); err != nil {
		return nil, err
	}
	if feeOn {
		if err := p.setKLastFromReserves(db); err != nil {
			return nil, err
		}
	}
	p.emitMint(db, caller, amount0, amount1)
	p.log.Debug("minted liquidity", "pair", p.address, "to", to, "liquidity", liquidity)
	return liquidity, nil
}

// Burn redeems the shares the caller has transferred to the pair's own
// address, paying out a pro-rata cut of both balances. Truncation dust stays
// in the pool.
func (p *Pair) Burn(db contract.StateDB, caller, to common.Address) (*big.Int, *big.Int, error) {
	var amount0, amount1 *big.Int
	err := p.guarded(db, func() error {
		var err error
		amount0, amount1, err = p.burn(db, caller, to)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}

func (p *Pair) burn(db contract.StateDB, caller, to common.Address) (*big.Int, *big.Int, error) {
	r0, r1, _ := p.getReserves(db)
	balance0, err := p.tokenBalance(db, p.token0)
	if err != nil {
		return nil, nil, err
	}
	balance1, err := p.tokenBalance(db, p.token1)
	if err != nil {
		return nil, nil, err
	}
	liquidity := p.BalanceOf(db, p.address)

	feeOn, err := p.mintFee(db, r0, r1)
	if err != nil {
		return nil, nil, err
	}

	totalSupply := p.TotalSupply(db) // must be read after mintFee
	if totalSupply.Sign() == 0 {
		return nil, nil, ErrInsufficientLiquidityBurned
	}
	amount0 := new(big.Int).Div(new(big.Int).Mul(liquidity, balance0), totalSupply)
	amount1 := new(big.Int).Div(new(big.Int).Mul(liquidity, balance1), totalSupply)
	if amount0.Sign() == 0 || amount1.Sign() == 0 {
		return nil, nil, ErrInsufficientLiquidityBurned
	}

	if err := p.burnShares(db, p.address, liquidity); err != nil {
		return nil, nil, err
	}
	if err := p.safeTransfer(db, p.token0, to, amount0); err != nil {
		return nil, nil, err
	}
	if err := p.safeTransfer(db, p.token1, to, amount1); err != nil {
		return nil, nil, err
	}
	balance0, err = p.tokenBalance(db, p.token0)
	if err != nil {
		return nil, nil, err
	}
	balance1, err = p.tokenBalance(db, p.token1)
	if err != nil {
		return nil, nil, err
	}

	if err := p.update(db, balance0, balance1, r0, r1); err != nil {
		return nil, nil, err
	}
	if feeOn {
		if err := p.setKLastFromReserves(db); err != nil {
			return nil, nil, err
		}
	}
	p.emitBurn(db, caller, amount0, amount1, to)
	p.log.Debug("burned liquidity", "pair", p.address, "to", to, "amount0", amount0, "amount1", amount1)
	return amount0, amount1, nil
}

// Swap transfers the requested outputs optimistically, runs the recipient's
// flash callback when data is non-empty, derives the inputs actually
// delivered from balance deltas, and enforces the fee-adjusted product
// invariant. Any failure rolls the whole operation back.
func (p *Pair) Swap(
	db contract.StateDB,
	caller common.Address,
	amount0Out, amount1Out *big.Int,
	to common.Address,
	data []byte,
) error {
	return p.guarded(db, func() error {
		return p.swap(db, caller, amount0Out, amount1Out, to, data)
	})
}

func (p *Pair) swap(
	db contract.StateDB,
	caller common.Address,
	amount0Out, amount1Out *big.Int,
	to common.Address,
	data []byte,
) error {
	if amount0Out == nil {
		amount0Out = new(big.Int)
	}
	if amount1Out == nil {
		amount1Out = new(big.Int)
	}
	if amount0Out.Sign() < 0 || amount1Out.Sign() < 0 {
		return ErrUnderflow
	}
	if amount0Out.Sign() == 0 && amount1Out.Sign() == 0 {
		return ErrInsufficientOutputAmount
	}

	r0, r1, _ := p.getReserves(db)
	if amount0Out.Cmp(r0.ToBig()) >= 0 || amount1Out.Cmp(r1.ToBig()) >= 0 {
		return ErrInsufficientLiquidity
	}
	if to == p.token0 || to == p.token1 {
		return ErrInvalidTo
	}

	if amount0Out.Sign() > 0 {
		if err := p.safeTransfer(db, p.token0, to, amount0Out); err != nil {
			return err
		}
	}
	if amount1Out.Sign() > 0 {
		if err := p.safeTransfer(db, p.token1, to, amount1Out); err != nil {
			return err
		}
	}
	if len(data) > 0 {
		callee := p.backends.SwapCallee(to)
		if callee == nil {
			return fmt.Errorf("%w: %s", ErrNoSwapCallee, to.Hex())
		}
		if err := callee.OnSwap(db, caller, amount0Out, amount1Out, data); err != nil {
			return err
		}
	}

	balance0, err := p.tokenBalance(db, p.token0)
	if err != nil {
		return err
	}
	balance1, err := p.tokenBalance(db, p.token1)
	if err != nil {
		return err
	}

	amount0In := inputDelta(balance0, r0.ToBig(), amount0Out)
	amount1In := inputDelta(balance1, r1.ToBig(), amount1Out)
	if amount0In.Sign() == 0 && amount1In.Sign() == 0 {
		return ErrInsufficientInputAmount
	}

	// After removing 0.3% of each input, the product of adjusted balances may
	// not fall below the pre-trade product.
	adjusted0 := new(big.Int).Sub(new(big.Int).Mul(balance0, big.NewInt(1000)), new(big.Int).Mul(amount0In, big.NewInt(3)))
	adjusted1 := new(big.Int).Sub(new(big.Int).Mul(balance1, big.NewInt(1000)), new(big.Int).Mul(amount1In, big.NewInt(3)))
	k := new(big.Int).Mul(new(big.Int).Mul(r0.ToBig(), r1.ToBig()), big.NewInt(1_000_000))
	if new(big.Int).Mul(adjusted0, adjusted1).Cmp(k) < 0 {
		return ErrK
	}

	if err := p.update(db, balance0, balance1, r0, r1); err != nil {
		return err
	}
	p.emitSwap(db, caller, amount0In, amount1In, amount0Out, amount1Out, to)
	p.log.Debug("swap", "pair", p.address, "in0", amount0In, "in1", amount1In, "out0", amount0Out, "out1", amount1Out)
	return nil
}

// inputDelta computes balance - (reserve - out), clamped at zero. Inputs are
// always derived this way rather than taken from the caller.
func inputDelta(balance, reserve, out *big.Int) *big.Int {
	prior := new(big.Int).Sub(reserve, out)
	if balance.Cmp(prior) > 0 {
		return new(big.Int).Sub(balance, prior)
	}
	return new(big.Int)
}

// Skim transfers any balance above the recorded reserves to to, leaving the
// reserves untouched.
func (p *Pair) Skim(db contract.StateDB, caller, to common.Address) error {
	return p.guarded(db, func() error {
		r0, r1, _ := p.getReserves(db)
		balance0, err := p.tokenBalance(db, p.token0)
		if err != nil {
			return err
		}
		balance1, err := p.tokenBalance(db, p.token1)
		if err != nil {
			return err
		}
		excess0 := new(big.Int).Sub(balance0, r0.ToBig())
		excess1 := new(big.Int).Sub(balance1, r1.ToBig())
		if excess0.Sign() < 0 || excess1.Sign() < 0 {
			return ErrUnderflow
		}
		if err := p.safeTransfer(db, p.token0, to, excess0); err != nil {
			return err
		}
		return p.safeTransfer(db, p.token1, to, excess1)
	})
}

// Sync forces the reserves to match the current balances, refreshing the
// cumulative prices without a trade.
func (p *Pair) Sync(db contract.StateDB) error {
	return p.guarded(db, func() error {
		r0, r1, _ := p.getReserves(db)
		balance0, err := p.tokenBalance(db, p.token0)
		if err != nil {
			return err
		}
		balance1, err := p.tokenBalance(db, p.token1)
		if err != nil {
			return err
		}
		return p.update(db, balance0, balance1, r0, r1)
	})
}
