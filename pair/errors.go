// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pair

import "errors"

var (
	// ErrLocked is returned on a reentrant call into a guarded pair method.
	ErrLocked = errors.New("locked")

	// ErrOverflow is returned when a pool balance would exceed 112 bits, or
	// when share arithmetic would exceed 256 bits.
	ErrOverflow = errors.New("overflow")

	// ErrUnderflow is returned when share or balance arithmetic would go
	// negative. It is a fault, never a silent wrap.
	ErrUnderflow = errors.New("underflow")

	ErrInsufficientLiquidityMinted = errors.New("insufficient liquidity minted")
	ErrInsufficientLiquidityBurned = errors.New("insufficient liquidity burned")
	ErrInsufficientOutputAmount    = errors.New("insufficient output amount")
	ErrInsufficientInputAmount     = errors.New("insufficient input amount")
	ErrInsufficientLiquidity       = errors.New("insufficient liquidity")

	// ErrInvalidTo rejects swap recipients that equal either pool asset.
	ErrInvalidTo = errors.New("invalid to")

	// ErrK is returned when the post-swap constant-product check fails.
	ErrK = errors.New("k")

	// ErrTransferFailed wraps any asset transfer that reverted or returned
	// false.
	ErrTransferFailed = errors.New("transfer failed")

	// ErrNoSwapCallee is returned when swap data is non-empty but the
	// recipient exposes no swap callback.
	ErrNoSwapCallee = errors.New("recipient has no swap callee")

	// ErrUnknownToken is returned when no backend is registered for one of
	// the pool assets.
	ErrUnknownToken = errors.New("unknown token")

	// Permit errors.
	ErrExpired          = errors.New("expired")
	ErrInvalidSignature = errors.New("invalid signature")
)
