// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package uq112x112 handles binary fixed-point numbers with 112 integer and
// 112 fractional bits, stored in the low 224 bits of a 256-bit word. The pair
// uses it to accumulate time-weighted reserve ratios.
package uq112x112

import "github.com/holiman/uint256"

// Resolution is the number of fractional bits.
const Resolution = 112

// Q112 is 2^112, the fixed-point scale factor.
var Q112 = new(uint256.Int).Lsh(uint256.NewInt(1), Resolution)

// Encode converts y, which must be below 2^112, into UQ112x112. The encoding
// is exact.
func Encode(y *uint256.Int) *uint256.Int {
	return new(uint256.Int).Lsh(y, Resolution)
}

// Div divides a UQ112x112 by a plain integer, truncating toward zero. The
// divisor must be nonzero and below 2^112; every pair call site guarantees
// both.
func Div(x, y *uint256.Int) *uint256.Int {
	return new(uint256.Int).Div(x, y)
}
