// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pair

import "math/big"

// isqrt returns floor(sqrt(x)). big.Int's Newton iteration is monotone,
// which the protocol-fee math relies on.
func isqrt(x *big.Int) *big.Int {
	return new(big.Int).Sqrt(x)
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}
