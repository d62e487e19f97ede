// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package registry activates the AMM precompile family by importing each
// module for its registration side effect.
//
// ============================================================================
// PRECOMPILE ADDRESS SCHEME - Aligned with LP Numbering
// ============================================================================
//
// The family lives in the DEX/Markets page (LP-9xxx):
//
//	Format: 0x0000000000000000000000000000000000009III
//
//	0x...9100 — AMM factory (pair registry, protocol-fee administration)
//
// Pair instances are not modules: each pair lives at an address derived from
// (factory, canonical token pair) and is reached through the factory.
package registry

import (
	// Force the factory module to register itself.
	_ "github.com/luxfi/amm/factory"
)
