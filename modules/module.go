// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package modules

import (
	"bytes"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/amm/contract"
)

// Module wraps a stateful precompile with its registration metadata.
type Module struct {
	// ConfigKey is the key used in json config files to specify this
	// precompile config.
	ConfigKey string
	// Address is the address where the stateful precompile is accessible.
	Address common.Address
	// Contract is a thread-safe singleton used when this config is enabled.
	Contract contract.StatefulPrecompiledContract
	// Configurator is used to configure the stateful precompile when the
	// config is enabled.
	Configurator contract.Configurator
}

type moduleArray []Module

func (m moduleArray) Len() int      { return len(m) }
func (m moduleArray) Swap(i, j int) { m[i], m[j] = m[j], m[i] }
func (m moduleArray) Less(i, j int) bool {
	return bytes.Compare(m[i].Address.Bytes(), m[j].Address.Bytes()) < 0
}
