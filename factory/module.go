// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package factory

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/amm/contract"
	"github.com/luxfi/amm/modules"
)

var _ contract.Configurator = (*configurator)(nil)
var _ contract.StatefulPrecompiledContract = (*FactoryContract)(nil)

// ConfigKey is the key used in json config files to specify this precompile
// config.
const ConfigKey = "ammFactoryConfig"

// ContractAddress is the factory precompile address in the DEX/Markets range.
var ContractAddress = common.HexToAddress("0x0000000000000000000000000000000000009100")

// Method selectors.
const (
	SelectorCreatePair     uint32 = 0x01000000 // createPair(address,address)
	SelectorSetFeeTo       uint32 = 0x02000000 // setFeeTo(address)
	SelectorSetFeeToSetter uint32 = 0x03000000 // setFeeToSetter(address)
	SelectorFeeTo          uint32 = 0x04000000 // feeTo()
	SelectorFeeToSetter    uint32 = 0x05000000 // feeToSetter()
	SelectorGetPair        uint32 = 0x06000000 // getPair(address,address)
	SelectorAllPairs       uint32 = 0x07000000 // allPairs(uint256)
	SelectorAllPairsLength uint32 = 0x08000000 // allPairsLength()
)

// Gas costs.
const (
	GasCreatePair uint64 = 50_000
	GasSetFee     uint64 = 5_000
	GasQuery      uint64 = 200
)

// FactoryPrecompile is the singleton instance registered at ContractAddress.
var FactoryPrecompile = &FactoryContract{
	factory: New(ContractAddress, big.NewInt(1), nil, nil),
}

// Module is the precompile module for the AMM factory.
var Module = modules.Module{
	ConfigKey:    ConfigKey,
	Address:      ContractAddress,
	Contract:     FactoryPrecompile,
	Configurator: &configurator{},
}

func init() {
	if err := modules.RegisterModule(Module); err != nil {
		panic(err)
	}
}

// Config configures the factory at activation.
type Config struct {
	Upgrade     contract.Upgrade `json:"upgrade,omitempty"`
	FeeToSetter common.Address   `json:"feeToSetter,omitempty"`
	FeeTo       common.Address   `json:"feeTo,omitempty"`
	ChainID     uint64           `json:"chainID,omitempty"`
}

func (c *Config) Key() string { return ConfigKey }

func (c *Config) Timestamp() *uint64 { return c.Upgrade.Timestamp() }

func (c *Config) IsDisabled() bool { return c.Upgrade.Disable }

func (c *Config) Equal(cfg contract.Config) bool {
	other, ok := cfg.(*Config)
	if !ok {
		return false
	}
	return c.Upgrade.Equal(&other.Upgrade) &&
		c.FeeToSetter == other.FeeToSetter &&
		c.FeeTo == other.FeeTo &&
		c.ChainID == other.ChainID
}

func (c *Config) Verify() error {
	if c.FeeToSetter == (common.Address{}) {
		return fmt.Errorf("%s requires a feeToSetter", ConfigKey)
	}
	return nil
}

type configurator struct{}

func (*configurator) MakeConfig() contract.Config {
	return new(Config)
}

func (*configurator) Configure(cfg contract.Config, state contract.StateDB) error {
	config, ok := cfg.(*Config)
	if !ok {
		return fmt.Errorf("expected config type %T, got %T", &Config{}, cfg)
	}
	if config.ChainID != 0 {
		FactoryPrecompile.factory.chainID = new(big.Int).SetUint64(config.ChainID)
	}
	FactoryPrecompile.factory.Initialize(state, config.FeeToSetter, config.FeeTo)
	return nil
}

// FactoryContract adapts the factory engine to the stateful-precompile
// calling convention.
type FactoryContract struct {
	factory *Factory
}

// Factory exposes the underlying engine, e.g. for wiring backends at boot.
func (c *FactoryContract) Factory() *Factory {
	return c.factory
}

// Run executes the precompile.
func (c *FactoryContract) Run(
	accessibleState contract.AccessibleState,
	caller common.Address,
	addr common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) (ret []byte, remainingGas uint64, err error) {
	if len(input) < 4 {
		return nil, suppliedGas, fmt.Errorf("input too short")
	}

	selector := binary.BigEndian.Uint32(input[:4])
	data := input[4:]
	db := accessibleState.GetStateDB()

	switch selector {
	case SelectorCreatePair:
		return c.runCreatePair(db, caller, data, suppliedGas, readOnly)
	case SelectorSetFeeTo:
		return c.runSetFee(db, caller, data, suppliedGas, readOnly, c.factory.SetFeeTo)
	case SelectorSetFeeToSetter:
		return c.runSetFee(db, caller, data, suppliedGas, readOnly, c.factory.SetFeeToSetter)
	case SelectorFeeTo:
		return c.runAddressQuery(suppliedGas, c.factory.FeeTo(db))
	case SelectorFeeToSetter:
		return c.runAddressQuery(suppliedGas, c.factory.FeeToSetter(db))
	case SelectorGetPair:
		a, b, err := unpackAddressPair(data)
		if err != nil {
			return nil, suppliedGas, err
		}
		return c.runAddressQuery(suppliedGas, c.factory.GetPair(db, a, b))
	case SelectorAllPairs:
		if len(data) < 32 {
			return nil, suppliedGas, fmt.Errorf("input too short")
		}
		index := new(big.Int).SetBytes(data[:32])
		return c.runAddressQuery(suppliedGas, c.factory.AllPairs(db, index.Uint64()))
	case SelectorAllPairsLength:
		if suppliedGas < GasQuery {
			return nil, 0, fmt.Errorf("out of gas")
		}
		length := new(big.Int).SetUint64(c.factory.AllPairsLength(db))
		return common.BigToHash(length).Bytes(), suppliedGas - GasQuery, nil
	default:
		return nil, suppliedGas, fmt.Errorf("unknown method selector: %x", selector)
	}
}

func (c *FactoryContract) runCreatePair(
	db contract.StateDB,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
	}
	if suppliedGas < GasCreatePair {
		return nil, 0, fmt.Errorf("out of gas")
	}

	tokenA, tokenB, err := unpackAddressPair(input)
	if err != nil {
		return nil, suppliedGas - GasCreatePair, err
	}
	p, err := c.factory.CreatePair(db, tokenA, tokenB)
	if err != nil {
		return nil, suppliedGas - GasCreatePair, err
	}
	return addressWord(p.Address()).Bytes(), suppliedGas - GasCreatePair, nil
}

func (c *FactoryContract) runSetFee(
	db contract.StateDB,
	caller common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
	set func(contract.StateDB, common.Address, common.Address) error,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, fmt.Errorf("cannot write in read-only mode")
	}
	if suppliedGas < GasSetFee {
		return nil, 0, fmt.Errorf("out of gas")
	}
	if len(input) < 32 {
		return nil, suppliedGas - GasSetFee, fmt.Errorf("input too short")
	}
	target := common.BytesToAddress(input[:32])
	if err := set(db, caller, target); err != nil {
		return nil, suppliedGas - GasSetFee, err
	}
	return nil, suppliedGas - GasSetFee, nil
}

func (c *FactoryContract) runAddressQuery(suppliedGas uint64, addr common.Address) ([]byte, uint64, error) {
	if suppliedGas < GasQuery {
		return nil, 0, fmt.Errorf("out of gas")
	}
	return addressWord(addr).Bytes(), suppliedGas - GasQuery, nil
}

// RequiredGas returns the gas charged for an input.
func (c *FactoryContract) RequiredGas(input []byte) uint64 {
	if len(input) < 4 {
		return 0
	}
	switch binary.BigEndian.Uint32(input[:4]) {
	case SelectorCreatePair:
		return GasCreatePair
	case SelectorSetFeeTo, SelectorSetFeeToSetter:
		return GasSetFee
	default:
		return GasQuery
	}
}

func unpackAddressPair(input []byte) (common.Address, common.Address, error) {
	if len(input) < 64 {
		return common.Address{}, common.Address{}, fmt.Errorf("input too short")
	}
	return common.BytesToAddress(input[:32]), common.BytesToAddress(input[32:64]), nil
}
