// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pair

import (
	"math/big"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/amm/contract"
	"github.com/luxfi/amm/contracttest"
)

var (
	testFactoryAddr = common.HexToAddress("0x0000000000000000000000000000000000009100")
	testPairAddr    = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	testToken0Addr  = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testToken1Addr  = common.HexToAddress("0x2000000000000000000000000000000000000002")
	testWallet      = common.HexToAddress("0x3333333333333333333333333333333333333333")
	testOther       = common.HexToAddress("0x4444444444444444444444444444444444444444")
	testFeeHolder   = common.HexToAddress("0x5555555555555555555555555555555555555555")
)

const testStartTime = 1_700_000_000

// expandTo18 scales n by 10^18.
func expandTo18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func bigFromString(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad literal: " + s)
	}
	return n
}

type testFeeSource struct {
	addr common.Address
}

func (s *testFeeSource) FeeTo(db contract.StateDB) common.Address { return s.addr }

type fixture struct {
	db       *contracttest.MockStateDB
	backends *contracttest.MockBackends
	token0   *contracttest.MockERC20
	token1   *contracttest.MockERC20
	fees     *testFeeSource
	pair     *Pair
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := contracttest.NewMockStateDB()
	db.SetTimestamp(testStartTime)
	backends := contracttest.NewMockBackends()
	token0 := backends.AddToken(contracttest.NewMockERC20(testToken0Addr))
	token1 := backends.AddToken(contracttest.NewMockERC20(testToken1Addr))
	fees := &testFeeSource{}
	p := New(testFactoryAddr, testPairAddr, testToken0Addr, testToken1Addr,
		big.NewInt(1), backends, fees, nil)
	return &fixture{db: db, backends: backends, token0: token0, token1: token1, fees: fees, pair: p}
}

// addLiquidity transfers both assets in and mints to testWallet.
func (f *fixture) addLiquidity(t *testing.T, amount0, amount1 *big.Int) *big.Int {
	t.Helper()
	f.token0.Mint(f.db, testPairAddr, amount0)
	f.token1.Mint(f.db, testPairAddr, amount1)
	liquidity, err := f.pair.Mint(f.db, testWallet, testWallet)
	require.NoError(t, err)
	return liquidity
}

func TestMintFirstDeposit(t *testing.T) {
	f := newFixture(t)

	liquidity := f.addLiquidity(t, expandTo18(1), expandTo18(4))

	// sqrt(1e18 * 4e18) = 2e18, minus the locked minimum.
	expected := new(big.Int).Sub(expandTo18(2), big.NewInt(MinimumLiquidity))
	require.Equal(t, expected, liquidity)
	require.Equal(t, expandTo18(2), f.pair.TotalSupply(f.db))
	require.Equal(t, expected, f.pair.BalanceOf(f.db, testWallet))
	require.Equal(t, big.NewInt(MinimumLiquidity), f.pair.BalanceOf(f.db, common.Address{}))

	r0, r1, ts := f.pair.GetReserves(f.db)
	require.Equal(t, expandTo18(1), r0)
	require.Equal(t, expandTo18(4), r1)
	require.Equal(t, uint32(testStartTime), ts)

	logs := f.db.Logs()
	require.Len(t, logs, 4)
	// Transfer(0 -> 0, 1000)
	require.Equal(t, TransferTopic, logs[0].Topics[0])
	require.Equal(t, common.Hash{}, logs[0].Topics[1])
	require.Equal(t, common.Hash{}, logs[0].Topics[2])
	require.Equal(t, big.NewInt(MinimumLiquidity), new(big.Int).SetBytes(logs[0].Data))
	// Transfer(0 -> wallet, 2e18-1000)
	require.Equal(t, TransferTopic, logs[1].Topics[0])
	require.Equal(t, addressTopic(testWallet), logs[1].Topics[2])
	require.Equal(t, expected, new(big.Int).SetBytes(logs[1].Data))
	// Sync(1e18, 4e18)
	require.Equal(t, SyncTopic, logs[2].Topics[0])
	require.Equal(t, expandTo18(1), new(big.Int).SetBytes(logs[2].Data[:32]))
	require.Equal(t, expandTo18(4), new(big.Int).SetBytes(logs[2].Data[32:]))
	// Mint(wallet, 1e18, 4e18)
	require.Equal(t, MintTopic, logs[3].Topics[0])
	require.Equal(t, addressTopic(testWallet), logs[3].Topics[1])
	require.Equal(t, expandTo18(1), new(big.Int).SetBytes(logs[3].Data[:32]))
	require.Equal(t, expandTo18(4), new(big.Int).SetBytes(logs[3].Data[32:]))
}

func TestMintProportional(t *testing.T) {
	f := newFixture(t)
	f.addLiquidity(t, expandTo18(1), expandTo18(4))

	// A balanced second deposit mints pro rata.
	f.token0.Mint(f.db, testPairAddr, expandTo18(1))
	f.token1.Mint(f.db, testPairAddr, expandTo18(4))
	liquidity, err := f.pair.Mint(f.db, testWallet, testWallet)
	require.NoError(t, err)
	require.Equal(t, expandTo18(2), liquidity)
}

func TestMintUnbalancedPunished(t *testing.T) {
	f := newFixture(t)
	f.addLiquidity(t, expandTo18(1), expandTo18(1))

	// Depositing only token0 mints by the lesser ratio: zero.
	f.token0.Mint(f.db, testPairAddr, expandTo18(1))
	_, err := f.pair.Mint(f.db, testWallet, testWallet)
	require.ErrorIs(t, err, ErrInsufficientLiquidityMinted)
}

func TestMintZeroDeposit(t *testing.T) {
	f := newFixture(t)
	f.addLiquidity(t, expandTo18(1), expandTo18(1))

	_, err := f.pair.Mint(f.db, testWallet, testWallet)
	require.ErrorIs(t, err, ErrInsufficientLiquidityMinted)
}

func TestSwapToken0In(t *testing.T) {
	f := newFixture(t)
	f.addLiquidity(t, expandTo18(5), expandTo18(10))

	expectedOut := bigFromString("1662497915624478906")

	// One wei above the fee-adjusted quote violates k.
	f.token0.Mint(f.db, testPairAddr, expandTo18(1))
	tooMuch := new(big.Int).Add(expectedOut, big.NewInt(1))
	err := f.pair.Swap(f.db, testWallet, nil, tooMuch, testWallet, nil)
	require.ErrorIs(t, err, ErrK)

	// The exact quote clears.
	require.NoError(t, f.pair.Swap(f.db, testWallet, nil, expectedOut, testWallet, nil))

	r0, r1, _ := f.pair.GetReserves(f.db)
	require.Equal(t, expandTo18(6), r0)
	require.Equal(t, new(big.Int).Sub(expandTo18(10), expectedOut), r1)
	require.Equal(t, expectedOut, f.token1.BalanceOf(f.db, testWallet))

	logs := f.db.Logs()
	swapLog := logs[len(logs)-1]
	require.Equal(t, SwapTopic, swapLog.Topics[0])
	require.Equal(t, addressTopic(testWallet), swapLog.Topics[1])
	require.Equal(t, addressTopic(testWallet), swapLog.Topics[2])
	require.Equal(t, expandTo18(1), new(big.Int).SetBytes(swapLog.Data[0:32]))
	require.Equal(t, big.NewInt(0).String(), new(big.Int).SetBytes(swapLog.Data[32:64]).String())
	require.Equal(t, big.NewInt(0).String(), new(big.Int).SetBytes(swapLog.Data[64:96]).String())
	require.Equal(t, expectedOut, new(big.Int).SetBytes(swapLog.Data[96:128]))
}

func TestSwapToken1In(t *testing.T) {
	f := newFixture(t)
	f.addLiquidity(t, expandTo18(5), expandTo18(10))

	expectedOut := bigFromString("453305446940074565")

	f.token1.Mint(f.db, testPairAddr, expandTo18(1))
	tooMuch := new(big.Int).Add(expectedOut, big.NewInt(1))
	err := f.pair.Swap(f.db, testWallet, tooMuch, nil, testWallet, nil)
	require.ErrorIs(t, err, ErrK)

	require.NoError(t, f.pair.Swap(f.db, testWallet, expectedOut, nil, testWallet, nil))

	r0, r1, _ := f.pair.GetReserves(f.db)
	require.Equal(t, new(big.Int).Sub(expandTo18(5), expectedOut), r0)
	require.Equal(t, expandTo18(11), r1)
}

func TestSwapErrors(t *testing.T) {
	f := newFixture(t)
	f.addLiquidity(t, expandTo18(5), expandTo18(10))

	// Both outputs zero.
	err := f.pair.Swap(f.db, testWallet, nil, nil, testWallet, nil)
	require.ErrorIs(t, err, ErrInsufficientOutputAmount)

	// Output equal to the whole reserve.
	err = f.pair.Swap(f.db, testWallet, expandTo18(5), nil, testWallet, nil)
	require.ErrorIs(t, err, ErrInsufficientLiquidity)

	// Recipient equal to an asset handle.
	err = f.pair.Swap(f.db, testWallet, big.NewInt(1), nil, testToken0Addr, nil)
	require.ErrorIs(t, err, ErrInvalidTo)
	err = f.pair.Swap(f.db, testWallet, big.NewInt(1), nil, testToken1Addr, nil)
	require.ErrorIs(t, err, ErrInvalidTo)

	// No input delivered.
	err = f.pair.Swap(f.db, testWallet, big.NewInt(1), nil, testWallet, nil)
	require.ErrorIs(t, err, ErrInsufficientInputAmount)
}

func TestSwapFailureLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	f.addLiquidity(t, expandTo18(5), expandTo18(10))
	logCount := len(f.db.Logs())
	r0Before, r1Before, _ := f.pair.GetReserves(f.db)

	err := f.pair.Swap(f.db, testWallet, big.NewInt(1), nil, testWallet, nil)
	require.ErrorIs(t, err, ErrInsufficientInputAmount)

	// The optimistic transfer is rolled back along with everything else.
	r0, r1, _ := f.pair.GetReserves(f.db)
	require.Equal(t, r0Before, r0)
	require.Equal(t, r1Before, r1)
	require.Equal(t, big.NewInt(0).String(), f.token0.BalanceOf(f.db, testWallet).String())
	require.Len(t, f.db.Logs(), logCount)
}

func TestSwapTransferFailed(t *testing.T) {
	f := newFixture(t)
	f.addLiquidity(t, expandTo18(5), expandTo18(10))

	f.token1.FailTransfers = true
	f.token0.Mint(f.db, testPairAddr, expandTo18(1))
	err := f.pair.Swap(f.db, testWallet, nil, big.NewInt(1000), testWallet, nil)
	require.ErrorIs(t, err, ErrTransferFailed)
}

func TestFlashSwapRepaid(t *testing.T) {
	f := newFixture(t)
	f.addLiquidity(t, expandTo18(5), expandTo18(10))

	borrow := expandTo18(1)
	borrower := common.HexToAddress("0x6666666666666666666666666666666666666666")
	// Repay the borrowed token0 plus enough to cover the 0.3% input fee.
	repay := new(big.Int).Add(new(big.Int).Div(new(big.Int).Mul(borrow, big.NewInt(1000)), big.NewInt(997)), big.NewInt(1))
	f.token0.Mint(f.db, borrower, repay)

	var sawCallback bool
	f.backends.AddCallee(borrower, contracttest.CalleeFunc(
		func(db contract.StateDB, sender common.Address, amount0, amount1 *big.Int, data []byte) error {
			sawCallback = true
			require.Equal(t, testWallet, sender)
			require.Equal(t, borrow, amount0)
			require.Equal(t, []byte{0x01}, data)
			return f.token0.Transfer(db, borrower, testPairAddr, repay)
		}))

	require.NoError(t, f.pair.Swap(f.db, testWallet, borrow, nil, borrower, []byte{0x01}))
	require.True(t, sawCallback)

	// The borrower walks away with the loan, the pool with the fee.
	require.Equal(t, borrow, f.token0.BalanceOf(f.db, borrower))
	r0, _, _ := f.pair.GetReserves(f.db)
	require.True(t, r0.Cmp(expandTo18(5)) > 0)
}

func TestFlashSwapUnpaid(t *testing.T) {
	f := newFixture(t)
	f.addLiquidity(t, expandTo18(5), expandTo18(10))

	borrower := common.HexToAddress("0x6666666666666666666666666666666666666666")
	f.backends.AddCallee(borrower, contracttest.CalleeFunc(
		func(db contract.StateDB, sender common.Address, amount0, amount1 *big.Int, data []byte) error {
			return nil // keeps the loan
		}))

	err := f.pair.Swap(f.db, testWallet, expandTo18(1), nil, borrower, []byte{0x01})
	require.ErrorIs(t, err, ErrInsufficientInputAmount)

	// Rolled back: the would-be borrower holds nothing.
	require.Equal(t, big.NewInt(0).String(), f.token0.BalanceOf(f.db, borrower).String())
}

func TestFlashSwapNoCallee(t *testing.T) {
	f := newFixture(t)
	f.addLiquidity(t, expandTo18(5), expandTo18(10))

	err := f.pair.Swap(f.db, testWallet, expandTo18(1), nil, testOther, []byte{0x01})
	require.ErrorIs(t, err, ErrNoSwapCallee)
}

func TestReentrancyLocked(t *testing.T) {
	f := newFixture(t)
	f.addLiquidity(t, expandTo18(5), expandTo18(10))

	attacker := common.HexToAddress("0x6666666666666666666666666666666666666666")
	reenter := map[string]func(db contract.StateDB) error{
		"swap": func(db contract.StateDB) error {
			return f.pair.Swap(db, attacker, big.NewInt(1), nil, testOther, nil)
		},
		"mint": func(db contract.StateDB) error {
			_, err := f.pair.Mint(db, attacker, attacker)
			return err
		},
		"burn": func(db contract.StateDB) error {
			_, _, err := f.pair.Burn(db, attacker, attacker)
			return err
		},
		"skim": func(db contract.StateDB) error {
			return f.pair.Skim(db, attacker, attacker)
		},
		"sync": func(db contract.StateDB) error {
			return f.pair.Sync(db)
		},
	}

	for name, attack := range reenter {
		t.Run(name, func(t *testing.T) {
			attack := attack
			f.backends.AddCallee(attacker, contracttest.CalleeFunc(
				func(db contract.StateDB, sender common.Address, amount0, amount1 *big.Int, data []byte) error {
					return attack(db)
				}))
			err := f.pair.Swap(f.db, testWallet, big.NewInt(1), nil, attacker, []byte{0x01})
			require.ErrorIs(t, err, ErrLocked)
		})
	}
}

func TestBurn(t *testing.T) {
	f := newFixture(t)
	liquidity := f.addLiquidity(t, expandTo18(3), expandTo18(3))

	require.NoError(t, f.pair.Transfer(f.db, testWallet, testPairAddr, liquidity))
	amount0, amount1, err := f.pair.Burn(f.db, testWallet, testWallet)
	require.NoError(t, err)

	expected := new(big.Int).Sub(expandTo18(3), big.NewInt(MinimumLiquidity))
	require.Equal(t, expected, amount0)
	require.Equal(t, expected, amount1)
	require.Equal(t, expected, f.token0.BalanceOf(f.db, testWallet))
	require.Equal(t, expected, f.token1.BalanceOf(f.db, testWallet))

	// The locked minimum stays behind.
	require.Equal(t, big.NewInt(MinimumLiquidity), f.pair.TotalSupply(f.db))
	require.Equal(t, big.NewInt(MinimumLiquidity), f.pair.BalanceOf(f.db, common.Address{}))
	require.Equal(t, big.NewInt(0).String(), f.pair.BalanceOf(f.db, testWallet).String())

	r0, r1, _ := f.pair.GetReserves(f.db)
	require.Equal(t, big.NewInt(MinimumLiquidity), r0)
	require.Equal(t, big.NewInt(MinimumLiquidity), r1)
}

func TestBurnNothing(t *testing.T) {
	f := newFixture(t)
	f.addLiquidity(t, expandTo18(3), expandTo18(3))

	_, _, err := f.pair.Burn(f.db, testWallet, testWallet)
	require.ErrorIs(t, err, ErrInsufficientLiquidityBurned)
}

func TestMintBurnRoundTripNeverProfits(t *testing.T) {
	f := newFixture(t)
	deposit0, deposit1 := expandTo18(7), expandTo18(11)
	liquidity := f.addLiquidity(t, deposit0, deposit1)

	require.NoError(t, f.pair.Transfer(f.db, testWallet, testPairAddr, liquidity))
	amount0, amount1, err := f.pair.Burn(f.db, testWallet, testWallet)
	require.NoError(t, err)

	require.True(t, amount0.Cmp(deposit0) < 0)
	require.True(t, amount1.Cmp(deposit1) < 0)
}

func TestCumulativePrices(t *testing.T) {
	f := newFixture(t)
	f.addLiquidity(t, expandTo18(3), expandTo18(3))

	// encodePrice(3e18, 3e18): a ratio of one is exactly 2^112 per second.
	unit := new(big.Int).Lsh(big.NewInt(1), 112)

	f.db.SetTimestamp(testStartTime + 1)
	require.NoError(t, f.pair.Sync(f.db))
	require.Equal(t, unit, f.pair.Price0CumulativeLast(f.db))
	require.Equal(t, unit, f.pair.Price1CumulativeLast(f.db))

	_, _, ts := f.pair.GetReserves(f.db)
	require.Equal(t, uint32(testStartTime+1), ts)

	// Any swap at t0+10 integrates the untouched ratio over the full window.
	f.db.SetTimestamp(testStartTime + 10)
	f.token0.Mint(f.db, testPairAddr, expandTo18(1))
	require.NoError(t, f.pair.Swap(f.db, testWallet, nil, big.NewInt(1), testWallet, nil))

	expected := new(big.Int).Mul(big.NewInt(10), unit)
	require.Equal(t, expected, f.pair.Price0CumulativeLast(f.db))
	require.Equal(t, expected, f.pair.Price1CumulativeLast(f.db))
}

func TestCumulativePriceUnbalanced(t *testing.T) {
	f := newFixture(t)
	f.addLiquidity(t, expandTo18(1), expandTo18(4))

	f.db.SetTimestamp(testStartTime + 3)
	require.NoError(t, f.pair.Sync(f.db))

	// price0 = 4/1 in UQ112x112, integrated over 3 seconds.
	price0 := new(big.Int).Div(new(big.Int).Lsh(expandTo18(4), 112), expandTo18(1))
	price1 := new(big.Int).Div(new(big.Int).Lsh(expandTo18(1), 112), expandTo18(4))
	require.Equal(t, new(big.Int).Mul(price0, big.NewInt(3)), f.pair.Price0CumulativeLast(f.db))
	require.Equal(t, new(big.Int).Mul(price1, big.NewInt(3)), f.pair.Price1CumulativeLast(f.db))
}

func TestProtocolFeeOn(t *testing.T) {
	f := newFixture(t)
	f.fees.addr = testFeeHolder

	f.addLiquidity(t, expandTo18(1000), expandTo18(1000))

	swapAmount := expandTo18(1)
	expectedOut := bigFromString("996006981039903216")
	f.token1.Mint(f.db, testPairAddr, swapAmount)
	require.NoError(t, f.pair.Swap(f.db, testWallet, expectedOut, nil, testWallet, nil))

	liquidity := new(big.Int).Sub(expandTo18(1000), big.NewInt(MinimumLiquidity))
	require.NoError(t, f.pair.Transfer(f.db, testWallet, testPairAddr, liquidity))
	_, _, err := f.pair.Burn(f.db, testWallet, testWallet)
	require.NoError(t, err)

	feeShares := bigFromString("249750499251388")
	require.Equal(t, new(big.Int).Add(big.NewInt(MinimumLiquidity), feeShares), f.pair.TotalSupply(f.db))
	require.Equal(t, feeShares, f.pair.BalanceOf(f.db, testFeeHolder))
}

func TestProtocolFeeOff(t *testing.T) {
	f := newFixture(t)

	f.addLiquidity(t, expandTo18(1000), expandTo18(1000))

	swapAmount := expandTo18(1)
	expectedOut := bigFromString("996006981039903216")
	f.token1.Mint(f.db, testPairAddr, swapAmount)
	require.NoError(t, f.pair.Swap(f.db, testWallet, expectedOut, nil, testWallet, nil))

	liquidity := new(big.Int).Sub(expandTo18(1000), big.NewInt(MinimumLiquidity))
	require.NoError(t, f.pair.Transfer(f.db, testWallet, testPairAddr, liquidity))
	_, _, err := f.pair.Burn(f.db, testWallet, testWallet)
	require.NoError(t, err)

	require.Equal(t, big.NewInt(MinimumLiquidity), f.pair.TotalSupply(f.db))
	require.Equal(t, big.NewInt(0).String(), f.pair.BalanceOf(f.db, testFeeHolder).String())
	require.Equal(t, big.NewInt(0).String(), f.pair.KLast(f.db).String())
}

func TestProtocolFeeToggleForfeitsAccrual(t *testing.T) {
	f := newFixture(t)
	f.fees.addr = testFeeHolder
	f.addLiquidity(t, expandTo18(100), expandTo18(100))
	require.True(t, f.pair.KLast(f.db).Sign() > 0)

	// Fees accrue from a swap, then the recipient is unset before the next
	// liquidity event: the accrual is forfeited and kLast cleared.
	f.token0.Mint(f.db, testPairAddr, expandTo18(1))
	require.NoError(t, f.pair.Swap(f.db, testWallet, nil, bigFromString("900000000000000000"), testWallet, nil))
	f.fees.addr = common.Address{}

	f.addLiquidity(t, expandTo18(1), expandTo18(1))
	require.Equal(t, big.NewInt(0).String(), f.pair.KLast(f.db).String())
	require.Equal(t, big.NewInt(0).String(), f.pair.BalanceOf(f.db, testFeeHolder).String())
}

func TestSkim(t *testing.T) {
	f := newFixture(t)
	f.addLiquidity(t, expandTo18(3), expandTo18(3))

	// A donation sits above the reserves until skimmed.
	f.token0.Mint(f.db, testPairAddr, expandTo18(1))
	require.NoError(t, f.pair.Skim(f.db, testWallet, testOther))
	require.Equal(t, expandTo18(1), f.token0.BalanceOf(f.db, testOther))

	r0, r1, _ := f.pair.GetReserves(f.db)
	require.Equal(t, expandTo18(3), r0)
	require.Equal(t, expandTo18(3), r1)

	// Nothing left to skim.
	require.NoError(t, f.pair.Skim(f.db, testWallet, testOther))
	require.Equal(t, expandTo18(1), f.token0.BalanceOf(f.db, testOther))
}

func TestSyncAdoptsBalances(t *testing.T) {
	f := newFixture(t)
	f.addLiquidity(t, expandTo18(3), expandTo18(3))

	f.token1.Mint(f.db, testPairAddr, expandTo18(2))
	require.NoError(t, f.pair.Sync(f.db))

	r0, r1, _ := f.pair.GetReserves(f.db)
	require.Equal(t, expandTo18(3), r0)
	require.Equal(t, expandTo18(5), r1)

	// Idempotent when balances have not moved.
	require.NoError(t, f.pair.Sync(f.db))
	r0, r1, _ = f.pair.GetReserves(f.db)
	require.Equal(t, expandTo18(3), r0)
	require.Equal(t, expandTo18(5), r1)

	// And skim after sync moves nothing.
	require.NoError(t, f.pair.Skim(f.db, testWallet, testOther))
	require.Equal(t, big.NewInt(0).String(), f.token1.BalanceOf(f.db, testOther).String())
}

func TestReserveOverflow(t *testing.T) {
	f := newFixture(t)
	f.addLiquidity(t, expandTo18(1), expandTo18(1))

	// Push the balance past 2^112 - 1.
	f.token0.Mint(f.db, testPairAddr, new(big.Int).Lsh(big.NewInt(1), 112))
	err := f.pair.Sync(f.db)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestSwapInvariantHolds(t *testing.T) {
	f := newFixture(t)
	f.addLiquidity(t, expandTo18(5), expandTo18(10))

	// Sweep a few input sizes; every accepted swap leaves reserve0*reserve1
	// no lower than before.
	for _, in := range []int64{1, 2, 3} {
		r0, r1, _ := f.pair.GetReserves(f.db)
		amountIn := expandTo18(in)
		// out = in*997*r1 / (r0*1000 + in*997)
		numerator := new(big.Int).Mul(new(big.Int).Mul(amountIn, big.NewInt(997)), r1)
		denominator := new(big.Int).Add(new(big.Int).Mul(r0, big.NewInt(1000)), new(big.Int).Mul(amountIn, big.NewInt(997)))
		out := new(big.Int).Div(numerator, denominator)

		kBefore := new(big.Int).Mul(r0, r1)
		f.token0.Mint(f.db, testPairAddr, amountIn)
		require.NoError(t, f.pair.Swap(f.db, testWallet, nil, out, testWallet, nil))

		nr0, nr1, _ := f.pair.GetReserves(f.db)
		require.True(t, new(big.Int).Mul(nr0, nr1).Cmp(kBefore) >= 0)
	}
}

func TestTimestampWraps(t *testing.T) {
	f := newFixture(t)

	// The packed timestamp is the wall clock mod 2^32; elapsed time is
	// computed with deliberate u32 wraparound.
	f.db.SetTimestamp(1 << 32)
	f.addLiquidity(t, expandTo18(3), expandTo18(3))
	_, _, ts := f.pair.GetReserves(f.db)
	require.Equal(t, uint32(0), ts)

	f.db.SetTimestamp(1<<32 + 7)
	require.NoError(t, f.pair.Sync(f.db))
	_, _, ts = f.pair.GetReserves(f.db)
	require.Equal(t, uint32(7), ts)

	unit := new(big.Int).Lsh(big.NewInt(1), 112)
	require.Equal(t, new(big.Int).Mul(big.NewInt(7), unit), f.pair.Price0CumulativeLast(f.db))
}
