// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lstlabs/settler/calc"
	"github.com/lstlabs/settler/staking"
	"github.com/lstlabs/settler/staking/reverts"
)

// newPoolTest prepares a flat 0.5% pool holding 10_000 lamports, and 1005
// receipt tokens held by alice.
func newPoolTest(t *testing.T) *EngineTest {
	ts := newTest(t)
	pp := ts.params.Pool
	pp.MinFee = calc.FromBasisPoints(50)
	pp.MaxFee = calc.FromBasisPoints(50)
	require.NoError(t, ts.ConfigurePool(pp))

	dep := ts.Stake(alice, 1005)
	require.Equal(t, uint64(1005), dep.Minted)
	lp := ts.Provide(bob, 10_000)
	require.Equal(t, uint64(10_000), lp.Shares)
	return ts
}

func TestLiquidUnstake(t *testing.T) {
	ts := newPoolTest(t)

	res, err := ts.LiquidUnstake(alice, 1005)
	require.NoError(t, err)
	assert.Equal(t, calc.FromBasisPoints(50), res.Fee)
	assert.Equal(t, uint64(5), res.FeeTokens)
	assert.Equal(t, uint64(1), res.TreasuryTokens)
	assert.Equal(t, uint64(1000), res.Lamports)
	assert.InDelta(t, 1005*0.995, float64(res.Lamports), 1)

	assert.Equal(t, uint64(1000), ts.net.Balance(alice))
	assert.Zero(t, ts.Tokens(alice))
	assert.Equal(t, uint64(1), ts.Tokens(ts.params.Treasury))

	l := ts.Ledger()
	assert.Equal(t, uint64(9000), l.Pool.Sol)
	assert.Equal(t, uint64(1004), l.Pool.Receipt)
	assert.Equal(t, uint64(10_004), l.PoolValue)
	assert.Equal(t, uint64(1005), l.Totals.ReceiptSupply, "liquid unstake burns nothing")
	ts.AssertLedger().AssertPrice(unitPrice)
}

func TestLiquidUnstake_Failures(t *testing.T) {
	ts := newTest(t)
	ts.Stake(alice, 1005)
	ts.Provide(bob, 100)

	_, err := ts.LiquidUnstake(alice, 0)
	assert.ErrorIs(t, err, staking.ErrZeroAmount)

	res, err := ts.LiquidUnstake(alice, 1005)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, staking.ErrInsufficientLiquidity)

	// a swap the pool can serve pays the fee for the drained liquidity
	res, err = ts.LiquidUnstake(alice, 50)
	require.NoError(t, err)
	assert.Equal(t, uint32(299), res.Fee.BasisPoints)
	assert.Equal(t, uint64(1), res.FeeTokens)
	assert.Equal(t, uint64(49), res.Lamports)
	ts.AssertLedger()
}

func TestLiquidity_AddRemove(t *testing.T) {
	ts := newPoolTest(t)
	_, err := ts.LiquidUnstake(alice, 1005)
	require.NoError(t, err)

	// accrued fees raise the share value: 10_004 lamports buy 10_000 shares
	added := ts.Provide(carol, 10_004)
	assert.Equal(t, uint64(10_000), added.Shares)
	assert.Equal(t, uint64(20_000), ts.Ledger().Pool.LPSupply)
	ts.AssertLedger()

	removed, err := ts.RemoveLiquidity(bob, 5000)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), removed.Shares)
	assert.Equal(t, uint64(4751), removed.Lamports)
	assert.Equal(t, uint64(251), removed.Tokens)
	assert.Equal(t, uint64(4751), ts.net.Balance(bob))
	assert.Equal(t, uint64(251), ts.Tokens(bob))
	assert.Equal(t, uint64(5000), ts.Shares(bob))
	ts.AssertLedger()

	_, err = ts.RemoveLiquidity(bob, 0)
	assert.ErrorIs(t, err, staking.ErrZeroAmount)
	_, err = ts.RemoveLiquidity(bob, 20_000)
	assert.True(t, reverts.IsPrecondition(err), "%v", err)

	// shares beyond the holder's balance are refused by the host
	_, err = ts.RemoveLiquidity(bob, 6000)
	require.Error(t, err)
	assert.False(t, reverts.IsRevertErr(err))
	assert.Equal(t, uint64(5000), ts.Shares(bob))
	ts.AssertLedger()
}

func TestLiquidity_Caps(t *testing.T) {
	ts := newTest(t)
	pp := ts.params.Pool
	pp.SolCap = 5000
	require.NoError(t, ts.ConfigurePool(pp))

	ts.net.Fund(bob, 6000)
	_, err := ts.AddLiquidity(bob, 6000)
	assert.True(t, reverts.IsPrecondition(err), "%v", err)
	_, err = ts.AddLiquidity(bob, 5000)
	require.NoError(t, err)

	_, err = ts.AddLiquidity(bob, 0)
	assert.True(t, reverts.IsPrecondition(err), "%v", err)

	p := testParams()
	p.StakingSolCap = 1000
	capped := newTestWith(t, p, staking.Options{})
	capped.net.Fund(alice, 2000)
	_, err = capped.Deposit(alice, 1001)
	assert.True(t, reverts.IsPrecondition(err), "%v", err)
	_, err = capped.Deposit(alice, 1000)
	require.NoError(t, err)
	_, err = capped.Deposit(alice, 1)
	assert.True(t, reverts.IsPrecondition(err), "%v", err)
}

func TestDeposit_SwapsFromPool(t *testing.T) {
	ts := newPoolTest(t)
	_, err := ts.LiquidUnstake(alice, 1005)
	require.NoError(t, err)

	ts.net.Fund(carol, 1600)
	dep, err := ts.Deposit(carol, 600)
	require.NoError(t, err)
	assert.Equal(t, staking.DepositResult{Swapped: 600, SwappedTokens: 600}, *dep)
	assert.Equal(t, uint64(600), ts.Tokens(carol))
	ts.AssertLedger()

	// the pool runs out of tokens, the rest is staked
	dep, err = ts.Deposit(carol, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(404), dep.Swapped)
	assert.Equal(t, uint64(404), dep.SwappedTokens)
	assert.Equal(t, uint64(596), dep.Staked)
	assert.Equal(t, uint64(596), dep.Minted)
	assert.Equal(t, uint64(1000), dep.Tokens())
	assert.Equal(t, uint64(1600), ts.Tokens(carol))

	l := ts.Ledger()
	assert.Zero(t, l.Pool.Receipt)
	assert.Equal(t, uint64(10_004), l.Pool.Sol)
	assert.Equal(t, uint64(1601), l.Reserve.Available)
	assert.Equal(t, uint64(1601), l.Totals.StakeOrders)
	ts.AssertLedger().AssertPrice(unitPrice)
}
