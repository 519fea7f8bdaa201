// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking_test

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lstlabs/settler/calc"
	"github.com/lstlabs/settler/lvldb"
	"github.com/lstlabs/settler/simnet"
	"github.com/lstlabs/settler/staking"
	"github.com/lstlabs/settler/staking/reverts"
	"github.com/lstlabs/settler/staking/validators"
)

func TestInit(t *testing.T) {
	ts := newTest(t)

	err := ts.Init(testParams())
	assert.True(t, reverts.IsPrecondition(err), "%v", err)

	p, err := ts.Params()
	require.NoError(t, err)
	assert.Equal(t, ts.params, p)

	l := ts.Ledger()
	assert.Equal(t, uint64(startEpoch), l.Epoch)
	assert.Equal(t, unitPrice, l.Price)
	assert.Equal(t, "1.000000000", l.PriceUI)

	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()
	engine, err := staking.New(db, simnet.New(simnet.Options{}), staking.Options{})
	require.NoError(t, err)
	defer engine.Close()

	bad := testParams()
	bad.RewardFee = calc.FromBasisPoints(2000)
	err = engine.Init(bad)
	assert.True(t, reverts.IsPrecondition(err), "%v", err)

	bad = testParams()
	bad.Treasury = solana.PublicKey{}
	assert.True(t, reverts.IsPrecondition(engine.Init(bad)))

	_, err = engine.Deposit(alice, 100)
	assert.ErrorIs(t, err, staking.ErrNotInitialized)
	_, err = engine.Accounts()
	assert.ErrorIs(t, err, staking.ErrNotInitialized)
}

func TestValidators(t *testing.T) {
	ts := newTest(t)
	ids := ts.AddValidators(3, 1, 2)

	_, err := ts.AddValidator(ids[0], 1)
	assert.True(t, reverts.IsPrecondition(err), "duplicate: %v", err)
	_, err = ts.AddValidator(solana.PublicKey{}, 1)
	assert.True(t, reverts.IsPrecondition(err), "empty identity: %v", err)

	l := ts.Ledger()
	assert.Equal(t, uint32(3), l.Validators)
	assert.Equal(t, uint64(6), l.TotalScore)

	assert.ErrorIs(t, ts.SetValidatorScore(1, ids[0], 5), validators.ErrWrongValidator)
	require.NoError(t, ts.SetValidatorScore(1, ids[1], 5))
	assert.Equal(t, uint64(10), ts.Ledger().TotalScore)

	// the last slot moves into the removed one
	require.NoError(t, ts.RemoveValidator(0, ids[0]))
	list, err := ts.Validators()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ids[2], list[0].Identity)
	assert.Equal(t, ids[1], list[1].Identity)
	assert.Equal(t, uint64(7), ts.Ledger().TotalScore)

	ts.Stake(alice, 1000)
	results := ts.StakeDelta()
	require.NotEmpty(t, results)
	assert.Equal(t, ids[1], results[0].Validator, "highest score is served first")
	assert.Equal(t, uint32(1), results[0].Index)

	err = ts.RemoveValidator(1, ids[1])
	assert.True(t, reverts.IsPrecondition(err), "validator with records: %v", err)
	ts.AssertLedger()
}

func TestConfigure(t *testing.T) {
	ts := newTest(t)

	err := ts.SetRewardFee(calc.FromBasisPoints(1001))
	assert.True(t, reverts.IsPrecondition(err), "%v", err)
	require.NoError(t, ts.SetRewardFee(calc.FromBasisPoints(500)))

	pp := ts.params.Pool
	pp.MinFee = calc.FromBasisPoints(400)
	assert.True(t, reverts.IsPrecondition(ts.ConfigurePool(pp)), "min fee above max fee")
	pp.MinFee = calc.FromBasisPoints(10)
	pp.SolCap = 1_000_000
	require.NoError(t, ts.ConfigurePool(pp))

	p, err := ts.Params()
	require.NoError(t, err)
	assert.Equal(t, calc.FromBasisPoints(500), p.RewardFee)
	assert.Equal(t, pp, p.Pool)
}
