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
	"github.com/lstlabs/settler/simnet"
	"github.com/lstlabs/settler/staking"
	"github.com/lstlabs/settler/staking/reverts"
	"github.com/lstlabs/settler/staking/stakes"
	"github.com/lstlabs/settler/staking/validators"
)

func TestDepositStakeAccount(t *testing.T) {
	ts := newTest(t)
	vals := ts.AddValidators(1, 1)
	ts.Stake(alice, 1000)
	require.Len(t, ts.StakeDelta(), 2)
	ts.NextEpoch()
	ts.RecognizeAll()

	account := simnet.Key("bob-stake")
	ts.net.Fund(bob, 5000+simnet.DefaultRent)
	require.NoError(t, ts.net.OpenStakeAccount(account, bob, vals[1], 5000))

	_, err := ts.DepositStakeAccount(carol, account, 1)
	assert.True(t, reverts.IsPrecondition(err), "not the authority: %v", err)
	_, err = ts.DepositStakeAccount(bob, simnet.Key("nothing"), 1)
	assert.True(t, reverts.IsPrecondition(err), "unknown account: %v", err)
	_, err = ts.DepositStakeAccount(bob, account, 0)
	assert.ErrorIs(t, err, validators.ErrWrongValidator)

	ts.net.SetTrusted(account, false)
	_, err = ts.DepositStakeAccount(bob, account, 1)
	assert.True(t, reverts.IsEligibility(err), "%v", err)
	ts.net.SetTrusted(account, true)

	res, err := ts.DepositStakeAccount(bob, account, 1)
	require.NoError(t, err)
	assert.Equal(t, staking.StakeAccountResult{Account: account, Validator: vals[1], Lamports: 5000, Tokens: 5000}, *res)
	assert.Equal(t, uint64(5000), ts.Tokens(bob))

	acct, err := ts.net.StakeAccount(account)
	require.NoError(t, err)
	assert.Equal(t, ts.accounts.StakeAuthority, acct.Authority)

	rec := ts.MustRecord(account)
	assert.Equal(t, uint64(5000), rec.Principal)
	assert.Equal(t, stakes.Activating, rec.Lifecycle)
	assert.Equal(t, vals[1], rec.Validator)

	l := ts.Ledger()
	assert.Equal(t, uint64(6000), l.Totals.Active)
	assert.Equal(t, uint64(6000), l.Totals.ReceiptSupply)
	assert.Equal(t, uint64(3), l.Records)
	stake, unstake := l.Totals.Delta()
	assert.Zero(t, stake, "a deposited account is already staked")
	assert.Zero(t, unstake)
	ts.AssertLedger().AssertPrice(unitPrice)

	// the account now belongs to the ledger
	_, err = ts.DepositStakeAccount(bob, account, 1)
	assert.True(t, reverts.IsPrecondition(err), "%v", err)

	ts.NextEpoch()
	ts.RecognizeAll()
	assert.Equal(t, stakes.Active, ts.MustRecord(account).Lifecycle)
	ts.AssertLedger()
}

func TestDepositStakeAccount_Limits(t *testing.T) {
	p := testParams()
	p.StakingSolCap = 3000
	ts := newTestWith(t, p, staking.Options{})
	vals := ts.AddValidators(1)
	ts.Stake(alice, 1000)

	small := simnet.Key("small")
	ts.net.Fund(bob, 50+simnet.DefaultRent)
	require.NoError(t, ts.net.OpenStakeAccount(small, bob, vals[0], 50))
	_, err := ts.DepositStakeAccount(bob, small, 0)
	assert.True(t, reverts.IsPrecondition(err), "below min stake: %v", err)

	big := simnet.Key("big")
	ts.net.Fund(carol, 2500+simnet.DefaultRent)
	require.NoError(t, ts.net.OpenStakeAccount(big, carol, vals[0], 2500))
	_, err = ts.DepositStakeAccount(carol, big, 0)
	assert.True(t, reverts.IsPrecondition(err), "above staking cap: %v", err)
	assert.Zero(t, ts.Tokens(carol))

	// a deactivating account is not accepted
	ts.NextEpoch()
	require.NoError(t, ts.net.ForceDeactivate(big))
	_, err = ts.DepositStakeAccount(carol, big, 0)
	assert.True(t, reverts.IsPrecondition(err), "cooling down: %v", err)
	ts.AssertLedger()
}

func TestWithdrawStakeAccount(t *testing.T) {
	ts := newTest(t)
	vals := ts.AddValidators(1)
	ts.Stake(alice, 10_000)
	record := ts.StakeDelta()[0].Record
	ts.NextEpoch()

	_, err := ts.WithdrawStakeAccount(alice, record, 2000)
	assert.True(t, reverts.IsEligibility(err), "rewards not recognized: %v", err)
	ts.RecognizeAll()

	_, err = ts.WithdrawStakeAccount(alice, record, 0)
	assert.ErrorIs(t, err, staking.ErrZeroAmount)
	_, err = ts.WithdrawStakeAccount(alice, simnet.Key("nothing"), 2000)
	assert.ErrorIs(t, err, stakes.ErrRecordNotFound)

	res, err := ts.WithdrawStakeAccount(alice, record, 2000)
	require.NoError(t, err)
	// 0.1% of 2000 stays with the ledger
	assert.Equal(t, uint64(1998), res.Lamports)
	assert.Equal(t, uint64(2), res.Fee)
	assert.Equal(t, uint64(2000), res.Tokens)
	assert.Equal(t, vals[0], res.Validator)
	assert.Equal(t, uint64(8000), ts.Tokens(alice))

	split, err := ts.net.StakeAccount(res.Account)
	require.NoError(t, err)
	assert.Equal(t, alice, split.Authority)
	assert.Equal(t, stakes.CoolingDown, split.Lifecycle)
	assert.Equal(t, uint64(1998+simnet.DefaultRent), split.Balance)
	assert.Equal(t, vals[0], split.Validator)
	gone, err := ts.Record(res.Account)
	require.NoError(t, err)
	assert.True(t, gone.IsEmpty(), "the split is not controlled")

	assert.Equal(t, uint64(8002), ts.MustRecord(record).Principal)
	l := ts.Ledger()
	assert.Equal(t, uint64(8002), l.Totals.Active)
	assert.Equal(t, uint64(8000), l.Totals.ReceiptSupply)
	assert.Equal(t, uint64(1), l.Records)
	assert.Greater(t, l.Price, unitPrice, "the fee accrues to holders")
	ts.AssertLedger()

	// the record must keep at least the minimum stake
	_, err = ts.WithdrawStakeAccount(alice, record, 8000)
	assert.True(t, reverts.IsPrecondition(err), "%v", err)

	// tokens alice does not hold are refused by the host
	_, err = ts.WithdrawStakeAccount(carol, record, 1000)
	assert.Error(t, err)
	assert.False(t, reverts.IsRevertErr(err))
	assert.Equal(t, l, ts.Ledger())
}

func TestSetStakeWithdrawFee(t *testing.T) {
	ts := newTest(t)
	ts.AddValidators(1)
	ts.Stake(alice, 10_000)
	record := ts.StakeDelta()[0].Record
	ts.NextEpoch()
	ts.RecognizeAll()

	err := ts.SetStakeWithdrawFee(calc.FromBasisPoints(101))
	assert.True(t, reverts.IsPrecondition(err), "%v", err)
	require.NoError(t, ts.SetStakeWithdrawFee(calc.FromBasisPoints(0)))
	p, err := ts.Params()
	require.NoError(t, err)
	assert.Equal(t, calc.FromBasisPoints(0), p.StakeWithdrawFee)

	res, err := ts.WithdrawStakeAccount(alice, record, 3000)
	require.NoError(t, err)
	assert.Equal(t, uint64(3000), res.Lamports)
	assert.Zero(t, res.Fee)
	ts.AssertLedger().AssertPrice(unitPrice)
}
