// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking_test

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lstlabs/settler/lvldb"
	"github.com/lstlabs/settler/settler"
	"github.com/lstlabs/settler/simnet"
	"github.com/lstlabs/settler/staking"
	"github.com/lstlabs/settler/staking/stakes"
)

var (
	program = simnet.Key("program")
	alice   = simnet.Key("alice")
	bob     = simnet.Key("bob")
	carol   = simnet.Key("carol")

	validatorKeys = []solana.PublicKey{
		simnet.Key("validator-a"),
		simnet.Key("validator-b"),
		simnet.Key("validator-c"),
		simnet.Key("validator-d"),
	}
)

const startEpoch = 10

func testParams() *staking.Params {
	p := staking.DefaultParams(program)
	p.MinStake = 100
	p.MinDeposit = 1
	p.MinWithdraw = 1
	p.Pool.LiquidityTarget = 10_000
	return p
}

type EngineTest struct {
	*staking.Engine
	t        *testing.T
	db       *lvldb.LevelDB
	net      *simnet.Network
	params   *staking.Params
	accounts staking.Accounts
}

func newTest(t *testing.T) *EngineTest {
	return newTestWith(t, testParams(), staking.Options{})
}

func newTestWith(t *testing.T, p *staking.Params, opts staking.Options) *EngineTest {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	net := simnet.New(simnet.Options{Epoch: startEpoch})
	engine, err := staking.New(db, net, opts)
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	require.NoError(t, engine.Init(p))

	return &EngineTest{
		Engine:   engine,
		t:        t,
		db:       db,
		net:      net,
		params:   p,
		accounts: p.Accounts(),
	}
}

// AddValidators lists one validator per score and returns their identities.
func (ts *EngineTest) AddValidators(scores ...uint32) []solana.PublicKey {
	ids := make([]solana.PublicKey, 0, len(scores))
	for i, score := range scores {
		index, err := ts.AddValidator(validatorKeys[i], score)
		require.NoError(ts.t, err, "failed to add validator %d", i)
		require.Equal(ts.t, uint32(i), index)
		ids = append(ids, validatorKeys[i])
	}
	return ids
}

// Stake funds user and deposits lamports.
func (ts *EngineTest) Stake(user solana.PublicKey, lamports uint64) *staking.DepositResult {
	ts.net.Fund(user, lamports)
	res, err := ts.Deposit(user, lamports)
	require.NoError(ts.t, err, "failed to deposit %d for %s", lamports, user)
	return res
}

// Provide funds provider and adds lamports of liquidity.
func (ts *EngineTest) Provide(provider solana.PublicKey, lamports uint64) *staking.LiquidityResult {
	ts.net.Fund(provider, lamports)
	res, err := ts.AddLiquidity(provider, lamports)
	require.NoError(ts.t, err, "failed to add %d liquidity for %s", lamports, provider)
	return res
}

func (ts *EngineTest) Tokens(owner solana.PublicKey) uint64 {
	return ts.net.TokenBalance(ts.params.ReceiptMint, owner)
}

func (ts *EngineTest) Shares(owner solana.PublicKey) uint64 {
	return ts.net.TokenBalance(ts.params.LPMint, owner)
}

func (ts *EngineTest) Ledger() *staking.Ledger {
	l, err := ts.Snapshot()
	require.NoError(ts.t, err, "failed to snapshot ledger")
	return l
}

func (ts *EngineTest) MustRecord(addr solana.PublicKey) *stakes.Record {
	r, err := ts.Record(addr)
	require.NoError(ts.t, err)
	require.False(ts.t, r.IsEmpty(), "record %s not found", addr)
	return r
}

// NextEpoch moves the host into the next epoch.
func (ts *EngineTest) NextEpoch() *EngineTest {
	ts.net.NextEpoch()
	return ts
}

func (ts *EngineTest) Advance(d time.Duration) *EngineTest {
	ts.net.Advance(d)
	return ts
}

// StakeDelta drives RebalanceStake until the delta is zero or no call can
// make progress.
func (ts *EngineTest) StakeDelta() []*staking.RebalanceResult {
	var out []*staking.RebalanceResult
	for {
		target, err := ts.NextStakeTarget()
		if err != nil {
			return out
		}
		res, err := ts.RebalanceStake(target.Index, target.Validator)
		if err != nil {
			return out
		}
		out = append(out, res)
	}
}

// RecognizeAll recognizes rewards on every record not checked this epoch.
func (ts *EngineTest) RecognizeAll() {
	records, err := ts.Records()
	require.NoError(ts.t, err)
	epoch := ts.net.Clock().Epoch
	for _, r := range records {
		if r.Swept || r.CheckedIn(epoch) {
			continue
		}
		_, err := ts.RecognizeRewards(r.Address)
		require.NoError(ts.t, err, "failed to recognize %s", r.Address)
	}
}

// AssertLedger checks the ledger against itself and against the host.
func (ts *EngineTest) AssertLedger() *EngineTest {
	t := ts.t
	l := ts.Ledger()

	assert.NoError(t, l.Reserve.Check())
	assert.Equal(t, l.Reserve.Total, ts.net.Balance(ts.accounts.Reserve), "reserve lamports")
	assert.Equal(t, l.Pool.Sol, ts.net.Balance(ts.accounts.LiqSolLeg), "pool sol leg")
	assert.Equal(t, l.Pool.Receipt, ts.Tokens(ts.accounts.LiqReceiptLeg), "pool receipt leg")
	assert.Equal(t, l.Pool.LPSupply, ts.net.Supply(ts.params.LPMint), "lp supply")
	assert.Equal(t, l.Totals.ReceiptSupply, ts.net.Supply(ts.params.ReceiptMint), "receipt supply")

	vals, err := ts.Validators()
	require.NoError(t, err)
	var staked uint64
	for _, v := range vals {
		staked += v.ActiveBalance
	}
	assert.Equal(t, l.Totals.Active, staked, "validator stake")

	records, err := ts.Records()
	require.NoError(t, err)
	var active, cooling, awaiting uint64
	for _, r := range records {
		switch {
		case r.Swept:
			awaiting += r.Retrievable
		case r.Lifecycle.IsStaking():
			active += r.Principal
		default:
			cooling += r.Principal
		}
	}
	assert.Equal(t, l.Totals.Active, active, "active records")
	assert.Equal(t, l.Totals.Cooling, cooling, "cooling records")
	assert.Equal(t, l.Reserve.Awaiting, awaiting, "swept records")
	return ts
}

func (ts *EngineTest) AssertPrice(expected staking.Price) *EngineTest {
	assert.Equal(ts.t, expected, ts.Ledger().Price, "price mismatch")
	return ts
}

// unitPrice is a price of exactly one lamport per token.
var unitPrice = staking.Price(settler.PriceDenominator)
