// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cranker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lstlabs/settler/cranker"
	"github.com/lstlabs/settler/lvldb"
	"github.com/lstlabs/settler/simnet"
	"github.com/lstlabs/settler/staking"
)

var (
	program = simnet.Key("program")
	alice   = simnet.Key("alice")
)

func newEngine(t *testing.T) (*staking.Engine, *simnet.Network) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	net := simnet.New(simnet.Options{Epoch: 100})
	engine, err := staking.New(db, net, staking.Options{})
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	p := staking.DefaultParams(program)
	p.MinStake = 100
	p.MinDeposit = 1
	p.MinWithdraw = 1
	require.NoError(t, engine.Init(p))
	for i, score := range []uint32{2, 1} {
		_, err := engine.AddValidator(simnet.Key("validator-"+string(rune('a'+i))), score)
		require.NoError(t, err)
	}
	return engine, net
}

func deposit(t *testing.T, engine *staking.Engine, net *simnet.Network, lamports uint64) {
	net.Fund(alice, lamports)
	_, err := engine.Deposit(alice, lamports)
	require.NoError(t, err)
}

func TestCrank_Lifecycle(t *testing.T) {
	engine, net := newEngine(t)
	c := cranker.New(engine, net, cranker.Options{})

	deposit(t, engine, net, 3000)
	r, err := c.Crank()
	require.NoError(t, err)
	assert.Equal(t, uint64(3000), r.Staked)
	assert.Zero(t, r.Recognized)

	records, err := engine.Records()
	require.NoError(t, err)
	assert.Len(t, records, 2)

	// a second deposit in a later epoch opens one more record per validator
	net.NextEpoch()
	deposit(t, engine, net, 3000)
	r, err = c.Crank()
	require.NoError(t, err)
	assert.Equal(t, 2, r.Recognized)
	assert.Equal(t, uint64(3000), r.Staked)

	// once all of them are active they are merged back together
	net.NextEpoch()
	net.Inflate(100)
	r, err = c.Crank()
	require.NoError(t, err)
	assert.Equal(t, 4, r.Recognized)
	assert.Equal(t, uint64(60), r.Rewards)
	assert.Equal(t, 2, r.Merged)
	assert.Zero(t, r.Skipped)

	records, err = engine.Records()
	require.NoError(t, err)
	assert.Len(t, records, 2)

	l, err := engine.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, uint64(6060), l.Totals.Active)
}

func TestCrank_Unstake(t *testing.T) {
	engine, net := newEngine(t)
	c := cranker.New(engine, net, cranker.Options{})

	deposit(t, engine, net, 3000)
	_, err := c.Crank()
	require.NoError(t, err)

	net.NextEpoch()
	ticket, err := engine.CreateTicket(alice, 3000)
	require.NoError(t, err)
	r, err := c.Crank()
	require.NoError(t, err)
	assert.Equal(t, uint64(3000), r.Unstaked)

	l, err := engine.Snapshot()
	require.NoError(t, err)
	assert.Zero(t, l.Totals.Active)
	assert.Equal(t, uint64(3000), l.Totals.Cooling)

	net.NextEpoch()
	r, err = c.Crank()
	require.NoError(t, err)
	assert.Equal(t, 2, r.Swept)
	assert.Equal(t, uint64(3000), r.Retrieved)

	records, err := engine.Records()
	require.NoError(t, err)
	assert.Empty(t, records)

	net.NextEpoch()
	net.Advance(time.Hour)
	_, err = engine.ClaimTicket(ticket.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(3000), net.Balance(alice))
}

func TestCrank_SkipsRefusedRecords(t *testing.T) {
	engine, net := newEngine(t)
	c := cranker.New(engine, net, cranker.Options{SkipMerge: true})

	deposit(t, engine, net, 3000)
	_, err := c.Crank()
	require.NoError(t, err)
	records, err := engine.Records()
	require.NoError(t, err)
	require.Len(t, records, 2)

	net.NextEpoch()
	net.SetTrusted(records[0].Address, false)
	r, err := c.Crank()
	require.NoError(t, err)
	assert.Equal(t, 1, r.Recognized)
	assert.Equal(t, 1, r.Skipped)
}

func TestRun(t *testing.T) {
	engine, net := newEngine(t)
	c := cranker.New(engine, net, cranker.Options{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	deposit(t, engine, net, 3000)
	assert.Eventually(t, func() bool {
		l, err := engine.Snapshot()
		return err == nil && l.Totals.Active == 3000
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("cranker did not stop")
	}
}

func TestCrank_OnPass(t *testing.T) {
	engine, net := newEngine(t)

	var reports []*cranker.Report
	c := cranker.New(engine, net, cranker.Options{
		OnPass: func(r *cranker.Report, err error) {
			assert.NoError(t, err)
			reports = append(reports, r)
		},
	})
	deposit(t, engine, net, 3000)

	r, err := c.Crank()
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Same(t, r, reports[0])
	assert.Equal(t, uint64(100), reports[0].Epoch)
}
