// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package testengine wires an engine, a simulated host and an event journal
// for tests of the outer layers.
package testengine

import (
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/lstlabs/settler/eventdb"
	"github.com/lstlabs/settler/lvldb"
	"github.com/lstlabs/settler/simnet"
	"github.com/lstlabs/settler/staking"
)

// StartEpoch is the epoch the simulated host starts in.
const StartEpoch = 100

var Program = simnet.Key("program")

// Validators are the identities listed by New, with scores 2 and 1.
var Validators = []solana.PublicKey{
	simnet.Key("validator-a"),
	simnet.Key("validator-b"),
}

// Params returns small minimums so tests can move a few thousand lamports.
func Params() *staking.Params {
	p := staking.DefaultParams(Program)
	p.MinStake = 100
	p.MinDeposit = 1
	p.MinWithdraw = 1
	p.Pool.LiquidityTarget = 10_000
	return p
}

type Engine struct {
	*staking.Engine
	Net    *simnet.Network
	Events *eventdb.EventDB
	Params *staking.Params
	db     *lvldb.LevelDB
}

// New returns an initialized engine with two validators.
func New() (*Engine, error) {
	db, err := lvldb.NewMem()
	if err != nil {
		return nil, err
	}
	events, err := eventdb.NewMem()
	if err != nil {
		db.Close()
		return nil, err
	}
	net := simnet.New(simnet.Options{Epoch: StartEpoch})
	engine, err := staking.New(db, net, staking.Options{Journal: events})
	if err != nil {
		db.Close()
		events.Close()
		return nil, err
	}
	te := &Engine{Engine: engine, Net: net, Events: events, Params: Params(), db: db}
	if err := engine.Init(te.Params); err != nil {
		te.Close()
		return nil, errors.Wrap(err, "init")
	}
	for i, score := range []uint32{2, 1} {
		if _, err := engine.AddValidator(Validators[i], score); err != nil {
			te.Close()
			return nil, errors.Wrapf(err, "add validator %d", i)
		}
	}
	return te, nil
}

// Deposit funds user and deposits lamports.
func (e *Engine) Deposit(user solana.PublicKey, lamports uint64) (*staking.DepositResult, error) {
	e.Net.Fund(user, lamports)
	return e.Engine.Deposit(user, lamports)
}

// Tokens returns the receipt tokens held by owner.
func (e *Engine) Tokens(owner solana.PublicKey) uint64 {
	return e.Net.TokenBalance(e.Params.ReceiptMint, owner)
}

func (e *Engine) Close() {
	e.Engine.Close()
	e.Events.Close()
	e.db.Close()
}
