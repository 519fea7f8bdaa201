// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package simnet is an in-memory host for the staking engine. It keeps
// lamport and token balances and delegated positions, and moves positions
// through their lifecycle as epochs advance.
package simnet

import (
	"maps"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/lstlabs/settler/log"
	"github.com/lstlabs/settler/settler"
	"github.com/lstlabs/settler/staking"
	"github.com/lstlabs/settler/staking/stakes"
)

var logger = log.WithContext("pkg", "simnet")

// DefaultRent is the rent-exempt reserve of a stake account.
const DefaultRent = 2_282_880

// ErrRejected is returned by Execute when a rejection was injected.
var ErrRejected = errors.New("effects rejected")

type tokenKey struct {
	mint, owner solana.PublicKey
}

type position struct {
	validator solana.PublicKey
	balance   uint64
	activated uint64
	// deactivated is the deactivation epoch plus one, zero while delegated.
	deactivated uint64
	forced      bool
	authority   solana.PublicKey
}

func (p *position) lifecycle(epoch uint64) stakes.Lifecycle {
	if p.deactivated > 0 {
		if epoch >= p.deactivated {
			return stakes.Deactivated
		}
		return stakes.CoolingDown
	}
	if epoch > p.activated {
		return stakes.Active
	}
	return stakes.Activating
}

// ledger is the mutable part of the network, cloned for every Execute.
type ledger struct {
	lamports  map[solana.PublicKey]uint64
	tokens    map[tokenKey]uint64
	supply    map[solana.PublicKey]uint64
	positions map[solana.PublicKey]*position
}

func newLedger() *ledger {
	return &ledger{
		lamports:  make(map[solana.PublicKey]uint64),
		tokens:    make(map[tokenKey]uint64),
		supply:    make(map[solana.PublicKey]uint64),
		positions: make(map[solana.PublicKey]*position),
	}
}

func (l *ledger) clone() *ledger {
	c := &ledger{
		lamports:  maps.Clone(l.lamports),
		tokens:    maps.Clone(l.tokens),
		supply:    maps.Clone(l.supply),
		positions: make(map[solana.PublicKey]*position, len(l.positions)),
	}
	for k, p := range l.positions {
		cp := *p
		c.positions[k] = &cp
	}
	return c
}

// Options configures a Network.
type Options struct {
	Epoch       uint64
	EpochLength time.Duration
	Rent        uint64
}

// Network is a simulated cluster implementing staking.Host.
type Network struct {
	mu          sync.Mutex
	epoch       uint64
	elapsed     time.Duration
	epochLength time.Duration
	rent        uint64
	ledger      *ledger
	untrusted   map[solana.PublicKey]bool
	reject      error
	executed    int
}

var _ staking.Host = (*Network)(nil)

func New(opts Options) *Network {
	if opts.Rent == 0 {
		opts.Rent = DefaultRent
	}
	if opts.EpochLength == 0 {
		opts.EpochLength = 48 * time.Hour
	}
	return &Network{
		epoch:       opts.Epoch,
		epochLength: opts.EpochLength,
		rent:        opts.Rent,
		ledger:      newLedger(),
		untrusted:   make(map[solana.PublicKey]bool),
	}
}

func (n *Network) Clock() staking.Clock {
	n.mu.Lock()
	defer n.mu.Unlock()
	return staking.Clock{Epoch: n.epoch, Elapsed: n.elapsed}
}

func (n *Network) Rent() uint64 {
	return n.rent
}

// Advance moves the clock forward, rolling into new epochs as needed.
func (n *Network) Advance(d time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.elapsed += d
	for n.elapsed >= n.epochLength {
		n.elapsed -= n.epochLength
		n.epoch++
	}
}

// NextEpoch jumps to the start of the next epoch.
func (n *Network) NextEpoch() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.epoch++
	n.elapsed = 0
	logger.Debug("epoch advanced", "epoch", n.epoch)
	return n.epoch
}

// Fund credits lamports to a system account out of thin air.
func (n *Network) Fund(addr solana.PublicKey, lamports uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ledger.lamports[addr] += lamports
}

func (n *Network) Balance(addr solana.PublicKey) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.lamports[addr]
}

func (n *Network) TokenBalance(mint, owner solana.PublicKey) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.tokens[tokenKey{mint, owner}]
}

func (n *Network) Supply(mint solana.PublicKey) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.supply[mint]
}

// Executed returns the number of effects applied so far.
func (n *Network) Executed() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.executed
}

// Positions returns the addresses of every live stake account.
func (n *Network) Positions() []solana.PublicKey {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]solana.PublicKey, 0, len(n.ledger.positions))
	for addr := range n.ledger.positions {
		out = append(out, addr)
	}
	return out
}

func (n *Network) position(addr solana.PublicKey) (*position, error) {
	p, ok := n.ledger.positions[addr]
	if !ok {
		return nil, errors.Errorf("stake account %s not found", addr)
	}
	return p, nil
}

// OpenStakeAccount delegates stake lamports of owner to validator in a new
// position held by owner, as a user would outside the engine.
func (n *Network) OpenStakeAccount(addr, owner, validator solana.PublicKey, stake uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.ledger.positions[addr]; ok {
		return errors.Errorf("stake account %s already exists", addr)
	}
	if err := debit(n.ledger.lamports, owner, stake+n.rent); err != nil {
		return err
	}
	n.ledger.positions[addr] = &position{
		validator: validator,
		balance:   stake + n.rent,
		activated: n.epoch,
		authority: owner,
	}
	return nil
}

// Reward credits lamports to a stake account.
func (n *Network) Reward(addr solana.PublicKey, lamports uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, err := n.position(addr)
	if err != nil {
		return err
	}
	p.balance += lamports
	return nil
}

// Inflate rewards every active position by bp basis points of its balance.
func (n *Network) Inflate(bp uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, p := range n.ledger.positions {
		if p.lifecycle(n.epoch) == stakes.Active {
			p.balance += (p.balance - n.rent) * bp / 10_000
		}
	}
}

// Slash burns lamports from a stake account, never touching its rent.
func (n *Network) Slash(addr solana.PublicKey, lamports uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, err := n.position(addr)
	if err != nil {
		return err
	}
	if p.balance < n.rent+lamports {
		return errors.Errorf("cannot slash %d from %s", lamports, addr)
	}
	p.balance -= lamports
	return nil
}

// ForceDeactivate deactivates a position outside of any engine request.
func (n *Network) ForceDeactivate(addr solana.PublicKey) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, err := n.position(addr)
	if err != nil {
		return err
	}
	if p.deactivated == 0 {
		p.deactivated = n.epoch + 1
		p.forced = true
	}
	return nil
}

// SetTrusted marks whether StakeAccount vouches for addr.
func (n *Network) SetTrusted(addr solana.PublicKey, trusted bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if trusted {
		delete(n.untrusted, addr)
	} else {
		n.untrusted[addr] = true
	}
}

// RejectNext makes the next Execute fail without applying anything.
func (n *Network) RejectNext() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reject = ErrRejected
}

func (n *Network) StakeAccount(addr solana.PublicKey) (*staking.StakeAccount, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	p, ok := n.ledger.positions[addr]
	if !ok {
		return nil, nil
	}
	return &staking.StakeAccount{
		Address:     addr,
		Validator:   p.validator,
		Balance:     p.balance,
		RentReserve: n.rent,
		Lifecycle:   p.lifecycle(n.epoch),
		Trusted:     !n.untrusted[addr],
		Authority:   p.authority,
	}, nil
}

// Execute applies effects against a copy of the ledger and swaps it in only
// if every effect succeeded.
func (n *Network) Execute(effects []staking.Effect) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.reject != nil {
		err := n.reject
		n.reject = nil
		return err
	}
	next := n.ledger.clone()
	for i, eff := range effects {
		if err := n.apply(next, eff); err != nil {
			return errors.Wrapf(err, "effect %d (%s)", i, eff.Kind())
		}
	}
	n.ledger = next
	n.executed += len(effects)
	return nil
}

func debit(m map[solana.PublicKey]uint64, addr solana.PublicKey, amount uint64) error {
	if m[addr] < amount {
		return errors.Errorf("insufficient lamports in %s: %d < %d", addr, m[addr], amount)
	}
	m[addr] -= amount
	return nil
}

func (n *Network) apply(l *ledger, eff staking.Effect) error {
	switch e := eff.(type) {
	case staking.Transfer:
		if err := debit(l.lamports, e.From, e.Amount); err != nil {
			return err
		}
		l.lamports[e.To] += e.Amount
	case staking.MintTokens:
		l.tokens[tokenKey{e.Mint, e.To}] += e.Amount
		l.supply[e.Mint] += e.Amount
	case staking.BurnTokens:
		k := tokenKey{e.Mint, e.From}
		if l.tokens[k] < e.Amount {
			return errors.Errorf("insufficient %s tokens in %s", e.Mint, e.From)
		}
		l.tokens[k] -= e.Amount
		l.supply[e.Mint] -= e.Amount
	case staking.TransferTokens:
		from := tokenKey{e.Mint, e.From}
		if l.tokens[from] < e.Amount {
			return errors.Errorf("insufficient %s tokens in %s", e.Mint, e.From)
		}
		l.tokens[from] -= e.Amount
		l.tokens[tokenKey{e.Mint, e.To}] += e.Amount
	case staking.Delegate:
		if err := debit(l.lamports, e.From, e.Amount); err != nil {
			return err
		}
		if p, ok := l.positions[e.Record]; ok {
			if p.validator != e.Validator || p.lifecycle(n.epoch) != stakes.Activating {
				return errors.Errorf("cannot top up %s", e.Record)
			}
			p.balance += e.Amount
		} else {
			l.positions[e.Record] = &position{
				validator: e.Validator,
				balance:   e.Amount + n.rent,
				activated: n.epoch,
				authority: e.Authority,
			}
		}
	case staking.Split:
		src, ok := l.positions[e.Source]
		if !ok {
			return errors.Errorf("stake account %s not found", e.Source)
		}
		if _, ok := l.positions[e.Dest]; ok {
			return errors.Errorf("stake account %s already exists", e.Dest)
		}
		if src.balance < e.Amount+n.rent {
			return errors.Errorf("cannot split %d from %s", e.Amount, e.Source)
		}
		src.balance -= e.Amount
		dst := *src
		dst.balance = e.Amount + n.rent
		l.positions[e.Dest] = &dst
	case staking.Deactivate:
		p, ok := l.positions[e.Record]
		if !ok {
			return errors.Errorf("stake account %s not found", e.Record)
		}
		if p.deactivated != 0 {
			return errors.Errorf("stake account %s already deactivated", e.Record)
		}
		p.deactivated = n.epoch + 1
	case staking.MergeStake:
		dst, ok := l.positions[e.Dst]
		if !ok {
			return errors.Errorf("stake account %s not found", e.Dst)
		}
		src, ok := l.positions[e.Src]
		if !ok {
			return errors.Errorf("stake account %s not found", e.Src)
		}
		if dst.validator != src.validator || dst.lifecycle(n.epoch) != src.lifecycle(n.epoch) {
			return errors.Errorf("cannot merge %s into %s", e.Src, e.Dst)
		}
		dst.balance += src.balance - n.rent
		l.lamports[e.RentTo] += n.rent
		delete(l.positions, e.Src)
	case staking.Authorize:
		p, ok := l.positions[e.Record]
		if !ok {
			return errors.Errorf("stake account %s not found", e.Record)
		}
		if p.authority != e.From {
			return errors.Errorf("stake account %s is not held by %s", e.Record, e.From)
		}
		p.authority = e.To
	case staking.Withdraw:
		p, ok := l.positions[e.Record]
		if !ok {
			return errors.Errorf("stake account %s not found", e.Record)
		}
		if p.lifecycle(n.epoch) != stakes.Deactivated {
			return errors.Errorf("stake account %s still delegated", e.Record)
		}
		if p.balance < e.Amount {
			return errors.Errorf("cannot withdraw %d from %s", e.Amount, e.Record)
		}
		// an emptied account stays visible as deactivated until retrieved
		p.balance -= e.Amount
		l.lamports[e.To] += e.Amount
	default:
		return errors.Errorf("unknown effect %T", eff)
	}
	return nil
}

// Key derives a deterministic account for tests and the solo network.
func Key(name string) solana.PublicKey {
	return solana.PublicKeyFromBytes(settler.Blake2b([]byte(name)).Bytes())
}
