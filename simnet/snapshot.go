// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package simnet

import (
	"bytes"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

type balanceEntry struct {
	Addr   solana.PublicKey
	Amount uint64
}

type tokenEntry struct {
	Mint   solana.PublicKey
	Owner  solana.PublicKey
	Amount uint64
}

type positionEntry struct {
	Addr        solana.PublicKey
	Validator   solana.PublicKey
	Balance     uint64
	Activated   uint64
	Deactivated uint64
	Forced      bool
	Authority   solana.PublicKey
}

// snapshot is the rlp form of a Network. Map contents are sorted by key so
// equal networks encode identically.
type snapshot struct {
	Epoch       uint64
	ElapsedNano uint64
	Lamports    []balanceEntry
	Tokens      []tokenEntry
	Supply      []balanceEntry
	Positions   []positionEntry
	Untrusted   []solana.PublicKey
}

func compareKeys(a, b solana.PublicKey) int {
	return bytes.Compare(a[:], b[:])
}

func balances(m map[solana.PublicKey]uint64) []balanceEntry {
	out := make([]balanceEntry, 0, len(m))
	for addr, amount := range m {
		if amount > 0 {
			out = append(out, balanceEntry{addr, amount})
		}
	}
	slices.SortFunc(out, func(a, b balanceEntry) int { return compareKeys(a.Addr, b.Addr) })
	return out
}

// Snapshot encodes the clock and balances of the network. Injected
// rejections and the effect counter are not part of it.
func (n *Network) Snapshot() ([]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	snap := snapshot{
		Epoch:       n.epoch,
		ElapsedNano: uint64(n.elapsed),
		Lamports:    balances(n.ledger.lamports),
		Supply:      balances(n.ledger.supply),
	}
	for k, amount := range n.ledger.tokens {
		if amount > 0 {
			snap.Tokens = append(snap.Tokens, tokenEntry{k.mint, k.owner, amount})
		}
	}
	slices.SortFunc(snap.Tokens, func(a, b tokenEntry) int {
		if c := compareKeys(a.Mint, b.Mint); c != 0 {
			return c
		}
		return compareKeys(a.Owner, b.Owner)
	})
	for addr, p := range n.ledger.positions {
		snap.Positions = append(snap.Positions, positionEntry{
			Addr:        addr,
			Validator:   p.validator,
			Balance:     p.balance,
			Activated:   p.activated,
			Deactivated: p.deactivated,
			Forced:      p.forced,
			Authority:   p.authority,
		})
	}
	slices.SortFunc(snap.Positions, func(a, b positionEntry) int { return compareKeys(a.Addr, b.Addr) })
	for addr := range n.untrusted {
		snap.Untrusted = append(snap.Untrusted, addr)
	}
	slices.SortFunc(snap.Untrusted, compareKeys)

	return rlp.EncodeToBytes(&snap)
}

// Restore builds a network from a Snapshot. opts.Epoch is ignored, the
// snapshot carries the clock.
func Restore(data []byte, opts Options) (*Network, error) {
	var snap snapshot
	if err := rlp.DecodeBytes(data, &snap); err != nil {
		return nil, errors.Wrap(err, "decode simnet snapshot")
	}
	n := New(opts)
	n.epoch = snap.Epoch
	n.elapsed = time.Duration(snap.ElapsedNano)
	for _, e := range snap.Lamports {
		n.ledger.lamports[e.Addr] = e.Amount
	}
	for _, e := range snap.Supply {
		n.ledger.supply[e.Addr] = e.Amount
	}
	for _, e := range snap.Tokens {
		n.ledger.tokens[tokenKey{e.Mint, e.Owner}] = e.Amount
	}
	for _, e := range snap.Positions {
		n.ledger.positions[e.Addr] = &position{
			validator:   e.Validator,
			balance:     e.Balance,
			activated:   e.Activated,
			deactivated: e.Deactivated,
			forced:      e.Forced,
			authority:   e.Authority,
		}
	}
	for _, addr := range snap.Untrusted {
		n.untrusted[addr] = true
	}
	logger.Debug("simnet restored", "epoch", n.epoch, "positions", len(n.ledger.positions))
	return n, nil
}
