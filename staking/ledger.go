// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"strconv"

	"github.com/gagliardetto/solana-go"

	"github.com/lstlabs/settler/calc"
	"github.com/lstlabs/settler/settler"
	"github.com/lstlabs/settler/staking/globalstats"
	"github.com/lstlabs/settler/staking/liqpool"
	"github.com/lstlabs/settler/staking/reserve"
	"github.com/lstlabs/settler/staking/stakes"
	"github.com/lstlabs/settler/staking/tickets"
	"github.com/lstlabs/settler/staking/validators"
)

// Price is the receipt token price in lamports, fixed point over
// settler.PriceDenominator.
type Price uint64

// PriceOf derives the price from the virtual staked lamports and the supply.
// An empty supply prices at 1.0.
func PriceOf(virtualStaked, supply uint64) (Price, error) {
	if supply == 0 {
		return Price(settler.PriceDenominator), nil
	}
	p, err := calc.Proportional(settler.PriceDenominator, virtualStaked, supply)
	return Price(p), err
}

func (p Price) Float64() float64 {
	return float64(p) / float64(settler.PriceDenominator)
}

func (p Price) String() string {
	return strconv.FormatFloat(p.Float64(), 'f', 9, 64)
}

// TicketStats summarizes outstanding tickets.
type TicketStats struct {
	Count       uint64 `json:"count"`
	Circulating uint64 `json:"circulating"`
}

// Ledger is a consistent snapshot of the position ledger.
type Ledger struct {
	Epoch         uint64             `json:"epoch"`
	Totals        globalstats.Totals `json:"totals"`
	Reserve       reserve.Balances   `json:"reserve"`
	Tickets       TicketStats        `json:"tickets"`
	Pool          liqpool.Legs       `json:"pool"`
	PoolValue     uint64             `json:"poolValue"`
	Validators    uint32             `json:"validators"`
	TotalScore    uint64             `json:"totalScore"`
	Records       uint64             `json:"records"`
	VirtualStaked uint64             `json:"virtualStaked"`
	Price         Price              `json:"price"`
	PriceUI       string             `json:"priceUi"`
}

// priceTerms returns the lamports backing the receipt supply, and the supply.
func (s *step) priceTerms() (virtualStaked, supply uint64, err error) {
	t, err := s.stats.Totals()
	if err != nil {
		return 0, 0, err
	}
	res, err := s.reserve.Get()
	if err != nil {
		return 0, 0, err
	}
	circulating, err := s.tickets.Circulating()
	if err != nil {
		return 0, 0, err
	}
	virtualStaked, err = globalstats.VirtualStaked(t, res.Total, circulating)
	return virtualStaked, t.ReceiptSupply, err
}

func (s *step) snapshot() (*Ledger, error) {
	var (
		l   = &Ledger{Epoch: s.clock.Epoch}
		err error
	)
	t, err := s.stats.Totals()
	if err != nil {
		return nil, err
	}
	l.Totals = *t
	res, err := s.reserve.Get()
	if err != nil {
		return nil, err
	}
	l.Reserve = *res
	if l.Tickets.Count, err = s.tickets.Count(); err != nil {
		return nil, err
	}
	if l.Tickets.Circulating, err = s.tickets.Circulating(); err != nil {
		return nil, err
	}
	legs, err := s.pool.Legs()
	if err != nil {
		return nil, err
	}
	l.Pool = *legs
	if l.Validators, err = s.validators.Count(); err != nil {
		return nil, err
	}
	if l.TotalScore, err = s.validators.TotalScore(); err != nil {
		return nil, err
	}
	if l.Records, err = s.stakes.Count(); err != nil {
		return nil, err
	}
	if l.VirtualStaked, err = globalstats.VirtualStaked(t, res.Total, l.Tickets.Circulating); err != nil {
		return nil, err
	}
	if l.PoolValue, err = legs.Value(l.VirtualStaked, t.ReceiptSupply); err != nil {
		return nil, err
	}
	if l.Price, err = PriceOf(l.VirtualStaked, t.ReceiptSupply); err != nil {
		return nil, err
	}
	l.PriceUI = l.Price.String()
	return l, nil
}

// Snapshot returns the current ledger totals.
func (e *Engine) Snapshot() (l *Ledger, err error) {
	err = e.view(func(s *step) error {
		l, err = s.snapshot()
		return err
	})
	return
}

// Params returns the ledger configuration.
func (e *Engine) Params() (p *Params, err error) {
	err = e.view(func(s *step) error {
		p = s.params
		return nil
	})
	return
}

// Accounts returns the protocol-owned accounts.
func (e *Engine) Accounts() (a Accounts, err error) {
	err = e.view(func(s *step) error {
		if s.params.Program.IsZero() {
			return ErrNotInitialized
		}
		a = s.accounts
		return nil
	})
	return
}

// Validators lists the validator slots in index order.
func (e *Engine) Validators() (list []*validators.Validator, err error) {
	err = e.view(func(s *step) error {
		return s.validators.Iter(func(_ uint32, v *validators.Validator) error {
			list = append(list, v)
			return nil
		})
	})
	return
}

// Records lists every controlled stake record.
func (e *Engine) Records() (list []*stakes.Record, err error) {
	err = e.view(func(s *step) error {
		return s.stakes.Iter(func(r *stakes.Record) error {
			list = append(list, r)
			return nil
		})
	})
	return
}

// Record returns one stake record.
func (e *Engine) Record(addr solana.PublicKey) (r *stakes.Record, err error) {
	err = e.view(func(s *step) error {
		r, err = s.stakes.GetExisting(addr)
		return err
	})
	return
}

// Ticket returns an outstanding ticket.
func (e *Engine) Ticket(id settler.Bytes32) (t *tickets.Ticket, err error) {
	err = e.view(func(s *step) error {
		t, err = s.tickets.GetExisting(id)
		return err
	})
	return
}
