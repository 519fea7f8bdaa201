// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reserve

import (
	"github.com/pkg/errors"

	"github.com/lstlabs/settler/storage"
)

var ErrUnbalanced = errors.New("reserve sub-balances do not add up")

// Balances is a snapshot of the reserve composition.
type Balances struct {
	Available uint64 `json:"available"`
	Reserved  uint64 `json:"reserved"`
	Awaiting  uint64 `json:"awaiting"`
	Total     uint64 `json:"total"`
	// Unfunded is ticket liability not yet backed by reserved lamports.
	Unfunded uint64 `json:"unfunded"`
}

// Service tracks the pooled reserve and its sub-balances. Every mutation
// touches the total and exactly one sub-balance, except the explicit moves
// between sub-balances.
type Service struct {
	available *storage.Counter
	reserved  *storage.Counter
	awaiting  *storage.Counter
	total     *storage.Counter
	unfunded  *storage.Counter
}

func New(sctx *storage.Context) *Service {
	return &Service{
		available: storage.NewCounter(sctx, "reserve-available"),
		reserved:  storage.NewCounter(sctx, "reserve-reserved"),
		awaiting:  storage.NewCounter(sctx, "reserve-awaiting"),
		total:     storage.NewCounter(sctx, "reserve-total"),
		unfunded:  storage.NewCounter(sctx, "reserve-unfunded"),
	}
}

func (s *Service) Get() (*Balances, error) {
	var (
		b   Balances
		err error
	)
	if b.Available, err = s.available.Get(); err != nil {
		return nil, err
	}
	if b.Reserved, err = s.reserved.Get(); err != nil {
		return nil, err
	}
	if b.Awaiting, err = s.awaiting.Get(); err != nil {
		return nil, err
	}
	if b.Total, err = s.total.Get(); err != nil {
		return nil, err
	}
	if b.Unfunded, err = s.unfunded.Get(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Deposit adds incoming lamports to the reserve. Outstanding ticket
// liability is funded first; the rest becomes available for stake orders.
func (s *Service) Deposit(amount uint64) (toTickets, toAvailable uint64, err error) {
	if err := s.total.Add(amount); err != nil {
		return 0, 0, err
	}
	return s.fund(amount)
}

// Stake takes lamports out of the stake-order balance to delegate them.
func (s *Service) Stake(amount uint64) error {
	if err := s.available.Sub(amount); err != nil {
		return err
	}
	return s.total.Sub(amount)
}

// Reserve earmarks amount for ticket claims, funding it from the available
// balance as far as possible. The rest is recorded as unfunded and is
// returned.
func (s *Service) Reserve(amount uint64) (funded, unfunded uint64, err error) {
	available, err := s.available.Get()
	if err != nil {
		return 0, 0, err
	}
	funded = min(amount, available)
	unfunded = amount - funded
	if err := s.available.Sub(funded); err != nil {
		return 0, 0, err
	}
	if err := s.reserved.Add(funded); err != nil {
		return 0, 0, err
	}
	return funded, unfunded, s.unfunded.Add(unfunded)
}

// PayClaim releases reserved lamports paid out to a ticket holder.
func (s *Service) PayClaim(amount uint64) error {
	if err := s.reserved.Sub(amount); err != nil {
		return err
	}
	return s.total.Sub(amount)
}

// Sweep records lamports withdrawn from a deactivated position.
func (s *Service) Sweep(amount uint64) error {
	if err := s.awaiting.Add(amount); err != nil {
		return err
	}
	return s.total.Add(amount)
}

// Retrieve releases swept lamports, funding outstanding ticket liability
// first. It returns the part that became available for stake orders.
func (s *Service) Retrieve(amount uint64) (toTickets, toAvailable uint64, err error) {
	if err := s.awaiting.Sub(amount); err != nil {
		return 0, 0, err
	}
	return s.fund(amount)
}

// fund splits amount between unfunded ticket liability and available.
func (s *Service) fund(amount uint64) (toTickets, toAvailable uint64, err error) {
	unfunded, err := s.unfunded.Get()
	if err != nil {
		return 0, 0, err
	}
	toTickets = min(amount, unfunded)
	toAvailable = amount - toTickets
	if err := s.unfunded.Sub(toTickets); err != nil {
		return 0, 0, err
	}
	if err := s.reserved.Add(toTickets); err != nil {
		return 0, 0, err
	}
	return toTickets, toAvailable, s.available.Add(toAvailable)
}

// Check verifies available + reserved + awaiting == total.
func (s *Service) Check() error {
	b, err := s.Get()
	if err != nil {
		return err
	}
	return b.Check()
}

func (b *Balances) Check() error {
	sum := b.Available + b.Reserved
	if sum < b.Available {
		return errors.Wrap(ErrUnbalanced, "overflow")
	}
	sum += b.Awaiting
	if sum < b.Awaiting {
		return errors.Wrap(ErrUnbalanced, "overflow")
	}
	if sum != b.Total {
		return errors.Wrapf(ErrUnbalanced, "available %d + reserved %d + awaiting %d != total %d",
			b.Available, b.Reserved, b.Awaiting, b.Total)
	}
	return nil
}
