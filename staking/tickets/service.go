// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tickets

import (
	"encoding/binary"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/lstlabs/settler/settler"
	"github.com/lstlabs/settler/staking/reverts"
	"github.com/lstlabs/settler/storage"
)

var (
	slotTickets = settler.BytesToBytes32([]byte("tickets"))

	ErrTicketNotFound = reverts.New("ticket not found")
)

// Service issues and destroys tickets and tracks the outstanding liability.
type Service struct {
	tickets     *storage.Mapping[settler.Bytes32, *Ticket]
	nonce       *storage.Counter
	count       *storage.Counter
	circulating *storage.Counter
}

func New(sctx *storage.Context) *Service {
	return &Service{
		tickets:     storage.NewMapping[settler.Bytes32, *Ticket](sctx, slotTickets),
		nonce:       storage.NewCounter(sctx, "ticket-nonce"),
		count:       storage.NewCounter(sctx, "ticket-count"),
		circulating: storage.NewCounter(sctx, "ticket-circulating"),
	}
}

// Create issues a new ticket for amount lamports.
func (s *Service) Create(beneficiary solana.PublicKey, amount, epoch uint64, elapsed time.Duration) (*Ticket, error) {
	if amount == 0 {
		return nil, reverts.New("ticket amount is zero")
	}
	n, err := s.nonce.Get()
	if err != nil {
		return nil, err
	}
	if err := s.nonce.Add(1); err != nil {
		return nil, err
	}

	t := &Ticket{
		ID:             settler.Blake2b([]byte("ticket"), binary.BigEndian.AppendUint64(nil, n), beneficiary.Bytes()),
		Beneficiary:    beneficiary,
		Amount:         amount,
		EpochCreated:   epoch,
		CreatedElapsed: uint64(elapsed / time.Second),
	}
	if err := s.tickets.Set(t.ID, t); err != nil {
		return nil, errors.Wrap(err, "failed to store ticket")
	}
	if err := s.count.Add(1); err != nil {
		return nil, err
	}
	if err := s.circulating.Add(amount); err != nil {
		return nil, err
	}
	return t, nil
}

// Get returns the ticket, empty if unknown.
func (s *Service) Get(id settler.Bytes32) (*Ticket, error) {
	return s.tickets.Get(id)
}

// GetExisting returns the ticket or a not found revert.
func (s *Service) GetExisting(id settler.Bytes32) (*Ticket, error) {
	t, err := s.tickets.Get(id)
	if err != nil {
		return nil, err
	}
	if t.IsEmpty() {
		return nil, ErrTicketNotFound
	}
	return t, nil
}

// Destroy removes a claimed ticket.
func (s *Service) Destroy(t *Ticket) error {
	if err := s.tickets.Delete(t.ID); err != nil {
		return err
	}
	if err := s.count.Sub(1); err != nil {
		return err
	}
	return s.circulating.Sub(t.Amount)
}

func (s *Service) Count() (uint64, error) {
	return s.count.Get()
}

// Circulating is the total lamports owed to outstanding tickets.
func (s *Service) Circulating() (uint64, error) {
	return s.circulating.Get()
}
