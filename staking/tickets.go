// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"github.com/gagliardetto/solana-go"

	"github.com/lstlabs/settler/calc"
	"github.com/lstlabs/settler/settler"
	"github.com/lstlabs/settler/staking/reverts"
	"github.com/lstlabs/settler/staking/tickets"
)

// CreateTicket burns tokens held by owner and issues a ticket for their
// lamport value, claimable after the cooldown.
func (e *Engine) CreateTicket(owner solana.PublicKey, tokens uint64) (t *tickets.Ticket, err error) {
	err = e.exec("create_ticket", func(s *step) error {
		t, err = s.createTicket(owner, tokens)
		return err
	})
	return
}

// ClaimTicket pays a due ticket out of the reserve to its beneficiary.
func (e *Engine) ClaimTicket(id settler.Bytes32, beneficiary solana.PublicKey) (t *tickets.Ticket, err error) {
	err = e.exec("claim_ticket", func(s *step) error {
		t, err = s.claimTicket(id, beneficiary)
		return err
	})
	return
}

func (s *step) createTicket(owner solana.PublicKey, tokens uint64) (*tickets.Ticket, error) {
	if tokens == 0 {
		return nil, ErrZeroAmount
	}
	virtual, supply, err := s.priceTerms()
	if err != nil {
		return nil, err
	}
	if tokens > supply {
		return nil, reverts.Newf("tokens %d exceed receipt supply %d", tokens, supply)
	}
	amount, err := calc.ValueFromShares(tokens, virtual, supply)
	if err != nil {
		return nil, err
	}
	if amount == 0 || amount < s.params.MinWithdraw {
		return nil, reverts.Newf("ticket amount %d below minimum %d", amount, s.params.MinWithdraw)
	}

	s.effect(BurnTokens{Mint: s.params.ReceiptMint, From: owner, Amount: tokens})
	if err := s.stats.Burn(tokens); err != nil {
		return nil, err
	}
	t, err := s.tickets.Create(owner, amount, s.clock.Epoch, s.clock.Elapsed)
	if err != nil {
		return nil, err
	}
	if err := s.stats.AddUnstakeOrders(amount); err != nil {
		return nil, err
	}
	funded, unfunded, err := s.reserve.Reserve(amount)
	if err != nil {
		return nil, err
	}

	logger.Debug("ticket created", "id", t.ID, "owner", owner, "amount", amount, "funded", funded, "unfunded", unfunded)
	return t, s.emit(EventTicketCreated, t.ID,
		"beneficiary", owner,
		"tokens", tokens,
		"amount", amount,
		"dueEpoch", t.DueEpoch(s.params.CooldownEpochs),
		"unfunded", unfunded,
	)
}

func (s *step) claimTicket(id settler.Bytes32, beneficiary solana.PublicKey) (*tickets.Ticket, error) {
	t, err := s.tickets.GetExisting(id)
	if err != nil {
		return nil, err
	}
	if t.Beneficiary != beneficiary {
		return nil, reverts.Newf("ticket %s belongs to %s", id, t.Beneficiary)
	}
	if !t.Claimable(s.clock.Epoch, s.clock.Elapsed, s.params.CooldownEpochs, s.params.ClaimMargin()) {
		return nil, reverts.NotEligiblef("ticket %s is due in epoch %d", id, t.DueEpoch(s.params.CooldownEpochs))
	}
	res, err := s.reserve.Get()
	if err != nil {
		return nil, err
	}
	if res.Reserved < t.Amount {
		if res.Unfunded > 0 {
			return nil, reverts.NotEligiblef("ticket %s waits on %d lamports still cooling down", id, res.Unfunded)
		}
		return nil, faultf("reserved %d cannot cover ticket %s of %d", res.Reserved, id, t.Amount)
	}

	if err := s.reserve.PayClaim(t.Amount); err != nil {
		return nil, err
	}
	if err := s.tickets.Destroy(t); err != nil {
		return nil, err
	}
	s.effect(Transfer{From: s.accounts.Reserve, To: beneficiary, Amount: t.Amount})

	return t, s.emit(EventTicketClaimed, t.ID,
		"beneficiary", beneficiary,
		"amount", t.Amount,
		"epochCreated", t.EpochCreated,
	)
}
