// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"github.com/gagliardetto/solana-go"

	"github.com/lstlabs/settler/settler"
	"github.com/lstlabs/settler/staking/stakes"
	"github.com/lstlabs/settler/staking/tickets"
	"github.com/lstlabs/settler/staking/validators"
)

type Validator struct {
	Index               uint32           `json:"index"`
	Identity            solana.PublicKey `json:"identity"`
	Score               uint32           `json:"score"`
	ActiveBalance       uint64           `json:"activeBalance"`
	LastStakeDeltaEpoch uint64           `json:"lastStakeDeltaEpoch"`
}

func convertValidator(index uint32, v *validators.Validator) *Validator {
	return &Validator{
		Index:               index,
		Identity:            v.Identity,
		Score:               v.Score,
		ActiveBalance:       v.ActiveBalance,
		LastStakeDeltaEpoch: v.LastStakeDeltaEpoch,
	}
}

type Record struct {
	Address          solana.PublicKey `json:"address"`
	Validator        solana.PublicKey `json:"validator"`
	Principal        uint64           `json:"principal"`
	Lifecycle        stakes.Lifecycle `json:"lifecycle"`
	LastCheckedEpoch uint64           `json:"lastCheckedEpoch"`
	CreatedEpoch     uint64           `json:"createdEpoch"`
	Swept            bool             `json:"swept"`
	Retrievable      uint64           `json:"retrievable,omitempty"`
	Emergency        bool             `json:"emergency,omitempty"`
	Shortfall        uint64           `json:"shortfall,omitempty"`
}

func convertRecord(r *stakes.Record) *Record {
	return &Record{
		Address:          r.Address,
		Validator:        r.Validator,
		Principal:        r.Principal,
		Lifecycle:        r.Lifecycle,
		LastCheckedEpoch: r.LastCheckedEpoch,
		CreatedEpoch:     r.CreatedEpoch,
		Swept:            r.Swept,
		Retrievable:      r.Retrievable,
		Emergency:        r.Emergency,
		Shortfall:        r.Shortfall,
	}
}

type Ticket struct {
	ID           settler.Bytes32  `json:"id"`
	Beneficiary  solana.PublicKey `json:"beneficiary"`
	Amount       uint64           `json:"amount"`
	EpochCreated uint64           `json:"epochCreated"`
	DueEpoch     uint64           `json:"dueEpoch"`
}

func convertTicket(t *tickets.Ticket, cooldown uint64) *Ticket {
	return &Ticket{
		ID:           t.ID,
		Beneficiary:  t.Beneficiary,
		Amount:       t.Amount,
		EpochCreated: t.EpochCreated,
		DueEpoch:     t.DueEpoch(cooldown),
	}
}
