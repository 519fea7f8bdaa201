// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tickets

import (
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/lstlabs/settler/settler"
)

// Ticket is a create-only claim on a delayed withdrawal.
type Ticket struct {
	ID           settler.Bytes32
	Beneficiary  solana.PublicKey
	Amount       uint64
	EpochCreated uint64
	// CreatedElapsed is the seconds since epoch start at creation.
	CreatedElapsed uint64
}

func (t *Ticket) IsEmpty() bool {
	return t == nil || t.ID.IsZero()
}

// DueEpoch is the first epoch the ticket may be claimed in.
func (t *Ticket) DueEpoch(cooldown uint64) uint64 {
	return t.EpochCreated + cooldown
}

// Claimable reports whether the ticket can be claimed at the given point.
// In the due epoch itself the settlement margin must also have elapsed.
func (t *Ticket) Claimable(epoch uint64, elapsed time.Duration, cooldown uint64, margin time.Duration) bool {
	due := t.DueEpoch(cooldown)
	switch {
	case epoch < due:
		return false
	case epoch == due:
		return elapsed >= margin
	default:
		return true
	}
}
