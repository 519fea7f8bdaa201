// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validators

import (
	"github.com/gagliardetto/solana-go"

	"github.com/lstlabs/settler/calc"
)

// Validator is one slot of the ordered validator list.
type Validator struct {
	Identity            solana.PublicKey
	Score               uint32
	ActiveBalance       uint64
	LastStakeDeltaEpoch uint64
	// SplitMark is the epoch of the last partial split plus one, zero if never split.
	SplitMark uint64
}

// IsEmpty returns whether the slot is unset.
func (v *Validator) IsEmpty() bool {
	return v == nil || v.Identity.IsZero()
}

// SplitIn reports whether a partial unstake split already happened in epoch.
func (v *Validator) SplitIn(epoch uint64) bool {
	return v.SplitMark == epoch+1
}

func (v *Validator) MarkSplit(epoch uint64) {
	v.SplitMark = epoch + 1
}

// Target returns the validator's share of total, score / totalScore.
func (v *Validator) Target(total, totalScore uint64) (uint64, error) {
	if totalScore == 0 || v.Score == 0 {
		return 0, nil
	}
	return calc.Proportional(total, uint64(v.Score), totalScore)
}

// Deficit returns how far the active balance is below target.
func (v *Validator) Deficit(target uint64) uint64 {
	return calc.SaturatingSub(target, v.ActiveBalance)
}

// Surplus returns how far the active balance is above target.
func (v *Validator) Surplus(target uint64) uint64 {
	return calc.SaturatingSub(v.ActiveBalance, target)
}
