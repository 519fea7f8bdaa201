// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakes

import (
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// Lifecycle is the state of the delegated position behind a record, as
// classified by the host.
type Lifecycle uint8

const (
	Activating Lifecycle = iota
	Active
	CoolingDown
	Deactivated
)

func (l Lifecycle) String() string {
	switch l {
	case Activating:
		return "activating"
	case Active:
		return "active"
	case CoolingDown:
		return "cooling-down"
	case Deactivated:
		return "deactivated"
	default:
		return "unknown"
	}
}

func (l Lifecycle) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Lifecycle) UnmarshalText(text []byte) error {
	parsed, err := ParseLifecycle(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

func ParseLifecycle(s string) (Lifecycle, error) {
	for l := Activating; l <= Deactivated; l++ {
		if l.String() == s {
			return l, nil
		}
	}
	return 0, errors.Errorf("unknown lifecycle %q", s)
}

// IsStaking reports whether the position counts towards active stake.
func (l Lifecycle) IsStaking() bool {
	return l == Activating || l == Active
}

// CanTransition reports whether the ledger may move a record from one
// lifecycle to the next. Positions never move backwards.
func CanTransition(from, to Lifecycle) bool {
	if from == to {
		return from <= Deactivated
	}
	switch from {
	case Activating:
		return to == Active || to == CoolingDown || to == Deactivated
	case Active:
		return to == CoolingDown || to == Deactivated
	case CoolingDown:
		return to == Deactivated
	default:
		return false
	}
}

// Record is one delegated position controlled by the ledger.
type Record struct {
	Address          solana.PublicKey
	Validator        solana.PublicKey
	Principal        uint64
	LastCheckedEpoch uint64
	Lifecycle        Lifecycle
	CreatedEpoch     uint64
	// Swept is set once the balance of a deactivated position moved into the
	// reserve; Retrievable holds the swept amount until retrieval.
	Swept       bool
	Retrievable uint64
	// Emergency marks positions the host deactivated on its own.
	Emergency bool
	// Shortfall is the slashed amount currently flagged for this position.
	Shortfall uint64
}

func (r *Record) IsEmpty() bool {
	return r == nil || r.Address.IsZero()
}

// CheckedIn reports whether rewards were already recognized in epoch.
func (r *Record) CheckedIn(epoch uint64) bool {
	return r.LastCheckedEpoch == epoch
}
