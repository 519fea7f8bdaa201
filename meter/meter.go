// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package meter

import (
	"fmt"

	"github.com/pkg/errors"
)

// Compute unit prices for ledger access, per 32-byte word.
const (
	ReadUnits       uint64 = 200
	WriteNewUnits   uint64 = 2000
	WriteResetUnits uint64 = 500

	DefaultBudget uint64 = 200_000
)

var ErrBudgetExceeded = errors.New("compute budget exceeded")

// Op is the kind of access a charge pays for.
type Op int

const (
	OpRead Op = iota
	OpWriteNew
	OpWriteReset
	OpCustom
	numOps
)

var opNames = [numOps]string{"READ", "WRITE_NEW", "WRITE_RESET", "CUSTOM"}

func (op Op) String() string {
	if op < 0 || op >= numOps {
		return fmt.Sprintf("Op(%d)", int(op))
	}
	return opNames[op]
}

// Meter accounts the compute units one step consumes against its budget.
// A zero budget is unlimited.
type Meter struct {
	budget     uint64
	ops        [numOps]uint64
	units      [numOps]uint64
	totalUnits uint64
}

func New(budget uint64) *Meter {
	return &Meter{budget: budget}
}

// Charge records one access of kind op costing units and fails once the
// budget is exhausted.
func (m *Meter) Charge(op Op, units uint64) error {
	if op < 0 || op >= numOps {
		op = OpCustom
	}
	m.ops[op]++
	m.units[op] += units
	m.totalUnits += units

	if m.budget > 0 && m.totalUnits > m.budget {
		return errors.Wrapf(ErrBudgetExceeded, "used %d of %d", m.totalUnits, m.budget)
	}
	return nil
}

// Remaining returns the units left, or the max uint64 for an unlimited meter.
func (m *Meter) Remaining() uint64 {
	if m.budget == 0 {
		return ^uint64(0)
	}
	if m.totalUnits >= m.budget {
		return 0
	}
	return m.budget - m.totalUnits
}

// Ops returns how many accesses of kind op were charged.
func (m *Meter) Ops(op Op) uint64 {
	if op < 0 || op >= numOps {
		return 0
	}
	return m.ops[op]
}

func (m *Meter) Breakdown() string {
	return fmt.Sprintf(
		"READ: %d ops (%d units) | WRITE_NEW: %d ops (%d units) | WRITE_RESET: %d ops (%d units) | CUSTOM: %d ops (%d units) | TOTAL: %d units",
		m.ops[OpRead], m.units[OpRead],
		m.ops[OpWriteNew], m.units[OpWriteNew],
		m.ops[OpWriteReset], m.units[OpWriteReset],
		m.ops[OpCustom], m.units[OpCustom],
		m.totalUnits,
	)
}

func (m *Meter) Used() uint64 {
	return m.totalUnits
}

func (m *Meter) Budget() uint64 {
	return m.budget
}
