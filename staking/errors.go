// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"github.com/pkg/errors"

	"github.com/lstlabs/settler/calc"
	"github.com/lstlabs/settler/meter"
	"github.com/lstlabs/settler/staking/reserve"
	"github.com/lstlabs/settler/staking/reverts"
)

// ErrAccountingFault marks a broken ledger invariant. The step that hit it is
// discarded entirely and the fault is logged for operators.
var ErrAccountingFault = errors.New("accounting fault")

var (
	ErrNotInitialized = reverts.New("ledger not initialized")
	ErrAlreadyChecked = reverts.NotEligible("stake record already checked this epoch")
	ErrNoStakeDelta   = reverts.NotEligible("no stake delta to rebalance")
	ErrNoUnstakeDelta = reverts.NotEligible("no unstake delta to rebalance")
	ErrZeroAmount     = reverts.New("amount is zero")

	ErrInsufficientLiquidity = reverts.New("insufficient liquidity")
)

func faultf(format string, args ...any) error {
	return errors.Wrapf(ErrAccountingFault, format, args...)
}

// IsAccountingFault reports whether err is an invariant violation,
// including any arithmetic overflow or underflow.
func IsAccountingFault(err error) bool {
	return errors.Is(err, ErrAccountingFault) ||
		calc.IsArithmetic(err) ||
		errors.Is(err, reserve.ErrUnbalanced)
}

// Outcome classifies a step error for metrics and the API.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case reverts.IsPrecondition(err):
		return "precondition"
	case reverts.IsEligibility(err):
		return "eligibility"
	case errors.Is(err, meter.ErrBudgetExceeded):
		return "budget"
	case IsAccountingFault(err):
		return "fault"
	default:
		return "error"
	}
}
