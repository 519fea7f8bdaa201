// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
	"fmt"
)

// Kind classifies a caller-facing failure.
type Kind uint8

const (
	// Precondition failures mean the caller passed stale or invalid input.
	Precondition Kind = iota
	// Eligibility failures are expected when cranks race or run early.
	Eligibility
)

func (k Kind) String() string {
	switch k {
	case Precondition:
		return "precondition"
	case Eligibility:
		return "eligibility"
	default:
		return "unknown"
	}
}

// ErrRevert is returned for failures that leave the ledger untouched and
// may be retried by the caller.
type ErrRevert struct {
	kind    Kind
	message string
}

func New(message string) *ErrRevert {
	return &ErrRevert{
		kind:    Precondition,
		message: message,
	}
}

func Newf(format string, args ...any) *ErrRevert {
	return New(fmt.Sprintf(format, args...))
}

// NotEligible builds an eligibility failure.
func NotEligible(message string) *ErrRevert {
	return &ErrRevert{
		kind:    Eligibility,
		message: message,
	}
}

func NotEligiblef(format string, args ...any) *ErrRevert {
	return NotEligible(fmt.Sprintf(format, args...))
}

func (e *ErrRevert) Error() string {
	return e.message
}

func (e *ErrRevert) Kind() Kind {
	return e.kind
}

func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	return errors.As(e, &ve)
}

func IsPrecondition(err error) bool {
	var ve *ErrRevert
	return errors.As(err, &ve) && ve.kind == Precondition
}

func IsEligibility(err error) bool {
	var ve *ErrRevert
	return errors.As(err, &ve) && ve.kind == Eligibility
}
