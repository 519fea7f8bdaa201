// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package calc provides the overflow-checked lamport and share arithmetic
// used by the ledger. Every helper reports overflow instead of wrapping.
package calc

import (
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

var (
	ErrOverflow  = errors.New("arithmetic overflow")
	ErrUnderflow = errors.New("arithmetic underflow")
)

// Add returns a + b.
func Add(a, b uint64) (uint64, error) {
	v, overflow := math.SafeAdd(a, b)
	if overflow {
		return 0, ErrOverflow
	}
	return v, nil
}

// Sub returns a - b.
func Sub(a, b uint64) (uint64, error) {
	v, overflow := math.SafeSub(a, b)
	if overflow {
		return 0, ErrUnderflow
	}
	return v, nil
}

// Mul returns a * b.
func Mul(a, b uint64) (uint64, error) {
	v, overflow := math.SafeMul(a, b)
	if overflow {
		return 0, ErrOverflow
	}
	return v, nil
}

// SaturatingSub returns a - b, or 0 when b > a.
func SaturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

// Proportional returns floor(amount * numerator / denominator) using a 256 bit
// intermediate. A zero denominator returns amount unchanged, which is the
// convention for an empty pool or supply.
func Proportional(amount, numerator, denominator uint64) (uint64, error) {
	if denominator == 0 {
		return amount, nil
	}
	var z uint256.Int
	z.Mul(uint256.NewInt(amount), uint256.NewInt(numerator))
	z.Div(&z, uint256.NewInt(denominator))
	if !z.IsUint64() {
		return 0, ErrOverflow
	}
	return z.Uint64(), nil
}

// ProportionalCeil is Proportional rounded up.
func ProportionalCeil(amount, numerator, denominator uint64) (uint64, error) {
	if denominator == 0 {
		return amount, nil
	}
	var p, q, r uint256.Int
	p.Mul(uint256.NewInt(amount), uint256.NewInt(numerator))
	q.DivMod(&p, uint256.NewInt(denominator), &r)
	if !r.IsZero() {
		q.AddUint64(&q, 1)
	}
	if !q.IsUint64() {
		return 0, ErrOverflow
	}
	return q.Uint64(), nil
}

// SharesFromValue converts a lamport value into shares of a pool holding
// totalValue backed by totalShares. The first depositor receives shares 1:1.
func SharesFromValue(value, totalValue, totalShares uint64) (uint64, error) {
	if totalShares == 0 {
		return value, nil
	}
	return Proportional(value, totalShares, totalValue)
}

// ValueFromShares converts shares back into lamports, rounding down.
func ValueFromShares(shares, totalValue, totalShares uint64) (uint64, error) {
	return Proportional(shares, totalValue, totalShares)
}

// ValueFromSharesCeil converts shares back into lamports, rounding up.
func ValueFromSharesCeil(shares, totalValue, totalShares uint64) (uint64, error) {
	return ProportionalCeil(shares, totalValue, totalShares)
}

// IsArithmetic reports whether err is an overflow or underflow.
func IsArithmetic(err error) bool {
	return errors.Is(err, ErrOverflow) || errors.Is(err, ErrUnderflow)
}

// RatioLess reports whether aNum/aDen < bNum/bDen, comparing cross products
// so no precision is lost. Numerators must fit in 192 bits.
func RatioLess(aNum *uint256.Int, aDen uint64, bNum *uint256.Int, bDen uint64) bool {
	var l, r uint256.Int
	l.Mul(aNum, uint256.NewInt(bDen))
	r.Mul(bNum, uint256.NewInt(aDen))
	return l.Lt(&r)
}
