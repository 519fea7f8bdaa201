// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package calc

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// MaxBasisPoints is 100%.
const MaxBasisPoints = 10_000

// Fee is a fraction expressed in basis points.
type Fee struct {
	BasisPoints uint32
}

// FromBasisPoints builds a fee.
func FromBasisPoints(bp uint32) Fee {
	return Fee{BasisPoints: bp}
}

// Apply returns floor(amount * fee).
func (f Fee) Apply(amount uint64) (uint64, error) {
	return Proportional(amount, uint64(f.BasisPoints), MaxBasisPoints)
}

// Check validates the fee against an upper bound.
func (f Fee) Check(max Fee) error {
	if f.BasisPoints > max.BasisPoints {
		return errors.Errorf("fee %v exceeds max %v", f, max)
	}
	return nil
}

func (f Fee) String() string {
	s := strconv.FormatFloat(float64(f.BasisPoints)/100, 'f', -1, 64)
	return s + "%"
}

func (f Fee) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Fee) UnmarshalText(text []byte) error {
	parsed, err := ParseFee(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseFee parses "0.5%", "50bp" or a bare basis point count.
func ParseFee(s string) (Fee, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasSuffix(s, "%"):
		pct, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
		if err != nil {
			return Fee{}, errors.Wrapf(err, "invalid fee %q", s)
		}
		bp := math.Round(pct * 100)
		if bp < 0 || bp > MaxBasisPoints || math.Abs(bp-pct*100) > 1e-9 {
			return Fee{}, fmt.Errorf("invalid fee %q", s)
		}
		return Fee{BasisPoints: uint32(bp)}, nil
	default:
		n, err := strconv.ParseUint(strings.TrimSpace(strings.TrimSuffix(s, "bp")), 10, 32)
		if err != nil {
			return Fee{}, errors.Wrapf(err, "invalid fee %q", s)
		}
		if n > MaxBasisPoints {
			return Fee{}, fmt.Errorf("invalid fee %q", s)
		}
		return Fee{BasisPoints: uint32(n)}, nil
	}
}

// LinearFee interpolates between maxFee when the remaining liquidity is empty
// and minFee once it reaches target.
func LinearFee(maxFee, minFee Fee, target, liquidityAfter uint64) (Fee, error) {
	if liquidityAfter >= target {
		return minFee, nil
	}
	if minFee.BasisPoints > maxFee.BasisPoints {
		return Fee{}, errors.Errorf("min fee %v above max fee %v", minFee, maxFee)
	}
	delta := uint64(maxFee.BasisPoints - minFee.BasisPoints)
	cut, err := Proportional(delta, liquidityAfter, target)
	if err != nil {
		return Fee{}, err
	}
	return Fee{BasisPoints: maxFee.BasisPoints - uint32(cut)}, nil
}
