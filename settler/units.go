// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package settler

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// LamportsPerSOL is the number of base units in one SOL.
	LamportsPerSOL uint64 = 1_000_000_000

	// PriceDenominator is the fixed-point denominator of the exported receipt token price.
	PriceDenominator uint64 = 0x1_0000_0000
)

// Lamports is a base currency amount that renders as SOL.
type Lamports uint64

func (l Lamports) String() string {
	sol := uint64(l) / LamportsPerSOL
	frac := uint64(l) % LamportsPerSOL
	if frac == 0 {
		return strconv.FormatUint(sol, 10) + " SOL"
	}
	return strings.TrimRight(fmt.Sprintf("%d.%09d", sol, frac), "0") + " SOL"
}

// SOL converts whole SOL into lamports.
func SOL(n uint64) uint64 {
	return n * LamportsPerSOL
}
