// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import "sync/atomic"

// Stats counts GetOrLoad lookups served from memory and from the loader.
type Stats struct {
	hit, miss atomic.Int64
	// hit rate in permille at the last Rate call
	last atomic.Int64
}

func (cs *Stats) Hit()  { cs.hit.Add(1) }
func (cs *Stats) Miss() { cs.miss.Add(1) }

// Counts returns the lookups so far.
func (cs *Stats) Counts() (hit, miss int64) {
	return cs.hit.Load(), cs.miss.Load()
}

// Rate returns the hit rate in permille, and whether it moved since the
// previous call so callers can skip reporting a flat rate.
func (cs *Stats) Rate() (permille int64, moved bool) {
	hit, miss := cs.Counts()
	if hit+miss > 0 {
		permille = hit * 1000 / (hit + miss)
	}
	return permille, cs.last.Swap(permille) != permille
}
