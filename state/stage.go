// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/pkg/errors"

	"github.com/lstlabs/settler/kv"
)

// Stage abstracts changes on the ledger that have not been written yet.
type Stage struct {
	state   *State
	keys    []string
	changes map[string][]byte
}

// Len returns the number of distinct keys touched.
func (s *Stage) Len() int {
	return len(s.keys)
}

// Keys returns the touched keys in first-write order.
func (s *Stage) Keys() [][]byte {
	out := make([][]byte, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, []byte(k))
	}
	return out
}

// Commit writes the changes into the store as one atomic batch and resets
// the state's revision stack on success.
func (s *Stage) Commit(store interface{ NewBatch() kv.Batch }) error {
	batch := store.NewBatch()
	for _, k := range s.keys {
		v := s.changes[k]
		var err error
		if len(v) == 0 {
			err = batch.Delete([]byte(k))
		} else {
			err = batch.Put([]byte(k), v)
		}
		if err != nil {
			return errors.Wrap(err, "stage")
		}
	}
	if batch.Len() > 0 {
		if err := batch.Write(); err != nil {
			return errors.Wrap(err, "commit")
		}
	}
	s.state.reset(s.changes)
	return nil
}
