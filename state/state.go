// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"bytes"
	"fmt"

	"github.com/lstlabs/settler/cache"
	"github.com/lstlabs/settler/kv"
	"github.com/lstlabs/settler/stackedmap"
)

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// State is a journaled view over the committed ledger store.
// Writes land in an in-memory revision stack until Stage is committed;
// checkpoints allow a failed step to be rolled back without touching the store.
type State struct {
	src   kv.Getter
	cache *cache.LRU // committed values, nil entries mean absent
	sm    *stackedmap.StackedMap[string, []byte]
}

// New create state object.
func New(src kv.Getter, committed *cache.LRU) *State {
	s := &State{
		src:   src,
		cache: committed,
	}
	s.sm = stackedmap.New(s.load)
	s.sm.Push()
	return s
}

func (s *State) load(key string) ([]byte, bool, error) {
	loader := func(k any) (any, error) {
		val, err := s.src.Get([]byte(k.(string)))
		if err != nil {
			if s.src.IsNotFound(err) {
				return []byte(nil), nil
			}
			return nil, err
		}
		return val, nil
	}

	var (
		v   any
		err error
	)
	if s.cache != nil {
		v, err = s.cache.GetOrLoad(key, loader)
	} else {
		v, err = loader(key)
	}
	if err != nil {
		return nil, false, &Error{err}
	}
	val := v.([]byte)
	return val, len(val) > 0, nil
}

// Get returns the raw value stored under key, nil if absent.
func (s *State) Get(key []byte) ([]byte, error) {
	v, _, err := s.sm.Get(string(key))
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Has returns whether a non-empty value exists for the key.
func (s *State) Has(key []byte) (bool, error) {
	v, err := s.Get(key)
	return len(v) > 0, err
}

// Set puts the raw value. An empty value deletes the key.
func (s *State) Set(key []byte, value []byte) {
	s.sm.Put(string(key), bytes.Clone(value))
}

// Delete removes the key.
func (s *State) Delete(key []byte) {
	s.sm.Put(string(key), nil)
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo revert to checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	if revision > s.sm.Depth() {
		panic("invalid revision")
	}
	s.sm.PopTo(revision)
	if s.sm.Depth() == 0 {
		s.sm.Push()
	}
}

// Stage collects the pending changes into a stage ready to be committed.
func (s *State) Stage() *Stage {
	changes := make(map[string][]byte)
	var order []string
	s.sm.Journal(func(key string, value []byte) bool {
		if _, ok := changes[key]; !ok {
			order = append(order, key)
		}
		changes[key] = value
		return true
	})
	return &Stage{state: s, keys: order, changes: changes}
}

// reset drops the revision stack after a successful commit,
// refreshing the committed cache with the written values.
func (s *State) reset(changes map[string][]byte) {
	if s.cache != nil {
		for k, v := range changes {
			s.cache.Add(k, v)
		}
	}
	s.sm.PopTo(0)
	s.sm.Push()
}
