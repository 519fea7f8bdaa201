// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package co

import "sync"

// Waiter exposes the channel a goroutine selects on to learn of a signal.
type Waiter interface {
	C() <-chan struct{}
}

// Signal coalesces wake-ups: any number of Signal calls made while nobody is
// receiving leave exactly one pending wake-up. Unlike sync.Cond it can be
// combined with other cases in a select.
type Signal struct {
	once sync.Once
	ch   chan struct{}
}

func (s *Signal) init() {
	s.once.Do(func() { s.ch = make(chan struct{}, 1) })
}

// Signal wakes one waiting goroutine, or the next one to wait.
func (s *Signal) Signal() {
	s.init()
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// NewWaiter returns a Waiter receiving from s.
func (s *Signal) NewWaiter() Waiter {
	s.init()
	return waiter(s.ch)
}

type waiter chan struct{}

func (w waiter) C() <-chan struct{} {
	return w
}
