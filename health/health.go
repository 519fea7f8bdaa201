// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package health

import (
	"sync"
	"time"

	"github.com/lstlabs/settler/staking"
)

type CrankProgress struct {
	LastEpoch     uint64     `json:"lastEpoch"`
	LastTimestamp *time.Time `json:"lastTimestamp"`
	Failures      int        `json:"consecutiveFailures"`
}

type Status struct {
	Healthy bool           `json:"healthy"`
	Crank   *CrankProgress `json:"crank"`
	Fault   string         `json:"fault,omitempty"`
}

// Health follows the maintenance passes. A node is healthy while passes keep
// completing and no accounting fault was seen.
type Health struct {
	lock     sync.RWMutex
	interval time.Duration
	lastPass time.Time
	epoch    uint64
	failures int
	fault    error
}

// New creates a tracker expecting a pass at least every interval.
func New(interval time.Duration) *Health {
	return &Health{interval: interval}
}

// Pass records the outcome of one pass.
func (h *Health) Pass(epoch uint64, err error) {
	h.lock.Lock()
	defer h.lock.Unlock()

	if err != nil {
		h.failures++
		if staking.IsAccountingFault(err) {
			h.fault = err
		}
		return
	}
	h.failures = 0
	h.lastPass = time.Now()
	h.epoch = epoch
}

// Status reports health, allowing maxTimeBetweenPasses since the last
// successful pass, or twice the pass interval when zero.
func (h *Health) Status(maxTimeBetweenPasses time.Duration) *Status {
	h.lock.RLock()
	defer h.lock.RUnlock()

	if maxTimeBetweenPasses <= 0 {
		maxTimeBetweenPasses = 2 * h.interval
	}
	progress := &CrankProgress{LastEpoch: h.epoch, Failures: h.failures}
	if !h.lastPass.IsZero() {
		last := h.lastPass
		progress.LastTimestamp = &last
	}
	status := &Status{
		Healthy: h.fault == nil && !h.lastPass.IsZero() && time.Since(h.lastPass) <= maxTimeBetweenPasses,
		Crank:   progress,
	}
	if h.fault != nil {
		status.Fault = h.fault.Error()
	}
	return status
}
