// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"strconv"

	"github.com/lstlabs/settler/staking/reverts"
)

type epochSubject uint64

func (e epochSubject) String() string {
	return strconv.FormatUint(uint64(e), 10)
}

// rollover lazily moves the ledger into the host's epoch on the first step
// that observes it.
func (s *step) rollover() error {
	last, err := s.stats.LastEpoch()
	if err != nil {
		return err
	}
	if s.clock.Epoch < last {
		return reverts.Newf("host epoch %d is behind ledger epoch %d", s.clock.Epoch, last)
	}
	if s.clock.Epoch == last {
		return nil
	}
	if _, err := s.stats.Rollover(s.clock.Epoch); err != nil {
		return err
	}
	t, err := s.stats.Totals()
	if err != nil {
		return err
	}
	logger.Info("epoch rolled", "from", last, "to", s.clock.Epoch, "stakeOrders", t.StakeOrders, "unstakeOrders", t.UnstakeOrders)
	return s.emit(EventEpochRolled, epochSubject(s.clock.Epoch),
		"from", last,
		"carriedStake", t.StakeOrders,
		"carriedUnstake", t.UnstakeOrders,
	)
}
