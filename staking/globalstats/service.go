// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package globalstats

import (
	"github.com/pkg/errors"

	"github.com/lstlabs/settler/calc"
	"github.com/lstlabs/settler/storage"
)

// Totals is a snapshot of the ledger-wide counters.
type Totals struct {
	Active        uint64 `json:"totalActive"`
	Cooling       uint64 `json:"totalCoolingDown"`
	ReceiptSupply uint64 `json:"receiptSupply"`
	StakeOrders   uint64 `json:"epochStakeOrders"`
	UnstakeOrders uint64 `json:"epochUnstakeOrders"`
	LastEpoch     uint64 `json:"lastEpoch"`
	Slashed       uint64 `json:"slashedPending"`
	// InFlight is unstake already netted against orders and still cooling down.
	InFlight uint64 `json:"unstakeInFlight"`
}

// Delta returns the net stake imbalance: positive when stake orders dominate.
func (t *Totals) Delta() (stake uint64, unstake uint64) {
	if t.StakeOrders >= t.UnstakeOrders {
		return t.StakeOrders - t.UnstakeOrders, 0
	}
	return 0, t.UnstakeOrders - t.StakeOrders
}

// Service manages ledger-wide staking totals and the epoch order accumulators.
type Service struct {
	active        *storage.Counter
	cooling       *storage.Counter
	receiptSupply *storage.Counter
	stakeOrders   *storage.Counter
	unstakeOrders *storage.Counter
	lastEpoch     *storage.Counter
	slashed       *storage.Counter
	inFlight      *storage.Counter
}

func New(sctx *storage.Context) *Service {
	return &Service{
		active:        storage.NewCounter(sctx, "total-active"),
		cooling:       storage.NewCounter(sctx, "total-cooling"),
		receiptSupply: storage.NewCounter(sctx, "receipt-supply"),
		stakeOrders:   storage.NewCounter(sctx, "epoch-stake-orders"),
		unstakeOrders: storage.NewCounter(sctx, "epoch-unstake-orders"),
		lastEpoch:     storage.NewCounter(sctx, "last-epoch"),
		slashed:       storage.NewCounter(sctx, "slashed-pending"),
		inFlight:      storage.NewCounter(sctx, "unstake-in-flight"),
	}
}

func (s *Service) Totals() (*Totals, error) {
	var (
		t   Totals
		err error
	)
	for _, f := range []struct {
		dst *uint64
		c   *storage.Counter
	}{
		{&t.Active, s.active},
		{&t.Cooling, s.cooling},
		{&t.ReceiptSupply, s.receiptSupply},
		{&t.StakeOrders, s.stakeOrders},
		{&t.UnstakeOrders, s.unstakeOrders},
		{&t.LastEpoch, s.lastEpoch},
		{&t.Slashed, s.slashed},
		{&t.InFlight, s.inFlight},
	} {
		if *f.dst, err = f.c.Get(); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func (s *Service) AddActive(amount uint64) error  { return s.active.Add(amount) }
func (s *Service) SubActive(amount uint64) error  { return s.active.Sub(amount) }
func (s *Service) AddCooling(amount uint64) error { return s.cooling.Add(amount) }
func (s *Service) SubCooling(amount uint64) error { return s.cooling.Sub(amount) }

// Deactivate moves amount from the active to the cooling-down total.
func (s *Service) Deactivate(amount uint64) error {
	if err := s.active.Sub(amount); err != nil {
		return err
	}
	return s.cooling.Add(amount)
}

func (s *Service) Mint(tokens uint64) error { return s.receiptSupply.Add(tokens) }
func (s *Service) Burn(tokens uint64) error { return s.receiptSupply.Sub(tokens) }

func (s *Service) AddStakeOrders(amount uint64) error   { return s.stakeOrders.Add(amount) }
func (s *Service) AddUnstakeOrders(amount uint64) error { return s.unstakeOrders.Add(amount) }

// SettleStake consumes stake orders once lamports were delegated.
func (s *Service) SettleStake(amount uint64) error {
	return s.stakeOrders.Sub(amount)
}

// SettleUnstake consumes unstake orders once stake was deactivated.
// Deactivating a whole record may cover more than was ordered, so the
// amount settled is capped at the outstanding orders. The settled part is
// tracked as in flight until the lamports are retrieved.
func (s *Service) SettleUnstake(amount uint64) (settled uint64, err error) {
	orders, err := s.unstakeOrders.Get()
	if err != nil {
		return 0, err
	}
	settled = min(amount, orders)
	if err := s.unstakeOrders.Sub(settled); err != nil {
		return 0, err
	}
	return settled, s.inFlight.Add(settled)
}

// Retrieved accounts lamports returning from a deactivated position. What
// was not already netted as in-flight unstake becomes a stake order again.
func (s *Service) Retrieved(amount uint64) (restake uint64, err error) {
	inFlight, err := s.inFlight.Get()
	if err != nil {
		return 0, err
	}
	netted := min(amount, inFlight)
	if err := s.inFlight.Sub(netted); err != nil {
		return 0, err
	}
	restake = amount - netted
	return restake, s.stakeOrders.Add(restake)
}

// AddSlashed flags lamports missing from a position.
func (s *Service) AddSlashed(amount uint64) error { return s.slashed.Add(amount) }

// ResolveSlashed clears flagged lamports once the loss was realized.
func (s *Service) ResolveSlashed(amount uint64) error {
	slashed, err := s.slashed.Get()
	if err != nil {
		return err
	}
	return s.slashed.Sub(min(amount, slashed))
}

func (s *Service) LastEpoch() (uint64, error) {
	return s.lastEpoch.Get()
}

// SetEpoch anchors the ledger at epoch without rolling orders over.
func (s *Service) SetEpoch(epoch uint64) error {
	return s.lastEpoch.Set(epoch)
}

// Rollover advances the ledger to epoch. Gross order accumulators are
// cleared and the net outstanding delta is carried into the new epoch.
// It returns whether a rollover happened.
func (s *Service) Rollover(epoch uint64) (bool, error) {
	last, err := s.lastEpoch.Get()
	if err != nil {
		return false, err
	}
	if epoch < last {
		return false, errors.Errorf("epoch went backwards: %d < %d", epoch, last)
	}
	if epoch == last {
		return false, nil
	}
	t, err := s.Totals()
	if err != nil {
		return false, err
	}
	stake, unstake := t.Delta()
	if err := s.stakeOrders.Set(stake); err != nil {
		return false, err
	}
	if err := s.unstakeOrders.Set(unstake); err != nil {
		return false, err
	}
	return true, s.lastEpoch.Set(epoch)
}

// VirtualStaked is the lamport value backing the receipt supply:
// active + cooling + reserve total - ticket liability, floored at zero.
func VirtualStaked(t *Totals, reserveTotal, circulating uint64) (uint64, error) {
	sum, err := calc.Add(t.Active, t.Cooling)
	if err != nil {
		return 0, err
	}
	if sum, err = calc.Add(sum, reserveTotal); err != nil {
		return 0, err
	}
	return calc.SaturatingSub(sum, circulating), nil
}
