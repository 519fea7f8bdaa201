// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"github.com/gagliardetto/solana-go"

	"github.com/lstlabs/settler/calc"
	"github.com/lstlabs/settler/staking/reverts"
	"github.com/lstlabs/settler/staking/stakes"
	"github.com/lstlabs/settler/staking/validators"
)

// RebalanceResult reports one rebalancing move.
type RebalanceResult struct {
	Index     uint32           `json:"index"`
	Validator solana.PublicKey `json:"validator"`
	Record    solana.PublicKey `json:"record"`
	Moved     uint64           `json:"moved"`
	Remaining uint64           `json:"remaining"`
	// More is set when another call could make further progress.
	More bool `json:"more"`
}

// Target names the validator a rebalance call should be made for.
type Target struct {
	Index     uint32           `json:"index"`
	Validator solana.PublicKey `json:"validator"`
	Gap       uint64           `json:"gap"`
}

// RebalanceStake delegates reserve lamports to a validator below its target.
// The caller names the validator by index and identity, usually as picked by
// NextStakeTarget; the step only verifies that slot.
func (e *Engine) RebalanceStake(index uint32, identity solana.PublicKey) (res *RebalanceResult, err error) {
	err = e.exec("rebalance_stake", func(s *step) error {
		res, err = s.rebalanceStake(index, identity)
		return err
	})
	return
}

// RebalanceUnstake deactivates stake at a validator above its target, named
// as for RebalanceStake.
func (e *Engine) RebalanceUnstake(index uint32, identity solana.PublicKey) (res *RebalanceResult, err error) {
	err = e.exec("rebalance_unstake", func(s *step) error {
		res, err = s.rebalanceUnstake(index, identity)
		return err
	})
	return
}

// NextStakeTarget returns the validator RebalanceStake should be called for.
func (e *Engine) NextStakeTarget() (t *Target, err error) {
	err = e.view(func(s *step) error {
		tt, err := s.stats.Totals()
		if err != nil {
			return err
		}
		stake, _ := tt.Delta()
		if stake == 0 {
			return ErrNoStakeDelta
		}
		total, err := calc.Add(tt.Active, stake)
		if err != nil {
			return err
		}
		t, err = s.scan(total, true)
		return err
	})
	return
}

// NextUnstakeTarget returns the validator RebalanceUnstake should be called for.
func (e *Engine) NextUnstakeTarget() (t *Target, err error) {
	err = e.view(func(s *step) error {
		tt, err := s.stats.Totals()
		if err != nil {
			return err
		}
		_, unstake := tt.Delta()
		if unstake == 0 {
			return ErrNoUnstakeDelta
		}
		t, err = s.scan(calc.SaturatingSub(tt.Active, unstake), false)
		return err
	})
	return
}

// scan finds the validator with the largest deficit (stake side) or surplus
// against its share of total. Ties keep the lowest index. It visits every
// slot, so only the unmetered target views call it.
func (s *step) scan(total uint64, deficit bool) (*Target, error) {
	totalScore, err := s.validators.TotalScore()
	if err != nil {
		return nil, err
	}
	var best *Target
	err = s.validators.Iter(func(i uint32, v *validators.Validator) error {
		gap, err := gapOf(v, total, totalScore, deficit)
		if err != nil {
			return err
		}
		if gap > 0 && (best == nil || gap > best.Gap) {
			best = &Target{Index: i, Validator: v.Identity, Gap: gap}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if best == nil {
		if deficit {
			return nil, reverts.NotEligible("no validator below target")
		}
		return nil, reverts.NotEligible("no validator above target")
	}
	return best, nil
}

func gapOf(v *validators.Validator, total, totalScore uint64, deficit bool) (uint64, error) {
	target, err := v.Target(total, totalScore)
	if err != nil {
		return 0, err
	}
	if deficit {
		return v.Deficit(target), nil
	}
	return v.Surplus(target), nil
}

// slotGap verifies the caller's pick: the named slot alone must be off its
// target in the requested direction.
func (s *step) slotGap(index uint32, v *validators.Validator, total uint64, deficit bool) (uint64, error) {
	totalScore, err := s.validators.TotalScore()
	if err != nil {
		return 0, err
	}
	gap, err := gapOf(v, total, totalScore, deficit)
	if err != nil {
		return 0, err
	}
	if gap == 0 {
		if deficit {
			return 0, reverts.NotEligiblef("validator %d is not below its target", index)
		}
		return 0, reverts.NotEligiblef("validator %d is not above its target", index)
	}
	return gap, nil
}

func (s *step) rebalanceStake(index uint32, identity solana.PublicKey) (*RebalanceResult, error) {
	v, err := s.validators.GetChecked(index, identity)
	if err != nil {
		return nil, err
	}
	t, err := s.stats.Totals()
	if err != nil {
		return nil, err
	}
	stake, _ := t.Delta()
	if stake == 0 {
		return nil, ErrNoStakeDelta
	}
	total, err := calc.Add(t.Active, stake)
	if err != nil {
		return nil, err
	}
	gap, err := s.slotGap(index, v, total, true)
	if err != nil {
		return nil, err
	}

	res, err := s.reserve.Get()
	if err != nil {
		return nil, err
	}
	amount := min(stake, gap, res.Available)
	if stake-amount < s.params.MinStake {
		// too little would be left for another record
		amount = min(stake, res.Available)
	}
	if amount < s.params.MinStake {
		return nil, reverts.NotEligiblef("stake amount %d below minimum %d", amount, s.params.MinStake)
	}

	// top up a record activated this epoch, otherwise open a new one
	rec, err := s.stakes.Largest(v.Identity, func(r *stakes.Record) bool {
		return r.Lifecycle == stakes.Activating && r.CreatedEpoch == s.clock.Epoch && !r.Swept
	})
	if err != nil {
		return nil, err
	}
	if rec != nil {
		if rec.Principal, err = calc.Add(rec.Principal, amount); err != nil {
			return nil, err
		}
		if err := s.stakes.Update(rec); err != nil {
			return nil, err
		}
	} else {
		addr, err := s.stakes.NextAddress(s.params.Program)
		if err != nil {
			return nil, err
		}
		rec = &stakes.Record{
			Address:          addr,
			Validator:        v.Identity,
			Principal:        amount,
			LastCheckedEpoch: s.clock.Epoch,
			Lifecycle:        stakes.Activating,
			CreatedEpoch:     s.clock.Epoch,
		}
		if err := s.stakes.Add(rec); err != nil {
			return nil, err
		}
	}
	s.effect(Delegate{
		Record:    rec.Address,
		Validator: v.Identity,
		From:      s.accounts.Reserve,
		Authority: s.accounts.StakeAuthority,
		Amount:    amount,
	})

	if err := s.reserve.Stake(amount); err != nil {
		return nil, err
	}
	if err := s.stats.AddActive(amount); err != nil {
		return nil, err
	}
	if err := s.stats.SettleStake(amount); err != nil {
		return nil, err
	}
	if v.ActiveBalance, err = calc.Add(v.ActiveBalance, amount); err != nil {
		return nil, err
	}
	v.LastStakeDeltaEpoch = s.clock.Epoch
	if err := s.validators.Update(index, v); err != nil {
		return nil, err
	}

	result := &RebalanceResult{
		Index:     index,
		Validator: v.Identity,
		Record:    rec.Address,
		Moved:     amount,
		Remaining: stake - amount,
	}
	result.More = result.Remaining > 0 && res.Available > amount
	return result, s.emit(EventStakeDelegated, rec.Address,
		"validator", v.Identity,
		"index", index,
		"amount", amount,
		"remaining", result.Remaining,
	)
}

func (s *step) rebalanceUnstake(index uint32, identity solana.PublicKey) (*RebalanceResult, error) {
	v, err := s.validators.GetChecked(index, identity)
	if err != nil {
		return nil, err
	}
	t, err := s.stats.Totals()
	if err != nil {
		return nil, err
	}
	_, unstake := t.Delta()
	if unstake == 0 {
		return nil, ErrNoUnstakeDelta
	}
	gap, err := s.slotGap(index, v, calc.SaturatingSub(t.Active, unstake), false)
	if err != nil {
		return nil, err
	}

	rec, err := s.stakes.Largest(v.Identity, func(r *stakes.Record) bool {
		return r.Lifecycle.IsStaking() && !r.Swept
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, faultf("validator %s has active balance %d but no staking record", v.Identity, v.ActiveBalance)
	}
	if !rec.CheckedIn(s.clock.Epoch) {
		return nil, reverts.NotEligiblef("stake record %s rewards not recognized this epoch", rec.Address)
	}

	amount := min(unstake, gap)
	whole := amount >= rec.Principal || rec.Principal-amount < 2*s.params.MinStake
	target := rec
	if whole {
		amount = rec.Principal
		rec.Lifecycle = stakes.CoolingDown
		if err := s.stakes.Update(rec); err != nil {
			return nil, err
		}
		s.effect(Deactivate{Record: rec.Address})
	} else {
		if amount < s.params.MinStake {
			return nil, reverts.NotEligiblef("unstake amount %d below minimum %d", amount, s.params.MinStake)
		}
		if v.SplitIn(s.clock.Epoch) {
			return nil, reverts.NotEligiblef("validator %s already split this epoch", v.Identity)
		}
		addr, err := s.stakes.NextAddress(s.params.Program)
		if err != nil {
			return nil, err
		}
		target = &stakes.Record{
			Address:          addr,
			Validator:        v.Identity,
			Principal:        amount,
			LastCheckedEpoch: s.clock.Epoch,
			Lifecycle:        stakes.CoolingDown,
			CreatedEpoch:     s.clock.Epoch,
		}
		rec.Principal -= amount
		if err := s.stakes.Update(rec); err != nil {
			return nil, err
		}
		if err := s.stakes.Add(target); err != nil {
			return nil, err
		}
		v.MarkSplit(s.clock.Epoch)
		s.effect(
			Split{Source: rec.Address, Dest: addr, Amount: amount},
			Deactivate{Record: addr},
		)
	}

	if err := s.stats.Deactivate(amount); err != nil {
		return nil, err
	}
	if _, err := s.stats.SettleUnstake(amount); err != nil {
		return nil, err
	}
	if v.ActiveBalance, err = calc.Sub(v.ActiveBalance, amount); err != nil {
		return nil, err
	}
	v.LastStakeDeltaEpoch = s.clock.Epoch
	if err := s.validators.Update(index, v); err != nil {
		return nil, err
	}

	result := &RebalanceResult{
		Index:     index,
		Validator: v.Identity,
		Record:    target.Address,
		Moved:     amount,
		Remaining: calc.SaturatingSub(unstake, amount),
	}
	result.More = result.Remaining > 0
	return result, s.emit(EventStakeDeactivated, target.Address,
		"validator", v.Identity,
		"index", index,
		"amount", amount,
		"whole", whole,
		"remaining", result.Remaining,
	)
}
