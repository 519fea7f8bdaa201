// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/lstlabs/settler/calc"
	"github.com/lstlabs/settler/staking/reverts"
	"github.com/lstlabs/settler/staking/stakes"
)

// RewardsResult reports one reward recognition.
type RewardsResult struct {
	Record    solana.PublicKey `json:"record"`
	From      stakes.Lifecycle `json:"from"`
	To        stakes.Lifecycle `json:"to"`
	Rewards   uint64           `json:"rewards"`
	FeeTokens uint64           `json:"feeTokens"`
	Slashed   uint64           `json:"slashed"`
	Swept     uint64           `json:"swept"`
	Emergency bool             `json:"emergency"`
}

// RecognizeRewards brings one stake record up to date with its position:
// rewards are added to principal and the protocol fee minted, slashing is
// flagged, and a deactivated position is swept into the reserve.
func (e *Engine) RecognizeRewards(record solana.PublicKey) (res *RewardsResult, err error) {
	err = e.exec("recognize_rewards", func(s *step) error {
		res, err = s.recognizeRewards(record)
		return err
	})
	return
}

// account fetches the host's view of a record and refuses to act on a
// classification it cannot trust.
func (s *step) account(r *stakes.Record) (*StakeAccount, error) {
	acct, err := s.host.StakeAccount(r.Address)
	if err != nil {
		return nil, errors.Wrapf(err, "stake account %s", r.Address)
	}
	if acct == nil || !acct.Trusted {
		return nil, reverts.Newf("stake account %s state is not trusted", r.Address)
	}
	if acct.Validator != r.Validator {
		return nil, reverts.Newf("stake account %s delegated to %s, ledger has %s", r.Address, acct.Validator, r.Validator)
	}
	return acct, nil
}

func (s *step) recognizeRewards(addr solana.PublicKey) (*RewardsResult, error) {
	rec, err := s.stakes.GetExisting(addr)
	if err != nil {
		return nil, err
	}
	if rec.Swept {
		return nil, reverts.NotEligible("stake record already swept, awaiting retrieval")
	}
	if rec.CheckedIn(s.clock.Epoch) {
		return nil, ErrAlreadyChecked
	}
	acct, err := s.account(rec)
	if err != nil {
		return nil, err
	}
	if !stakes.CanTransition(rec.Lifecycle, acct.Lifecycle) {
		return nil, reverts.Newf("stake account %s moved %s -> %s", addr, rec.Lifecycle, acct.Lifecycle)
	}

	virtual, supply, err := s.priceTerms()
	if err != nil {
		return nil, err
	}
	index, _, err := s.validators.GetByIdentity(rec.Validator)
	if err != nil {
		return nil, err
	}

	res := &RewardsResult{Record: addr, From: rec.Lifecycle, To: acct.Lifecycle}
	if rec.Lifecycle.IsStaking() && !acct.Lifecycle.IsStaking() {
		// deactivated by the host, not by the rebalancer
		if err := s.stats.Deactivate(rec.Principal); err != nil {
			return nil, err
		}
		if err := s.validators.SubStake(index, rec.Principal); err != nil {
			return nil, err
		}
		rec.Emergency = true
		res.Emergency = true
		logger.Warn("stake deactivated by host", "record", addr, "validator", rec.Validator, "principal", rec.Principal)
	}
	rec.Lifecycle = acct.Lifecycle

	controlled := calc.SaturatingSub(acct.Balance, acct.RentReserve)
	if controlled >= rec.Principal {
		if err := s.flagShortfall(rec, 0); err != nil {
			return nil, err
		}
		res.Rewards = controlled - rec.Principal
		if err := s.accrue(index, rec, res, virtual, supply); err != nil {
			return nil, err
		}
	} else {
		res.Slashed = rec.Principal - controlled
		if err := s.flagShortfall(rec, res.Slashed); err != nil {
			return nil, err
		}
		logger.Warn("slashing detected", "record", addr, "validator", rec.Validator, "principal", rec.Principal, "balance", controlled)
		if err := s.emit(EventSlashingDetected, addr,
			"validator", rec.Validator,
			"principal", rec.Principal,
			"balance", controlled,
			"slashed", res.Slashed,
		); err != nil {
			return nil, err
		}
	}
	rec.LastCheckedEpoch = s.clock.Epoch

	if rec.Lifecycle == stakes.Deactivated {
		if err := s.sweep(rec, acct, controlled); err != nil {
			return nil, err
		}
		res.Swept = controlled
	}
	if err := s.stakes.Update(rec); err != nil {
		return nil, err
	}
	return res, s.emit(EventRewardsRecognized, addr,
		"validator", rec.Validator,
		"lifecycle", rec.Lifecycle,
		"rewards", res.Rewards,
		"feeTokens", res.FeeTokens,
		"principal", rec.Principal,
	)
}

// accrue adds res.Rewards to the record and mints the protocol fee, priced
// before the rewards raise the price.
func (s *step) accrue(index uint32, rec *stakes.Record, res *RewardsResult, virtual, supply uint64) error {
	if res.Rewards == 0 {
		return nil
	}
	fee, err := s.params.RewardFee.Apply(res.Rewards)
	if err != nil {
		return err
	}
	if res.FeeTokens, err = calc.SharesFromValue(fee, virtual, supply); err != nil {
		return err
	}
	if res.FeeTokens > 0 {
		s.effect(MintTokens{Mint: s.params.ReceiptMint, To: s.params.Treasury, Amount: res.FeeTokens})
		if err := s.stats.Mint(res.FeeTokens); err != nil {
			return err
		}
	}
	if rec.Lifecycle.IsStaking() {
		if err := s.stats.AddActive(res.Rewards); err != nil {
			return err
		}
		if err := s.validators.AddStake(index, res.Rewards); err != nil {
			return err
		}
	} else if err := s.stats.AddCooling(res.Rewards); err != nil {
		return err
	}
	rec.Principal, err = calc.Add(rec.Principal, res.Rewards)
	return err
}

// sweep withdraws a deactivated position: the controlled balance goes to the
// reserve awaiting retrieval and the rent to the operational account.
func (s *step) sweep(rec *stakes.Record, acct *StakeAccount, controlled uint64) error {
	if controlled > 0 {
		s.effect(Withdraw{Record: rec.Address, To: s.accounts.Reserve, Amount: controlled})
	}
	if rent := min(acct.RentReserve, acct.Balance); rent > 0 {
		s.effect(Withdraw{Record: rec.Address, To: s.params.Operational, Amount: rent})
	}
	if err := s.reserve.Sweep(controlled); err != nil {
		return err
	}
	if err := s.stats.SubCooling(rec.Principal); err != nil {
		return err
	}
	// the flagged loss is realized now
	if err := s.flagShortfall(rec, 0); err != nil {
		return err
	}
	rec.Swept = true
	rec.Retrievable = controlled
	return nil
}

// flagShortfall moves the pending slashed total by the change in the record's
// shortfall, so a loss seen on several epochs is flagged once.
func (s *step) flagShortfall(rec *stakes.Record, shortfall uint64) error {
	if shortfall == rec.Shortfall {
		return nil
	}
	if shortfall > rec.Shortfall {
		if err := s.stats.AddSlashed(shortfall - rec.Shortfall); err != nil {
			return err
		}
	} else if err := s.stats.ResolveSlashed(rec.Shortfall - shortfall); err != nil {
		return err
	}
	rec.Shortfall = shortfall
	return nil
}
