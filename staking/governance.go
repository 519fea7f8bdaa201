// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"github.com/gagliardetto/solana-go"

	"github.com/lstlabs/settler/calc"
	"github.com/lstlabs/settler/staking/liqpool"
	"github.com/lstlabs/settler/staking/reverts"
)

// Init stores the ledger params. It can run only once.
func (e *Engine) Init(p *Params) error {
	return e.run("init", false, func(s *step) error {
		prev, err := s.config.Get()
		if err != nil {
			return err
		}
		if !prev.Program.IsZero() {
			return reverts.New("ledger already initialized")
		}
		if err := p.Validate(); err != nil {
			return reverts.Newf("invalid params: %v", err)
		}
		if err := s.config.Set(p); err != nil {
			return err
		}
		if err := s.pool.SetParams(&p.Pool); err != nil {
			return err
		}
		if err := s.stats.SetEpoch(s.clock.Epoch); err != nil {
			return err
		}
		s.params = p
		s.accounts = p.Accounts()
		logger.Info("ledger initialized", "program", p.Program, "epoch", s.clock.Epoch)
		return s.emit(EventParamsUpdated, p.Program,
			"rewardFee", p.RewardFee,
			"minStake", p.MinStake,
			"cooldownEpochs", p.CooldownEpochs,
		)
	})
}

// AddValidator appends a validator to the list with the given score.
func (e *Engine) AddValidator(identity solana.PublicKey, score uint32) (index uint32, err error) {
	err = e.exec("add_validator", func(s *step) error {
		if index, err = s.validators.Add(identity, score); err != nil {
			return err
		}
		return s.emit(EventValidatorAdded, identity, "index", index, "score", score)
	})
	return
}

// SetValidatorScore changes the weight of the validator at index.
func (e *Engine) SetValidatorScore(index uint32, identity solana.PublicKey, score uint32) error {
	return e.exec("set_validator_score", func(s *step) error {
		v, err := s.validators.GetChecked(index, identity)
		if err != nil {
			return err
		}
		prev := v.Score
		v.Score = score
		if err := s.validators.Update(index, v); err != nil {
			return err
		}
		return s.emit(EventParamsUpdated, identity, "index", index, "score", score, "prevScore", prev)
	})
}

// RemoveValidator drops a validator holding no stake and no records.
func (e *Engine) RemoveValidator(index uint32, identity solana.PublicKey) error {
	return e.exec("remove_validator", func(s *step) error {
		if _, err := s.validators.GetChecked(index, identity); err != nil {
			return err
		}
		n, err := s.stakes.CountByValidator(identity)
		if err != nil {
			return err
		}
		if n > 0 {
			return reverts.Newf("validator %s still has %d stake records", identity, n)
		}
		if err := s.validators.Remove(index); err != nil {
			return err
		}
		return s.emit(EventValidatorRemoved, identity, "index", index)
	})
}

// ConfigurePool replaces the pool fee curve and limits.
func (e *Engine) ConfigurePool(pp liqpool.Params) error {
	return e.exec("configure_pool", func(s *step) error {
		if err := pp.Validate(); err != nil {
			return reverts.Newf("invalid pool params: %v", err)
		}
		if err := s.pool.SetParams(&pp); err != nil {
			return err
		}
		p := *s.params
		p.Pool = pp
		if err := s.config.Set(&p); err != nil {
			return err
		}
		return s.emit(EventParamsUpdated, s.params.Program,
			"minFee", pp.MinFee,
			"maxFee", pp.MaxFee,
			"liquidityTarget", pp.LiquidityTarget,
			"treasuryCut", pp.TreasuryCut,
			"solCap", pp.SolCap,
		)
	})
}

// SetRewardFee changes the protocol cut of recognized rewards.
func (e *Engine) SetRewardFee(fee calc.Fee) error {
	return e.exec("set_reward_fee", func(s *step) error {
		if err := fee.Check(MaxRewardFee); err != nil {
			return reverts.Newf("invalid reward fee: %v", err)
		}
		p := *s.params
		p.RewardFee = fee
		if err := s.config.Set(&p); err != nil {
			return err
		}
		return s.emit(EventParamsUpdated, s.params.Program, "rewardFee", fee, "prevRewardFee", s.params.RewardFee)
	})
}

// SetStakeWithdrawFee changes the fee kept by WithdrawStakeAccount.
func (e *Engine) SetStakeWithdrawFee(fee calc.Fee) error {
	return e.exec("set_stake_withdraw_fee", func(s *step) error {
		if err := fee.Check(MaxStakeWithdrawFee); err != nil {
			return reverts.Newf("invalid stake withdraw fee: %v", err)
		}
		p := *s.params
		p.StakeWithdrawFee = fee
		if err := s.config.Set(&p); err != nil {
			return err
		}
		return s.emit(EventParamsUpdated, s.params.Program, "stakeWithdrawFee", fee, "prevStakeWithdrawFee", s.params.StakeWithdrawFee)
	})
}
