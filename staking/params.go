// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"math"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/lstlabs/settler/calc"
	"github.com/lstlabs/settler/settler"
	"github.com/lstlabs/settler/staking/liqpool"
)

var (
	// MaxRewardFee bounds the protocol cut of recognized rewards.
	MaxRewardFee = calc.FromBasisPoints(1000)
	// MaxStakeWithdrawFee bounds the fee kept when a stake account is withdrawn.
	MaxStakeWithdrawFee = calc.FromBasisPoints(100)
)

// Params is the ledger configuration, set once by Init and adjusted by the
// governance setters.
type Params struct {
	// Program is the base every protocol-owned account is derived from.
	Program     solana.PublicKey `json:"program" yaml:"program"`
	ReceiptMint solana.PublicKey `json:"receiptMint" yaml:"receipt-mint"`
	LPMint      solana.PublicKey `json:"lpMint" yaml:"lp-mint"`
	Treasury    solana.PublicKey `json:"treasury" yaml:"treasury"`
	Operational solana.PublicKey `json:"operational" yaml:"operational"`

	RewardFee calc.Fee `json:"rewardFee" yaml:"reward-fee"`
	// StakeWithdrawFee is kept from the value of tokens redeemed for a
	// stake account, at least one epoch of rewards.
	StakeWithdrawFee calc.Fee       `json:"stakeWithdrawFee" yaml:"stake-withdraw-fee"`
	MinStake         uint64         `json:"minStake" yaml:"min-stake"`
	MinDeposit       uint64         `json:"minDeposit" yaml:"min-deposit"`
	MinWithdraw      uint64         `json:"minWithdraw" yaml:"min-withdraw"`
	StakingSolCap    uint64         `json:"stakingSolCap" yaml:"staking-sol-cap"`
	CooldownEpochs   uint64         `json:"cooldownEpochs" yaml:"cooldown-epochs"`
	ClaimMarginSecs  uint64         `json:"claimMarginSecs" yaml:"claim-margin-secs"`
	Pool             liqpool.Params `json:"pool" yaml:"pool"`
}

// DefaultParams returns the stock configuration for program.
func DefaultParams(program solana.PublicKey) *Params {
	return &Params{
		Program:          program,
		ReceiptMint:      settler.DeriveKey("receipt-mint", program, 0),
		LPMint:           settler.DeriveKey("lp-mint", program, 0),
		Treasury:         settler.DeriveKey("treasury", program, 0),
		Operational:      settler.DeriveKey("operational", program, 0),
		RewardFee:        calc.FromBasisPoints(200),
		StakeWithdrawFee: calc.FromBasisPoints(10),
		MinStake:         settler.SOL(1),
		MinDeposit:       settler.LamportsPerSOL / 1000,
		MinWithdraw:      settler.LamportsPerSOL / 1000,
		StakingSolCap:    math.MaxUint64,
		CooldownEpochs:   2,
		ClaimMarginSecs:  uint64((30 * time.Minute) / time.Second),
		Pool: liqpool.Params{
			MinFee:          calc.FromBasisPoints(30),
			MaxFee:          calc.FromBasisPoints(300),
			LiquidityTarget: settler.SOL(10_000),
			TreasuryCut:     calc.FromBasisPoints(2500),
			SolCap:          math.MaxUint64,
		},
	}
}

// ClaimMargin is the settlement margin after the due epoch starts.
func (p *Params) ClaimMargin() time.Duration {
	return time.Duration(p.ClaimMarginSecs) * time.Second
}

func (p *Params) Validate() error {
	for name, key := range map[string]solana.PublicKey{
		"program":      p.Program,
		"receipt mint": p.ReceiptMint,
		"lp mint":      p.LPMint,
		"treasury":     p.Treasury,
		"operational":  p.Operational,
	} {
		if key.IsZero() {
			return errors.Errorf("%s account is not set", name)
		}
	}
	if err := p.RewardFee.Check(MaxRewardFee); err != nil {
		return errors.Wrap(err, "reward fee")
	}
	if err := p.StakeWithdrawFee.Check(MaxStakeWithdrawFee); err != nil {
		return errors.Wrap(err, "stake withdraw fee")
	}
	if p.MinStake == 0 {
		return errors.New("min stake is zero")
	}
	if p.CooldownEpochs == 0 {
		return errors.New("cooldown epochs is zero")
	}
	return errors.Wrap(p.Pool.Validate(), "pool")
}

// Accounts are the protocol-owned accounts derived from the program.
type Accounts struct {
	Reserve       solana.PublicKey `json:"reserve"`
	LiqSolLeg     solana.PublicKey `json:"liqSolLeg"`
	LiqReceiptLeg solana.PublicKey `json:"liqReceiptLeg"`
	// StakeAuthority holds every controlled stake account.
	StakeAuthority solana.PublicKey `json:"stakeAuthority"`
}

func (p *Params) Accounts() Accounts {
	return Accounts{
		Reserve:        settler.DeriveKey("reserve", p.Program, 0),
		LiqSolLeg:      settler.DeriveKey("liq-sol-leg", p.Program, 0),
		LiqReceiptLeg:  settler.DeriveKey("liq-receipt-leg", p.Program, 0),
		StakeAuthority: settler.DeriveKey("stake-authority", p.Program, 0),
	}
}
