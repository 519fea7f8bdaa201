// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package liqpool

import (
	"github.com/pkg/errors"

	"github.com/lstlabs/settler/calc"
	"github.com/lstlabs/settler/settler"
	"github.com/lstlabs/settler/storage"
)

var (
	slotParams = settler.BytesToBytes32([]byte("liq-params"))

	// MaxFee bounds every pool fee.
	MaxFee = calc.FromBasisPoints(1000)
)

// Params configures the swap fee curve and pool limits.
type Params struct {
	MinFee          calc.Fee `json:"minFee" yaml:"min-fee"`
	MaxFee          calc.Fee `json:"maxFee" yaml:"max-fee"`
	LiquidityTarget uint64   `json:"liquidityTarget" yaml:"liquidity-target"`
	TreasuryCut     calc.Fee `json:"treasuryCut" yaml:"treasury-cut"`
	SolCap          uint64   `json:"solCap" yaml:"sol-cap"`
}

// Validate checks the fee curve is well formed.
func (p *Params) Validate() error {
	if err := p.MaxFee.Check(MaxFee); err != nil {
		return errors.Wrap(err, "max fee")
	}
	if err := p.MinFee.Check(p.MaxFee); err != nil {
		return errors.Wrap(err, "min fee")
	}
	if err := p.TreasuryCut.Check(calc.FromBasisPoints(calc.MaxBasisPoints)); err != nil {
		return errors.Wrap(err, "treasury cut")
	}
	if p.LiquidityTarget == 0 {
		return errors.New("liquidity target is zero")
	}
	return nil
}

// Fee returns the swap fee charged when liquidityAfter lamports would remain.
func (p *Params) Fee(liquidityAfter uint64) (calc.Fee, error) {
	return calc.LinearFee(p.MaxFee, p.MinFee, p.LiquidityTarget, liquidityAfter)
}

// Legs is a snapshot of the pool balances.
type Legs struct {
	Sol      uint64 `json:"sol"`
	Receipt  uint64 `json:"receipt"`
	LPSupply uint64 `json:"lpSupply"`
}

// Value is the pool value in lamports at the given receipt price.
func (l *Legs) Value(virtualStaked, receiptSupply uint64) (uint64, error) {
	receiptValue, err := calc.ValueFromShares(l.Receipt, virtualStaked, receiptSupply)
	if err != nil {
		return 0, err
	}
	return calc.Add(l.Sol, receiptValue)
}

// Service holds the SOL and receipt legs of the swap pool and its share supply.
type Service struct {
	sol      *storage.Counter
	receipt  *storage.Counter
	lpSupply *storage.Counter
	params   *storage.Value[*Params]
}

func New(sctx *storage.Context) *Service {
	return &Service{
		sol:      storage.NewCounter(sctx, "liq-sol"),
		receipt:  storage.NewCounter(sctx, "liq-receipt"),
		lpSupply: storage.NewCounter(sctx, "liq-lp-supply"),
		params:   storage.NewValue[*Params](sctx, slotParams),
	}
}

func (s *Service) Legs() (*Legs, error) {
	var (
		l   Legs
		err error
	)
	if l.Sol, err = s.sol.Get(); err != nil {
		return nil, err
	}
	if l.Receipt, err = s.receipt.Get(); err != nil {
		return nil, err
	}
	if l.LPSupply, err = s.lpSupply.Get(); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Service) Params() (*Params, error) {
	return s.params.Get()
}

func (s *Service) SetParams(p *Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.params.Set(p)
}

func (s *Service) AddSol(amount uint64) error     { return s.sol.Add(amount) }
func (s *Service) SubSol(amount uint64) error     { return s.sol.Sub(amount) }
func (s *Service) AddReceipt(amount uint64) error { return s.receipt.Add(amount) }
func (s *Service) SubReceipt(amount uint64) error { return s.receipt.Sub(amount) }
func (s *Service) MintShares(amount uint64) error { return s.lpSupply.Add(amount) }
func (s *Service) BurnShares(amount uint64) error { return s.lpSupply.Sub(amount) }
