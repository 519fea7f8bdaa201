// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"

	"github.com/lstlabs/settler/calc"
	"github.com/lstlabs/settler/staking/liqpool"
	"github.com/lstlabs/settler/staking/reverts"
)

// SwapResult reports an instant unstake through the pool.
type SwapResult struct {
	Tokens         uint64   `json:"tokens"`
	Fee            calc.Fee `json:"fee"`
	FeeTokens      uint64   `json:"feeTokens"`
	TreasuryTokens uint64   `json:"treasuryTokens"`
	Lamports       uint64   `json:"lamports"`
}

// LiquidityResult reports a liquidity provision or removal.
type LiquidityResult struct {
	Shares   uint64 `json:"shares"`
	Lamports uint64 `json:"lamports"`
	Tokens   uint64 `json:"tokens,omitempty"`
}

// DepositResult reports how a deposit was filled.
type DepositResult struct {
	// Swapped lamports bought receipt tokens from the pool.
	Swapped       uint64 `json:"swapped"`
	SwappedTokens uint64 `json:"swappedTokens"`
	// Staked lamports entered the reserve and minted new tokens.
	Staked uint64 `json:"staked"`
	Minted uint64 `json:"minted"`
	// FundedTickets is the part of Staked that covered unfunded ticket liability.
	FundedTickets uint64 `json:"fundedTickets"`
}

// Tokens is the total receipt tokens the depositor received.
func (r *DepositResult) Tokens() uint64 {
	return r.SwappedTokens + r.Minted
}

// LiquidUnstake swaps receipt tokens held by user for lamports from the
// pool's SOL leg, charging the liquidity-dependent fee.
func (e *Engine) LiquidUnstake(user solana.PublicKey, tokens uint64) (res *SwapResult, err error) {
	err = e.exec("liquid_unstake", func(s *step) error {
		res, err = s.liquidUnstake(user, tokens)
		return err
	})
	return
}

// AddLiquidity deposits lamports into the pool for LP shares.
func (e *Engine) AddLiquidity(provider solana.PublicKey, lamports uint64) (res *LiquidityResult, err error) {
	err = e.exec("add_liquidity", func(s *step) error {
		res, err = s.addLiquidity(provider, lamports)
		return err
	})
	return
}

// RemoveLiquidity burns LP shares for a proportional part of both legs.
func (e *Engine) RemoveLiquidity(provider solana.PublicKey, shares uint64) (res *LiquidityResult, err error) {
	err = e.exec("remove_liquidity", func(s *step) error {
		res, err = s.removeLiquidity(provider, shares)
		return err
	})
	return
}

// Deposit exchanges lamports for receipt tokens. Tokens sitting in the pool
// are bought first at the current price with no fee; the rest is staked.
func (e *Engine) Deposit(user solana.PublicKey, lamports uint64) (res *DepositResult, err error) {
	err = e.exec("deposit", func(s *step) error {
		res, err = s.deposit(user, lamports)
		return err
	})
	return
}

// poolState is the pool as priced by the ledger at one point in a step.
type poolState struct {
	legs    *liqpool.Legs
	params  *liqpool.Params
	virtual uint64
	supply  uint64
	value   uint64
}

func (s *step) poolState() (*poolState, error) {
	var (
		ps  poolState
		err error
	)
	if ps.virtual, ps.supply, err = s.priceTerms(); err != nil {
		return nil, err
	}
	if ps.legs, err = s.pool.Legs(); err != nil {
		return nil, err
	}
	if ps.params, err = s.pool.Params(); err != nil {
		return nil, err
	}
	if ps.value, err = ps.legs.Value(ps.virtual, ps.supply); err != nil {
		return nil, err
	}
	return &ps, nil
}

// checkPoolValue fails if the pool lost value during the step.
func (s *step) checkPoolValue(before *poolState) error {
	after, err := s.poolState()
	if err != nil {
		return err
	}
	if after.value < before.value {
		return faultf("pool value decreased %d -> %d", before.value, after.value)
	}
	return nil
}

// scaledValue is the exact pool value multiplied by the receipt supply.
// Liquidity steps leave the price untouched, so scaled values compare exactly.
func (ps *poolState) scaledValue() *uint256.Int {
	if ps.supply == 0 {
		return new(uint256.Int).Add(uint256.NewInt(ps.legs.Sol), uint256.NewInt(ps.legs.Receipt))
	}
	var sol, receipt uint256.Int
	sol.Mul(uint256.NewInt(ps.legs.Sol), uint256.NewInt(ps.supply))
	receipt.Mul(uint256.NewInt(ps.legs.Receipt), uint256.NewInt(ps.virtual))
	return sol.Add(&sol, &receipt)
}

// sharesFor returns the LP shares minted for lamports, rounding down.
func (ps *poolState) sharesFor(lamports uint64) (uint64, error) {
	value := ps.scaledValue()
	if ps.legs.LPSupply == 0 || value.IsZero() {
		return lamports, nil
	}
	scale := max(ps.supply, 1)
	var z uint256.Int
	z.Mul(uint256.NewInt(lamports), uint256.NewInt(ps.legs.LPSupply))
	z.Mul(&z, uint256.NewInt(scale))
	z.Div(&z, value)
	if !z.IsUint64() {
		return 0, calc.ErrOverflow
	}
	return z.Uint64(), nil
}

// checkShareValue fails if the value behind one LP share went down.
func (s *step) checkShareValue(before *poolState) error {
	after, err := s.poolState()
	if err != nil {
		return err
	}
	if before.legs.LPSupply == 0 || after.legs.LPSupply == 0 {
		return nil
	}
	if calc.RatioLess(after.scaledValue(), after.legs.LPSupply, before.scaledValue(), before.legs.LPSupply) {
		return faultf("share value decreased %d/%d -> %d/%d",
			before.value, before.legs.LPSupply, after.value, after.legs.LPSupply)
	}
	return nil
}

func (s *step) liquidUnstake(user solana.PublicKey, tokens uint64) (*SwapResult, error) {
	if tokens == 0 {
		return nil, ErrZeroAmount
	}
	ps, err := s.poolState()
	if err != nil {
		return nil, err
	}
	userRemove, err := calc.ValueFromShares(tokens, ps.virtual, ps.supply)
	if err != nil {
		return nil, err
	}

	res := &SwapResult{Tokens: tokens}
	if userRemove >= ps.legs.Sol {
		res.Fee = ps.params.MaxFee
	} else if res.Fee, err = ps.params.Fee(ps.legs.Sol - userRemove); err != nil {
		return nil, err
	}
	if res.FeeTokens, err = res.Fee.Apply(tokens); err != nil {
		return nil, err
	}
	if res.Lamports, err = calc.ValueFromShares(tokens-res.FeeTokens, ps.virtual, ps.supply); err != nil {
		return nil, err
	}
	if res.Lamports == 0 {
		return nil, ErrZeroAmount
	}
	if res.Lamports > ps.legs.Sol {
		return nil, ErrInsufficientLiquidity
	}
	if res.TreasuryTokens, err = ps.params.TreasuryCut.Apply(res.FeeTokens); err != nil {
		return nil, err
	}
	toPool := tokens - res.TreasuryTokens

	s.effect(
		Transfer{From: s.accounts.LiqSolLeg, To: user, Amount: res.Lamports},
		TransferTokens{Mint: s.params.ReceiptMint, From: user, To: s.accounts.LiqReceiptLeg, Amount: toPool},
	)
	if res.TreasuryTokens > 0 {
		s.effect(TransferTokens{Mint: s.params.ReceiptMint, From: user, To: s.params.Treasury, Amount: res.TreasuryTokens})
	}
	if err := s.pool.SubSol(res.Lamports); err != nil {
		return nil, err
	}
	if err := s.pool.AddReceipt(toPool); err != nil {
		return nil, err
	}
	if err := s.checkPoolValue(ps); err != nil {
		return nil, err
	}

	return res, s.emit(EventLiquidUnstaked, user,
		"tokens", tokens,
		"fee", res.Fee,
		"feeTokens", res.FeeTokens,
		"treasuryTokens", res.TreasuryTokens,
		"lamports", res.Lamports,
	)
}

func (s *step) addLiquidity(provider solana.PublicKey, lamports uint64) (*LiquidityResult, error) {
	if lamports < s.params.MinDeposit {
		return nil, reverts.Newf("deposit %d below minimum %d", lamports, s.params.MinDeposit)
	}
	ps, err := s.poolState()
	if err != nil {
		return nil, err
	}
	solAfter, err := calc.Add(ps.legs.Sol, lamports)
	if err != nil {
		return nil, err
	}
	if solAfter > ps.params.SolCap {
		return nil, reverts.Newf("liquidity would exceed cap %d", ps.params.SolCap)
	}
	shares, err := ps.sharesFor(lamports)
	if err != nil {
		return nil, err
	}
	if shares == 0 {
		return nil, reverts.Newf("deposit %d buys no shares", lamports)
	}

	s.effect(
		Transfer{From: provider, To: s.accounts.LiqSolLeg, Amount: lamports},
		MintTokens{Mint: s.params.LPMint, To: provider, Amount: shares},
	)
	if err := s.pool.AddSol(lamports); err != nil {
		return nil, err
	}
	if err := s.pool.MintShares(shares); err != nil {
		return nil, err
	}
	if err := s.checkShareValue(ps); err != nil {
		return nil, err
	}

	res := &LiquidityResult{Shares: shares, Lamports: lamports}
	return res, s.emit(EventLiquidityAdded, provider,
		"lamports", lamports,
		"shares", shares,
	)
}

func (s *step) removeLiquidity(provider solana.PublicKey, shares uint64) (*LiquidityResult, error) {
	if shares == 0 {
		return nil, ErrZeroAmount
	}
	ps, err := s.poolState()
	if err != nil {
		return nil, err
	}
	if shares > ps.legs.LPSupply {
		return nil, reverts.Newf("shares %d exceed supply %d", shares, ps.legs.LPSupply)
	}
	solOut, err := calc.Proportional(ps.legs.Sol, shares, ps.legs.LPSupply)
	if err != nil {
		return nil, err
	}
	tokensOut, err := calc.Proportional(ps.legs.Receipt, shares, ps.legs.LPSupply)
	if err != nil {
		return nil, err
	}
	tokensValue, err := calc.ValueFromShares(tokensOut, ps.virtual, ps.supply)
	if err != nil {
		return nil, err
	}
	outValue, err := calc.Add(solOut, tokensValue)
	if err != nil {
		return nil, err
	}
	if outValue < s.params.MinWithdraw {
		return nil, reverts.Newf("withdrawal value %d below minimum %d", outValue, s.params.MinWithdraw)
	}

	s.effect(BurnTokens{Mint: s.params.LPMint, From: provider, Amount: shares})
	if solOut > 0 {
		s.effect(Transfer{From: s.accounts.LiqSolLeg, To: provider, Amount: solOut})
	}
	if tokensOut > 0 {
		s.effect(TransferTokens{Mint: s.params.ReceiptMint, From: s.accounts.LiqReceiptLeg, To: provider, Amount: tokensOut})
	}
	if err := s.pool.BurnShares(shares); err != nil {
		return nil, err
	}
	if err := s.pool.SubSol(solOut); err != nil {
		return nil, err
	}
	if err := s.pool.SubReceipt(tokensOut); err != nil {
		return nil, err
	}
	if err := s.checkShareValue(ps); err != nil {
		return nil, err
	}

	res := &LiquidityResult{Shares: shares, Lamports: solOut, Tokens: tokensOut}
	return res, s.emit(EventLiquidityRemoved, provider,
		"shares", shares,
		"lamports", solOut,
		"tokens", tokensOut,
	)
}

func (s *step) deposit(user solana.PublicKey, lamports uint64) (*DepositResult, error) {
	if lamports < s.params.MinDeposit {
		return nil, reverts.Newf("deposit %d below minimum %d", lamports, s.params.MinDeposit)
	}
	ps, err := s.poolState()
	if err != nil {
		return nil, err
	}
	staked, err := calc.Add(ps.virtual, lamports)
	if err != nil {
		return nil, err
	}
	if staked > s.params.StakingSolCap {
		return nil, reverts.Newf("deposit would exceed staking cap %d", s.params.StakingSolCap)
	}
	want, err := calc.SharesFromValue(lamports, ps.virtual, ps.supply)
	if err != nil {
		return nil, err
	}

	res := &DepositResult{}
	if want > 0 && ps.legs.Receipt > 0 {
		if want >= ps.legs.Receipt {
			res.SwappedTokens = ps.legs.Receipt
			if res.Swapped, err = calc.ValueFromSharesCeil(res.SwappedTokens, ps.virtual, ps.supply); err != nil {
				return nil, err
			}
			res.Swapped = min(res.Swapped, lamports)
		} else {
			res.SwappedTokens = want
			res.Swapped = lamports
		}
		s.effect(
			Transfer{From: user, To: s.accounts.LiqSolLeg, Amount: res.Swapped},
			TransferTokens{Mint: s.params.ReceiptMint, From: s.accounts.LiqReceiptLeg, To: user, Amount: res.SwappedTokens},
		)
		if err := s.pool.AddSol(res.Swapped); err != nil {
			return nil, err
		}
		if err := s.pool.SubReceipt(res.SwappedTokens); err != nil {
			return nil, err
		}
	}

	res.Staked = lamports - res.Swapped
	if res.Staked > 0 {
		// the swap moves tokens between holders only, so the price still holds
		if res.Minted, err = calc.SharesFromValue(res.Staked, ps.virtual, ps.supply); err != nil {
			return nil, err
		}
		if res.Minted == 0 {
			return nil, reverts.Newf("deposit remainder %d mints no tokens", res.Staked)
		}
		s.effect(
			Transfer{From: user, To: s.accounts.Reserve, Amount: res.Staked},
			MintTokens{Mint: s.params.ReceiptMint, To: user, Amount: res.Minted},
		)
		if res.FundedTickets, _, err = s.reserve.Deposit(res.Staked); err != nil {
			return nil, err
		}
		if err := s.stats.Mint(res.Minted); err != nil {
			return nil, err
		}
		if err := s.stats.AddStakeOrders(res.Staked); err != nil {
			return nil, err
		}
	}
	if err := s.checkPoolValue(ps); err != nil {
		return nil, err
	}

	return res, s.emit(EventDeposited, user,
		"lamports", lamports,
		"swapped", res.Swapped,
		"swappedTokens", res.SwappedTokens,
		"staked", res.Staked,
		"minted", res.Minted,
	)
}
