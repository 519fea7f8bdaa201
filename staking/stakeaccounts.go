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
)

// StakeAccountResult reports a stake account handed to or taken from the
// ledger.
type StakeAccountResult struct {
	Account   solana.PublicKey `json:"account"`
	Validator solana.PublicKey `json:"validator"`
	// Lamports is the stake that entered or left the controlled set.
	Lamports uint64 `json:"lamports"`
	// Tokens were minted on deposit and burned on withdrawal.
	Tokens uint64 `json:"tokens"`
	// Fee is the value of the burned tokens kept by the ledger.
	Fee uint64 `json:"fee,omitempty"`
}

// DepositStakeAccount takes over a delegated stake account held by owner and
// mints receipt tokens for its stake at the current price. index must name
// the slot of the validator the account is delegated to.
func (e *Engine) DepositStakeAccount(owner, account solana.PublicKey, index uint32) (res *StakeAccountResult, err error) {
	err = e.exec("deposit_stake_account", func(s *step) error {
		res, err = s.depositStakeAccount(owner, account, index)
		return err
	})
	return
}

// WithdrawStakeAccount burns tokens of owner and hands over a deactivating
// stake account split from record, worth their value less the stake
// withdraw fee.
func (e *Engine) WithdrawStakeAccount(owner, record solana.PublicKey, tokens uint64) (res *StakeAccountResult, err error) {
	err = e.exec("withdraw_stake_account", func(s *step) error {
		res, err = s.withdrawStakeAccount(owner, record, tokens)
		return err
	})
	return
}

func (s *step) depositStakeAccount(owner, account solana.PublicKey, index uint32) (*StakeAccountResult, error) {
	acct, err := s.host.StakeAccount(account)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, reverts.Newf("stake account %s not found", account)
	}
	if acct.Authority != owner {
		return nil, reverts.Newf("stake account %s is not held by %s", account, owner)
	}
	if !acct.Trusted {
		return nil, reverts.NotEligiblef("host cannot vouch for stake account %s", account)
	}
	if !acct.Lifecycle.IsStaking() {
		return nil, reverts.Newf("stake account %s is %v", account, acct.Lifecycle)
	}
	known, err := s.stakes.Get(account)
	if err != nil {
		return nil, err
	}
	if !known.IsEmpty() {
		return nil, reverts.Newf("stake account %s is already controlled", account)
	}
	v, err := s.validators.GetChecked(index, acct.Validator)
	if err != nil {
		return nil, err
	}

	stake := calc.SaturatingSub(acct.Balance, acct.RentReserve)
	if stake < s.params.MinStake {
		return nil, reverts.Newf("delegated stake %d below minimum %d", stake, s.params.MinStake)
	}
	virtual, supply, err := s.priceTerms()
	if err != nil {
		return nil, err
	}
	staked, err := calc.Add(virtual, stake)
	if err != nil {
		return nil, err
	}
	if staked > s.params.StakingSolCap {
		return nil, reverts.Newf("deposit would exceed staking cap %d", s.params.StakingSolCap)
	}
	tokens, err := calc.SharesFromValue(stake, virtual, supply)
	if err != nil {
		return nil, err
	}
	if tokens == 0 {
		return nil, reverts.Newf("stake %d mints no tokens", stake)
	}

	if err := s.stakes.Add(&stakes.Record{
		Address:          account,
		Validator:        v.Identity,
		Principal:        stake,
		LastCheckedEpoch: s.clock.Epoch,
		Lifecycle:        acct.Lifecycle,
		CreatedEpoch:     s.clock.Epoch,
	}); err != nil {
		return nil, err
	}
	if err := s.stats.AddActive(stake); err != nil {
		return nil, err
	}
	if err := s.stats.Mint(tokens); err != nil {
		return nil, err
	}
	if v.ActiveBalance, err = calc.Add(v.ActiveBalance, stake); err != nil {
		return nil, err
	}
	if err := s.validators.Update(index, v); err != nil {
		return nil, err
	}
	s.effect(
		Authorize{Record: account, From: owner, To: s.accounts.StakeAuthority},
		MintTokens{Mint: s.params.ReceiptMint, To: owner, Amount: tokens},
	)

	res := &StakeAccountResult{Account: account, Validator: v.Identity, Lamports: stake, Tokens: tokens}
	return res, s.emit(EventStakeAccountDeposited, account,
		"owner", owner,
		"validator", v.Identity,
		"index", index,
		"stake", stake,
		"minted", tokens,
	)
}

func (s *step) withdrawStakeAccount(owner, record solana.PublicKey, tokens uint64) (*StakeAccountResult, error) {
	if tokens == 0 {
		return nil, ErrZeroAmount
	}
	rec, err := s.stakes.GetExisting(record)
	if err != nil {
		return nil, err
	}
	if rec.Swept || !rec.Lifecycle.IsStaking() {
		return nil, reverts.Newf("stake record %s is %v", record, rec.Lifecycle)
	}
	if !rec.CheckedIn(s.clock.Epoch) {
		return nil, reverts.NotEligiblef("stake record %s rewards not recognized this epoch", record)
	}
	if rec.Shortfall > 0 {
		return nil, reverts.NotEligiblef("stake record %s has a flagged shortfall of %d", record, rec.Shortfall)
	}
	index, v, err := s.validators.GetByIdentity(rec.Validator)
	if err != nil {
		return nil, err
	}

	virtual, supply, err := s.priceTerms()
	if err != nil {
		return nil, err
	}
	if tokens > supply {
		return nil, reverts.Newf("tokens %d exceed receipt supply %d", tokens, supply)
	}
	value, err := calc.ValueFromShares(tokens, virtual, supply)
	if err != nil {
		return nil, err
	}
	fee, err := s.params.StakeWithdrawFee.Apply(value)
	if err != nil {
		return nil, err
	}
	amount := value - fee
	if amount == 0 || amount < s.params.MinWithdraw {
		return nil, reverts.Newf("withdrawal %d below minimum %d", amount, s.params.MinWithdraw)
	}
	if amount > rec.Principal || rec.Principal-amount < s.params.MinStake {
		return nil, reverts.Newf("stake record %s of %d cannot keep %d after splitting %d",
			record, rec.Principal, s.params.MinStake, amount)
	}

	addr, err := s.stakes.NextAddress(s.params.Program)
	if err != nil {
		return nil, err
	}
	rec.Principal -= amount
	if err := s.stakes.Update(rec); err != nil {
		return nil, err
	}
	if err := s.stats.SubActive(amount); err != nil {
		return nil, err
	}
	if err := s.stats.Burn(tokens); err != nil {
		return nil, err
	}
	if v.ActiveBalance, err = calc.Sub(v.ActiveBalance, amount); err != nil {
		return nil, err
	}
	if err := s.validators.Update(index, v); err != nil {
		return nil, err
	}
	s.effect(
		BurnTokens{Mint: s.params.ReceiptMint, From: owner, Amount: tokens},
		Split{Source: record, Dest: addr, Amount: amount},
		Deactivate{Record: addr},
		Authorize{Record: addr, From: s.accounts.StakeAuthority, To: owner},
	)

	logger.Debug("stake account withdrawn", "record", record, "split", addr, "owner", owner, "amount", amount, "fee", fee)
	res := &StakeAccountResult{Account: addr, Validator: v.Identity, Lamports: amount, Tokens: tokens, Fee: fee}
	return res, s.emit(EventStakeAccountWithdrawn, addr,
		"owner", owner,
		"record", record,
		"validator", v.Identity,
		"burned", tokens,
		"amount", amount,
		"fee", fee,
	)
}
