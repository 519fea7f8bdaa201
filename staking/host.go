// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/lstlabs/settler/staking/stakes"
)

// Clock is the host's view of the current epoch.
type Clock struct {
	Epoch   uint64
	Elapsed time.Duration // since the epoch started
}

// StakeAccount is the host's classification of a delegated position.
type StakeAccount struct {
	Address     solana.PublicKey
	Validator   solana.PublicKey
	Balance     uint64
	RentReserve uint64
	Lifecycle   stakes.Lifecycle
	// Authority may split, deactivate, withdraw and reassign the position.
	Authority solana.PublicKey
	// Trusted is false when the host cannot vouch for the classification.
	Trusted bool
}

// Host is the runtime the engine settles against. It owns balances, token
// mints and the delegated positions; the engine only issues effects.
type Host interface {
	Clock() Clock
	StakeAccount(addr solana.PublicKey) (*StakeAccount, error)
	// Execute applies all effects of one step atomically, or none.
	Execute(effects []Effect) error
}

// Effect is one balance or position change requested from the host.
type Effect interface {
	Kind() string
}

// MintTokens mints Amount of Mint to To.
type MintTokens struct {
	Mint, To solana.PublicKey
	Amount   uint64
}

// BurnTokens burns Amount of Mint held by From.
type BurnTokens struct {
	Mint, From solana.PublicKey
	Amount     uint64
}

// TransferTokens moves Amount of Mint between owners.
type TransferTokens struct {
	Mint, From, To solana.PublicKey
	Amount         uint64
}

// Transfer moves lamports between system accounts.
type Transfer struct {
	From, To solana.PublicKey
	Amount   uint64
}

// Delegate funds Record with Amount lamports from From and delegates it to
// Validator, topping up the record if it is still activating. A new
// position is held by Authority.
type Delegate struct {
	Record, Validator, From, Authority solana.PublicKey
	Amount                             uint64
}

// Split moves Amount of Source's stake into the new position Dest.
type Split struct {
	Source, Dest solana.PublicKey
	Amount       uint64
}

// Deactivate starts the cooldown of Record.
type Deactivate struct {
	Record solana.PublicKey
}

// MergeStake folds Src into Dst; the rent of Src goes to RentTo.
type MergeStake struct {
	Dst, Src, RentTo solana.PublicKey
}

// Authorize hands Record from its current authority From to To.
type Authorize struct {
	Record, From, To solana.PublicKey
}

// Withdraw moves Amount lamports out of a deactivated Record.
type Withdraw struct {
	Record, To solana.PublicKey
	Amount     uint64
}

func (MintTokens) Kind() string     { return "mint" }
func (BurnTokens) Kind() string     { return "burn" }
func (TransferTokens) Kind() string { return "transfer-tokens" }
func (Transfer) Kind() string       { return "transfer" }
func (Delegate) Kind() string       { return "delegate" }
func (Split) Kind() string          { return "split" }
func (Deactivate) Kind() string     { return "deactivate" }
func (MergeStake) Kind() string     { return "merge" }
func (Authorize) Kind() string      { return "authorize" }
func (Withdraw) Kind() string       { return "withdraw" }

func (e MintTokens) String() string {
	return fmt.Sprintf("mint %d %s to %s", e.Amount, e.Mint, e.To)
}

func (e BurnTokens) String() string {
	return fmt.Sprintf("burn %d %s from %s", e.Amount, e.Mint, e.From)
}

func (e Transfer) String() string {
	return fmt.Sprintf("transfer %d from %s to %s", e.Amount, e.From, e.To)
}
