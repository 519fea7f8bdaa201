// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package crank

import (
	"github.com/gagliardetto/solana-go"

	"github.com/lstlabs/settler/settler"
)

type RecordRequest struct {
	Record solana.PublicKey `json:"record"`
}

type RebalanceRequest struct {
	Index     uint32           `json:"index"`
	Validator solana.PublicKey `json:"validator"`
}

type MergeRequest struct {
	Dst solana.PublicKey `json:"dst"`
	Src solana.PublicKey `json:"src"`
}

type TicketRequest struct {
	Owner  solana.PublicKey `json:"owner"`
	Tokens uint64           `json:"tokens"`
}

type ClaimRequest struct {
	Ticket      settler.Bytes32  `json:"ticket"`
	Beneficiary solana.PublicKey `json:"beneficiary"`
}

// AmountRequest names an account and a lamport, token or share amount,
// depending on the operation.
type AmountRequest struct {
	Account solana.PublicKey `json:"account"`
	Amount  uint64           `json:"amount"`
}

// StakeAccountRequest hands the stake account Account, delegated to the
// validator at Index, from Owner to the ledger.
type StakeAccountRequest struct {
	Owner   solana.PublicKey `json:"owner"`
	Account solana.PublicKey `json:"account"`
	Index   uint32           `json:"index"`
}

type WithdrawStakeRequest struct {
	Owner  solana.PublicKey `json:"owner"`
	Record solana.PublicKey `json:"record"`
	Tokens uint64           `json:"tokens"`
}
