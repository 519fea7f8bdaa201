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

// MergeResult reports a merge of two records.
type MergeResult struct {
	Dst       solana.PublicKey `json:"dst"`
	Src       solana.PublicKey `json:"src"`
	Principal uint64           `json:"principal"`
}

// RetrieveResult reports a retrieved deactivated record.
type RetrieveResult struct {
	Record      solana.PublicKey `json:"record"`
	Amount      uint64           `json:"amount"`
	ToTickets   uint64           `json:"toTickets"`
	ToAvailable uint64           `json:"toAvailable"`
	// Restaked is the part that became a stake order again.
	Restaked uint64 `json:"restaked"`
}

// MergeRecords folds src into dst. Both records must be delegated to the same
// validator, share a lifecycle and be checked this epoch.
func (e *Engine) MergeRecords(dst, src solana.PublicKey) (res *MergeResult, err error) {
	err = e.exec("merge_records", func(s *step) error {
		res, err = s.mergeRecords(dst, src)
		return err
	})
	return
}

// RetrieveDeactivated releases a swept record's lamports to ticket funding
// and stake orders, and forgets the record.
func (e *Engine) RetrieveDeactivated(record solana.PublicKey) (res *RetrieveResult, err error) {
	err = e.exec("retrieve_deactivated", func(s *step) error {
		res, err = s.retrieveDeactivated(record)
		return err
	})
	return
}

func mergeable(l stakes.Lifecycle) bool {
	return l == stakes.Active || l == stakes.CoolingDown
}

func (s *step) mergeRecords(dstAddr, srcAddr solana.PublicKey) (*MergeResult, error) {
	if dstAddr == srcAddr {
		return nil, reverts.New("cannot merge a record into itself")
	}
	dst, err := s.stakes.GetExisting(dstAddr)
	if err != nil {
		return nil, err
	}
	src, err := s.stakes.GetExisting(srcAddr)
	if err != nil {
		return nil, err
	}
	if dst.Swept || src.Swept {
		return nil, reverts.New("cannot merge swept records")
	}
	if dst.Validator != src.Validator {
		return nil, reverts.Newf("records delegated to %s and %s", dst.Validator, src.Validator)
	}
	if dst.Lifecycle != src.Lifecycle || !mergeable(dst.Lifecycle) {
		return nil, reverts.Newf("cannot merge %s into %s", src.Lifecycle, dst.Lifecycle)
	}
	if !dst.CheckedIn(s.clock.Epoch) || !src.CheckedIn(s.clock.Epoch) {
		return nil, reverts.NotEligible("both records must have rewards recognized this epoch")
	}
	// the host must agree with the ledger on both sides
	for _, r := range []*stakes.Record{dst, src} {
		acct, err := s.account(r)
		if err != nil {
			return nil, err
		}
		if acct.Lifecycle != r.Lifecycle {
			return nil, reverts.NotEligiblef("stake account %s is %s, ledger has %s", r.Address, acct.Lifecycle, r.Lifecycle)
		}
	}

	if dst.Principal, err = calc.Add(dst.Principal, src.Principal); err != nil {
		return nil, err
	}
	dst.Emergency = dst.Emergency || src.Emergency
	if dst.Shortfall, err = calc.Add(dst.Shortfall, src.Shortfall); err != nil {
		return nil, err
	}
	if err := s.stakes.Update(dst); err != nil {
		return nil, err
	}
	if err := s.stakes.Remove(src); err != nil {
		return nil, err
	}
	s.effect(MergeStake{Dst: dst.Address, Src: src.Address, RentTo: s.params.Operational})

	res := &MergeResult{Dst: dst.Address, Src: src.Address, Principal: dst.Principal}
	return res, s.emit(EventRecordsMerged, dst.Address,
		"src", src.Address,
		"validator", dst.Validator,
		"lifecycle", dst.Lifecycle,
		"merged", src.Principal,
		"principal", dst.Principal,
	)
}

func (s *step) retrieveDeactivated(addr solana.PublicKey) (*RetrieveResult, error) {
	rec, err := s.stakes.GetExisting(addr)
	if err != nil {
		return nil, err
	}
	if rec.Lifecycle != stakes.Deactivated {
		return nil, reverts.NotEligiblef("stake record %s is %s", addr, rec.Lifecycle)
	}
	if !rec.Swept {
		return nil, reverts.NotEligiblef("stake record %s not swept yet", addr)
	}
	acct, err := s.account(rec)
	if err != nil {
		return nil, err
	}
	if acct.Lifecycle != stakes.Deactivated {
		return nil, reverts.Newf("stake account %s is %s", addr, acct.Lifecycle)
	}

	res := &RetrieveResult{Record: addr, Amount: rec.Retrievable}
	if res.ToTickets, res.ToAvailable, err = s.reserve.Retrieve(rec.Retrievable); err != nil {
		return nil, err
	}
	if res.Restaked, err = s.stats.Retrieved(rec.Retrievable); err != nil {
		return nil, err
	}
	if err := s.stakes.Remove(rec); err != nil {
		return nil, err
	}

	return res, s.emit(EventDeactivatedRetrieved, addr,
		"validator", rec.Validator,
		"amount", res.Amount,
		"toTickets", res.ToTickets,
		"toAvailable", res.ToAvailable,
		"restaked", res.Restaked,
	)
}
