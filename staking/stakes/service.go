// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakes

import (
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/lstlabs/settler/settler"
	"github.com/lstlabs/settler/staking/reverts"
	"github.com/lstlabs/settler/storage"
)

var (
	slotRecords = settler.BytesToBytes32([]byte("stake-records"))

	ErrRecordNotFound = reverts.New("stake record not found")
)

// Service owns the enumerable set of controlled stake records, indexed
// globally and per validator.
type Service struct {
	sctx    *storage.Context
	records *storage.Mapping[solana.PublicKey, *Record]
	all     *storage.LinkedList
	nonce   *storage.Counter
}

func New(sctx *storage.Context) *Service {
	return &Service{
		sctx:    sctx,
		records: storage.NewMapping[solana.PublicKey, *Record](sctx, slotRecords),
		all:     storage.NewLinkedList(sctx, "stake-records"),
		nonce:   storage.NewCounter(sctx, "stake-record-nonce"),
	}
}

func (s *Service) byValidator(validator solana.PublicKey) *storage.LinkedList {
	return storage.NewLinkedListAt(s.sctx, "validator-records", settler.Blake2b(validator.Bytes(), []byte("records")))
}

// NextAddress derives a fresh record address under base.
func (s *Service) NextAddress(base solana.PublicKey) (solana.PublicKey, error) {
	n, err := s.nonce.Get()
	if err != nil {
		return solana.PublicKey{}, err
	}
	if err := s.nonce.Add(1); err != nil {
		return solana.PublicKey{}, err
	}
	return settler.DeriveKey("stake", base, n), nil
}

// Get returns the record, empty if unknown.
func (s *Service) Get(addr solana.PublicKey) (*Record, error) {
	return s.records.Get(addr)
}

// GetExisting returns the record or a not found revert.
func (s *Service) GetExisting(addr solana.PublicKey) (*Record, error) {
	r, err := s.records.Get(addr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get stake record")
	}
	if r.IsEmpty() {
		return nil, ErrRecordNotFound
	}
	return r, nil
}

// Add registers a new record in the controlled set.
func (s *Service) Add(r *Record) error {
	if r.IsEmpty() || r.Validator.IsZero() {
		return errors.New("incomplete stake record")
	}
	exists, err := s.records.Has(r.Address)
	if err != nil {
		return err
	}
	if exists {
		return errors.Errorf("stake record %s already exists", r.Address)
	}
	if err := s.records.Set(r.Address, r); err != nil {
		return err
	}
	if err := s.all.Add(r.Address); err != nil {
		return err
	}
	return s.byValidator(r.Validator).Add(r.Address)
}

// Update stores a modified record.
func (s *Service) Update(r *Record) error {
	exists, err := s.records.Has(r.Address)
	if err != nil {
		return err
	}
	if !exists {
		return errors.Errorf("stake record %s is not controlled", r.Address)
	}
	return s.records.Set(r.Address, r)
}

// Remove drops a record from the controlled set.
func (s *Service) Remove(r *Record) error {
	if err := s.byValidator(r.Validator).Remove(r.Address); err != nil {
		return err
	}
	if err := s.all.Remove(r.Address); err != nil {
		return err
	}
	return s.records.Delete(r.Address)
}

func (s *Service) Count() (uint64, error) {
	return s.all.Len()
}

func (s *Service) CountByValidator(validator solana.PublicKey) (uint64, error) {
	return s.byValidator(validator).Len()
}

// Iter visits every controlled record in creation order.
func (s *Service) Iter(callback func(*Record) error) error {
	return s.all.Iter(func(addr solana.PublicKey) error {
		r, err := s.records.Get(addr)
		if err != nil {
			return err
		}
		return callback(r)
	})
}

// IterValidator visits the records delegated to validator.
func (s *Service) IterValidator(validator solana.PublicKey, callback func(*Record) error) error {
	return s.byValidator(validator).Iter(func(addr solana.PublicKey) error {
		r, err := s.records.Get(addr)
		if err != nil {
			return err
		}
		return callback(r)
	})
}

// Largest returns the validator's record with the largest principal that
// satisfies match, nil if none does. Ties keep the older record.
func (s *Service) Largest(validator solana.PublicKey, match func(*Record) bool) (*Record, error) {
	var best *Record
	err := s.IterValidator(validator, func(r *Record) error {
		if match(r) && (best == nil || r.Principal > best.Principal) {
			best = r
		}
		return nil
	})
	return best, err
}
