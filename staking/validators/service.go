// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validators

import (
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/lstlabs/settler/calc"
	"github.com/lstlabs/settler/settler"
	"github.com/lstlabs/settler/staking/reverts"
	"github.com/lstlabs/settler/storage"
)

var (
	slotValidators = settler.BytesToBytes32([]byte("validators"))
	slotIndexes    = settler.BytesToBytes32([]byte("validator-indexes"))

	ErrWrongValidator = reverts.New("wrong validator account or index")
)

// Service manages the ordered validator list and its score totals.
type Service struct {
	slots      *storage.Mapping[storage.Index, *Validator]
	indexes    *storage.Mapping[solana.PublicKey, uint64] // index + 1
	count      *storage.Counter
	totalScore *storage.Counter
	totalStake *storage.Counter
}

func New(sctx *storage.Context) *Service {
	return &Service{
		slots:      storage.NewMapping[storage.Index, *Validator](sctx, slotValidators),
		indexes:    storage.NewMapping[solana.PublicKey, uint64](sctx, slotIndexes),
		count:      storage.NewCounter(sctx, "validator-count"),
		totalScore: storage.NewCounter(sctx, "validator-total-score"),
		totalStake: storage.NewCounter(sctx, "validator-total-stake"),
	}
}

func (s *Service) Count() (uint32, error) {
	n, err := s.count.Get()
	return uint32(n), err
}

func (s *Service) TotalScore() (uint64, error) {
	return s.totalScore.Get()
}

// TotalStake is the sum of every slot's active balance.
func (s *Service) TotalStake() (uint64, error) {
	return s.totalStake.Get()
}

// Get returns the validator at index, failing if the index is out of range.
func (s *Service) Get(index uint32) (*Validator, error) {
	count, err := s.Count()
	if err != nil {
		return nil, err
	}
	if index >= count {
		return nil, reverts.Newf("validator index %d out of range", index)
	}
	v, err := s.slots.Get(storage.Index(index))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get validator %d", index)
	}
	if v.IsEmpty() {
		return nil, errors.Errorf("validator slot %d is empty", index)
	}
	return v, nil
}

// GetChecked returns the validator at index after checking it is identity.
func (s *Service) GetChecked(index uint32, identity solana.PublicKey) (*Validator, error) {
	v, err := s.Get(index)
	if err != nil {
		return nil, err
	}
	if v.Identity != identity {
		return nil, ErrWrongValidator
	}
	return v, nil
}

// IndexOf looks a validator up by identity.
func (s *Service) IndexOf(identity solana.PublicKey) (uint32, bool, error) {
	idx, err := s.indexes.Get(identity)
	if err != nil || idx == 0 {
		return 0, false, err
	}
	return uint32(idx - 1), true, nil
}

// GetByIdentity resolves identity to its slot.
func (s *Service) GetByIdentity(identity solana.PublicKey) (uint32, *Validator, error) {
	idx, ok, err := s.IndexOf(identity)
	if err != nil {
		return 0, nil, err
	}
	if !ok {
		return 0, nil, reverts.Newf("validator %s not found", identity)
	}
	v, err := s.Get(idx)
	return idx, v, err
}

// Add appends a validator and returns its index.
func (s *Service) Add(identity solana.PublicKey, score uint32) (uint32, error) {
	if identity.IsZero() {
		return 0, reverts.New("validator identity is empty")
	}
	if _, ok, err := s.IndexOf(identity); err != nil {
		return 0, err
	} else if ok {
		return 0, reverts.Newf("validator %s already listed", identity)
	}

	index, err := s.Count()
	if err != nil {
		return 0, err
	}
	if err := s.slots.Set(storage.Index(index), &Validator{Identity: identity, Score: score}); err != nil {
		return 0, errors.Wrap(err, "failed to set validator")
	}
	if err := s.indexes.Set(identity, uint64(index)+1); err != nil {
		return 0, err
	}
	if err := s.count.Add(1); err != nil {
		return 0, err
	}
	return index, s.totalScore.Add(uint64(score))
}

// Update stores v at index, keeping the stake total in sync.
func (s *Service) Update(index uint32, v *Validator) error {
	prev, err := s.Get(index)
	if err != nil {
		return err
	}
	if prev.Identity != v.Identity {
		return errors.New("validator identity cannot change")
	}
	if prev.Score != v.Score {
		if err := s.totalScore.Sub(uint64(prev.Score)); err != nil {
			return err
		}
		if err := s.totalScore.Add(uint64(v.Score)); err != nil {
			return err
		}
	}
	if v.ActiveBalance > prev.ActiveBalance {
		if err := s.totalStake.Add(v.ActiveBalance - prev.ActiveBalance); err != nil {
			return err
		}
	} else if err := s.totalStake.Sub(prev.ActiveBalance - v.ActiveBalance); err != nil {
		return err
	}
	return s.slots.Set(storage.Index(index), v)
}

// AddStake increases the active balance of the validator at index.
func (s *Service) AddStake(index uint32, amount uint64) error {
	v, err := s.Get(index)
	if err != nil {
		return err
	}
	if v.ActiveBalance, err = calc.Add(v.ActiveBalance, amount); err != nil {
		return errors.Wrap(err, "validator active balance")
	}
	return s.Update(index, v)
}

// SubStake decreases the active balance of the validator at index.
func (s *Service) SubStake(index uint32, amount uint64) error {
	v, err := s.Get(index)
	if err != nil {
		return err
	}
	if v.ActiveBalance, err = calc.Sub(v.ActiveBalance, amount); err != nil {
		return errors.Wrap(err, "validator active balance: cannot be negative")
	}
	return s.Update(index, v)
}

// Remove drops the validator at index by moving the last slot into its place.
// The validator must hold no active balance.
func (s *Service) Remove(index uint32) error {
	v, err := s.Get(index)
	if err != nil {
		return err
	}
	if v.ActiveBalance > 0 {
		return reverts.Newf("validator %s still has active balance", v.Identity)
	}
	count, err := s.Count()
	if err != nil {
		return err
	}
	last := count - 1
	if index != last {
		moved, err := s.Get(last)
		if err != nil {
			return err
		}
		if err := s.slots.Set(storage.Index(index), moved); err != nil {
			return err
		}
		if err := s.indexes.Set(moved.Identity, uint64(index)+1); err != nil {
			return err
		}
	}
	if err := s.slots.Delete(storage.Index(last)); err != nil {
		return err
	}
	if err := s.indexes.Delete(v.Identity); err != nil {
		return err
	}
	if err := s.totalScore.Sub(uint64(v.Score)); err != nil {
		return err
	}
	return s.count.Sub(1)
}

// Iter visits every slot in index order until callback returns an error.
func (s *Service) Iter(callback func(index uint32, v *Validator) error) error {
	count, err := s.Count()
	if err != nil {
		return err
	}
	for i := range count {
		v, err := s.Get(i)
		if err != nil {
			return err
		}
		if err := callback(i, v); err != nil {
			return err
		}
	}
	return nil
}
