// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/lstlabs/settler/settler"
)

// LinkedList is a persistent doubly linked list of keys, giving the ledger an
// enumerable set without loading it whole.
type LinkedList struct {
	head  *Value[solana.PublicKey]
	tail  *Value[solana.PublicKey]
	count *Counter
	next  *Mapping[solana.PublicKey, solana.PublicKey]
	prev  *Mapping[solana.PublicKey, solana.PublicKey]
}

// NewLinkedList lays a list out under the given name.
func NewLinkedList(sctx *Context, name string) *LinkedList {
	return NewLinkedListAt(sctx, name, settler.Blake2b([]byte(name)))
}

// NewLinkedListAt lays a list out under base, used for lists keyed by an owner.
func NewLinkedListAt(sctx *Context, name string, base settler.Bytes32) *LinkedList {
	pos := func(suffix string) settler.Bytes32 {
		return settler.Blake2b(base.Bytes(), []byte(suffix))
	}
	return &LinkedList{
		head:  NewValue[solana.PublicKey](sctx, pos("head")),
		tail:  NewValue[solana.PublicKey](sctx, pos("tail")),
		count: NewCounterAt(sctx, name+"-count", pos("count")),
		next:  NewMapping[solana.PublicKey, solana.PublicKey](sctx, pos("next")),
		prev:  NewMapping[solana.PublicKey, solana.PublicKey](sctx, pos("prev")),
	}
}

func (l *LinkedList) setHead(key solana.PublicKey) error {
	if key.IsZero() {
		return l.head.Delete()
	}
	return l.head.Set(key)
}

func (l *LinkedList) setTail(key solana.PublicKey) error {
	if key.IsZero() {
		return l.tail.Delete()
	}
	return l.tail.Set(key)
}

func (l *LinkedList) link(m *Mapping[solana.PublicKey, solana.PublicKey], from, to solana.PublicKey) error {
	if to.IsZero() {
		return m.Delete(from)
	}
	return m.Set(from, to)
}

// Add appends a key to the end of the list.
func (l *LinkedList) Add(key solana.PublicKey) error {
	if key.IsZero() {
		return errors.New("zero key")
	}
	oldTail, err := l.tail.Get()
	if err != nil {
		return err
	}

	if oldTail.IsZero() {
		// the list is currently empty, set this entry to head & tail
		if err := l.setHead(key); err != nil {
			return err
		}
		if err := l.setTail(key); err != nil {
			return err
		}
		return l.count.Add(1)
	}

	if err := l.link(l.next, oldTail, key); err != nil {
		return err
	}
	if err := l.link(l.prev, key, oldTail); err != nil {
		return err
	}
	if err := l.setTail(key); err != nil {
		return err
	}
	return l.count.Add(1)
}

// Remove unlinks a key from anywhere in the list. Unknown keys are ignored.
func (l *LinkedList) Remove(key solana.PublicKey) error {
	if key.IsZero() {
		return nil
	}

	prev, err := l.prev.Get(key)
	if err != nil {
		return err
	}
	next, err := l.next.Get(key)
	if err != nil {
		return err
	}

	head, err := l.head.Get()
	if err != nil {
		return err
	}
	if prev.IsZero() && head != key {
		return nil // not in list
	}

	if !prev.IsZero() {
		if err := l.link(l.next, prev, next); err != nil {
			return err
		}
	} else if err := l.setHead(next); err != nil {
		return err
	}

	if !next.IsZero() {
		if err := l.link(l.prev, next, prev); err != nil {
			return err
		}
	} else if err := l.setTail(prev); err != nil {
		return err
	}

	if err := l.next.Delete(key); err != nil {
		return err
	}
	if err := l.prev.Delete(key); err != nil {
		return err
	}
	return l.count.Sub(1)
}

// Head returns the oldest key, zero when empty.
func (l *LinkedList) Head() (solana.PublicKey, error) {
	return l.head.Get()
}

// Next returns the successor of key, zero at the end.
func (l *LinkedList) Next(key solana.PublicKey) (solana.PublicKey, error) {
	return l.next.Get(key)
}

func (l *LinkedList) Len() (uint64, error) {
	return l.count.Get()
}

// Iter traverses the list in insertion order until the callback returns an error.
func (l *LinkedList) Iter(callback func(solana.PublicKey) error) error {
	ptr, err := l.head.Get()
	if err != nil {
		return err
	}

	for !ptr.IsZero() {
		if err := callback(ptr); err != nil {
			return err
		}
		if ptr, err = l.next.Get(ptr); err != nil {
			return err
		}
	}
	return nil
}
