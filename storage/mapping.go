// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"encoding/binary"
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/lstlabs/settler/settler"
)

type Key interface {
	Bytes() []byte
}

// Index is a Key for positional slots.
type Index uint32

func (i Index) Bytes() []byte {
	return binary.BigEndian.AppendUint32(nil, uint32(i))
}

// Mapping is a key/value storage abstraction keyed under a base position,
// each entry stored rlp encoded at blake2b(key, base).
type Mapping[K Key, V any] struct {
	context *Context
	basePos settler.Bytes32
}

func NewMapping[K Key, V any](context *Context, pos settler.Bytes32) *Mapping[K, V] {
	return &Mapping[K, V]{context: context, basePos: pos}
}

func (m *Mapping[K, V]) position(key K) settler.Bytes32 {
	return settler.Blake2b(key.Bytes(), m.basePos.Bytes())
}

// Get returns the decoded value, or the zero value (a fresh pointer for pointer types) if absent.
func (m *Mapping[K, V]) Get(key K) (value V, err error) {
	if reflect.ValueOf(value).Kind() == reflect.Ptr {
		value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(V)
	}
	raw, err := m.context.read(m.position(key))
	if err != nil || len(raw) == 0 {
		return value, err
	}
	err = rlp.DecodeBytes(raw, &value)
	return value, err
}

func (m *Mapping[K, V]) Has(key K) (bool, error) {
	raw, err := m.context.read(m.position(key))
	return len(raw) > 0, err
}

func (m *Mapping[K, V]) Set(key K, value V) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.context.write(m.position(key), raw)
}

func (m *Mapping[K, V]) Delete(key K) error {
	return m.context.write(m.position(key), nil)
}
