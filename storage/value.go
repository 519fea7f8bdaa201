// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/lstlabs/settler/settler"
)

// Value is a single rlp encoded cell at a fixed position.
type Value[V any] struct {
	context *Context
	pos     settler.Bytes32
}

func NewValue[V any](context *Context, pos settler.Bytes32) *Value[V] {
	return &Value[V]{context: context, pos: pos}
}

func (v *Value[V]) Get() (value V, err error) {
	if reflect.ValueOf(value).Kind() == reflect.Ptr {
		value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(V)
	}
	raw, err := v.context.read(v.pos)
	if err != nil || len(raw) == 0 {
		return value, err
	}
	err = rlp.DecodeBytes(raw, &value)
	return value, err
}

func (v *Value[V]) Set(value V) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return v.context.write(v.pos, raw)
}

func (v *Value[V]) Delete() error {
	return v.context.write(v.pos, nil)
}
