// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/lstlabs/settler/calc"
	"github.com/lstlabs/settler/settler"
)

// Counter is a named uint64 cell that refuses to go negative or wrap.
type Counter struct {
	context *Context
	name    string
	pos     settler.Bytes32
}

func NewCounter(context *Context, name string) *Counter {
	return &Counter{context: context, name: name, pos: settler.BytesToBytes32([]byte(name))}
}

// NewCounterAt places a counter at an explicit slot.
func NewCounterAt(context *Context, name string, pos settler.Bytes32) *Counter {
	return &Counter{context: context, name: name, pos: pos}
}

func (c *Counter) Name() string {
	return c.name
}

func (c *Counter) Get() (uint64, error) {
	raw, err := c.context.read(c.pos)
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		return 0, nil
	}
	var v uint64
	if err := rlp.DecodeBytes(raw, &v); err != nil {
		return 0, errors.Wrap(err, c.name)
	}
	return v, nil
}

func (c *Counter) Set(v uint64) error {
	if v == 0 {
		return c.context.write(c.pos, nil)
	}
	raw, err := rlp.EncodeToBytes(v)
	if err != nil {
		return err
	}
	return c.context.write(c.pos, raw)
}

func (c *Counter) Add(delta uint64) error {
	if delta == 0 {
		return nil
	}
	cur, err := c.Get()
	if err != nil {
		return err
	}
	next, err := calc.Add(cur, delta)
	if err != nil {
		return errors.Wrap(err, c.name+": overflow")
	}
	return c.Set(next)
}

func (c *Counter) Sub(delta uint64) error {
	if delta == 0 {
		return nil
	}
	cur, err := c.Get()
	if err != nil {
		return err
	}
	next, err := calc.Sub(cur, delta)
	if err != nil {
		return errors.Wrap(err, c.name+": cannot be negative")
	}
	return c.Set(next)
}
