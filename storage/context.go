// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package storage maps typed ledger values onto the raw key/value state,
// charging each access to the step's compute meter.
package storage

import (
	"github.com/lstlabs/settler/meter"
	"github.com/lstlabs/settler/settler"
	"github.com/lstlabs/settler/state"
)

type Context struct {
	state *state.State
	meter *meter.Meter
}

func NewContext(state *state.State, meter *meter.Meter) *Context {
	return &Context{
		state: state,
		meter: meter,
	}
}

func (c *Context) State() *state.State {
	return c.state
}

func (c *Context) Meter() *meter.Meter {
	return c.meter
}

// UseUnits charges the meter, if any.
func (c *Context) UseUnits(op meter.Op, units uint64) error {
	if c.meter != nil {
		return c.meter.Charge(op, units)
	}
	return nil
}

func (c *Context) read(pos settler.Bytes32) ([]byte, error) {
	raw, err := c.state.Get(pos.Bytes())
	if err != nil {
		return nil, err
	}
	if err := c.UseUnits(meter.OpRead, toWordSize(len(raw))*meter.ReadUnits); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *Context) write(pos settler.Bytes32, raw []byte) error {
	exists, err := c.state.Has(pos.Bytes())
	if err != nil {
		return err
	}
	op, price := meter.OpWriteReset, meter.WriteResetUnits
	if !exists && len(raw) > 0 {
		op, price = meter.OpWriteNew, meter.WriteNewUnits
	}
	if err := c.UseUnits(op, toWordSize(len(raw))*price); err != nil {
		return err
	}
	c.state.Set(pos.Bytes(), raw)
	return nil
}

// toWordSize converts a byte length into 32 byte words, at least one.
func toWordSize(length int) uint64 {
	if length <= 32 {
		return 1
	}
	return (uint64(length) + 31) / 32
}
