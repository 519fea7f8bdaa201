// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package liqpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lstlabs/settler/calc"
	"github.com/lstlabs/settler/lvldb"
	"github.com/lstlabs/settler/state"
	"github.com/lstlabs/settler/storage"
)

func newSvc(t *testing.T) *Service {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(storage.NewContext(state.New(db, nil), nil))
}

func defaultParams() *Params {
	return &Params{
		MinFee:          calc.FromBasisPoints(30),
		MaxFee:          calc.FromBasisPoints(300),
		LiquidityTarget: 10_000,
		TreasuryCut:     calc.FromBasisPoints(2500),
	}
}

func TestParams_Validate(t *testing.T) {
	assert.NoError(t, defaultParams().Validate())

	p := defaultParams()
	p.MaxFee = calc.FromBasisPoints(1001)
	assert.Error(t, p.Validate())

	p = defaultParams()
	p.MinFee = calc.FromBasisPoints(301)
	assert.Error(t, p.Validate())

	p = defaultParams()
	p.TreasuryCut = calc.FromBasisPoints(10_001)
	assert.Error(t, p.Validate())

	p = defaultParams()
	p.LiquidityTarget = 0
	assert.Error(t, p.Validate())

	fee, err := defaultParams().Fee(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(300), fee.BasisPoints)
}

func TestService_Legs(t *testing.T) {
	svc := newSvc(t)

	require.NoError(t, svc.SetParams(defaultParams()))
	p, err := svc.Params()
	require.NoError(t, err)
	assert.Equal(t, defaultParams(), p)

	bad := defaultParams()
	bad.LiquidityTarget = 0
	assert.Error(t, svc.SetParams(bad))

	require.NoError(t, svc.AddSol(1000))
	require.NoError(t, svc.AddReceipt(100))
	require.NoError(t, svc.MintShares(1000))
	require.NoError(t, svc.SubSol(200))
	require.NoError(t, svc.SubReceipt(50))
	require.NoError(t, svc.BurnShares(10))

	legs, err := svc.Legs()
	require.NoError(t, err)
	assert.Equal(t, Legs{Sol: 800, Receipt: 50, LPSupply: 990}, *legs)

	// price 2.0
	v, err := legs.Value(2000, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(900), v)

	assert.ErrorIs(t, svc.SubSol(801), calc.ErrUnderflow)
}
