// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package globalstats

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

func totals(t *testing.T, svc *Service) Totals {
	got, err := svc.Totals()
	require.NoError(t, err)
	return *got
}

func TestService_Balances(t *testing.T) {
	svc := newSvc(t)

	require.NoError(t, svc.AddActive(1000))
	require.NoError(t, svc.Deactivate(300))
	require.NoError(t, svc.SubCooling(100))
	require.NoError(t, svc.Mint(900))
	require.NoError(t, svc.Burn(50))

	got := totals(t, svc)
	assert.Equal(t, uint64(700), got.Active)
	assert.Equal(t, uint64(200), got.Cooling)
	assert.Equal(t, uint64(850), got.ReceiptSupply)

	assert.ErrorIs(t, svc.Deactivate(701), calc.ErrUnderflow)
	assert.ErrorIs(t, svc.Burn(851), calc.ErrUnderflow)

	require.NoError(t, svc.AddSlashed(40))
	require.NoError(t, svc.ResolveSlashed(100))
	assert.Zero(t, totals(t, svc).Slashed)
}

func TestService_Orders(t *testing.T) {
	svc := newSvc(t)

	require.NoError(t, svc.AddStakeOrders(500))
	require.NoError(t, svc.AddUnstakeOrders(200))
	got := totals(t, svc)
	stake, unstake := got.Delta()
	assert.Equal(t, uint64(300), stake)
	assert.Zero(t, unstake)

	require.NoError(t, svc.SettleStake(300))
	settled, err := svc.SettleUnstake(1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), settled)
	got = totals(t, svc)
	assert.Equal(t, uint64(200), got.StakeOrders)
	assert.Zero(t, got.UnstakeOrders)
	assert.Equal(t, uint64(200), got.InFlight)
	assert.ErrorIs(t, svc.SettleStake(201), calc.ErrUnderflow)
}

func TestService_Retrieved(t *testing.T) {
	svc := newSvc(t)

	require.NoError(t, svc.AddUnstakeOrders(300))
	_, err := svc.SettleUnstake(1000)
	require.NoError(t, err)

	// the ordered part comes back without becoming a stake order
	restake, err := svc.Retrieved(200)
	require.NoError(t, err)
	assert.Zero(t, restake)
	assert.Equal(t, uint64(100), totals(t, svc).InFlight)

	restake, err = svc.Retrieved(900)
	require.NoError(t, err)
	assert.Equal(t, uint64(800), restake)
	got := totals(t, svc)
	assert.Zero(t, got.InFlight)
	assert.Equal(t, uint64(800), got.StakeOrders)
}

func TestService_Rollover(t *testing.T) {
	svc := newSvc(t)
	require.NoError(t, svc.SetEpoch(10))

	require.NoError(t, svc.AddStakeOrders(100))
	require.NoError(t, svc.AddUnstakeOrders(400))

	rolled, err := svc.Rollover(10)
	require.NoError(t, err)
	assert.False(t, rolled)

	rolled, err = svc.Rollover(11)
	require.NoError(t, err)
	assert.True(t, rolled)

	got := totals(t, svc)
	assert.Zero(t, got.StakeOrders)
	assert.Equal(t, uint64(300), got.UnstakeOrders)
	assert.Equal(t, uint64(11), got.LastEpoch)

	_, err = svc.Rollover(9)
	assert.Error(t, err)
}

func TestVirtualStaked(t *testing.T) {
	v, err := VirtualStaked(&Totals{Active: 100, Cooling: 50}, 30, 20)
	require.NoError(t, err)
	assert.Equal(t, uint64(160), v)

	v, err = VirtualStaked(&Totals{}, 10, 20)
	require.NoError(t, err)
	assert.Zero(t, v)

	_, err = VirtualStaked(&Totals{Active: ^uint64(0), Cooling: 1}, 0, 0)
	assert.ErrorIs(t, err, calc.ErrOverflow)
}
