// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lstlabs/settler/staking"
)

func TestMessageCache(t *testing.T) {
	cache := newMessageCache(2)

	ev := &staking.Event{Seq: 1, Epoch: 10, Name: staking.EventDeposited, Subject: "alice"}
	msg, added, err := cache.GetOrAdd(ev)
	require.NoError(t, err)
	assert.True(t, added)
	assert.JSONEq(t, `{"epoch":10,"seq":1,"name":"Deposited","subject":"alice"}`, string(msg))

	// cached by sequence number
	again, added, err := cache.GetOrAdd(&staking.Event{Seq: 1})
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, msg, again)

	for seq := uint64(2); seq <= 3; seq++ {
		_, added, err = cache.GetOrAdd(&staking.Event{Seq: seq})
		require.NoError(t, err)
		assert.True(t, added)
	}
	_, added, err = cache.GetOrAdd(ev)
	require.NoError(t, err)
	assert.True(t, added, "evicted entries are encoded again")
}
