// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lstlabs/settler/kv"
	"github.com/lstlabs/settler/lvldb"
)

func TestBucket(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	ledger := kv.Bucket("l")
	meta := kv.Bucket("m")

	require.NoError(t, ledger.NewPutter(db).Put([]byte("k"), []byte("ledger")))
	require.NoError(t, meta.NewPutter(db).Put([]byte("k"), []byte("meta")))

	v, err := ledger.NewGetter(db).Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("ledger"), v)

	raw, err := db.Get([]byte("mk"))
	require.NoError(t, err)
	assert.Equal(t, []byte("meta"), raw)

	require.NoError(t, meta.NewPutter(db).Delete([]byte("k")))
	has, err := meta.NewGetter(db).Has([]byte("k"))
	require.NoError(t, err)
	assert.False(t, has)

	_, err = meta.NewGetter(db).Get([]byte("k"))
	assert.True(t, meta.NewGetter(db).IsNotFound(err))
}
