// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package lvldb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelDB(t *testing.T) {
	persisted, err := New(filepath.Join(t.TempDir(), "ledger"), Options{16, 16})
	require.NoError(t, err)
	defer persisted.Close()

	mem, err := NewMem()
	require.NoError(t, err)
	defer mem.Close()

	key, value := []byte("123"), []byte("456")
	for _, db := range []*LevelDB{persisted, mem} {
		require.NoError(t, db.Put(key, value))

		got, err := db.Get(key)
		assert.NoError(t, err)
		assert.Equal(t, value, got)

		has, err := db.Has(key)
		assert.NoError(t, err)
		assert.True(t, has)

		has, err = db.Has([]byte("abc"))
		assert.NoError(t, err)
		assert.False(t, has)

		require.NoError(t, db.Delete(key))
		_, err = db.Get(key)
		assert.True(t, db.IsNotFound(err))
	}
}

func TestBatch(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put([]byte("gone"), []byte{1}))

	b := db.NewBatch()
	require.NoError(t, b.Put([]byte("a"), []byte{1}))
	require.NoError(t, b.Put([]byte("b"), []byte{2}))
	require.NoError(t, b.Delete([]byte("gone")))
	assert.Equal(t, 3, b.Len())

	// nothing visible before write
	has, _ := db.Has([]byte("a"))
	assert.False(t, has)

	require.NoError(t, b.Write())
	v, err := db.Get([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, v)

	has, _ = db.Has([]byte("gone"))
	assert.False(t, has)
}
