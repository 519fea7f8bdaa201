// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package settler

import (
	"encoding/json"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
)

func TestMarshalUnmarshall(t *testing.T) {
	originalHex := `"0x00000000000000000000000000000000000000000000000000006d6173746572"`

	var value Bytes32
	err := value.UnmarshalJSON([]byte(originalHex))
	assert.NoError(t, err)

	err = json.Unmarshal([]byte(originalHex), &value)
	assert.NoError(t, err)

	direct, err := value.MarshalJSON()
	assert.NoError(t, err)
	assert.Equal(t, originalHex, string(direct))

	byValue, err := json.Marshal(value)
	assert.NoError(t, err)
	assert.Equal(t, originalHex, string(byValue))

	byPtr, err := json.Marshal(&value)
	assert.NoError(t, err)
	assert.Equal(t, originalHex, string(byPtr))
}

func TestParseBytes32(t *testing.T) {
	_, err := ParseBytes32("0x1234")
	assert.EqualError(t, err, "invalid length")

	_, err = ParseBytes32("1x" + "00000000000000000000000000000000000000000000000000006d6173746572")
	assert.EqualError(t, err, "invalid prefix")

	b, err := ParseBytes32("00000000000000000000000000000000000000000000000000006d6173746572")
	assert.NoError(t, err)
	assert.Equal(t, BytesToBytes32([]byte("master")), b)
	assert.Panics(t, func() { MustParseBytes32("zz") })
}

func TestBytesToBytes32(t *testing.T) {
	long := make([]byte, 40)
	long[39] = 7
	assert.Equal(t, byte(7), BytesToBytes32(long)[31])
	assert.True(t, BytesToBytes32(nil).IsZero())
}

func TestDeriveKey(t *testing.T) {
	base := solana.PublicKeyFromBytes([]byte("validator"))
	a := DeriveKey("stake-record", base, 1)
	b := DeriveKey("stake-record", base, 2)

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, DeriveKey("stake-record", base, 1))
	assert.NotEqual(t, a, DeriveKey("ticket", base, 1))
}

func TestLamportsString(t *testing.T) {
	assert.Equal(t, "2 SOL", Lamports(SOL(2)).String())
	assert.Equal(t, "1.5 SOL", Lamports(1_500_000_000).String())
	assert.Equal(t, "0.000000001 SOL", Lamports(1).String())
}
