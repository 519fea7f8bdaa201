// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
)

func TestAppendUint64(t *testing.T) {
	tests := []struct {
		n    uint64
		neg  bool
		want string
	}{
		{0, false, "0"},
		{99999, false, "99999"},
		{100000, false, "100,000"},
		{1234567890, false, "1,234,567,890"},
		{1234567, true, "-1,234,567"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, string(appendUint64(nil, tt.n, tt.neg)))
	}
	assert.Equal(t, "-5", string(appendInt64(nil, -5)))
}

func TestAppendU256(t *testing.T) {
	assert.Equal(t, "1,000,000", string(appendU256(nil, uint256.NewInt(1_000_000))))
	big := new(uint256.Int).Lsh(uint256.NewInt(1), 70)
	assert.Equal(t, "1,180,591,620,717,411,303,424", string(appendU256(nil, big)))
}

func TestEscape(t *testing.T) {
	assert.Equal(t, `"a b"`, string(appendEscapeString(nil, "a b")))
	assert.Equal(t, `plain`, string(appendEscapeString(nil, "plain")))
	assert.Equal(t, `"quo\"te"`, string(appendEscapeString(nil, `quo"te`)))
	assert.Equal(t, "multi\nline", escapeMessage("multi\nline"))
	assert.Equal(t, `"k=v"`, escapeMessage("k=v"))
}

func TestLevels(t *testing.T) {
	assert.Equal(t, LevelCrit, FromLegacyLevel(0))
	assert.Equal(t, slog.LevelInfo, FromLegacyLevel(3))
	assert.Equal(t, LevelTrace, FromLegacyLevel(9))
	assert.Equal(t, "warn", LevelString(slog.LevelWarn))

	lvl, ok := ParseLevel("DEBUG")
	assert.True(t, ok)
	assert.Equal(t, slog.LevelDebug, lvl)
	_, ok = ParseLevel("loud")
	assert.False(t, ok)
}

func TestTerminalHandler(t *testing.T) {
	out := new(bytes.Buffer)
	var lvl slog.LevelVar
	lvl.Set(slog.LevelInfo)
	l := NewLogger(NewTerminalHandlerWithLevel(out, &lvl, false))

	l.Debug("hidden")
	l.Info("committed step", "op", "recognize", "rewards", uint64(1_500_000))

	line := out.String()
	assert.NotContains(t, line, "hidden")
	assert.True(t, strings.HasPrefix(line, "INFO "))
	assert.Contains(t, line, "op=recognize")
	assert.Contains(t, line, "rewards=1,500,000")
}

func TestWithContextFollowsRoot(t *testing.T) {
	pkgLogger := WithContext("pkg", "staking")

	out := new(bytes.Buffer)
	old := Root()
	SetDefault(NewLogger(LogfmtHandler(out)))
	defer SetDefault(old)

	pkgLogger.With("step", 1).Info("hello")
	assert.Contains(t, out.String(), "pkg=staking")
	assert.Contains(t, out.String(), "step=1")
	assert.Contains(t, out.String(), "msg=hello")
}

func TestJSONHandler(t *testing.T) {
	out := new(bytes.Buffer)
	var lvl slog.LevelVar
	lvl.Set(slog.LevelWarn)
	l := NewLogger(JSONHandlerWithLevel(out, &lvl))
	l.Info("hidden")
	l.Warn("odd", "dangling")
	l.Error("failed to journal events", "count", 3, "price", uint256.NewInt(7))

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), `"lvl":"warn"`)
	assert.Contains(t, out.String(), errorKey)
	assert.Contains(t, out.String(), `"price":"7"`)
}
