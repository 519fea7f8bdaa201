// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lstlabs/settler/meter"
	"github.com/lstlabs/settler/staking"
	"github.com/lstlabs/settler/staking/reverts"
	"github.com/lstlabs/settler/staking/stakes"
)

func TestStepError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"precondition", reverts.New("amount is zero"), http.StatusBadRequest},
		{"eligibility", reverts.NotEligible("already checked"), http.StatusConflict},
		{"not found", stakes.ErrRecordNotFound, http.StatusNotFound},
		{"budget", errors.Wrap(meter.ErrBudgetExceeded, "step"), http.StatusUnprocessableEntity},
		{"fault", errors.Wrap(staking.ErrAccountingFault, "orders"), http.StatusInternalServerError},
		{"other", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := WrapHandlerFunc(func(http.ResponseWriter, *http.Request) error {
				return StepError(tt.err)
			})
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.status, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.err.Error())
		})
	}
	assert.Nil(t, StepError(nil))
}

func TestParseParams(t *testing.T) {
	key, err := ParseAddress("record", "11111111111111111111111111111111")
	require.NoError(t, err)
	assert.True(t, key.IsZero())

	_, err = ParseAddress("record", "0x00")
	assert.ErrorContains(t, err, "record")

	v, err := ParseUint64("limit", "", 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), v)

	v, err = ParseUint64("limit", "12", 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), v)

	_, err = ParseUint64("limit", "-1", 7)
	var he *httpError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.status)
}
