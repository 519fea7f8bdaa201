// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package apilogs

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPILogsHandler(t *testing.T) {
	tests := []struct {
		name             string
		method           string
		startValue       bool
		requestBody      bool
		expectedEndValue bool
	}{
		{"enable", http.MethodPost, false, true, true},
		{"disable", http.MethodPost, true, false, false},
		{"get", http.MethodGet, true, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var enabled atomic.Bool
			enabled.Store(tt.startValue)

			var body []byte
			if tt.method == http.MethodPost {
				var err error
				body, err = json.Marshal(LogStatus{Enabled: tt.requestBody})
				require.NoError(t, err)
			}
			req := httptest.NewRequest(tt.method, "/admin/apilogs", bytes.NewReader(body))
			rr := httptest.NewRecorder()
			router := mux.NewRouter()
			New(&enabled).Mount(router, "/admin/apilogs")
			router.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code)
			var res LogStatus
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
			assert.Equal(t, tt.expectedEndValue, res.Enabled)
			assert.Equal(t, tt.expectedEndValue, enabled.Load())
		})
	}
}
