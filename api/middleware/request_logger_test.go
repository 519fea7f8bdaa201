// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lstlabs/settler/log"
)

// mockLogger is a simple logger implementation for testing purposes
type mockLogger struct {
	loggedData []any
}

func (m *mockLogger) With(_ ...any) log.Logger { return m }

func (m *mockLogger) New(_ ...any) log.Logger { return m }

func (m *mockLogger) Log(_ slog.Level, _ string, _ ...any) {}

func (m *mockLogger) Write(_ slog.Level, _ string, _ ...any) {}

func (m *mockLogger) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (m *mockLogger) Handler() slog.Handler { return nil }

func (m *mockLogger) Trace(_ string, _ ...any) {}

func (m *mockLogger) Debug(_ string, _ ...any) {}

func (m *mockLogger) Error(_ string, _ ...any) {}

func (m *mockLogger) Crit(_ string, _ ...any) {}

func (m *mockLogger) Info(_ string, ctx ...any) {
	m.loggedData = append(m.loggedData, ctx...)
}

func (m *mockLogger) Warn(_ string, ctx ...any) {
	m.loggedData = append(m.loggedData, ctx...)
}

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	}
}

func TestRequestLoggerMiddleware(t *testing.T) {
	slow := func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(15 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		enabled   bool
		threshold time.Duration
		log5xx    bool
		shouldLog bool
	}{
		{"enabled", status(http.StatusOK), true, 0, false, true},
		{"disabled", status(http.StatusOK), false, 0, false, false},
		{"slow request", slow, false, 10 * time.Millisecond, false, true},
		{"fast request under threshold", status(http.StatusOK), false, time.Second, false, false},
		{"5xx logged", status(http.StatusInternalServerError), false, 0, true, true},
		{"5xx not logged", status(http.StatusInternalServerError), false, 0, false, false},
		{"4xx ignored", status(http.StatusConflict), false, 0, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockLog := &mockLogger{}
			var enabled atomic.Bool
			enabled.Store(tt.enabled)

			handler := RequestLoggerMiddleware(mockLog, &enabled, tt.threshold, tt.log5xx)(tt.handler)

			req := httptest.NewRequest(http.MethodPost, "http://example.com/crank/deposit", strings.NewReader("test body"))
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.NotEmpty(t, rr.Header().Get(RequestIDHeader))
			if tt.shouldLog {
				assert.Contains(t, mockLog.loggedData, "http://example.com/crank/deposit")
				assert.Contains(t, mockLog.loggedData, "POST")
				assert.Contains(t, mockLog.loggedData, "test body")
				assert.Contains(t, mockLog.loggedData, rr.Code)
				assert.Contains(t, mockLog.loggedData, rr.Header().Get(RequestIDHeader))
			} else {
				assert.Empty(t, mockLog.loggedData)
			}
		})
	}
}

func TestRequestLoggerMiddleware_KeepsRequestID(t *testing.T) {
	var enabled atomic.Bool
	handler := RequestLoggerMiddleware(&mockLogger{}, &enabled, 0, false)(status(http.StatusOK))

	req := httptest.NewRequest(http.MethodGet, "/ledger", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, "abc", rr.Header().Get(RequestIDHeader))
}
