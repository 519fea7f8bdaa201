// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lstlabs/settler/api/ledger"
	"github.com/lstlabs/settler/api/subscriptions"
	"github.com/lstlabs/settler/metrics"
	"github.com/lstlabs/settler/simnet"
	"github.com/lstlabs/settler/test/testengine"
)

func init() {
	metrics.InitializePrometheusMetrics()
}

func scrape(t *testing.T, ts *httptest.Server) map[string]*dto.MetricFamily {
	body, code := httpGet(t, ts.URL+"/metrics")
	require.Equal(t, http.StatusOK, code)
	parser := expfmt.TextParser{}
	families, err := parser.TextToMetricFamilies(bytes.NewReader(body))
	require.NoError(t, err)
	return families
}

func labelsOf(m *dto.Metric) map[string]string {
	labels := make(map[string]string)
	for _, l := range m.GetLabel() {
		labels[l.GetName()] = l.GetValue()
	}
	return labels
}

func TestMetricsMiddleware(t *testing.T) {
	te, err := testengine.New()
	require.NoError(t, err)
	defer te.Close()

	router := mux.NewRouter()
	ledger.New(te.Engine).Mount(router, "")
	router.PathPrefix("/metrics").Handler(metrics.HTTPHandler())
	router.Use(metricsMiddleware)
	ts := httptest.NewServer(router)
	defer ts.Close()

	_, code := httpGet(t, ts.URL+"/records/0x")
	assert.Equal(t, http.StatusBadRequest, code)
	_, code = httpGet(t, ts.URL+"/records/"+simnet.Key("nobody").String())
	assert.Equal(t, http.StatusNotFound, code)
	_, code = httpGet(t, ts.URL+"/ledger")
	assert.Equal(t, http.StatusOK, code)
	_, code = httpGet(t, ts.URL+"/ledger")
	assert.Equal(t, http.StatusOK, code)

	families := scrape(t, ts)
	counts := make(map[string]float64)
	for _, entry := range families["settler_api_request_count"].GetMetric() {
		labels := labelsOf(entry)
		assert.Len(t, labels, 3)
		// the metrics endpoint itself is unnamed and never recorded
		assert.NotEmpty(t, labels["name"])
		if strings.HasPrefix(labels["name"], "ledger_") {
			assert.Equal(t, http.MethodGet, labels["method"])
			counts[labels["name"]+" "+labels["code"]] = entry.GetCounter().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{
		"ledger_get_ledger 200": 2,
		"ledger_get_record 400": 1,
		"ledger_get_record 404": 1,
	}, counts)
	assert.NotEmpty(t, families["settler_api_duration_ms"].GetMetric())
}

func websocketGauge(t *testing.T, ts *httptest.Server) float64 {
	for _, m := range scrape(t, ts)["settler_api_active_websocket_gauge"].GetMetric() {
		if labelsOf(m)["subject"] == "events" {
			return m.GetGauge().GetValue()
		}
	}
	return 0
}

func TestWebsocketMetrics(t *testing.T) {
	te, err := testengine.New()
	require.NoError(t, err)
	defer te.Close()

	router := mux.NewRouter()
	sub := subscriptions.New(te.Engine, nil, []string{"*"}, 10)
	defer sub.Close()
	sub.Mount(router, "/subscriptions")
	router.PathPrefix("/metrics").Handler(metrics.HTTPHandler())
	router.Use(metricsMiddleware)
	ts := httptest.NewServer(router)
	defer ts.Close()

	u := url.URL{Scheme: "ws", Host: strings.TrimPrefix(ts.URL, "http://"), Path: "/subscriptions/events"}
	conn1, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	defer conn1.Close()

	// the gauge moves once the server side of the upgrade completes
	assert.Eventually(t, func() bool { return websocketGauge(t, ts) == 1 }, time.Second, 10*time.Millisecond)

	conn2, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	defer conn2.Close()

	assert.Eventually(t, func() bool { return websocketGauge(t, ts) == 2 }, time.Second, 10*time.Millisecond)

	conn1.Close()
	assert.Eventually(t, func() bool { return websocketGauge(t, ts) == 1 }, time.Second, 10*time.Millisecond)
}

func httpGet(t *testing.T, url string) ([]byte, int) {
	res, err := http.Get(url) //#nosec G107
	if err != nil {
		t.Fatal(err)
	}
	r, err := io.ReadAll(res.Body)
	res.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	return r, res.StatusCode
}
