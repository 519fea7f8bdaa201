// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lstlabs/settler/api/events"
	"github.com/lstlabs/settler/eventdb"
	"github.com/lstlabs/settler/simnet"
	"github.com/lstlabs/settler/staking"
	"github.com/lstlabs/settler/test/testengine"
)

const limit = 5

var (
	alice = simnet.Key("alice")
	bob   = simnet.Key("bob")
)

func initEventServer(t *testing.T) (*testengine.Engine, *httptest.Server) {
	te, err := testengine.New()
	require.NoError(t, err)
	t.Cleanup(te.Close)

	// ParamsUpdated and two ValidatorAdded precede these
	for _, user := range []struct {
		key      solana.PublicKey
		lamports uint64
	}{{alice, 1000}, {bob, 2000}, {alice, 500}} {
		_, err := te.Deposit(user.key, user.lamports)
		require.NoError(t, err)
	}

	router := mux.NewRouter()
	events.New(te.Events, limit).Mount(router, "/events")
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return te, ts
}

func httpGet(t *testing.T, url string) ([]byte, int) {
	res, err := http.Get(url) //#nosec G107
	require.NoError(t, err)
	defer res.Body.Close()
	r, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return r, res.StatusCode
}

func httpPost(t *testing.T, url string, body any) ([]byte, int) {
	data, err := json.Marshal(body)
	require.NoError(t, err)
	res, err := http.Post(url, "application/json", bytes.NewReader(data)) //#nosec G107
	require.NoError(t, err)
	defer res.Body.Close()
	r, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return r, res.StatusCode
}

func decodeEvents(t *testing.T, data []byte, code int) []*staking.Event {
	require.Equal(t, http.StatusOK, code, string(data))
	var evs []*staking.Event
	require.NoError(t, json.Unmarshal(data, &evs))
	return evs
}

func seqs(evs []*staking.Event) []uint64 {
	out := make([]uint64, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.Seq)
	}
	return out
}

func TestEvents_Query(t *testing.T) {
	te, ts := initEventServer(t)

	data, code := httpGet(t, ts.URL+"/events")
	assert.Equal(t, http.StatusForbidden, code, "six events exceed the limit")
	assert.Contains(t, string(data), "please use pagination")

	data, code = httpGet(t, ts.URL+"/events?name=Deposited")
	evs := decodeEvents(t, data, code)
	assert.Equal(t, []uint64{3, 4, 5}, seqs(evs))
	assert.Equal(t, float64(2000), evs[1].Fields["staked"])

	data, code = httpGet(t, ts.URL+"/events?name=ValidatorAdded,Deposited&order=DESC&limit=2")
	evs = decodeEvents(t, data, code)
	assert.Equal(t, []uint64{5, 4}, seqs(evs))

	data, code = httpGet(t, ts.URL+"/events?name=ValidatorAdded&name=ParamsUpdated")
	evs = decodeEvents(t, data, code)
	assert.Equal(t, []uint64{0, 1, 2}, seqs(evs))

	data, code = httpGet(t, ts.URL+"/events?subject="+alice.String())
	evs = decodeEvents(t, data, code)
	assert.Equal(t, []uint64{3, 5}, seqs(evs))

	data, code = httpGet(t, ts.URL+"/events?limit=2&offset=1")
	evs = decodeEvents(t, data, code)
	assert.Equal(t, []uint64{1, 2}, seqs(evs))

	te.Net.NextEpoch()
	_, err := te.Deposit(bob, 100)
	require.NoError(t, err)

	data, code = httpGet(t, ts.URL+"/events?name=Deposited&from=101")
	evs = decodeEvents(t, data, code)
	require.Len(t, evs, 1)
	assert.Equal(t, uint64(testengine.StartEpoch+1), evs[0].Epoch)

	data, code = httpGet(t, ts.URL+"/events?name=Deposited&from=0&to=100")
	evs = decodeEvents(t, data, code)
	assert.Equal(t, []uint64{3, 4, 5}, seqs(evs))
}

func TestEvents_QueryErrors(t *testing.T) {
	_, ts := initEventServer(t)

	for _, query := range []string{
		"limit=x",
		"offset=-1",
		"from=10&to=5",
		"order=sideways",
	} {
		_, code := httpGet(t, ts.URL+"/events?"+query)
		assert.Equal(t, http.StatusBadRequest, code, query)
	}

	_, code := httpGet(t, ts.URL+"/events?limit=6")
	assert.Equal(t, http.StatusForbidden, code)
}

func TestEvents_Filter(t *testing.T) {
	_, ts := initEventServer(t)

	data, code := httpPost(t, ts.URL+"/events", &eventdb.Filter{
		Names:   []string{staking.EventDeposited},
		Subject: bob.String(),
	})
	evs := decodeEvents(t, data, code)
	require.Len(t, evs, 1)
	assert.Equal(t, uint64(4), evs[0].Seq)
	assert.Equal(t, bob.String(), evs[0].Subject)

	data, code = httpPost(t, ts.URL+"/events", &eventdb.Filter{
		Range:   &eventdb.Range{From: testengine.StartEpoch, To: testengine.StartEpoch},
		Options: &eventdb.Options{Offset: 4, Limit: limit},
	})
	evs = decodeEvents(t, data, code)
	assert.Equal(t, []uint64{4, 5}, seqs(evs))

	_, code = httpPost(t, ts.URL+"/events", &eventdb.Filter{Options: &eventdb.Options{Limit: limit + 1}})
	assert.Equal(t, http.StatusForbidden, code)

	_, code = httpPost(t, ts.URL+"/events", &eventdb.Filter{Order: "sideways"})
	assert.Equal(t, http.StatusBadRequest, code)

	_, code = httpPost(t, ts.URL+"/events", map[string]any{"topics": []string{"a"}})
	assert.Equal(t, http.StatusBadRequest, code)
}
