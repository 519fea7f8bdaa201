// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lstlabs/settler/simnet"
	"github.com/lstlabs/settler/staking"
	"github.com/lstlabs/settler/test/testengine"
)

var (
	alice = simnet.Key("alice")
	bob   = simnet.Key("bob")
)

func initSubscriptionsServer(t *testing.T, backtraceLimit uint64) (*testengine.Engine, *Subscriptions, *httptest.Server) {
	te, err := testengine.New()
	require.NoError(t, err)
	t.Cleanup(te.Close)

	subs := New(te.Engine, te.Events, []string{"*"}, backtraceLimit)
	router := mux.NewRouter()
	subs.Mount(router, "/subscriptions")
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return te, subs, ts
}

func dial(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	u := url.URL{Scheme: "ws", Host: strings.TrimPrefix(ts.URL, "http://"), Path: "/subscriptions/events", RawQuery: query}
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) *staking.Event {
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev staking.Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	return &ev
}

func TestSubscribeEvents(t *testing.T) {
	te, _, ts := initSubscriptionsServer(t, 100)

	// three setup events precede the first deposit
	conn := dial(t, ts, "seq=3&name=Deposited")

	_, err := te.Deposit(alice, 1000)
	require.NoError(t, err)
	_, err = te.Deposit(bob, 500)
	require.NoError(t, err)

	ev := readEvent(t, conn)
	assert.Equal(t, uint64(3), ev.Seq)
	assert.Equal(t, staking.EventDeposited, ev.Name)
	assert.Equal(t, alice.String(), ev.Subject)
	assert.Equal(t, float64(1000), ev.Fields["staked"])

	ev = readEvent(t, conn)
	assert.Equal(t, uint64(4), ev.Seq)
	assert.Equal(t, bob.String(), ev.Subject)
}

func TestSubscribeEvents_Replay(t *testing.T) {
	te, _, ts := initSubscriptionsServer(t, 100)
	_, err := te.Deposit(alice, 1000)
	require.NoError(t, err)

	conn := dial(t, ts, "seq=0&subject="+testengine.Validators[1].String())
	ev := readEvent(t, conn)
	assert.Equal(t, staking.EventValidatorAdded, ev.Name)
	assert.Equal(t, uint64(2), ev.Seq)

	conn = dial(t, ts, "seq=1")
	names := make([]string, 0, 3)
	for range 3 {
		names = append(names, readEvent(t, conn).Name)
	}
	assert.Equal(t, []string{staking.EventValidatorAdded, staking.EventValidatorAdded, staking.EventDeposited}, names)
}

func TestSubscribeEvents_Errors(t *testing.T) {
	_, subs, ts := initSubscriptionsServer(t, 2)

	u := url.URL{Scheme: "ws", Host: strings.TrimPrefix(ts.URL, "http://"), Path: "/subscriptions/events", RawQuery: "seq=x"}
	_, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	assert.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// more journaled events than the replay limit
	conn := dial(t, ts, "seq=0")
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseInternalServerErr), "unexpected error %v", err)

	conn = dial(t, ts, "")
	subs.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error %v", err)
}
