// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/lstlabs/settler/api/utils"
	"github.com/lstlabs/settler/co"
	"github.com/lstlabs/settler/log"
	"github.com/lstlabs/settler/metrics"
	"github.com/lstlabs/settler/staking"
)

var (
	logger = log.WithContext("pkg", "subscriptions")

	metricActiveWebsockets = metrics.LazyLoadGaugeVec("api_active_websocket_gauge", []string{"subject"})
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 7) / 10

	listenerBuffer = 256
)

// Feed delivers committed events.
type Feed interface {
	SubscribeEvents(ch chan *staking.Event) event.Subscription
}

// Backlog replays journaled events.
type Backlog interface {
	After(ctx context.Context, seq, limit uint64) ([]*staking.Event, error)
}

type listener struct {
	ch     chan *staking.Event
	lagged chan struct{}
	once   sync.Once
}

func (l *listener) lag() {
	l.once.Do(func() { close(l.lagged) })
}

type Subscriptions struct {
	feed           Feed
	backlog        Backlog
	backtraceLimit uint64
	upgrader       *websocket.Upgrader
	cache          *messageCache

	mu        sync.RWMutex
	listeners map[*listener]struct{}

	done  chan struct{}
	goes  co.Goes
	conns sync.WaitGroup
}

// New creates the event subscription endpoint. backlog may be nil, in which
// case subscribers only receive events committed after they connect.
func New(feed Feed, backlog Backlog, allowedOrigins []string, backtraceLimit uint64) *Subscriptions {
	s := &Subscriptions{
		feed:           feed,
		backlog:        backlog,
		backtraceLimit: backtraceLimit,
		cache:          newMessageCache(uint32(min(backtraceLimit, 1000))),
		listeners:      make(map[*listener]struct{}),
		done:           make(chan struct{}),
	}
	s.upgrader = &websocket.Upgrader{
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range allowedOrigins {
				if allowed == origin || allowed == "*" {
					return true
				}
			}
			return false
		},
	}

	ch := make(chan *staking.Event, listenerBuffer)
	sub := feed.SubscribeEvents(ch)
	s.goes.Go(func() { s.dispatchLoop(ch, sub) })
	return s
}

// dispatchLoop fans committed events out to the connected listeners without
// ever blocking the engine on a slow connection.
func (s *Subscriptions) dispatchLoop(ch chan *staking.Event, sub event.Subscription) {
	defer sub.Unsubscribe()

	for {
		select {
		case ev := <-ch:
			s.mu.RLock()
			for lsn := range s.listeners {
				select {
				case lsn.ch <- ev:
				default:
					lsn.lag()
				}
			}
			s.mu.RUnlock()
		case <-sub.Err():
			return
		case <-s.done:
			return
		}
	}
}

func (s *Subscriptions) listen() *listener {
	lsn := &listener{
		ch:     make(chan *staking.Event, listenerBuffer),
		lagged: make(chan struct{}),
	}
	s.mu.Lock()
	s.listeners[lsn] = struct{}{}
	s.mu.Unlock()
	return lsn
}

func (s *Subscriptions) unlisten(lsn *listener) {
	s.mu.Lock()
	delete(s.listeners, lsn)
	s.mu.Unlock()
}

type eventFilter struct {
	names   map[string]bool
	subject string
	from    uint64
	replay  bool
}

func parseEventFilter(req *http.Request) (*eventFilter, error) {
	q := req.URL.Query()
	f := &eventFilter{subject: q.Get("subject")}
	for _, names := range q["name"] {
		for _, name := range strings.Split(names, ",") {
			if name = strings.TrimSpace(name); name != "" {
				if f.names == nil {
					f.names = make(map[string]bool)
				}
				f.names[name] = true
			}
		}
	}
	if q.Has("seq") {
		seq, err := utils.ParseUint64("seq", q.Get("seq"), 0)
		if err != nil {
			return nil, err
		}
		f.from, f.replay = seq, true
	}
	return f, nil
}

func (f *eventFilter) match(ev *staking.Event) bool {
	if f.names != nil && !f.names[ev.Name] {
		return false
	}
	return f.subject == "" || f.subject == ev.Subject
}

func (s *Subscriptions) handleSubscribeEvents(w http.ResponseWriter, req *http.Request) error {
	filter, err := parseEventFilter(req)
	if err != nil {
		return err
	}
	if filter.replay && s.backlog == nil {
		return utils.BadRequest(errors.New("seq: event journal not available"))
	}

	conn, err := s.upgrader.Upgrade(w, req, nil)
	// since the conn is hijacked here, no error should be returned in lines below
	if err != nil {
		logger.Debug("upgrade to websocket", "err", err)
		return nil
	}
	defer conn.Close()
	s.conns.Add(1)
	defer s.conns.Done()
	metricActiveWebsockets().AddWithLabel(1, map[string]string{"subject": "events"})
	defer metricActiveWebsockets().AddWithLabel(-1, map[string]string{"subject": "events"})

	if err := s.pipe(req.Context(), conn, filter); err != nil {
		logger.Debug("subscription ended", "remote", conn.RemoteAddr(), "err", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, err.Error()),
			time.Now().Add(writeWait))
	}
	return nil
}

func (s *Subscriptions) pipe(ctx context.Context, conn *websocket.Conn, filter *eventFilter) error {
	// subscribe before replaying so nothing committed in between is lost
	lsn := s.listen()
	defer s.unlisten(lsn)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(ev *staking.Event) error {
		msg, _, err := s.cache.GetOrAdd(ev)
		if err != nil {
			return err
		}
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, msg)
	}

	var next uint64
	if filter.replay {
		events, err := s.backlog.After(ctx, filter.from, s.backtraceLimit+1)
		if err != nil {
			return err
		}
		if uint64(len(events)) > s.backtraceLimit {
			return errors.Errorf("more than %d events to replay", s.backtraceLimit)
		}
		if len(events) > 0 && events[0].Seq > filter.from {
			return errors.Errorf("events from %d are no longer journaled", filter.from)
		}
		next = filter.from
		for _, ev := range events {
			if filter.match(ev) {
				if err := send(ev); err != nil {
					return err
				}
			}
			next = ev.Seq + 1
		}
	}

	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()
	for {
		select {
		case ev := <-lsn.ch:
			if ev.Seq < next || !filter.match(ev) {
				continue
			}
			if err := send(ev); err != nil {
				return err
			}
		case <-lsn.lagged:
			return errors.New("subscriber too slow")
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		case <-closed:
			return nil
		case <-s.done:
			return conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(writeWait))
		}
	}
}

// Close ends every open subscription and waits for them to return.
func (s *Subscriptions) Close() {
	close(s.done)
	s.goes.Wait()
	s.conns.Wait()
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/events").
		Methods(http.MethodGet).
		Name("subscriptions_events").
		HandlerFunc(utils.WrapHandlerFunc(s.handleSubscribeEvents))
}
