// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/lstlabs/settler/api/utils"
	"github.com/lstlabs/settler/eventdb"
)

type Events struct {
	db    *eventdb.EventDB
	limit uint64
}

func New(db *eventdb.EventDB, limit uint64) *Events {
	return &Events{
		db,
		limit,
	}
}

func (e *Events) filter(w http.ResponseWriter, req *http.Request, filter *eventdb.Filter) error {
	if filter.Options != nil && filter.Options.Limit > e.limit {
		return utils.HTTPError(fmt.Errorf("options.limit exceeds the maximum allowed value of %d", e.limit), http.StatusForbidden)
	}
	if filter.Options != nil && filter.Options.Offset > math.MaxInt64 {
		return utils.BadRequest(fmt.Errorf("options.offset exceeds the maximum allowed value of %d", int64(math.MaxInt64)))
	}
	switch filter.Order {
	case "", eventdb.ASC, eventdb.DESC:
	default:
		return utils.BadRequest(fmt.Errorf("unknown order %q", filter.Order))
	}
	if filter.Options == nil {
		// one past the limit detects result sets that need pagination
		filter.Options = &eventdb.Options{Limit: e.limit + 1}
	}

	events, err := e.db.Filter(req.Context(), filter)
	if err != nil {
		return err
	}
	if len(events) > int(e.limit) {
		return utils.HTTPError(fmt.Errorf("the number of filtered events exceeds the maximum allowed value of %d, please use pagination", e.limit), http.StatusForbidden)
	}
	return utils.WriteJSON(w, events)
}

func (e *Events) handleFilter(w http.ResponseWriter, req *http.Request) error {
	var filter eventdb.Filter
	if err := utils.ParseJSON(req.Body, &filter); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	return e.filter(w, req, &filter)
}

// handleQuery serves the same filter from query parameters:
// from, to, name (repeatable or comma separated), subject, offset, limit, order.
func (e *Events) handleQuery(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	filter := eventdb.Filter{
		Subject: q.Get("subject"),
		Order:   eventdb.Order(strings.ToLower(q.Get("order"))),
	}
	if q.Has("from") || q.Has("to") {
		from, err := utils.ParseUint64("from", q.Get("from"), 0)
		if err != nil {
			return err
		}
		if q.Has("to") {
			to, err := utils.ParseUint64("to", q.Get("to"), 0)
			if err != nil {
				return err
			}
			if to < from {
				return utils.BadRequest(errors.New("to must be greater than or equal to from"))
			}
			filter.Range = &eventdb.Range{From: from, To: min(to, math.MaxInt64)}
		} else if from > 0 {
			// To below From leaves the range open
			filter.Range = &eventdb.Range{From: from}
		}
	}
	for _, names := range q["name"] {
		for _, name := range strings.Split(names, ",") {
			if name = strings.TrimSpace(name); name != "" {
				filter.Names = append(filter.Names, name)
			}
		}
	}
	if q.Has("offset") || q.Has("limit") {
		offset, err := utils.ParseUint64("offset", q.Get("offset"), 0)
		if err != nil {
			return err
		}
		limit, err := utils.ParseUint64("limit", q.Get("limit"), e.limit)
		if err != nil {
			return err
		}
		filter.Options = &eventdb.Options{Offset: offset, Limit: limit}
	}
	return e.filter(w, req, &filter)
}

func (e *Events) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("events_query").
		HandlerFunc(utils.WrapHandlerFunc(e.handleQuery))
	sub.Path("").
		Methods(http.MethodPost).
		Name("events_filter").
		HandlerFunc(utils.WrapHandlerFunc(e.handleFilter))
}
