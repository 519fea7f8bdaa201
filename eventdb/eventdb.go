// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package eventdb journals committed ledger events into sqlite for querying.
package eventdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/lstlabs/settler/log"
	"github.com/lstlabs/settler/staking"
)

var logger = log.WithContext("pkg", "eventdb")

// EventDB stores staking events keyed by their sequence number.
type EventDB struct {
	path          string
	db            *sql.DB
	stmtCache     *stmtCache
	driverVersion string
}

var _ staking.Journal = (*EventDB)(nil)

// New creates or opens the event db at path.
func New(path string) (edb *EventDB, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if edb == nil {
			db.Close()
		}
	}()
	if path == ":memory:" {
		// every connection would see its own database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(eventTableSchema); err != nil {
		return nil, errors.Wrap(err, "create schema")
	}

	driverVer, _, _ := sqlite3.Version()
	logger.Debug("event db opened", "path", path, "sqlite", driverVer)
	return &EventDB{
		path:          path,
		db:            db,
		stmtCache:     newStmtCache(db),
		driverVersion: driverVer,
	}, nil
}

// NewMem creates an event db in memory.
func NewMem() (*EventDB, error) {
	return New(":memory:")
}

func (db *EventDB) Close() error {
	db.stmtCache.Clear()
	return db.db.Close()
}

func (db *EventDB) Path() string {
	return db.path
}

// Insert journals events in one transaction. Events already stored are
// replaced, so replaying a batch is harmless.
func (db *EventDB) Insert(events []*staking.Event) (err error) {
	if len(events) == 0 {
		return nil
	}
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := db.stmtCache.Prepare("INSERT OR REPLACE INTO event(seq, epoch, name, subject, fields) VALUES(?,?,?,?,?)")
	if err != nil {
		return err
	}
	txStmt := tx.Stmt(stmt)
	for _, ev := range events {
		var fields []byte
		if len(ev.Fields) > 0 {
			if fields, err = json.Marshal(ev.Fields); err != nil {
				return errors.Wrapf(err, "encode fields of event %d", ev.Seq)
			}
		}
		if _, err = txStmt.Exec(ev.Seq, ev.Epoch, ev.Name, ev.Subject, fields); err != nil {
			return errors.Wrapf(err, "insert event %d", ev.Seq)
		}
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	metricInsertCount().Add(int64(len(events)))
	return nil
}

func (f *Filter) orderOrDefault() Order {
	if f != nil && f.Order == DESC {
		return DESC
	}
	return ASC
}

// Filter returns the journaled events matching filter, nil matches all.
func (db *EventDB) Filter(ctx context.Context, filter *Filter) ([]*staking.Event, error) {
	if filter == nil {
		return db.query(ctx, "SELECT seq, epoch, name, subject, fields FROM event ORDER BY seq ASC")
	}
	metricsHandleFilter(filter)

	var args []any
	stmt := "SELECT seq, epoch, name, subject, fields FROM event WHERE 1"
	if filter.Range != nil {
		args = append(args, filter.Range.From)
		stmt += " AND epoch >= ?"
		if filter.Range.To >= filter.Range.From {
			args = append(args, filter.Range.To)
			stmt += " AND epoch <= ?"
		}
	}
	if len(filter.Names) > 0 {
		stmt += " AND name IN (?" + strings.Repeat(",?", len(filter.Names)-1) + ")"
		for _, name := range filter.Names {
			args = append(args, name)
		}
	}
	if filter.Subject != "" {
		args = append(args, filter.Subject)
		stmt += " AND subject = ?"
	}
	if filter.orderOrDefault() == DESC {
		stmt += " ORDER BY seq DESC"
	} else {
		stmt += " ORDER BY seq ASC"
	}
	if filter.Options != nil {
		stmt += " LIMIT ?, ?"
		args = append(args, filter.Options.Offset, filter.Options.Limit)
	}
	return db.query(ctx, stmt, args...)
}

// After returns up to limit events with a sequence number of at least seq,
// oldest first.
func (db *EventDB) After(ctx context.Context, seq, limit uint64) ([]*staking.Event, error) {
	return db.query(ctx, "SELECT seq, epoch, name, subject, fields FROM event WHERE seq >= ? ORDER BY seq ASC LIMIT ?", seq, limit)
}

// LastSeq returns the highest stored sequence number, and false when the
// journal is empty.
func (db *EventDB) LastSeq(ctx context.Context) (uint64, bool, error) {
	var seq sql.NullInt64
	if err := db.db.QueryRowContext(ctx, "SELECT MAX(seq) FROM event").Scan(&seq); err != nil {
		return 0, false, err
	}
	if !seq.Valid {
		return 0, false, nil
	}
	return uint64(seq.Int64), true, nil
}

func (db *EventDB) query(ctx context.Context, stmt string, args ...any) ([]*staking.Event, error) {
	rows, err := db.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*staking.Event
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var (
			ev     staking.Event
			fields []byte
		)
		if err := rows.Scan(&ev.Seq, &ev.Epoch, &ev.Name, &ev.Subject, &fields); err != nil {
			return nil, err
		}
		if len(fields) > 0 {
			if err := json.Unmarshal(fields, &ev.Fields); err != nil {
				return nil, errors.Wrapf(err, "decode fields of event %d", ev.Seq)
			}
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}
