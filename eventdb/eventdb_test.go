// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lstlabs/settler/eventdb"
	"github.com/lstlabs/settler/staking"
)

func newEvents(n int) []*staking.Event {
	names := []string{staking.EventDeposited, staking.EventTicketCreated, staking.EventStakeDelegated}
	events := make([]*staking.Event, 0, n)
	for i := range n {
		events = append(events, &staking.Event{
			Epoch:   uint64(10 + i/10),
			Seq:     uint64(i),
			Name:    names[i%len(names)],
			Subject: fmt.Sprintf("subject-%d", i%4),
			Fields:  map[string]any{"amount": uint64(i * 100)},
		})
	}
	return events
}

func seqs(events []*staking.Event) []uint64 {
	out := make([]uint64, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Seq)
	}
	return out
}

func TestEventDB(t *testing.T) {
	db, err := eventdb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	_, ok, err := db.LastSeq(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	events := newEvents(40)
	require.NoError(t, db.Insert(events[:25]))
	require.NoError(t, db.Insert(events[25:]))
	require.NoError(t, db.Insert(nil))

	last, ok, err := db.LastSeq(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(39), last)

	all, err := db.Filter(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 40)
	assert.Equal(t, events[7].Name, all[7].Name)
	assert.Equal(t, events[7].Subject, all[7].Subject)
	assert.Equal(t, events[7].Epoch, all[7].Epoch)
	// fields round trip through json
	assert.Equal(t, float64(700), all[7].Fields["amount"])

	tests := []struct {
		name   string
		filter *eventdb.Filter
		want   []uint64
	}{
		{
			"epoch range",
			&eventdb.Filter{Range: &eventdb.Range{From: 12, To: 12}},
			[]uint64{20, 21, 22, 23, 24, 25, 26, 27, 28, 29},
		},
		{
			"open range with limit",
			&eventdb.Filter{Range: &eventdb.Range{From: 13}, Options: &eventdb.Options{Offset: 2, Limit: 3}},
			[]uint64{32, 33, 34},
		},
		{
			"names",
			&eventdb.Filter{
				Names:   []string{staking.EventTicketCreated, staking.EventStakeDelegated},
				Range:   &eventdb.Range{From: 10, To: 10},
				Options: &eventdb.Options{Limit: 4},
			},
			[]uint64{1, 2, 4, 5},
		},
		{
			"subject descending",
			&eventdb.Filter{Subject: "subject-3", Order: eventdb.DESC, Options: &eventdb.Options{Limit: 3}},
			[]uint64{39, 35, 31},
		},
		{
			"no match",
			&eventdb.Filter{Names: []string{staking.EventRecordsMerged}},
			[]uint64{},
		},
	}
	after, err := db.After(ctx, 37, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint64{37, 38, 39}, seqs(after))
	after, err = db.After(ctx, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 4}, seqs(after))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.Filter(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, seqs(got))
		})
	}
}

func TestEventDB_Replay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	db, err := eventdb.New(path)
	require.NoError(t, err)
	assert.Equal(t, path, db.Path())

	events := newEvents(5)
	require.NoError(t, db.Insert(events))
	events[4].Subject = "replayed"
	require.NoError(t, db.Insert(events[3:]))
	require.NoError(t, db.Close())

	db, err = eventdb.New(path)
	require.NoError(t, err)
	defer db.Close()

	got, err := db.Filter(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, "replayed", got[4].Subject)
}

func TestEventDB_Journal(t *testing.T) {
	db, err := eventdb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, db.Insert(newEvents(3)))
	cancel()
	_, err = db.Filter(ctx, nil)
	assert.Error(t, err)
}
