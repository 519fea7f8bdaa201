// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"fmt"

	"github.com/ethereum/go-ethereum/event"
)

// Event names.
const (
	EventRewardsRecognized     = "RewardsRecognized"
	EventSlashingDetected      = "SlashingDetected"
	EventStakeDelegated        = "StakeDelegated"
	EventStakeDeactivated      = "StakeDeactivated"
	EventTicketCreated         = "TicketCreated"
	EventTicketClaimed         = "TicketClaimed"
	EventLiquidUnstaked        = "LiquidUnstaked"
	EventLiquidityAdded        = "LiquidityAdded"
	EventLiquidityRemoved      = "LiquidityRemoved"
	EventDeposited             = "Deposited"
	EventStakeAccountDeposited = "StakeAccountDeposited"
	EventStakeAccountWithdrawn = "StakeAccountWithdrawn"
	EventRecordsMerged         = "RecordsMerged"
	EventDeactivatedRetrieved  = "DeactivatedRetrieved"
	EventEpochRolled           = "EpochRolled"
	EventValidatorAdded        = "ValidatorAdded"
	EventValidatorRemoved      = "ValidatorRemoved"
	EventParamsUpdated         = "ParamsUpdated"
)

// Event is a record of one committed ledger change.
type Event struct {
	Epoch   uint64         `json:"epoch"`
	Seq     uint64         `json:"seq"`
	Name    string         `json:"name"`
	Subject string         `json:"subject"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Journal persists committed events.
type Journal interface {
	Insert(events []*Event) error
}

// emit queues an event for commit. Fields are key/value pairs.
func (s *step) emit(name string, subject fmt.Stringer, kv ...any) error {
	seq, err := s.eventSeq.Get()
	if err != nil {
		return err
	}
	if err := s.eventSeq.Set(seq + 1); err != nil {
		return err
	}
	ev := &Event{
		Epoch:   s.clock.Epoch,
		Seq:     seq,
		Name:    name,
		Subject: subject.String(),
	}
	if len(kv) > 0 {
		ev.Fields = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			key := fmt.Sprint(kv[i])
			switch v := kv[i+1].(type) {
			case fmt.Stringer:
				ev.Fields[key] = v.String()
			default:
				ev.Fields[key] = v
			}
		}
	}
	s.events = append(s.events, ev)
	return nil
}

// SubscribeEvents delivers every committed event to ch.
func (e *Engine) SubscribeEvents(ch chan *Event) event.Subscription {
	return e.scope.Track(e.feed.Subscribe(ch))
}

// Unjournaled returns how many committed events the journal failed to store.
func (e *Engine) Unjournaled() uint64 {
	return e.unjournaled.Load()
}

// publish journals and delivers the events of a committed step. A journal
// failure cannot undo the commit, so subscribers still receive the events.
func (e *Engine) publish(events []*Event) {
	if len(events) == 0 {
		return
	}
	if e.journal != nil {
		if err := e.journal.Insert(events); err != nil {
			e.unjournaled.Add(uint64(len(events)))
			metricJournalFails().Add(int64(len(events)))
			logger.Error("failed to journal events", "count", len(events), "first", events[0].Seq, "err", err)
		}
	}
	for _, ev := range events {
		e.feed.Send(ev)
	}
}
