// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"

	"github.com/lstlabs/settler/cache"
	"github.com/lstlabs/settler/kv"
	"github.com/lstlabs/settler/log"
	"github.com/lstlabs/settler/meter"
	"github.com/lstlabs/settler/metrics"
	"github.com/lstlabs/settler/settler"
	"github.com/lstlabs/settler/staking/globalstats"
	"github.com/lstlabs/settler/staking/liqpool"
	"github.com/lstlabs/settler/staking/reserve"
	"github.com/lstlabs/settler/staking/reverts"
	"github.com/lstlabs/settler/staking/stakes"
	"github.com/lstlabs/settler/staking/tickets"
	"github.com/lstlabs/settler/staking/validators"
	"github.com/lstlabs/settler/state"
	"github.com/lstlabs/settler/storage"
)

var (
	logger = log.WithContext("pkg", "staking")

	slotParams = settler.BytesToBytes32([]byte("params"))

	metricStepCount     = metrics.LazyLoadCounterVec("staking_steps_count", []string{"op", "outcome"})
	metricStepDuration  = metrics.LazyLoadHistogramVec("staking_step_duration_ms", []string{"op"}, metrics.BucketHTTPReqs)
	metricComputeUnits  = metrics.LazyLoadHistogramVec("staking_compute_units", []string{"op"}, metrics.BucketComputeUnits)
	metricLedgerBalance = metrics.LazyLoadGaugeVec("staking_ledger_lamports", []string{"balance"})
	metricPrice         = metrics.LazyLoadGauge("staking_price_fixed_point")
	metricJournalFails  = metrics.LazyLoadCounter("staking_journal_failures_count")
	metricCacheHitRate  = metrics.LazyLoadGauge("staking_ledger_cache_hit_permille")
)

func SetLogger(l log.Logger) {
	logger = l
}

// Options tunes an Engine.
type Options struct {
	// Budget is the compute units one step may use, meter.DefaultBudget if zero.
	Budget uint64
	// CacheSize is the number of committed ledger cells kept in memory.
	CacheSize int
	Journal   Journal
}

// Engine is the settlement engine. Every entry point runs as one atomic
// step against the ledger: it either commits state, host effects and events
// together, or leaves everything untouched.
type Engine struct {
	mu      sync.Mutex
	db      kv.Store
	state   *state.State
	cache   *cache.LRU
	host    Host
	budget  uint64
	journal Journal
	// events committed to the ledger but lost by the journal
	unjournaled atomic.Uint64

	feed  event.Feed
	scope event.SubscriptionScope
}

// New opens the engine over a ledger store.
func New(db kv.Store, host Host, opts Options) (*Engine, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = 4096
	}
	lru, err := cache.NewLRU(size)
	if err != nil {
		return nil, errors.Wrap(err, "ledger cache")
	}
	budget := opts.Budget
	if budget == 0 {
		budget = meter.DefaultBudget
	}
	return &Engine{
		db:      db,
		state:   state.New(db, lru),
		cache:   lru,
		host:    host,
		budget:  budget,
		journal: opts.Journal,
	}, nil
}

// Close stops event delivery.
func (e *Engine) Close() {
	e.scope.Close()
}

// step carries the services bound to one metered view of the ledger.
type step struct {
	op       string
	clock    Clock
	host     Host
	sctx     *storage.Context
	params   *Params
	accounts Accounts

	validators *validators.Service
	stakes     *stakes.Service
	reserve    *reserve.Service
	tickets    *tickets.Service
	pool       *liqpool.Service
	stats      *globalstats.Service
	config     *storage.Value[*Params]
	eventSeq   *storage.Counter

	effects []Effect
	events  []*Event
}

func (e *Engine) newStep(op string, m *meter.Meter) *step {
	sctx := storage.NewContext(e.state, m)
	return &step{
		op:         op,
		clock:      e.host.Clock(),
		host:       e.host,
		sctx:       sctx,
		validators: validators.New(sctx),
		stakes:     stakes.New(sctx),
		reserve:    reserve.New(sctx),
		tickets:    tickets.New(sctx),
		pool:       liqpool.New(sctx),
		stats:      globalstats.New(sctx),
		config:     storage.NewValue[*Params](sctx, slotParams),
		eventSeq:   storage.NewCounter(sctx, "event-seq"),
	}
}

// load reads the params and rolls the ledger into the host's epoch.
func (s *step) load() error {
	p, err := s.config.Get()
	if err != nil {
		return errors.Wrap(err, "failed to load params")
	}
	if p.Program.IsZero() {
		return ErrNotInitialized
	}
	s.params = p
	s.accounts = p.Accounts()
	return s.rollover()
}

func (s *step) effect(effects ...Effect) {
	s.effects = append(s.effects, effects...)
}

// exec runs fn as one atomic step.
func (e *Engine) exec(op string, fn func(s *step) error) error {
	return e.run(op, true, fn)
}

func (e *Engine) run(op string, initialized bool, fn func(s *step) error) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	m := meter.New(e.budget)
	s := e.newStep(op, m)
	defer func() {
		metricStepCount().AddWithLabel(1, map[string]string{"op": op, "outcome": Outcome(err)})
		metricStepDuration().ObserveWithLabels(time.Since(start).Milliseconds(), map[string]string{"op": op})
		metricComputeUnits().ObserveWithLabels(int64(m.Used()), map[string]string{"op": op})
	}()

	logger.Debug("step", "op", op, "epoch", s.clock.Epoch)

	cp := e.state.NewCheckpoint()
	err = func() error {
		if initialized {
			if err := s.load(); err != nil {
				return err
			}
		}
		if err := fn(s); err != nil {
			return err
		}
		return s.checkInvariants()
	}()
	if err == nil && len(s.effects) > 0 {
		if err = e.host.Execute(s.effects); err != nil {
			err = errors.Wrap(err, "host rejected effects")
		}
	}
	if err != nil {
		e.state.RevertTo(cp)
		switch {
		case IsAccountingFault(err):
			logger.Error("accounting fault", "op", op, "epoch", s.clock.Epoch, "err", err)
		case reverts.IsRevertErr(err):
			logger.Debug("step reverted", "op", op, "err", err)
		default:
			logger.Warn("step failed", "op", op, "err", err, "units", m.Breakdown())
		}
		return err
	}

	// the host already applied the effects: on failure the overlay is kept so
	// the next successful commit persists it
	if err = e.state.Stage().Commit(e.db); err != nil {
		logger.Error("failed to commit ledger", "op", op, "err", err)
		return errors.Wrap(err, "commit ledger")
	}

	logger.Info("step committed", "op", op, "epoch", s.clock.Epoch, "effects", len(s.effects), "events", len(s.events), "units", m.Used())
	e.publish(s.events)
	e.observe()
	return nil
}

// view runs fn against the ledger without metering and discards any writes.
func (e *Engine) view(fn func(s *step) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.newStep("view", nil)
	cp := e.state.NewCheckpoint()
	defer e.state.RevertTo(cp)

	p, err := s.config.Get()
	if err != nil {
		return err
	}
	s.params = p
	s.accounts = p.Accounts()
	if !p.Program.IsZero() {
		// show the ledger as the next step would see it
		if err := s.rollover(); err != nil {
			return err
		}
	}
	return fn(s)
}

// checkInvariants verifies the ledger-wide invariants before commit.
func (s *step) checkInvariants() error {
	if err := s.reserve.Check(); err != nil {
		return errors.Wrap(ErrAccountingFault, err.Error())
	}
	t, err := s.stats.Totals()
	if err != nil {
		return err
	}
	staked, err := s.validators.TotalStake()
	if err != nil {
		return err
	}
	if staked != t.Active {
		return faultf("validator stake %d != total active %d", staked, t.Active)
	}
	return nil
}

// observe refreshes the ledger gauges. Caller holds the lock.
func (e *Engine) observe() {
	s := e.newStep("observe", nil)
	cp := e.state.NewCheckpoint()
	defer e.state.RevertTo(cp)

	l, err := s.snapshot()
	if err != nil {
		logger.Warn("failed to observe ledger", "err", err)
		return
	}
	for name, v := range map[string]uint64{
		"active":             l.Totals.Active,
		"cooling":            l.Totals.Cooling,
		"reserve_available":  l.Reserve.Available,
		"reserve_reserved":   l.Reserve.Reserved,
		"reserve_awaiting":   l.Reserve.Awaiting,
		"reserve_unfunded":   l.Reserve.Unfunded,
		"tickets":            l.Tickets.Circulating,
		"pool_sol":           l.Pool.Sol,
		"pool_receipt_value": l.PoolValue - l.Pool.Sol,
		"slashed_pending":    l.Totals.Slashed,
		"unstake_in_flight":  l.Totals.InFlight,
	} {
		metricLedgerBalance().SetWithLabel(int64(v), map[string]string{"balance": name})
	}
	metricPrice().Set(int64(l.Price))

	if rate, moved := e.cache.Stats().Rate(); moved {
		metricCacheHitRate().Set(rate)
		hit, miss := e.cache.Stats().Counts()
		logger.Debug("ledger cache", "hit", hit, "miss", miss, "rate", rate)
	}
}

// CacheStats reports ledger reads served from memory and from the store.
func (e *Engine) CacheStats() (hit, miss int64) {
	return e.cache.Stats().Counts()
}
