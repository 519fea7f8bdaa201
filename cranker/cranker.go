// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package cranker drives the permissionless maintenance entry points of the
// settlement engine once per epoch: reward recognition, retrieval of swept
// positions, merging and rebalancing.
package cranker

import (
	"context"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/lstlabs/settler/co"
	"github.com/lstlabs/settler/log"
	"github.com/lstlabs/settler/meter"
	"github.com/lstlabs/settler/metrics"
	"github.com/lstlabs/settler/staking"
	"github.com/lstlabs/settler/staking/reverts"
	"github.com/lstlabs/settler/staking/stakes"
)

var (
	logger = log.WithContext("pkg", "cranker")

	metricActions = metrics.LazyLoadCounterVec("cranker_actions_count", []string{"action", "outcome"})
	metricPasses  = metrics.LazyLoadCounter("cranker_passes_count")
)

// Ledger is the part of the engine the cranker drives.
type Ledger interface {
	Records() ([]*stakes.Record, error)
	RecognizeRewards(record solana.PublicKey) (*staking.RewardsResult, error)
	RetrieveDeactivated(record solana.PublicKey) (*staking.RetrieveResult, error)
	MergeRecords(dst, src solana.PublicKey) (*staking.MergeResult, error)
	NextStakeTarget() (*staking.Target, error)
	RebalanceStake(index uint32, identity solana.PublicKey) (*staking.RebalanceResult, error)
	NextUnstakeTarget() (*staking.Target, error)
	RebalanceUnstake(index uint32, identity solana.PublicKey) (*staking.RebalanceResult, error)
	SubscribeEvents(ch chan *staking.Event) event.Subscription
}

// Clock reports the host's position in the epoch schedule.
type Clock interface {
	Clock() staking.Clock
}

type Options struct {
	// Interval between checks for new work.
	Interval time.Duration
	// MaxMoves bounds the rebalance calls of one pass, per direction.
	MaxMoves int
	// SkipMerge disables merging records of the same validator.
	SkipMerge bool
	// OnPass, if set, is called after every pass with its outcome.
	OnPass func(r *Report, err error)
}

// Report summarizes one pass.
type Report struct {
	Epoch      uint64 `json:"epoch"`
	Recognized int    `json:"recognized"`
	Rewards    uint64 `json:"rewards"`
	Swept      int    `json:"swept"`
	Retrieved  uint64 `json:"retrieved"`
	Merged     int    `json:"merged"`
	Staked     uint64 `json:"staked"`
	Unstaked   uint64 `json:"unstaked"`
	Skipped    int    `json:"skipped"`
}

type Cranker struct {
	ledger Ledger
	clock  Clock
	opts   Options
}

func New(ledger Ledger, clock Clock, opts Options) *Cranker {
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	if opts.MaxMoves <= 0 {
		opts.MaxMoves = 64
	}
	return &Cranker{ledger: ledger, clock: clock, opts: opts}
}

// tolerate swallows failures that only mean the call was not needed or not
// possible right now. Anything else aborts the pass.
func (c *Cranker) tolerate(r *Report, action string, subject any, err error) error {
	metricActions().AddWithLabel(1, map[string]string{"action": action, "outcome": staking.Outcome(err)})
	switch {
	case err == nil:
		return nil
	case reverts.IsEligibility(err):
		logger.Debug("not eligible", "action", action, "subject", subject, "err", err)
	case reverts.IsPrecondition(err), errors.Is(err, meter.ErrBudgetExceeded):
		logger.Warn("action refused", "action", action, "subject", subject, "err", err)
	default:
		return errors.Wrapf(err, "%s %v", action, subject)
	}
	r.Skipped++
	return nil
}

// Crank runs one maintenance pass.
func (c *Cranker) Crank() (r *Report, err error) {
	r = &Report{Epoch: c.clock.Clock().Epoch}
	metricPasses().Add(1)
	if c.opts.OnPass != nil {
		defer func() { c.opts.OnPass(r, err) }()
	}

	if err := c.settle(r); err != nil {
		return r, err
	}
	if !c.opts.SkipMerge {
		if err := c.merge(r); err != nil {
			return r, err
		}
	}
	if err := c.rebalance(r); err != nil {
		return r, err
	}
	logger.Info("crank pass done",
		"epoch", r.Epoch,
		"recognized", r.Recognized,
		"swept", r.Swept,
		"merged", r.Merged,
		"staked", r.Staked,
		"unstaked", r.Unstaked,
		"skipped", r.Skipped,
	)
	return r, nil
}

// settle recognizes rewards on every record not yet checked this epoch and
// retrieves the swept ones.
func (c *Cranker) settle(r *Report) error {
	records, err := c.ledger.Records()
	if err != nil {
		return err
	}
	for _, rec := range records {
		swept := rec.Swept
		if !swept && !rec.CheckedIn(r.Epoch) {
			res, err := c.ledger.RecognizeRewards(rec.Address)
			if err := c.tolerate(r, "recognize", rec.Address, err); err != nil {
				return err
			}
			if res != nil {
				r.Recognized++
				r.Rewards += res.Rewards
				if res.To == stakes.Deactivated {
					r.Swept++
					swept = true
				}
			}
		}
		if swept {
			res, err := c.ledger.RetrieveDeactivated(rec.Address)
			if err := c.tolerate(r, "retrieve", rec.Address, err); err != nil {
				return err
			}
			if res != nil {
				r.Retrieved += res.Amount
			}
		}
	}
	return nil
}

type mergeKey struct {
	validator solana.PublicKey
	lifecycle stakes.Lifecycle
}

// merge folds records sharing a validator and lifecycle into the largest one.
func (c *Cranker) merge(r *Report) error {
	records, err := c.ledger.Records()
	if err != nil {
		return err
	}
	groups := make(map[mergeKey][]*stakes.Record)
	var keys []mergeKey
	for _, rec := range records {
		if rec.Swept || !rec.CheckedIn(r.Epoch) {
			continue
		}
		if rec.Lifecycle != stakes.Active && rec.Lifecycle != stakes.CoolingDown {
			continue
		}
		k := mergeKey{rec.Validator, rec.Lifecycle}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], rec)
	}
	for _, k := range keys {
		group := groups[k]
		if len(group) < 2 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool { return group[i].Principal > group[j].Principal })
		dst := group[0].Address
		for _, src := range group[1:] {
			res, err := c.ledger.MergeRecords(dst, src.Address)
			if err := c.tolerate(r, "merge", src.Address, err); err != nil {
				return err
			}
			if res != nil {
				r.Merged++
			}
		}
	}
	return nil
}

// rebalance moves the epoch delta until it is settled or no call can make
// progress.
func (c *Cranker) rebalance(r *Report) error {
	for range c.opts.MaxMoves {
		target, err := c.ledger.NextStakeTarget()
		if err != nil {
			if reverts.IsRevertErr(err) {
				break
			}
			return err
		}
		res, err := c.ledger.RebalanceStake(target.Index, target.Validator)
		if err := c.tolerate(r, "rebalance_stake", target.Validator, err); err != nil {
			return err
		}
		if res == nil {
			break
		}
		r.Staked += res.Moved
		if !res.More {
			break
		}
	}
	for range c.opts.MaxMoves {
		target, err := c.ledger.NextUnstakeTarget()
		if err != nil {
			if reverts.IsRevertErr(err) {
				break
			}
			return err
		}
		res, err := c.ledger.RebalanceUnstake(target.Index, target.Validator)
		if err := c.tolerate(r, "rebalance_unstake", target.Validator, err); err != nil {
			return err
		}
		if res == nil {
			break
		}
		r.Unstaked += res.Moved
		if !res.More {
			break
		}
	}
	return nil
}

// wakes reports whether an event leaves work for the cranker.
func wakes(ev *staking.Event) bool {
	switch ev.Name {
	case staking.EventDeposited, staking.EventTicketCreated, staking.EventEpochRolled:
		return true
	}
	return false
}

// Run cranks on every new epoch and after ledger changes that leave a delta,
// until ctx is done. A pass that fails with a fault stops the loop.
func (c *Cranker) Run(ctx context.Context) error {
	var goes co.Goes
	defer goes.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wake   co.Signal
		waiter = wake.NewWaiter()
		fail   = make(chan error, 1)
	)

	// events are drained apart from the passes, whose own steps publish into
	// the same feed
	ch := make(chan *staking.Event, 256)
	sub := c.ledger.SubscribeEvents(ch)
	goes.Go(func() {
		defer sub.Unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-sub.Err():
				if err != nil {
					fail <- err
				}
				return
			case ev := <-ch:
				if wakes(ev) {
					wake.Signal()
				}
			}
		}
	})

	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	var (
		lastEpoch uint64
		retry     = true
	)
	logger.Info("cranker started", "interval", c.opts.Interval)
	for {
		select {
		case <-ctx.Done():
			logger.Info("cranker stopped")
			return nil
		case err := <-fail:
			return err
		case <-waiter.C():
		case <-ticker.C:
			if !retry && c.clock.Clock().Epoch == lastEpoch {
				continue
			}
		}
		lastEpoch = c.clock.Clock().Epoch
		retry = false
		if _, err := c.Crank(); err != nil {
			if staking.IsAccountingFault(err) {
				logger.Error("crank pass hit an accounting fault", "err", err)
				return err
			}
			logger.Warn("crank pass failed", "err", err)
			retry = true
		}
	}
}
