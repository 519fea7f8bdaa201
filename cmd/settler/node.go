// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/lstlabs/settler/api"
	"github.com/lstlabs/settler/cranker"
	"github.com/lstlabs/settler/eventdb"
	"github.com/lstlabs/settler/health"
	"github.com/lstlabs/settler/kv"
	"github.com/lstlabs/settler/simnet"
	"github.com/lstlabs/settler/staking"
)

const snapshotInterval = time.Minute

// node is the engine wired to its host and storage. dataDir is empty for an
// in-memory node.
type node struct {
	cfg     *config
	engine  *staking.Engine
	net     *simnet.Network
	events  *eventdb.EventDB
	dataDir string
}

func newEngine(db kv.Store, n *simnet.Network, events *eventdb.EventDB, cfg *config) (*staking.Engine, error) {
	opts := staking.Options{Budget: cfg.ComputeBudget}
	if events != nil {
		opts.Journal = events
	}
	return staking.New(db, n, opts)
}

// bootstrap initializes an empty ledger from cfg. It reports false and
// leaves the ledger alone if it was initialized before.
func bootstrap(engine *staking.Engine, cfg *config) (bool, error) {
	p, err := engine.Params()
	if err != nil {
		return false, err
	}
	if !p.Program.IsZero() {
		return false, nil
	}
	if err := engine.Init(cfg.Params); err != nil {
		return false, errors.Wrap(err, "init ledger")
	}
	for _, v := range cfg.Validators {
		if _, err := engine.AddValidator(v.Identity, v.Score); err != nil {
			return false, errors.Wrapf(err, "add validator %v", v.Identity)
		}
	}
	return true, nil
}

func handleExitSignal() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// tick drives the simulated clock, speed seconds of cluster time per
// wall-clock second, and credits inflation rewards at each epoch start.
func (nd *node) tick(ctx context.Context, speed uint64) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	epoch := nd.net.Clock().Epoch
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			nd.net.Advance(time.Duration(speed) * time.Second)
			now := nd.net.Clock().Epoch
			for ; epoch < now; epoch++ {
				nd.net.Inflate(nd.cfg.Simnet.InflationBP)
			}
		}
	}
}

func (nd *node) saveLoop(ctx context.Context) error {
	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := saveNetwork(nd.dataDir, nd.net); err != nil {
				logger.Warn("failed to save simnet snapshot", "err", err)
			}
		}
	}
}

// run serves the API and drives the cranker and the clock until an exit
// signal arrives or the cranker hits an accounting fault.
func (nd *node) run(ctx *cli.Context, logLevel *slog.LevelVar, banner func(apiURL string)) error {
	exitCtx, cancel := handleExitSignal()
	defer cancel()

	h := health.New(nd.cfg.Crank.Interval)

	var crk *cranker.Cranker
	if !ctx.Bool(noCrankFlag.Name) {
		crk = cranker.New(nd.engine, nd.net, cranker.Options{
			Interval:  nd.cfg.Crank.Interval,
			MaxMoves:  nd.cfg.Crank.MaxMoves,
			SkipMerge: nd.cfg.Crank.SkipMerge,
			OnPass: func(r *cranker.Report, err error) {
				var epoch uint64
				if r != nil {
					epoch = r.Epoch
				}
				h.Pass(epoch, err)
			},
		})
	}

	apiLogs := &atomic.Bool{}
	apiLogs.Store(ctx.Bool(enableAPILogsFlag.Name))

	handler, closeAPI := api.New(nd.engine, nd.events, crk, api.Options{
		AllowedOrigins:       ctx.String(apiCorsFlag.Name),
		BacktraceLimit:       ctx.Uint64(apiBacktraceLimitFlag.Name),
		EventsLimit:          ctx.Uint64(apiEventsLimitFlag.Name),
		PprofOn:              ctx.Bool(pprofFlag.Name),
		EnableReqLogger:      apiLogs,
		SlowQueriesThreshold: time.Duration(ctx.Uint64(apiSlowQueriesThresholdFlag.Name)) * time.Millisecond,
		Log5xxErrors:         ctx.Bool(apiLog5xxErrorsFlag.Name),
		EnableMetrics:        ctx.Bool(enableMetricsFlag.Name),
	})
	defer func() { logger.Info("closing subscriptions..."); closeAPI() }()

	apiURL, stopAPI := startAPIServer(ctx, handler)
	defer func() { logger.Info("stopping API server..."); stopAPI() }()

	if ctx.Bool(enableAdminFlag.Name) {
		url, stop, err := api.StartAdminServer(ctx.String(adminAddrFlag.Name), logLevel, apiLogs, h)
		if err != nil {
			return errors.Wrap(err, "start admin server")
		}
		defer func() { logger.Info("stopping admin server..."); stop() }()
		logger.Info("admin server started", "url", url)
	}
	if ctx.Bool(enableMetricsFlag.Name) {
		url, stop, err := api.StartMetricsServer(ctx.String(metricsAddrFlag.Name))
		if err != nil {
			return errors.Wrap(err, "start metrics server")
		}
		defer func() { logger.Info("stopping metrics server..."); stop() }()
		logger.Info("metrics server started", "url", url)
	}

	banner(apiURL)

	g, gctx := errgroup.WithContext(exitCtx)
	if crk != nil {
		g.Go(func() error { return crk.Run(gctx) })
	}
	speed := ctx.Uint64(speedFlag.Name)
	if speed > 0 {
		g.Go(func() error { return nd.tick(gctx, speed) })
	}
	if nd.dataDir != "" {
		g.Go(func() error { return nd.saveLoop(gctx) })
	}

	err := g.Wait()
	if err != nil {
		logger.Error("cranker stopped", "err", err)
	} else {
		logger.Info("exit signal received, shutting down")
	}
	return err
}

// close flushes the simulated host next to a persisted ledger.
func (nd *node) close() {
	nd.engine.Close()
	if nd.dataDir == "" {
		return
	}
	if err := saveNetwork(nd.dataDir, nd.net); err != nil {
		logger.Error("failed to save simnet snapshot", "err", err)
	}
}

func printStartupMessage(p *staking.Params, epochLength time.Duration, n *simnet.Network, apiURL string, dataDir string) {
	storage := "memory"
	if dataDir != "" {
		storage = dataDir
	}
	clock := n.Clock()
	fmt.Printf(`Starting %v
    Program     [ %v ]
    Receipt     [ %v ]
    Epoch       [ %v, %v into %v ]
    Data        [ %v ]
    API portal  [ %v ]
`,
		fullVersion(),
		p.Program,
		p.ReceiptMint,
		clock.Epoch, clock.Elapsed, epochLength,
		storage,
		apiURL)
}
