// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/davecgh/go-spew/spew"
	"github.com/gagliardetto/solana-go"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/lstlabs/settler/eventdb"
	"github.com/lstlabs/settler/log"
	"github.com/lstlabs/settler/lvldb"
	"github.com/lstlabs/settler/metrics"
	"github.com/lstlabs/settler/settler"
	"github.com/lstlabs/settler/simnet"
	"github.com/lstlabs/settler/staking"
	"github.com/lstlabs/settler/staking/stakes"
	"github.com/lstlabs/settler/staking/validators"
)

const devAccounts = 10

var (
	version   string
	gitCommit string
	gitTag    string
	logger    = log.WithContext("pkg", "settler")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	nodeFlags := []cli.Flag{
		configFlag,
		apiAddrFlag,
		apiCorsFlag,
		apiBacktraceLimitFlag,
		apiEventsLimitFlag,
		enableAPILogsFlag,
		apiSlowQueriesThresholdFlag,
		apiLog5xxErrorsFlag,
		pprofFlag,
		verbosityFlag,
		jsonLogsFlag,
		cacheFlag,
		skipEventsFlag,
		noCrankFlag,
		speedFlag,
		enableMetricsFlag,
		metricsAddrFlag,
		enableAdminFlag,
		adminAddrFlag,
	}

	app := cli.App{
		Version:   fullVersion(),
		Name:      "Settler",
		Usage:     "Liquid staking settlement engine",
		Copyright: "2025 The VeChainThor developers",
		Flags:     append([]cli.Flag{dataDirFlag}, nodeFlags...),
		Action:    serveAction,
		Commands: []cli.Command{
			{
				Name:   "solo",
				Usage:  "run against a fresh simulated cluster with funded dev accounts",
				Flags:  append([]cli.Flag{dataDirFlag, persistFlag}, nodeFlags...),
				Action: soloAction,
			},
			{
				Name:   "inspect",
				Usage:  "print the ledger kept in the data dir",
				Flags:  []cli.Flag{dataDirFlag, configFlag, jsonFlag, verbosityFlag},
				Action: inspectAction,
			},
			{
				Name:   "dump-config",
				Usage:  "print the effective configuration as YAML",
				Flags:  []cli.Flag{configFlag},
				Action: dumpConfigAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func mustLoadConfig(ctx *cli.Context) *config {
	cfg, err := loadConfig(ctx.String(configFlag.Name))
	if err != nil {
		fatal(err)
	}
	return cfg
}

func serveAction(ctx *cli.Context) error {
	defer func() { logger.Info("exited") }()

	logLevel := initLogger(ctx)
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}
	cfg := mustLoadConfig(ctx)
	dataDir := makeDataDir(ctx)

	mainDB := openMainDB(ctx, dataDir)
	defer func() { logger.Info("closing ledger database..."); mainDB.Close() }()

	var eventDB *eventdb.EventDB
	if !ctx.Bool(skipEventsFlag.Name) {
		eventDB = openEventDB(dataDir)
		defer func() { logger.Info("closing event database..."); eventDB.Close() }()
	}

	n, _, err := loadNetwork(dataDir, cfg)
	if err != nil {
		fatal(err)
	}
	nd := &node{cfg: cfg, net: n, events: eventDB, dataDir: dataDir}
	if nd.engine, err = newEngine(mainDB, n, eventDB, cfg); err != nil {
		fatal(err)
	}
	defer nd.close()

	if initialized, err := bootstrap(nd.engine, cfg); err != nil {
		fatal(err)
	} else if initialized {
		logger.Info("ledger initialized", "validators", len(cfg.Validators))
	}
	params, err := nd.engine.Params()
	if err != nil {
		fatal(err)
	}

	return nd.run(ctx, logLevel, func(apiURL string) {
		printStartupMessage(params, cfg.Simnet.EpochLength, n, apiURL, dataDir)
	})
}

func soloAction(ctx *cli.Context) error {
	defer func() { logger.Info("exited") }()

	logLevel := initLogger(ctx)
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}
	cfg := mustLoadConfig(ctx)

	var (
		mainDB  *lvldb.LevelDB
		eventDB *eventdb.EventDB
		dataDir string
		n       *simnet.Network
		fresh   = true
		err     error
	)
	if ctx.Bool(persistFlag.Name) {
		dataDir = makeDataDir(ctx)
		mainDB = openMainDB(ctx, dataDir)
		if !ctx.Bool(skipEventsFlag.Name) {
			eventDB = openEventDB(dataDir)
		}
		if n, fresh, err = loadNetwork(dataDir, cfg); err != nil {
			fatal(err)
		}
	} else {
		mainDB = openMemMainDB()
		if !ctx.Bool(skipEventsFlag.Name) {
			eventDB = openMemEventDB()
		}
		n = simnet.New(simnetOptions(cfg))
	}
	defer func() { logger.Info("closing ledger database..."); mainDB.Close() }()
	if eventDB != nil {
		defer func() { logger.Info("closing event database..."); eventDB.Close() }()
	}

	nd := &node{cfg: cfg, net: n, events: eventDB, dataDir: dataDir}
	if nd.engine, err = newEngine(mainDB, n, eventDB, cfg); err != nil {
		fatal(err)
	}
	defer nd.close()

	if _, err := bootstrap(nd.engine, cfg); err != nil {
		fatal(err)
	}
	params, err := nd.engine.Params()
	if err != nil {
		fatal(err)
	}

	var accounts []solana.PublicKey
	if fresh {
		accounts = fundDevAccounts(n)
	}
	return nd.run(ctx, logLevel, func(apiURL string) {
		printStartupMessage(params, cfg.Simnet.EpochLength, n, apiURL, dataDir)
		printDevAccounts(accounts)
	})
}

func fundDevAccounts(n *simnet.Network) []solana.PublicKey {
	accounts := make([]solana.PublicKey, devAccounts)
	for i := range accounts {
		accounts[i] = simnet.Key(fmt.Sprintf("dev-%d", i))
		n.Fund(accounts[i], settler.SOL(10_000))
	}
	return accounts
}

func printDevAccounts(accounts []solana.PublicKey) {
	if len(accounts) == 0 {
		return
	}
	fmt.Println("┌──────────────────────────────────────────────────────────────────────┐")
	fmt.Println("│ DEV ACCOUNTS                                                         │")
	fmt.Println("├────┬─────────────────────────────────────────────────┬───────────────┤")
	for i, a := range accounts {
		fmt.Printf("│ %2d │ %-47v │ %13v │\n", i, a, settler.Lamports(settler.SOL(10_000)))
	}
	fmt.Println("└────┴─────────────────────────────────────────────────┴───────────────┘")
}

type ledgerDump struct {
	Ledger     *staking.Ledger         `json:"ledger"`
	Validators []*validators.Validator `json:"validators"`
	Records    []*stakes.Record        `json:"records"`
}

func inspectAction(ctx *cli.Context) error {
	initLogger(ctx)
	cfg := mustLoadConfig(ctx)
	dataDir := ctx.String(dataDirFlag.Name)

	dir := filepath.Join(dataDir, "ledger.db")
	if _, err := os.Stat(dir); err != nil {
		fatal(fmt.Sprintf("no ledger in [%v]: %v", dataDir, err))
	}
	db, err := lvldb.New(dir, lvldb.Options{})
	if err != nil {
		fatal(fmt.Sprintf("open ledger database [%v]: %v", dir, err))
	}
	defer db.Close()

	n, _, err := loadNetwork(dataDir, cfg)
	if err != nil {
		fatal(err)
	}
	engine, err := staking.New(db, n, staking.Options{})
	if err != nil {
		fatal(err)
	}
	defer engine.Close()

	var d ledgerDump
	if d.Ledger, err = engine.Snapshot(); err != nil {
		return err
	}
	if d.Validators, err = engine.Validators(); err != nil {
		return err
	}
	if d.Records, err = engine.Records(); err != nil {
		return err
	}

	if ctx.Bool(jsonFlag.Name) {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(&d)
	}
	cs := spew.ConfigState{
		Indent:                  "  ",
		DisablePointerAddresses: true,
		DisableCapacities:       true,
		SortKeys:                true,
	}
	cs.Fdump(os.Stdout, &d)
	return nil
}

func dumpConfigAction(ctx *cli.Context) error {
	return writeConfig(os.Stdout, mustLoadConfig(ctx))
}
