// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"io"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/lstlabs/settler/simnet"
	"github.com/lstlabs/settler/staking"
)

type validatorConfig struct {
	Identity solana.PublicKey `yaml:"identity"`
	Score    uint32           `yaml:"score"`
}

type simnetConfig struct {
	StartEpoch  uint64        `yaml:"start-epoch"`
	EpochLength time.Duration `yaml:"epoch-length"`
	// InflationBP is credited to every active position at each epoch start.
	InflationBP uint64 `yaml:"inflation-bp"`
}

type crankConfig struct {
	Interval  time.Duration `yaml:"interval"`
	MaxMoves  int           `yaml:"max-moves"`
	SkipMerge bool          `yaml:"skip-merge"`
}

// config is applied to a fresh ledger only. Once initialized, params and
// validators live in the ledger and change through governance calls.
type config struct {
	Params        *staking.Params   `yaml:"params"`
	Validators    []validatorConfig `yaml:"validators"`
	ComputeBudget uint64            `yaml:"compute-budget"`
	Simnet        simnetConfig      `yaml:"simnet"`
	Crank         crankConfig       `yaml:"crank"`
}

func defaultConfig() *config {
	return &config{
		Params: staking.DefaultParams(simnet.Key("settler-program")),
		Validators: []validatorConfig{
			{simnet.Key("validator-0"), 100},
			{simnet.Key("validator-1"), 100},
			{simnet.Key("validator-2"), 50},
		},
		Simnet: simnetConfig{
			StartEpoch:  500,
			EpochLength: 10 * time.Minute,
			InflationBP: 2,
		},
		Crank: crankConfig{
			Interval: 10 * time.Second,
			MaxMoves: 64,
		},
	}
}

func (c *config) validate() error {
	if c.Params == nil {
		return errors.New("params: missing")
	}
	if err := c.Params.Validate(); err != nil {
		return errors.Wrap(err, "params")
	}
	seen := make(map[solana.PublicKey]bool, len(c.Validators))
	for i, v := range c.Validators {
		if v.Identity.IsZero() {
			return errors.Errorf("validators[%d]: identity not set", i)
		}
		if seen[v.Identity] {
			return errors.Errorf("validators[%d]: duplicate identity %s", i, v.Identity)
		}
		seen[v.Identity] = true
	}
	if c.Simnet.EpochLength <= 0 {
		return errors.New("simnet: epoch-length must be positive")
	}
	if c.Crank.Interval <= 0 {
		return errors.New("crank: interval must be positive")
	}
	return nil
}

// readConfig decodes YAML over the defaults, so a file only needs the
// fields it changes.
func readConfig(r io.Reader) (*config, error) {
	cfg := defaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadConfig(path string) (*config, error) {
	if path == "" {
		return defaultConfig(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open config")
	}
	defer f.Close()
	return readConfig(f)
}

func writeConfig(w io.Writer, cfg *config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
