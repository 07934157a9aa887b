// Package config loads and validates checker configuration from TOML.
package config

import (
	"github.com/BurntSushi/toml"
	"github.com/pingcap/errors"

	"github.com/txncheck/txncheck/consistency"
	"github.com/txncheck/txncheck/consistency/linearize"
)

// Config tunes logging and the per-level linearization searches.
type Config struct {
	LogLevel string `toml:"log-level"`

	Prefix            Search `toml:"prefix"`
	SnapshotIsolation Search `toml:"snapshot-isolation"`
	Serializable      Search `toml:"serializable"`
}

// Search mirrors the knobs of one linearization search.
type Search struct {
	MemoizeFrontier    bool   `toml:"memoize-frontier"`
	NogoodLearning     bool   `toml:"nogood-learning"`
	DominancePruning   bool   `toml:"dominance-pruning"`
	KillerHistory      bool   `toml:"killer-history"`
	PreferAllowedFirst bool   `toml:"prefer-allowed-first"`
	PrincipalVariation bool   `toml:"principal-variation"`
	BranchOrdering     string `toml:"branch-ordering"` // as-provided, high-score-first, low-score-first
	RandomizedTies     bool   `toml:"randomized-ties"`
	RestartAttempts    int    `toml:"restart-attempts"`
	RestartNodeBudget  int64  `toml:"restart-node-budget"`
	AdaptivePortfolio  bool   `toml:"adaptive-portfolio"`
	Seed               int64  `toml:"seed"`
}

func searchFromOptions(o linearize.Options) Search {
	var ordering string
	switch o.BranchOrdering {
	case linearize.HighScoreFirst:
		ordering = "high-score-first"
	case linearize.LowScoreFirst:
		ordering = "low-score-first"
	default:
		ordering = "as-provided"
	}
	return Search{
		MemoizeFrontier:    o.MemoizeFrontier,
		NogoodLearning:     o.NogoodLearning,
		DominancePruning:   o.DominancePruning,
		KillerHistory:      o.KillerHistory,
		PreferAllowedFirst: o.PreferAllowedFirst,
		PrincipalVariation: o.PrincipalVariation,
		BranchOrdering:     ordering,
		RandomizedTies:     o.TieBreak == linearize.TieRandomized,
		RestartAttempts:    o.RestartAttempts,
		RestartNodeBudget:  o.RestartNodeBudget,
		AdaptivePortfolio:  o.AdaptivePortfolio,
		Seed:               o.Seed,
	}
}

// Options converts the section into search options.
func (s Search) Options() (linearize.Options, error) {
	o := linearize.Options{
		MemoizeFrontier:    s.MemoizeFrontier,
		NogoodLearning:     s.NogoodLearning,
		DominancePruning:   s.DominancePruning,
		KillerHistory:      s.KillerHistory,
		PreferAllowedFirst: s.PreferAllowedFirst,
		PrincipalVariation: s.PrincipalVariation,
		RestartAttempts:    s.RestartAttempts,
		RestartNodeBudget:  s.RestartNodeBudget,
		AdaptivePortfolio:  s.AdaptivePortfolio,
		Seed:               s.Seed,
	}
	switch s.BranchOrdering {
	case "", "as-provided":
		o.BranchOrdering = linearize.AsProvided
	case "high-score-first":
		o.BranchOrdering = linearize.HighScoreFirst
	case "low-score-first":
		o.BranchOrdering = linearize.LowScoreFirst
	default:
		return o, errors.Errorf("unknown branch-ordering %q", s.BranchOrdering)
	}
	if s.RandomizedTies {
		o.TieBreak = linearize.TieRandomized
	}
	return o, nil
}

func (s Search) validate(section string) error {
	if s.RestartAttempts < 0 {
		return errors.Errorf("[%s] restart-attempts must not be negative", section)
	}
	if s.RestartNodeBudget < 0 {
		return errors.Errorf("[%s] restart-node-budget must not be negative", section)
	}
	if s.RestartAttempts > 0 && s.RestartNodeBudget == 0 {
		return errors.Errorf("[%s] restart-attempts requires a restart-node-budget", section)
	}
	if _, err := s.Options(); err != nil {
		return errors.Annotatef(err, "[%s]", section)
	}
	return nil
}

// NewDefaultConfig mirrors consistency.DefaultCheckOptions.
func NewDefaultConfig() *Config {
	defaults := consistency.DefaultCheckOptions()
	return &Config{
		LogLevel:          "info",
		Prefix:            searchFromOptions(defaults.Prefix),
		SnapshotIsolation: searchFromOptions(defaults.SnapshotIsolation),
		Serializable:      searchFromOptions(defaults.Serializable),
	}
}

// Load reads a TOML file over the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, errors.AddStack(err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Errorf("config contains undefined item: %s", undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal":
	default:
		return errors.Errorf("unknown log-level %q", c.LogLevel)
	}
	if err := c.Prefix.validate("prefix"); err != nil {
		return err
	}
	if err := c.SnapshotIsolation.validate("snapshot-isolation"); err != nil {
		return err
	}
	return c.Serializable.validate("serializable")
}

// CheckOptions converts the whole config into checker options.
func (c *Config) CheckOptions() (consistency.CheckOptions, error) {
	var (
		opts consistency.CheckOptions
		err  error
	)
	if opts.Prefix, err = c.Prefix.Options(); err != nil {
		return opts, err
	}
	if opts.SnapshotIsolation, err = c.SnapshotIsolation.Options(); err != nil {
		return opts, err
	}
	if opts.Serializable, err = c.Serializable.Options(); err != nil {
		return opts, err
	}
	return opts, nil
}
