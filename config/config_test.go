package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txncheck/txncheck/consistency/linearize"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())

	opts, err := cfg.CheckOptions()
	require.NoError(t, err)
	assert.Equal(t, linearize.DefaultOptions(), opts.Prefix)
	assert.Equal(t, linearize.TunedOptions(), opts.SnapshotIsolation)
	assert.Equal(t, linearize.DefaultOptions(), opts.Serializable)
}

func TestDecodeOverDefaults(t *testing.T) {
	data := `
log-level = "debug"

[serializable]
nogood-learning = true
branch-ordering = "high-score-first"
restart-attempts = 4
restart-node-budget = 100000
randomized-ties = true
seed = 42
`
	cfg := NewDefaultConfig()
	_, err := toml.Decode(data, cfg)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	opts, err := cfg.CheckOptions()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, opts.Serializable.NogoodLearning)
	assert.Equal(t, linearize.HighScoreFirst, opts.Serializable.BranchOrdering)
	assert.Equal(t, linearize.TieRandomized, opts.Serializable.TieBreak)
	assert.Equal(t, 4, opts.Serializable.RestartAttempts)
	assert.Equal(t, int64(100000), opts.Serializable.RestartNodeBudget)
	assert.Equal(t, int64(42), opts.Serializable.Seed)

	// Untouched sections keep their defaults.
	assert.Equal(t, linearize.TunedOptions(), opts.SnapshotIsolation)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checker.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log-level = "warn"

[prefix]
memoize-frontier = true
branch-ordering = "low-score-first"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)

	opts, err := cfg.CheckOptions()
	require.NoError(t, err)
	assert.Equal(t, linearize.LowScoreFirst, opts.Prefix.BranchOrdering)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checker.toml")
	require.NoError(t, os.WriteFile(path, []byte("no-such-knob = true\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined item")
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.LogLevel = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = NewDefaultConfig()
	cfg.Serializable.BranchOrdering = "fastest"
	assert.Error(t, cfg.Validate())

	cfg = NewDefaultConfig()
	cfg.Prefix.RestartAttempts = 3
	cfg.Prefix.RestartNodeBudget = 0
	assert.Error(t, cfg.Validate())
}
