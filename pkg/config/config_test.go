package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeYAML(t, `
train: graph.tsv
algorithm: bpr
dimension: 16
checkpoint_interval: 5s
seed: 9
`)
	cfg, err := Load(path, ForAlgorithm(BPR))
	require.NoError(t, err)

	assert.Equal(t, "graph.tsv", cfg.Train)
	assert.Equal(t, 16, cfg.Dimension)
	assert.Equal(t, uint64(9), cfg.Seed)
	assert.Equal(t, Duration(5*time.Second), cfg.CheckpointInterval)
	assert.Equal(t, 8.0, cfg.Margin, "untouched keys keep the algorithm default")
	assert.Equal(t, "bpr.embed", cfg.Save)
	require.NoError(t, cfg.Validate())
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeYAML(t, "train: g.tsv\ndimensions: 8\n")
	_, err := Load(path, DefaultConfig())
	assert.Error(t, err)
}

func TestLoadEmptyPathAndEmptyFile(t *testing.T) {
	cfg, err := Load("", DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = Load(writeYAML(t, ""), DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Dimension)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), DefaultConfig())
	assert.Error(t, err)
}

func TestDurationAcceptsNanoseconds(t *testing.T) {
	cfg, err := Load(writeYAML(t, "checkpoint_interval: 1000\n"), DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, Duration(1000), cfg.CheckpointInterval)

	_, err = Load(writeYAML(t, "checkpoint_interval: soon\n"), DefaultConfig())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c := ForAlgorithm(DeepWalk)
		c.Train = "g.tsv"
		return c
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown algorithm", func(c *Config) { c.Algorithm = "node2vec" }},
		{"missing train", func(c *Config) { c.Train = "" }},
		{"zero dimension", func(c *Config) { c.Dimension = 0 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"zero window", func(c *Config) { c.WindowSize = 0 }},
		{"walk without hops", func(c *Config) { c.WalkLength = 1 }},
		{"bad save mode", func(c *Config) { c.SaveMode = "binary" }},
		{"bad precision", func(c *Config) { c.SnapshotPrecision = "int8" }},
		{"kgcf without knowledge graph", func(c *Config) { c.Algorithm = KGCF }},
		{"miso without item-word graph", func(c *Config) { c.Algorithm = MISO }},
		{"transrec-ex without item-meta graph", func(c *Config) { c.Algorithm = TransRecEx }},
		{"hpe without walk steps", func(c *Config) { c.Algorithm = HPE; c.WalkSteps = 0 }},
		{"single-slot capacity", func(c *Config) { c.Capacity = 1 }},
		{"bpr without budget", func(c *Config) { c.Algorithm = BPR; c.UpdateTimes = 0 }},
		{"skew with zero scale", func(c *Config) { c.Algorithm = SkewOpt; c.Scale = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestForAlgorithmDefaults(t *testing.T) {
	assert.True(t, ForAlgorithm(DeepWalk).Undirected)
	assert.False(t, ForAlgorithm(MF).Undirected)
	assert.Equal(t, "translational", ForAlgorithm(TransRec).SaveMode)
	assert.Equal(t, 10, ForAlgorithm(SkewOpt).NumNegative)
	assert.Equal(t, 1.0, ForAlgorithm(HopRec).Margin)
	assert.Equal(t, "bpr", ForAlgorithm(CSE).Mode)
	assert.Equal(t, 2, ForAlgorithm(CSE).WalkSteps)
	assert.Equal(t, 5, ForAlgorithm(HPE).WalkSteps)
	assert.True(t, ForAlgorithm(HPE).Undirected)
	assert.Equal(t, 0.1, ForAlgorithm(MISO).InitAlpha)
	assert.Equal(t, uint64(2_500_000), Config{UpdateTimes: 2.5}.TotalUpdates())
}
