package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sanonone/kektorgraph/pkg/config"
	"github.com/sanonone/kektorgraph/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "bpr.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("dimension: 8\nmargin: 2.5\ncheckpoint_interval: 1m\n"), 0o644))

	configPath = yamlPath
	t.Cleanup(func() { configPath = "" })

	cmd := newTrainCmd(config.BPR)
	require.NoError(t, cmd.ParseFlags([]string{"--dimension", "16", "--train", "ui.txt", "--seed", "7"}))

	cfg, err := resolveConfig(cmd, config.BPR)
	require.NoError(t, err)
	assert.Equal(t, config.BPR, cfg.Algorithm)
	assert.Equal(t, 16, cfg.Dimension, "flag beats file")
	assert.Equal(t, 2.5, cfg.Margin, "file beats default")
	assert.Equal(t, config.Duration(time.Minute), cfg.CheckpointInterval)
	assert.Equal(t, "ui.txt", cfg.Train)
	assert.Equal(t, uint64(7), cfg.Seed)
	assert.Equal(t, "bpr.embed", cfg.Save, "algorithm default")
	assert.False(t, cfg.Undirected)
}

func TestResolveConfigWithoutFile(t *testing.T) {
	configPath = ""
	cmd := newTrainCmd(config.DeepWalk)
	require.NoError(t, cmd.ParseFlags([]string{"--walk-length", "12", "--checkpoint-interval", "5s"}))

	cfg, err := resolveConfig(cmd, config.DeepWalk)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.WalkLength)
	assert.Equal(t, config.Duration(5*time.Second), cfg.CheckpointInterval)
	assert.Equal(t, config.ForAlgorithm(config.DeepWalk).WindowSize, cfg.WindowSize)
}

func TestAlgorithmSpecificFlags(t *testing.T) {
	assert.NotNil(t, newTrainCmd(config.KGCF).Flags().Lookup("train-secondary"))
	assert.Nil(t, newTrainCmd(config.MF).Flags().Lookup("train-secondary"))
	assert.NotNil(t, newTrainCmd(config.DeepWalk).Flags().Lookup("walk-times"))
	assert.Nil(t, newTrainCmd(config.DeepWalk).Flags().Lookup("update-times"))
	assert.NotNil(t, newTrainCmd(config.TransRec).Flags().Lookup("mode"))
	assert.NotNil(t, newTrainCmd(config.MISO).Flags().Lookup("train-secondary"))
	assert.NotNil(t, newTrainCmd(config.TransRecEx).Flags().Lookup("train-secondary"))
	assert.NotNil(t, newTrainCmd(config.CSE).Flags().Lookup("lambda"))
	assert.NotNil(t, newTrainCmd(config.HPE).Flags().Lookup("walk-steps"))
	assert.Nil(t, newTrainCmd(config.I2I).Flags().Lookup("walk-steps"))
}

func TestEveryAlgorithmHasSubcommand(t *testing.T) {
	for _, alg := range config.Algorithms {
		cmd, _, err := rootCmd.Find([]string{alg})
		require.NoError(t, err, alg)
		assert.Equal(t, alg, cmd.Name())
		assert.NotEmpty(t, cmd.Short, alg)
	}
}

func TestWalkFlagsDescribeSlots(t *testing.T) {
	flags := newTrainCmd(config.DeepWalk).Flags()
	assert.Contains(t, flags.Lookup("capacity").Usage, "90%")
	assert.Contains(t, flags.Lookup("walk-length").Usage, "hops")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]string{"debug": "DEBUG", "INFO": "INFO", "warning": "WARN", "error": "ERROR"} {
		level, err := parseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, level.String())
	}
	_, err := parseLevel("loud")
	assert.Error(t, err)
}

func TestExportText(t *testing.T) {
	dir := t.TempDir()
	snap := filepath.Join(dir, "run.snap")

	var buf bytes.Buffer
	sw, err := persistence.NewSnapshotWriter(&buf, persistence.SnapshotHeader{
		RunID: uuid.New(), Count: 2, Dim: 3, Precision: persistence.Float32,
	})
	require.NoError(t, err)
	require.NoError(t, sw.WriteVector("a", []float64{1, 2, 3}))
	require.NoError(t, sw.WriteVector("b", []float64{0.5, -0.25, 0}))
	require.NoError(t, os.WriteFile(snap, buf.Bytes(), 0o644))

	out := filepath.Join(dir, "run.embed")
	n, err := exportText(snap, out, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "a 1 2 3\nb 0.5 -0.25 0\n", string(data))

	_, err = exportText(filepath.Join(dir, "missing.snap"), out, false)
	assert.Error(t, err)
}

func TestExportDetectsTruncatedSnapshot(t *testing.T) {
	dir := t.TempDir()
	snap := filepath.Join(dir, "short.snap")

	var buf bytes.Buffer
	sw, err := persistence.NewSnapshotWriter(&buf, persistence.SnapshotHeader{
		RunID: uuid.New(), Count: 3, Dim: 2, Precision: persistence.Float16,
	})
	require.NoError(t, err)
	require.NoError(t, sw.WriteVector("a", []float64{1, 2}))
	require.NoError(t, os.WriteFile(snap, buf.Bytes(), 0o644))

	_, err = exportText(snap, filepath.Join(dir, "short.embed"), false)
	assert.ErrorContains(t, err, "declares 3 vectors")
}
