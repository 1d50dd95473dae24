// Package trainer composes graphs, samplers, embedding stores and gradient
// kernels into complete training runs, one per algorithm.
//
// Every algorithm follows the same contract: load the graph(s), derive the
// samplers, size one embedding store to the vertex count, run the lock-free
// draw/score/update loop on a fixed worker pool, then persist the store.
package trainer

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sanonone/kektorgraph/pkg/config"
	"github.com/sanonone/kektorgraph/pkg/core/embedding"
	"github.com/sanonone/kektorgraph/pkg/core/graph"
	"github.com/sanonone/kektorgraph/pkg/persistence"
)

// Result summarizes a finished run.
type Result struct {
	RunID     uuid.UUID
	Algorithm string
	Vertices  int
	Updates   uint64
	Output    string
	Snapshot  string
	Duration  time.Duration
}

type algorithmFunc func(s *session) error

var algorithms = map[string]algorithmFunc{
	config.DeepWalk: trainDeepWalk,
	config.MF:       trainMF,
	config.BPR:      trainBPR,
	config.HopRec:   trainHopRec,
	config.TransRec: trainTransRec,
	config.SkewOpt:  trainSkewOpt,
	config.KGCF:     trainKGCF,

	config.HPE:        trainHPE,
	config.CSE:        trainCSE,
	config.I2I:        trainI2I,
	config.MISO:       trainMISO,
	config.TransRecEx: trainTransRecEx,
}

// Run validates cfg and executes the configured algorithm end to end.
func Run(cfg config.Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	train, ok := algorithms[cfg.Algorithm]
	if !ok {
		return nil, fmt.Errorf("unknown algorithm %q", cfg.Algorithm)
	}

	runID := uuid.New()
	s := &session{
		cfg:    cfg,
		logger: slog.Default().With("run_id", runID.String()),
		result: &Result{RunID: runID, Algorithm: cfg.Algorithm, Output: cfg.Save},
	}
	start := time.Now()
	if err := train(s); err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Algorithm, err)
	}
	s.result.Duration = time.Since(start)
	return s.result, nil
}

// session carries the per-run state shared by the algorithm implementations.
type session struct {
	cfg          config.Config
	logger       *slog.Logger
	result       *Result
	checkpointer *persistence.Checkpointer
}

func (s *session) graphOptions(name string, undirected bool) graph.Options {
	return graph.Options{Undirected: undirected, Capacity: s.cfg.Capacity, Name: name}
}

func (s *session) loadGraph(path, name string, undirected bool) (*graph.Graph, error) {
	return graph.Load(path, s.graphOptions(name, undirected))
}

func (s *session) loadGraphWithLabels(path, name string, undirected bool, labels []string) (*graph.Graph, error) {
	return graph.LoadWithLabels(path, s.graphOptions(name, undirected), labels)
}

// schedule builds the worker schedule for a budget of total updates.
func (s *session) schedule(total uint64) *schedule {
	s.result.Updates = total
	return newSchedule(s.cfg.Algorithm, total, s.cfg.InitAlpha, s.cfg.ReportPeriod, s.logger)
}

// openStore creates the trained embedding table: mapped when a mapped path is
// configured (with a background checkpointer), on the heap otherwise. A
// configured warm-start snapshot is loaded on top.
func (s *session) openStore(n int, index func(string) int) (*embedding.Store, error) {
	s.result.Vertices = n

	var store *embedding.Store
	if s.cfg.MappedPath != "" {
		var err error
		store, err = embedding.NewMapped(s.cfg.MappedPath, n, s.cfg.Dimension, s.cfg.Seed)
		if err != nil {
			return nil, err
		}
		s.checkpointer = persistence.NewCheckpointer(store, time.Duration(s.cfg.CheckpointInterval))
	} else {
		store = embedding.New(n, s.cfg.Dimension, s.cfg.Seed)
	}

	if s.cfg.WarmStart != "" {
		if err := s.warmStart(store, index); err != nil {
			s.closeStore(store)
			return nil, err
		}
	}
	return store, nil
}

func (s *session) warmStart(store *embedding.Store, index func(string) int) error {
	f, err := os.Open(s.cfg.WarmStart)
	if err != nil {
		return fmt.Errorf("cannot access warm start snapshot: %w", err)
	}
	defer f.Close()

	loaded, err := store.ReadSnapshot(f, index)
	if err != nil {
		return fmt.Errorf("failed to read warm start snapshot %s: %w", s.cfg.WarmStart, err)
	}
	s.logger.Info("[Trainer] Warm start", "path", s.cfg.WarmStart, "vectors", loaded)
	return nil
}

func (s *session) closeStore(store *embedding.Store) error {
	var firstErr error
	if s.checkpointer != nil {
		firstErr = s.checkpointer.Close()
		s.checkpointer = nil
	}
	if err := store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// save persists store in the configured text mode, writes the binary snapshot
// when one is configured, then releases the store.
func (s *session) save(store *embedding.Store, g *graph.Graph) error {
	return s.saveWith(store, g.Labels(), func() error { return s.saveText(store, g) })
}

// saveWith runs the algorithm's own text output, then the snapshot labelled by
// labels, then releases the store.
func (s *session) saveWith(store *embedding.Store, labels []string, writeText func() error) error {
	err := writeText()
	if err == nil {
		err = s.saveSnapshot(store, labels)
	}
	if cerr := s.closeStore(store); err == nil {
		err = cerr
	}
	return err
}

func (s *session) saveText(store *embedding.Store, g *graph.Graph) error {
	switch s.cfg.SaveMode {
	case "translational":
		return store.SaveTranslational(s.cfg.Save, g)
	case "gcn":
		return store.SaveGraphConvolution(s.cfg.Save, g, g.AllNodes(), false)
	default:
		return store.Save(s.cfg.Save, g.Labels())
	}
}

func (s *session) saveSnapshot(store *embedding.Store, labels []string) error {
	if s.cfg.SnapshotPath == "" {
		return nil
	}
	precision, err := persistence.ParsePrecision(s.cfg.SnapshotPrecision)
	if err != nil {
		return err
	}

	f, err := os.Create(s.cfg.SnapshotPath)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	if err := store.WriteSnapshot(f, labels, precision, s.result.RunID); err != nil {
		f.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	s.result.Snapshot = s.cfg.SnapshotPath
	s.logger.Info("[Trainer] Snapshot written", "path", s.cfg.SnapshotPath, "precision", precision.String())
	return nil
}

// vertexRange returns the indices from, from+1, ..., to-1.
func vertexRange(from, to int) []int {
	out := make([]int, 0, max(to-from, 0))
	for v := from; v < to; v++ {
		out = append(out, v)
	}
	return out
}

// lossBuffers allocates n zeroed loss accumulators of length dim.
func lossBuffers(n, dim int) [][]float64 {
	bufs := make([][]float64, n)
	for i := range bufs {
		bufs[i] = make([]float64, dim)
	}
	return bufs
}
