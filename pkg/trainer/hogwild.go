package trainer

import (
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/sanonone/kektorgraph/pkg/core/alias"
	"github.com/sanonone/kektorgraph/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// minAlphaRatio floors the decayed learning rate at a fraction of the initial one.
const minAlphaRatio = 1e-4

// workerFunc performs the i-th update of one worker with the given learning rate.
type workerFunc func(rng *rand.Rand, i uint64, alpha float64)

// schedule splits an update budget over a fixed pool of lock-free workers and
// decays the learning rate linearly with the shared progress.
//
// Each worker refreshes its own alpha every period local updates from the shared
// counter, so the rate seen by different workers is only approximately in sync.
type schedule struct {
	algorithm string
	total     uint64
	period    uint64
	initAlpha float64
	minAlpha  float64
	logger    *slog.Logger

	finished atomic.Uint64
	decile   atomic.Uint64
}

func newSchedule(algorithm string, total uint64, initAlpha float64, period int, logger *slog.Logger) *schedule {
	return &schedule{
		algorithm: algorithm,
		total:     total,
		period:    uint64(period),
		initAlpha: initAlpha,
		minAlpha:  initAlpha * minAlphaRatio,
		logger:    logger,
	}
}

// alpha returns the learning rate for the current shared progress.
func (s *schedule) alpha() float64 {
	if s.total == 0 {
		return s.initAlpha
	}
	a := s.initAlpha * (1 - float64(s.finished.Load())/float64(s.total))
	if a < s.minAlpha {
		a = s.minAlpha
	}
	return a
}

// advance records n finished updates and returns the refreshed learning rate.
func (s *schedule) advance(n uint64) float64 {
	a := s.alpha()
	done := s.finished.Add(n)

	metrics.UpdatesTotal.WithLabelValues(s.algorithm).Add(float64(n))
	metrics.LearningRate.WithLabelValues(s.algorithm).Set(a)
	if s.total > 0 {
		ratio := min(float64(done)/float64(s.total), 1)
		metrics.Progress.WithLabelValues(s.algorithm).Set(ratio)

		d := uint64(ratio * 10)
		if prev := s.decile.Load(); d > prev && s.decile.CompareAndSwap(prev, d) {
			s.logger.Info("[Trainer] Progress", "algorithm", s.algorithm, "percent", d*10, "alpha", a)
		}
	}
	return a
}

// share returns the number of updates assigned to worker w.
func (s *schedule) share(w, workers int) uint64 {
	n := s.total / uint64(workers)
	if uint64(w) < s.total%uint64(workers) {
		n++
	}
	return n
}

// run executes the whole budget on workers goroutines and waits for them.
// newWorker is called once per worker, on the worker's goroutine, to set up its
// scratch buffers.
func (s *schedule) run(workers int, seed uint64, newWorker func(w int) workerFunc) error {
	start := time.Now()
	s.logger.Info("[Trainer] Start training",
		"algorithm", s.algorithm,
		"workers", workers,
		"updates", s.total,
		"init_alpha", s.initAlpha,
	)

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			rng := alias.NewRand(seed + uint64(w)*0x9e3779b97f4a7c15)
			step := newWorker(w)
			n := s.share(w, workers)

			alpha := s.alpha()
			var pending uint64
			for i := uint64(0); i < n; i++ {
				step(rng, i, alpha)
				pending++
				if pending == s.period {
					alpha = s.advance(pending)
					pending = 0
				}
			}
			if pending > 0 {
				s.advance(pending)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	elapsed := time.Since(start)
	s.logger.Info("[Trainer] Training finished",
		"algorithm", s.algorithm,
		"updates", s.finished.Load(),
		"duration", elapsed,
		"updates_per_sec", float64(s.finished.Load())/max(elapsed.Seconds(), 1e-9),
	)
	return nil
}
