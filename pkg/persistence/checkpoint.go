package persistence

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Syncer is anything that can push its state to durable storage.
type Syncer interface {
	Sync() error
}

// DefaultCheckpointInterval is used when a non-positive interval is configured.
const DefaultCheckpointInterval = 30 * time.Second

// Checkpointer periodically syncs a target in the background, e.g. a
// memory-mapped embedding table that workers mutate during training.
//
// Durability: at most one interval of updates is lost on a crash. Close performs
// a final sync.
type Checkpointer struct {
	target   Syncer
	interval time.Duration
	ticker   *time.Ticker
	stopCh   chan struct{}
	done     chan struct{}

	mu          sync.Mutex
	stopped     bool
	checkpoints int
}

// NewCheckpointer starts the background sync routine.
func NewCheckpointer(target Syncer, interval time.Duration) *Checkpointer {
	if interval <= 0 {
		interval = DefaultCheckpointInterval
	}
	c := &Checkpointer{
		target:   target,
		interval: interval,
		ticker:   time.NewTicker(interval),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	go c.syncRoutine()

	slog.Info("[Checkpoint] Started", "interval", interval)
	return c
}

// Sync runs one checkpoint immediately.
func (c *Checkpointer) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncUnlocked()
}

func (c *Checkpointer) syncUnlocked() error {
	start := time.Now()
	if err := c.target.Sync(); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	c.checkpoints++
	slog.Debug("[Checkpoint] Synced", "duration", time.Since(start), "count", c.checkpoints)
	return nil
}

// Checkpoints returns how many syncs have completed.
func (c *Checkpointer) Checkpoints() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkpoints
}

// Close stops the background routine and performs a final sync.
func (c *Checkpointer) Close() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return fmt.Errorf("checkpointer already closed")
	}
	c.stopped = true
	c.mu.Unlock()

	close(c.stopCh)
	c.ticker.Stop()
	<-c.done

	return c.Sync()
}

func (c *Checkpointer) syncRoutine() {
	defer close(c.done)
	for {
		select {
		case <-c.ticker.C:
			if err := c.Sync(); err != nil {
				slog.Error("[Checkpoint] Periodic sync failed", "error", err)
			}
		case <-c.stopCh:
			return
		}
	}
}
