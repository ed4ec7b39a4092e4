package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"canvasboard/internal/domain"
)

// JobOrphanSweep names the orphan-node cleanup job.
const JobOrphanSweep = "orphan-sweep"

// ─────────────────────────────────────────────────────────────
// Maintenance: scheduled repository cleanup
// ─────────────────────────────────────────────────────────────

// Maintenance runs repository cleanup on a cron schedule. At most one
// sweep runs at a time, whether scheduled or called directly.
type Maintenance struct {
	nodes domain.NodeRepository

	mu        sync.Mutex
	cronSched *cron.Cron
	sweeping  chan struct{} // closed when the running sweep ends; nil when idle
}

func NewMaintenance(nodes domain.NodeRepository) *Maintenance {
	return &Maintenance{nodes: nodes}
}

// Start schedules the orphan sweep on the cron expression schedule. An
// empty schedule disables it. Start replaces any earlier schedule.
func (m *Maintenance) Start(ctx context.Context, schedule string) error {
	m.Stop()
	if schedule == "" {
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, err := m.SweepOrphans(ctx); err != nil {
			log.Printf("[CRON] orphan sweep failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("maintenance: invalid schedule %q: %w", schedule, err)
	}
	c.Start()

	m.mu.Lock()
	m.cronSched = c
	m.mu.Unlock()
	log.Printf("[CRON] orphan sweep scheduled %q", schedule)
	return nil
}

// SweepOrphans deletes nodes whose board no longer exists. A run that
// finds the sweep already in progress returns 0 without touching storage.
func (m *Maintenance) SweepOrphans(ctx context.Context) (int64, error) {
	m.mu.Lock()
	if m.sweeping != nil {
		m.mu.Unlock()
		log.Printf("[CRON] %s already running, skipping", JobOrphanSweep)
		return 0, nil
	}
	done := make(chan struct{})
	m.sweeping = done
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.sweeping = nil
		m.mu.Unlock()
		close(done)
	}()

	n, err := m.nodes.DeleteOrphanNodes(ctx)
	if err != nil {
		return 0, fmt.Errorf("sweep orphans: %w", err)
	}
	if n > 0 {
		log.Printf("[CRON] removed %d orphan node(s)", n)
	}
	return n, nil
}

// Running reports whether a sweep is in progress.
func (m *Maintenance) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweeping != nil
}

// Stop cancels the schedule and waits for a scheduled sweep in progress.
func (m *Maintenance) Stop() {
	m.mu.Lock()
	c := m.cronSched
	m.cronSched = nil
	m.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// Wait blocks until no sweep is running or ctx ends.
func (m *Maintenance) Wait(ctx context.Context) {
	m.mu.Lock()
	done := m.sweeping
	m.mu.Unlock()
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
}
