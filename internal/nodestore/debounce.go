package nodestore

import (
	"context"
	"sync"
	"time"

	"canvasboard/internal/domain"
)

// FieldGroup partitions a node's fields into independently debounced sets.
type FieldGroup string

const (
	GroupGeometry FieldGroup = "geometry"
	GroupContent  FieldGroup = "content"
	GroupStyle    FieldGroup = "style"
	GroupMeta     FieldGroup = "meta"
)

// Key identifies one debounced write stream.
type Key struct {
	NodeID string
	Group  FieldGroup
}

type pendingWrite struct {
	dueAt   time.Time
	payload domain.NodePatch
}

// Debouncer is a schedule of pending writes, one entry per key. Scheduling
// a key that is already pending merges the payload and pushes dueAt out;
// a single sweep fires every entry whose deadline has passed.
type Debouncer struct {
	mu      sync.Mutex
	entries map[Key]*pendingWrite
	now     func() time.Time
	fire    func(Key, domain.NodePatch)
}

// NewDebouncer creates a Debouncer that hands due writes to fire.
// now defaults to time.Now.
func NewDebouncer(now func() time.Time, fire func(Key, domain.NodePatch)) *Debouncer {
	if now == nil {
		now = time.Now
	}
	return &Debouncer{entries: make(map[Key]*pendingWrite), now: now, fire: fire}
}

// Schedule queues p under k, due delay from now.
func (d *Debouncer) Schedule(k Key, p domain.NodePatch, delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	due := d.now().Add(delay)
	if e, ok := d.entries[k]; ok {
		e.payload = e.payload.Merge(p)
		e.dueAt = due
		return
	}
	d.entries[k] = &pendingWrite{dueAt: due, payload: p}
}

// Take removes and returns the pending payload for k, if any.
func (d *Debouncer) Take(k Key) (domain.NodePatch, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[k]
	if !ok {
		return domain.NodePatch{}, false
	}
	delete(d.entries, k)
	return e.payload, true
}

// Sweep fires every entry due at or before now and returns how many fired.
func (d *Debouncer) Sweep(now time.Time) int {
	return d.fireWhere(func(e *pendingWrite) bool { return !e.dueAt.After(now) })
}

// FlushAll fires every pending entry regardless of deadline.
func (d *Debouncer) FlushAll() int {
	return d.fireWhere(func(*pendingWrite) bool { return true })
}

// Drop discards every pending entry for nodeID without firing it.
func (d *Debouncer) Drop(nodeID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k := range d.entries {
		if k.NodeID == nodeID {
			delete(d.entries, k)
		}
	}
}

// Pending returns the number of scheduled keys.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// Run sweeps on every tick until ctx is done.
func (d *Debouncer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.Sweep(d.now())
		case <-ctx.Done():
			return
		}
	}
}

func (d *Debouncer) fireWhere(due func(*pendingWrite) bool) int {
	type job struct {
		key   Key
		patch domain.NodePatch
	}
	d.mu.Lock()
	var jobs []job
	for k, e := range d.entries {
		if due(e) {
			jobs = append(jobs, job{key: k, patch: e.payload})
			delete(d.entries, k)
		}
	}
	d.mu.Unlock()

	for _, j := range jobs {
		d.fire(j.key, j.patch)
	}
	return len(jobs)
}
