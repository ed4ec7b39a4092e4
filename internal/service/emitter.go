package service

import (
	"context"
	"sync"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples services from wailsRuntime
// ─────────────────────────────────────────────────────────────

// Event names emitted to the frontend.
const (
	EventNodesChanged  = "board:nodes-changed"
	EventBoardsChanged = "boards:changed"
	EventState         = "board:state"
)

// EventEmitter emits events to the frontend. The desktop App implements
// it with wailsRuntime.EventsEmit; the REST server passes nil.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

func emit(ctx context.Context, e EventEmitter, event string, data any) {
	if e != nil {
		e.Emit(ctx, event, data)
	}
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
	m.mu.Unlock()
}

// Count returns how many times event was emitted.
func (m *MockEmitter) Count(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Events {
		if e.Event == event {
			n++
		}
	}
	return n
}
