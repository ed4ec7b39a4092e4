package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"canvasboard/internal/domain"
	"canvasboard/internal/interaction"
	"canvasboard/internal/service"
)

const watchInterval = 2 * time.Second

// boardWatcher polls the backend for changes to the open board made by
// other clients, such as an agent using the MCP server, and reloads the
// node set when the local side is idle.
type boardWatcher struct {
	ctx context.Context
	app *App

	mu      sync.Mutex
	boardID string
	last    string // count + max updatedAt
	stopCh  chan struct{}
	once    sync.Once
}

func newBoardWatcher(ctx context.Context, app *App) *boardWatcher {
	return &boardWatcher{ctx: ctx, app: app, stopCh: make(chan struct{})}
}

// SetBoard switches the watched board. An empty id pauses watching.
func (w *boardWatcher) SetBoard(boardID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.boardID = boardID
	w.last = ""
}

func (w *boardWatcher) Start() {
	go w.pollLoop()
}

func (w *boardWatcher) Stop() {
	w.once.Do(func() { close(w.stopCh) })
}

func (w *boardWatcher) pollLoop() {
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check()
		case <-w.stopCh:
			return
		case <-w.ctx.Done():
			return
		}
	}
}

func (w *boardWatcher) check() {
	w.mu.Lock()
	boardID := w.boardID
	w.mu.Unlock()
	if boardID == "" {
		return
	}

	nodes, err := w.app.api.ListNodes(w.ctx, boardID)
	if err != nil {
		return
	}
	fp := fingerprint(nodes)

	w.mu.Lock()
	if w.boardID != boardID {
		w.mu.Unlock()
		return
	}
	changed := w.last != "" && w.last != fp
	w.last = fp
	w.mu.Unlock()

	if !changed {
		return
	}
	// Never reload under an active gesture or unsaved edits; the next
	// poll sees the same difference and retries.
	if w.app.store.Busy() || w.app.machine.State() != interaction.Idle {
		w.mu.Lock()
		w.last = ""
		w.mu.Unlock()
		return
	}
	if err := w.app.store.Fetch(w.ctx, boardID); err != nil {
		log.Printf("[STORE] reload of board %s failed: %v", boardID, err)
		return
	}
	w.app.emitter.Emit(w.ctx, service.EventNodesChanged, boardID)
}

func fingerprint(nodes []domain.Node) string {
	var latest time.Time
	for _, n := range nodes {
		if n.UpdatedAt.After(latest) {
			latest = n.UpdatedAt
		}
	}
	return fmt.Sprintf("%d:%d", len(nodes), latest.UnixNano())
}
