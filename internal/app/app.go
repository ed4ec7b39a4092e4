package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"canvasboard/internal/config"
	"canvasboard/internal/domain"
	"canvasboard/internal/interaction"
	"canvasboard/internal/nodestore"
	"canvasboard/internal/restclient"
	"canvasboard/internal/selection"
	"canvasboard/internal/service"
	"canvasboard/internal/storage"
	"canvasboard/internal/viewport"
)

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx        context.Context
	cancel     context.CancelFunc
	configPath string
	now        func() time.Time

	cfgMu sync.RWMutex
	cfg   *config.Config

	emitter   service.EventEmitter
	api       *restclient.Client
	local     *storage.DB // viewport settings when no state file is configured
	store     *nodestore.Store
	viewport  *viewport.Controller
	selection *selection.Manager
	machine   *interaction.Machine
	watcher   *boardWatcher

	stopSweep context.CancelFunc
	sweepDone chan struct{}

	boardMu sync.Mutex
	board   *domain.Board
}

// New creates an App reading its config from configPath. An empty path
// uses the default location.
func New(configPath string) *App {
	if configPath == "" {
		configPath = config.Path()
	}
	return &App{configPath: configPath, now: time.Now}
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	if err := config.EnsureExists(a.configPath); err != nil {
		wailsRuntime.LogErrorf(ctx, "Failed to write default config: %v", err)
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		wailsRuntime.LogErrorf(ctx, "Failed to load config, using defaults: %v", err)
		cfg = config.Default()
	}

	vpStore, err := a.openViewportStore(cfg)
	if err != nil {
		wailsRuntime.LogErrorf(ctx, "Failed to open viewport state: %v", err)
		vpStore = &viewport.MemoryStore{}
	}

	api := restclient.New(cfg.API.BaseURL, cfg.API.Timeout.D())
	a.start(ctx, cfg, api, vpStore, wailsEmitter{})

	if err := config.Watch(a.ctx, a.configPath, a.applyConfig); err != nil {
		log.Printf("[CONFIG] hot reload disabled: %v", err)
	}
}

func (a *App) openViewportStore(cfg *config.Config) (viewport.StateStore, error) {
	if cfg.Viewport.StateDir != "" {
		return viewport.NewFileStore(cfg.Viewport.StateDir), nil
	}
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, err
	}
	db, err := storage.OpenSQLite(filepath.Join(cfg.Storage.DataDir, "desktop.db"))
	if err != nil {
		return nil, err
	}
	a.local = db
	return storage.NewSettingsStore(db), nil
}

// start builds the board components and wires them to each other.
func (a *App) start(ctx context.Context, cfg *config.Config, api *restclient.Client, vpStore viewport.StateStore, emitter service.EventEmitter) {
	a.ctx, a.cancel = context.WithCancel(ctx)
	a.cfg = cfg
	a.api = api
	a.emitter = emitter

	a.viewport = viewport.New(vpStore)
	if err := a.viewport.Restore(); err != nil {
		log.Printf("[VIEWPORT] restore failed, using defaults: %v", err)
	}
	a.selection = selection.New()
	a.store = nodestore.New(api, a.now)
	a.machine = interaction.New(a.viewport, a.store, a.selection, a.now)

	// Selection follows the node set: deleting the selected node or
	// switching boards leaves nothing selected.
	a.store.OnDelete(a.selection.OnNodeDeleted)
	a.store.OnBoardSwitch(func(string) { a.selection.Clear() })

	a.store.Subscribe(a.emitState)
	a.viewport.OnChange(func(domain.Viewport) { a.emitState() })
	a.selection.OnChange(func(string) { a.emitState() })
	a.machine.OnGestureChange(func(interaction.Kind) { a.emitState() })

	sweepCtx, stopSweep := context.WithCancel(a.ctx)
	a.stopSweep = stopSweep
	a.sweepDone = make(chan struct{})
	go func() {
		defer close(a.sweepDone)
		a.store.Run(sweepCtx, cfg.Persistence.SweepInterval.D())
	}()

	a.watcher = newBoardWatcher(a.ctx, a)
	a.watcher.Start()
}

// Shutdown is called when the app is closing. Pending writes are flushed
// before the backend connection goes away.
func (a *App) Shutdown(ctx context.Context) {
	if a.machine != nil {
		a.machine.Close()
	}
	if a.watcher != nil {
		a.watcher.Stop()
	}
	// The sweep stops first so Flush sees no timer firing behind it.
	if a.stopSweep != nil {
		a.stopSweep()
		<-a.sweepDone
	}
	if a.store != nil {
		flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := a.store.Flush(flushCtx); err != nil {
			log.Printf("[STORE] shutdown flush incomplete: %v", err)
		}
		cancel()
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.local != nil {
		a.local.Close()
	}
}

// applyConfig takes a reloaded config. Persistence delays apply to the
// next edit; the backend address needs a restart.
func (a *App) applyConfig(cfg *config.Config) {
	a.cfgMu.Lock()
	old := a.cfg
	a.cfg = cfg
	a.cfgMu.Unlock()
	if old != nil && old.API.BaseURL != cfg.API.BaseURL {
		log.Printf("[CONFIG] api.base_url changed; restart to use %s", cfg.API.BaseURL)
	}
}

func (a *App) currentConfig() *config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.cfg
}

// ── State ──────────────────────────────────────────────────

// GetState returns the full render state of the open board.
func (a *App) GetState() domain.BoardState {
	nodes := selection.RenderOrder(a.store.Nodes())
	return domain.BoardState{
		Board:      a.currentBoard(),
		Nodes:      nodes,
		Chrome:     a.selection.ChromeMap(nodes),
		Viewport:   a.viewport.State(),
		SelectedID: a.selection.Selected(),
		Gesture:    string(a.machine.State()),
		Loading:    a.store.Loading(),
		Error:      a.store.Err(),
	}
}

func (a *App) emitState() {
	a.emitter.Emit(a.ctx, service.EventState, a.GetState())
}

func (a *App) currentBoard() *domain.Board {
	a.boardMu.Lock()
	defer a.boardMu.Unlock()
	if a.board == nil {
		return nil
	}
	b := *a.board
	return &b
}

func (a *App) setBoard(b *domain.Board) {
	a.boardMu.Lock()
	a.board = b
	a.boardMu.Unlock()
}

// ClearError dismisses the error banner.
func (a *App) ClearError() {
	a.store.ClearError()
}

// ── Wails events ───────────────────────────────────────────

type wailsEmitter struct{}

func (wailsEmitter) Emit(ctx context.Context, event string, data any) {
	wailsRuntime.EventsEmit(ctx, event, data)
}

func requireBoard(b *domain.Board) error {
	if b == nil {
		return fmt.Errorf("no board open")
	}
	return nil
}
