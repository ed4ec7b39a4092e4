package interaction_test

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"canvasboard/internal/domain"
	"canvasboard/internal/interaction"
	"canvasboard/internal/nodestore"
	"canvasboard/internal/selection"
	"canvasboard/internal/viewport"
)

// ─────────────────────────────────────────────────────────────
// Harness
// ─────────────────────────────────────────────────────────────

type recordingClient struct {
	mu      sync.Mutex
	nodes   []domain.Node
	updates []domain.NodePatch
	created []domain.NodeSpec
	deleted []string
}

func (c *recordingClient) ListNodes(ctx context.Context, boardID string) ([]domain.Node, error) {
	return c.nodes, nil
}

func (c *recordingClient) CreateNode(ctx context.Context, spec domain.NodeSpec) (*domain.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created = append(c.created, spec)
	n, err := spec.Build()
	if err != nil {
		return nil, err
	}
	n.ID = fmt.Sprintf("dup-%d", len(c.created))
	n.Position = spec.Position
	return n, nil
}

func (c *recordingClient) UpdateNode(ctx context.Context, id string, patch domain.NodePatch) (*domain.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, patch)
	return nil, nil
}

func (c *recordingClient) DeleteNode(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, id)
	return nil
}

func (c *recordingClient) BulkUpdate(ctx context.Context, updates []domain.NodeUpdate) error {
	return nil
}

func (c *recordingClient) writes() []domain.NodePatch {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.NodePatch(nil), c.updates...)
}

type harness struct {
	m      *interaction.Machine
	store  *nodestore.Store
	sel    *selection.Manager
	vp     *viewport.Controller
	client *recordingClient
}

func newHarness(t *testing.T, nodes ...domain.Node) *harness {
	t.Helper()
	client := &recordingClient{nodes: nodes}
	store := nodestore.New(client, nil)
	if err := store.Fetch(context.Background(), "b1"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	sel := selection.New()
	store.OnDelete(sel.OnNodeDeleted)
	vp := viewport.New(nil)
	now := func() time.Time { return time.UnixMilli(1_000) }
	return &harness{
		m:      interaction.New(vp, store, sel, now),
		store:  store,
		sel:    sel,
		vp:     vp,
		client: client,
	}
}

// scenarioNode is the 300×200 node at (100,100).
func scenarioNode() domain.Node {
	return domain.Node{
		ID:       "n1",
		BoardID:  "b1",
		Type:     domain.NodeTypeSticky,
		Position: domain.Position{X: 100, Y: 100, ZIndex: 10},
		Size:     domain.Size{Width: 300, Height: 200},
		Content:  &domain.StickyContent{Color: "yellow"},
	}
}

func down(x, y float64) interaction.PointerEvent {
	return interaction.PointerEvent{X: x, Y: y, Button: interaction.ButtonPrimary}
}

// ─────────────────────────────────────────────────────────────
// Drag
// ─────────────────────────────────────────────────────────────

func TestDrag_MovesLocallyAndPersistsOnce(t *testing.T) {
	h := newHarness(t, scenarioNode())

	h.m.PointerDown(down(150, 150))
	if h.m.State() != interaction.Dragging {
		t.Fatalf("state = %s, want drag", h.m.State())
	}
	if h.sel.Selected() != "n1" {
		t.Errorf("node not selected on pointer-down")
	}

	h.m.PointerMove(down(160, 140))
	h.m.PointerMove(down(170, 130))
	n, _ := h.store.Get("n1")
	if n.Position.X != 120 || n.Position.Y != 80 {
		t.Errorf("local position = (%v, %v), want (120, 80)", n.Position.X, n.Position.Y)
	}
	h.store.Wait()
	if len(h.client.writes()) != 0 {
		t.Fatal("persisted during the gesture")
	}

	h.m.PointerUp(down(170, 130))
	h.store.Wait()

	writes := h.client.writes()
	if len(writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(writes))
	}
	p := writes[0].Position
	if p == nil || *p.X != 120 || *p.Y != 80 {
		t.Errorf("persisted position = %+v, want {120 80}", p)
	}
	if writes[0].Size != nil {
		t.Error("drag persisted a size")
	}
	if h.m.State() != interaction.Idle {
		t.Errorf("state after up = %s", h.m.State())
	}
}

func TestDrag_ScaledViewportConvertsToCanvasSpace(t *testing.T) {
	h := newHarness(t, scenarioNode())
	h.vp.SetZoom(2)

	// Canvas (150,150) is screen (300,300) at scale 2.
	h.m.PointerDown(down(300, 300))
	h.m.PointerMove(down(340, 300))
	h.m.PointerUp(down(340, 300))
	h.store.Wait()

	n, _ := h.store.Get("n1")
	if n.Position.X != 120 || n.Position.Y != 100 {
		t.Errorf("position = (%v, %v), want (120, 100)", n.Position.X, n.Position.Y)
	}
}

func TestClickWithoutMove_PersistsNothing(t *testing.T) {
	h := newHarness(t, scenarioNode())
	h.m.PointerDown(down(150, 150))
	h.m.PointerUp(down(150, 150))
	h.store.Wait()
	if got := len(h.client.writes()); got != 0 {
		t.Errorf("writes = %d, want 0", got)
	}
}

func TestLockedNode_SelectsButDoesNotDrag(t *testing.T) {
	n := scenarioNode()
	n.Locked = true
	h := newHarness(t, n)

	h.m.PointerDown(down(150, 150))
	if h.sel.Selected() != "n1" {
		t.Error("locked node not selected")
	}
	if h.m.State() != interaction.Idle {
		t.Errorf("state = %s, want idle", h.m.State())
	}
	h.m.PointerMove(down(300, 300))
	got, _ := h.store.Get("n1")
	if got.Position.X != 100 {
		t.Error("locked node moved")
	}
}

func TestSecondaryButton_Ignored(t *testing.T) {
	h := newHarness(t, scenarioNode())
	h.m.PointerDown(interaction.PointerEvent{X: 150, Y: 150, Button: interaction.ButtonSecondary})
	if h.m.State() != interaction.Idle || h.sel.Selected() != "" {
		t.Error("secondary button started a gesture")
	}
}

// ─────────────────────────────────────────────────────────────
// Resize
// ─────────────────────────────────────────────────────────────

func TestResize_SouthEastScenario(t *testing.T) {
	h := newHarness(t, scenarioNode())
	h.sel.Select("n1")

	h.m.PointerDown(down(400, 300))
	if h.m.State() != interaction.Resizing {
		t.Fatalf("state = %s, want resize", h.m.State())
	}
	h.m.PointerMove(down(350, 250))
	h.m.PointerUp(down(350, 250))
	h.store.Wait()

	n, _ := h.store.Get("n1")
	if n.Size.Width != 250 || n.Size.Height != 150 {
		t.Errorf("size = %vx%v, want 250x150", n.Size.Width, n.Size.Height)
	}
	if n.Position.X != 100 || n.Position.Y != 100 {
		t.Errorf("SE resize moved the node to (%v, %v)", n.Position.X, n.Position.Y)
	}
	if got := len(h.client.writes()); got != 1 {
		t.Errorf("writes = %d, want 1", got)
	}
}

func TestResize_HandlesOnlyOnSelectedNode(t *testing.T) {
	h := newHarness(t, scenarioNode())

	// Unselected: the SE corner is a body hit, so this drags.
	h.m.PointerDown(down(399, 299))
	if h.m.State() != interaction.Dragging {
		t.Errorf("state = %s, want drag", h.m.State())
	}
	h.m.Close()
}

func TestResizeRect_Floors(t *testing.T) {
	start := domain.Rect{X: 100, Y: 100, W: 300, H: 200}
	tests := []struct {
		name   string
		handle selection.Handle
		d      domain.Point
		want   domain.Rect
	}{
		{"east grows", selection.HandleE, domain.Point{X: 50}, domain.Rect{X: 100, Y: 100, W: 350, H: 200}},
		{"east clamps", selection.HandleE, domain.Point{X: -500}, domain.Rect{X: 100, Y: 100, W: 200, H: 200}},
		{"south inverted", selection.HandleS, domain.Point{Y: -900}, domain.Rect{X: 100, Y: 100, W: 300, H: 150}},
		{"west shifts", selection.HandleW, domain.Point{X: 40}, domain.Rect{X: 140, Y: 100, W: 260, H: 200}},
		{"west exactly at floor", selection.HandleW, domain.Point{X: 100}, domain.Rect{X: 200, Y: 100, W: 200, H: 200}},
		{"west past floor freezes", selection.HandleW, domain.Point{X: 101}, start},
		{"north past floor freezes", selection.HandleN, domain.Point{Y: 400}, start},
		{"nw grows", selection.HandleNW, domain.Point{X: -10, Y: -20}, domain.Rect{X: 90, Y: 80, W: 310, H: 220}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := interaction.ResizeRect(start, start, tt.handle.Edges(), tt.d)
			if got != tt.want {
				t.Errorf("ResizeRect = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResizeRect_NeverBelowFloor(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	start := domain.Rect{X: 0, Y: 0, W: 300, H: 200}

	for _, h := range selection.Handles {
		last := start
		for i := 0; i < 500; i++ {
			d := domain.Point{X: (rng.Float64() - 0.5) * 2000, Y: (rng.Float64() - 0.5) * 2000}
			last = interaction.ResizeRect(start, last, h.Edges(), d)
			if last.W < domain.MinNodeWidth || last.H < domain.MinNodeHeight {
				t.Fatalf("%s: %+v below floor after delta %+v", h, last, d)
			}
		}
	}
}

func TestResize_FrozenAxisKeepsLastValidFrame(t *testing.T) {
	start := domain.Rect{X: 100, Y: 100, W: 300, H: 200}
	edges := selection.HandleW.Edges()

	last := interaction.ResizeRect(start, start, edges, domain.Point{X: 80})
	if last.W != 220 || last.X != 180 {
		t.Fatalf("first frame = %+v", last)
	}
	last = interaction.ResizeRect(start, last, edges, domain.Point{X: 150})
	if last.W != 220 || last.X != 180 {
		t.Errorf("frozen frame = %+v, want x=180 w=220", last)
	}
}

// ─────────────────────────────────────────────────────────────
// Pan, wheel, listener lifetime
// ─────────────────────────────────────────────────────────────

func TestBackground_ClearsSelectionAndPans(t *testing.T) {
	h := newHarness(t, scenarioNode())
	h.sel.Select("n1")

	h.m.PointerDown(down(900, 900))
	if h.sel.Selected() != "" {
		t.Error("background press kept the selection")
	}
	h.m.PointerMove(down(910, 880))
	h.m.PointerMove(down(915, 885))
	h.m.PointerUp(down(915, 885))
	h.store.Wait()

	v := h.vp.State()
	if v.OffsetX != 15 || v.OffsetY != -15 {
		t.Errorf("offset = (%v, %v), want (15, -15)", v.OffsetX, v.OffsetY)
	}
	if len(h.client.writes()) != 0 {
		t.Error("pan persisted a node")
	}
}

func TestWheel(t *testing.T) {
	h := newHarness(t)

	h.m.Wheel(interaction.WheelEvent{DeltaX: 5, DeltaY: 10})
	if v := h.vp.State(); v.OffsetX != -5 || v.OffsetY != -10 {
		t.Errorf("plain wheel offset = (%v, %v)", v.OffsetX, v.OffsetY)
	}

	h.vp.SetOffset(0, 0)
	h.m.Wheel(interaction.WheelEvent{X: 200, Y: 100, DeltaY: -1, Ctrl: true})
	if v := h.vp.State(); math.Abs(v.Scale-1.1) > 1e-9 {
		t.Errorf("ctrl wheel scale = %v, want 1.1", v.Scale)
	}
	h.m.Wheel(interaction.WheelEvent{X: 200, Y: 100, DeltaY: 1, Meta: true})
	if v := h.vp.State(); math.Abs(v.Scale-1) > 1e-9 {
		t.Errorf("meta wheel back scale = %v, want 1", v.Scale)
	}
}

func TestListeners_ReleasedOnEveryExit(t *testing.T) {
	h := newHarness(t, scenarioNode())
	bus := h.m.Bus()

	h.m.PointerDown(down(150, 150))
	if bus.Listeners() != 2 {
		t.Fatalf("listeners during gesture = %d, want 2", bus.Listeners())
	}
	h.m.PointerUp(down(150, 150))
	if bus.Listeners() != 0 {
		t.Errorf("listeners after up = %d", bus.Listeners())
	}

	h.m.PointerDown(down(150, 150))
	h.m.PointerDown(down(900, 900))
	if bus.Listeners() != 2 {
		t.Errorf("listeners after re-press = %d, want 2", bus.Listeners())
	}

	h.m.Close()
	if bus.Listeners() != 0 {
		t.Errorf("listeners after Close = %d", bus.Listeners())
	}
	if bus.DispatchMove(down(0, 0)) {
		t.Error("move delivered with no gesture")
	}
}

func TestClose_DropsGestureWithoutPersisting(t *testing.T) {
	h := newHarness(t, scenarioNode())
	h.m.PointerDown(down(150, 150))
	h.m.PointerMove(down(200, 200))
	h.m.Close()
	h.m.PointerUp(down(200, 200))
	h.store.Wait()

	if got := len(h.client.writes()); got != 0 {
		t.Errorf("writes = %d, want 0", got)
	}
	if h.m.State() != interaction.Idle {
		t.Errorf("state = %s", h.m.State())
	}
}

func TestActiveGesture_ReleaseIsIdempotent(t *testing.T) {
	bus := &interaction.PointerBus{}
	calls := 0
	handle := bus.OnPointerMove(func(interaction.PointerEvent) { calls++ })
	bus.DispatchMove(down(0, 0))
	handle.Remove()
	handle.Remove()
	bus.DispatchMove(down(0, 0))
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

// ─────────────────────────────────────────────────────────────
// Keys, duplicate, lock
// ─────────────────────────────────────────────────────────────

func TestEscape_ClearsSelectionGestureContinues(t *testing.T) {
	h := newHarness(t, scenarioNode())
	h.m.PointerDown(down(150, 150))

	handled, err := h.m.KeyDown(context.Background(), interaction.KeyEvent{Key: "Escape"})
	if !handled || err != nil {
		t.Fatalf("Escape handled=%v err=%v", handled, err)
	}
	if h.sel.Selected() != "" {
		t.Error("selection not cleared")
	}
	if h.m.State() != interaction.Dragging {
		t.Errorf("gesture interrupted: %s", h.m.State())
	}
	h.m.PointerMove(down(160, 160))
	h.m.PointerUp(down(160, 160))
	h.store.Wait()
	if got := len(h.client.writes()); got != 1 {
		t.Errorf("writes = %d, want 1", got)
	}
}

func TestDeleteKey_RemovesSelectedAndClearsSelection(t *testing.T) {
	h := newHarness(t, scenarioNode())
	h.sel.Select("n1")

	if handled, _ := h.m.KeyDown(context.Background(), interaction.KeyEvent{Key: "Delete", Editing: true}); handled {
		t.Error("Delete inside an editor was handled")
	}
	handled, err := h.m.KeyDown(context.Background(), interaction.KeyEvent{Key: "Backspace"})
	if !handled || err != nil {
		t.Fatalf("Backspace handled=%v err=%v", handled, err)
	}
	if _, ok := h.store.Get("n1"); ok {
		t.Error("node still present")
	}
	if h.sel.Selected() != "" {
		t.Error("selection not cleared")
	}
}

func TestDuplicate_StacksAboveEverything(t *testing.T) {
	tests := []struct {
		name   string
		zIndex int64
	}{
		{"existing below clock", 5},
		{"existing ahead of clock", 1 << 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := scenarioNode()
			other := scenarioNode()
			other.ID = "n2"
			other.Position.ZIndex = tt.zIndex
			h := newHarness(t, src, other)

			dup, err := h.m.Duplicate(context.Background(), "n1")
			if err != nil {
				t.Fatalf("Duplicate: %v", err)
			}
			for _, n := range []domain.Node{src, other} {
				if dup.Position.ZIndex <= n.Position.ZIndex {
					t.Errorf("dup z %d not above %s z %d", dup.Position.ZIndex, n.ID, n.Position.ZIndex)
				}
			}
			if dup.Position.X != 120 || dup.Position.Y != 120 {
				t.Errorf("dup position = (%v, %v)", dup.Position.X, dup.Position.Y)
			}
			if dup.Size != src.Size || dup.Type != src.Type {
				t.Errorf("dup = %+v", dup)
			}
			if h.sel.Selected() != dup.ID {
				t.Error("duplicate not selected")
			}
		})
	}
}

func TestDuplicate_UnknownNode(t *testing.T) {
	h := newHarness(t)
	if _, err := h.m.Duplicate(context.Background(), "nope"); err == nil {
		t.Error("expected error for unknown node")
	}
}

func TestNextZIndex(t *testing.T) {
	now := time.UnixMilli(5_000)
	if z := interaction.NextZIndex(now, 10); z != 5_000 {
		t.Errorf("clock ahead: %d", z)
	}
	if z := interaction.NextZIndex(now, 5_000); z != 5_001 {
		t.Errorf("tie: %d", z)
	}
}

func TestToggleLock_GuardsFutureGestures(t *testing.T) {
	h := newHarness(t, scenarioNode())

	locked, err := h.m.ToggleLock(context.Background(), "n1")
	if err != nil || !locked {
		t.Fatalf("ToggleLock = %v, %v", locked, err)
	}
	h.store.Wait()
	if got := len(h.client.writes()); got != 1 {
		t.Errorf("writes = %d, want 1", got)
	}

	h.m.PointerDown(down(150, 150))
	if h.m.State() != interaction.Idle {
		t.Error("locked node started a drag")
	}

	handled, err := h.m.KeyDown(context.Background(), interaction.KeyEvent{Key: "l", Ctrl: true})
	if !handled || err != nil {
		t.Fatalf("Ctrl+L handled=%v err=%v", handled, err)
	}
	n, _ := h.store.Get("n1")
	if n.Locked {
		t.Error("Ctrl+L did not unlock")
	}
}

func TestZoomShortcuts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.m.KeyDown(ctx, interaction.KeyEvent{Key: "=", Meta: true})
	if s := h.vp.State().Scale; math.Abs(s-1.2) > 1e-9 {
		t.Errorf("zoom in = %v", s)
	}
	h.m.KeyDown(ctx, interaction.KeyEvent{Key: "-", Ctrl: true})
	h.m.KeyDown(ctx, interaction.KeyEvent{Key: "-", Ctrl: true})
	h.m.KeyDown(ctx, interaction.KeyEvent{Key: "0", Ctrl: true})
	if v := h.vp.State(); v != domain.DefaultViewport() {
		t.Errorf("reset = %+v", v)
	}
	if handled, _ := h.m.KeyDown(ctx, interaction.KeyEvent{Key: "0"}); handled {
		t.Error("bare 0 handled")
	}
}
