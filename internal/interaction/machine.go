package interaction

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"canvasboard/internal/domain"
	"canvasboard/internal/nodestore"
	"canvasboard/internal/selection"
	"canvasboard/internal/viewport"
)

// Kind is the gesture currently in progress.
type Kind string

const (
	Idle     Kind = "idle"
	Dragging Kind = "drag"
	Resizing Kind = "resize"
	Panning  Kind = "pan"
)

const (
	// DefaultHandleRadius is the grip hit radius in screen pixels.
	DefaultHandleRadius = 8.0
	// WheelZoomStep is the zoom factor per wheel notch.
	WheelZoomStep = 1.1
	// DuplicateOffset shifts a duplicate down and right of its source.
	DuplicateOffset = 20.0
)

type gesture struct {
	kind   Kind
	nodeID string
	edges  selection.Edges
	start  domain.Rect  // node geometry at pointer-down
	anchor domain.Point // canvas pointer at pointer-down
	grab   domain.Point // pointer offset inside the node while dragging
	last   domain.Rect  // last committed frame
	sample domain.Point // last screen sample while panning
	moved  bool
	active *ActiveGesture
}

// Machine turns pointer, key and wheel events into viewport changes and
// node mutations. Within a gesture only local mutations happen; the
// result is persisted once when the pointer is released.
type Machine struct {
	mu        sync.Mutex
	viewport  *viewport.Controller
	store     *nodestore.Store
	selection *selection.Manager
	bus       *PointerBus
	now       func() time.Time

	handleRadius float64
	g            *gesture
	onChange     func(Kind)
}

// New wires a Machine to its collaborators. now defaults to time.Now.
func New(vp *viewport.Controller, store *nodestore.Store, sel *selection.Manager, now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{
		viewport:     vp,
		store:        store,
		selection:    sel,
		bus:          &PointerBus{},
		now:          now,
		handleRadius: DefaultHandleRadius,
	}
}

// Bus exposes the pointer bus move/up events are delivered through.
func (m *Machine) Bus() *PointerBus { return m.bus }

// OnGestureChange registers fn to run when a gesture starts or ends.
func (m *Machine) OnGestureChange(fn func(Kind)) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// State returns the gesture in progress.
func (m *Machine) State() Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.g == nil {
		return Idle
	}
	return m.g.kind
}

// ActiveNode returns the node the current drag or resize acts on.
func (m *Machine) ActiveNode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.g == nil {
		return ""
	}
	return m.g.nodeID
}

// PointerDown hit-tests ev against the selected node's grips, then node
// bodies from the top down, then the background, and starts the matching
// gesture.
func (m *Machine) PointerDown(ev PointerEvent) {
	if ev.Button != ButtonPrimary {
		return
	}
	m.finishActive()

	vp := m.viewport.State()
	screen := ev.Point()
	canvas := viewport.ScreenToCanvas(vp, screen)
	nodes := m.store.Nodes()

	if sel, ok := m.store.Get(m.selection.Selected()); ok && !sel.Locked {
		if h, hit := m.hitHandle(vp, sel, screen); hit {
			m.begin(&gesture{
				kind:   Resizing,
				nodeID: sel.ID,
				edges:  h.Edges(),
				start:  sel.Rect(),
				anchor: canvas,
				last:   sel.Rect(),
			})
			return
		}
	}

	if n, ok := selection.TopmostAt(nodes, canvas); ok {
		m.selection.Select(n.ID)
		if n.Locked {
			return
		}
		m.begin(&gesture{
			kind:   Dragging,
			nodeID: n.ID,
			start:  n.Rect(),
			grab:   canvas.Sub(domain.Point{X: n.Position.X, Y: n.Position.Y}),
			last:   n.Rect(),
		})
		return
	}

	m.selection.Clear()
	m.begin(&gesture{kind: Panning, sample: screen})
}

// PointerMove forwards a window-level move to the active gesture.
func (m *Machine) PointerMove(ev PointerEvent) {
	m.bus.DispatchMove(ev)
}

// PointerUp forwards a window-level release to the active gesture.
func (m *Machine) PointerUp(ev PointerEvent) {
	m.bus.DispatchUp(ev)
}

func (m *Machine) begin(g *gesture) {
	g.active = acquireGesture(m.bus, m.handleMove, m.handleUp)
	m.mu.Lock()
	m.g = g
	fn := m.onChange
	m.mu.Unlock()
	if fn != nil {
		fn(g.kind)
	}
}

func (m *Machine) hitHandle(vp domain.Viewport, n domain.Node, screen domain.Point) (selection.Handle, bool) {
	r := n.Rect()
	for _, h := range selection.Handles {
		p := viewport.CanvasToScreen(vp, h.Anchor(r))
		if math.Abs(p.X-screen.X) <= m.handleRadius && math.Abs(p.Y-screen.Y) <= m.handleRadius {
			return h, true
		}
	}
	return "", false
}

func (m *Machine) handleMove(ev PointerEvent) {
	m.mu.Lock()
	g := m.g
	if g == nil {
		m.mu.Unlock()
		return
	}

	switch g.kind {
	case Panning:
		d := ev.Point().Sub(g.sample)
		g.sample = ev.Point()
		m.mu.Unlock()
		m.viewport.Pan(d.X, d.Y)
		return

	case Dragging:
		canvas := m.viewport.ScreenToCanvas(ev.Point())
		pos := canvas.Sub(g.grab)
		g.last.X, g.last.Y = pos.X, pos.Y
		g.moved = true
		id := g.nodeID
		m.mu.Unlock()
		m.store.UpdateLocal(id, domain.MovePatch(pos.X, pos.Y))
		return

	case Resizing:
		canvas := m.viewport.ScreenToCanvas(ev.Point())
		g.last = ResizeRect(g.start, g.last, g.edges, canvas.Sub(g.anchor))
		g.moved = true
		r, id := g.last, g.nodeID
		m.mu.Unlock()
		m.store.UpdateLocal(id, domain.GeometryPatch(r.X, r.Y, r.W, r.H))
		return
	}
	m.mu.Unlock()
}

func (m *Machine) handleUp(PointerEvent) {
	m.finishActive()
}

// finishActive ends the gesture in progress, persisting a moved node with
// a single write.
func (m *Machine) finishActive() {
	g := m.takeGesture()
	if g == nil {
		return
	}
	if !g.moved {
		return
	}
	switch g.kind {
	case Dragging:
		m.store.Update(context.Background(), g.nodeID, domain.MovePatch(g.last.X, g.last.Y))
	case Resizing:
		m.store.Update(context.Background(), g.nodeID, domain.GeometryPatch(g.last.X, g.last.Y, g.last.W, g.last.H))
	}
}

func (m *Machine) takeGesture() *gesture {
	m.mu.Lock()
	g := m.g
	m.g = nil
	fn := m.onChange
	m.mu.Unlock()
	if g == nil {
		return nil
	}
	g.active.Release()
	if fn != nil {
		fn(Idle)
	}
	return g
}

// Close tears the machine down. An unfinished gesture is dropped without
// persisting.
func (m *Machine) Close() {
	m.takeGesture()
}

// ResizeRect applies the cumulative canvas delta d to start for the given
// edges. East and south edges grow and clamp at the minimum size. North
// and west edges move the origin with the delta only while the result
// stays at or above the minimum; otherwise that axis keeps last.
func ResizeRect(start, last domain.Rect, edges selection.Edges, d domain.Point) domain.Rect {
	out := last
	if edges.East {
		out.W = math.Max(start.W+d.X, domain.MinNodeWidth)
	}
	if edges.South {
		out.H = math.Max(start.H+d.Y, domain.MinNodeHeight)
	}
	if edges.West {
		if w := start.W - d.X; w >= domain.MinNodeWidth {
			out.W = w
			out.X = start.X + d.X
		}
	}
	if edges.North {
		if h := start.H - d.Y; h >= domain.MinNodeHeight {
			out.H = h
			out.Y = start.Y + d.Y
		}
	}
	return out
}

// KeyDown runs the keyboard shortcut for ev and reports whether it was
// handled.
func (m *Machine) KeyDown(ctx context.Context, ev KeyEvent) (bool, error) {
	selected := m.selection.Selected()

	switch {
	case ev.Key == "Escape":
		m.selection.Clear()
		return true, nil

	case (ev.Key == "Delete" || ev.Key == "Backspace") && !ev.Editing:
		if selected == "" {
			return false, nil
		}
		return true, m.store.Delete(ctx, selected)

	case ev.command() && (ev.Key == "d" || ev.Key == "D"):
		if selected == "" {
			return false, nil
		}
		_, err := m.Duplicate(ctx, selected)
		return true, err

	case ev.command() && (ev.Key == "l" || ev.Key == "L"):
		if selected == "" {
			return false, nil
		}
		_, err := m.ToggleLock(ctx, selected)
		return true, err

	case ev.command() && (ev.Key == "=" || ev.Key == "+"):
		m.viewport.ZoomIn()
		return true, nil

	case ev.command() && ev.Key == "-":
		m.viewport.ZoomOut()
		return true, nil

	case ev.command() && ev.Key == "0":
		m.viewport.ResetZoom()
		return true, nil
	}
	return false, nil
}

// Wheel zooms around the cursor when a command modifier is held and pans
// otherwise.
func (m *Machine) Wheel(ev WheelEvent) {
	if ev.Ctrl || ev.Meta {
		if ev.DeltaY == 0 {
			return
		}
		factor := WheelZoomStep
		if ev.DeltaY > 0 {
			factor = 1 / WheelZoomStep
		}
		m.viewport.ZoomAt(factor, domain.Point{X: ev.X, Y: ev.Y})
		return
	}
	m.viewport.Pan(-ev.DeltaX, -ev.DeltaY)
}

// Duplicate creates a copy of node id offset down and to the right and
// stacked above every existing node, then selects it.
func (m *Machine) Duplicate(ctx context.Context, id string) (*domain.Node, error) {
	n, ok := m.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("duplicate %s: %w", id, domain.ErrNotFound)
	}
	spec, err := domain.SpecFrom(n)
	if err != nil {
		return nil, fmt.Errorf("duplicate %s: %w", id, err)
	}
	spec.Position.X += DuplicateOffset
	spec.Position.Y += DuplicateOffset
	spec.Position.ZIndex = NextZIndex(m.now(), m.store.MaxZIndex())

	created, err := m.store.Create(ctx, spec)
	if err != nil {
		log.Printf("[INTERACTION] duplicate %s failed: %v", id, err)
		return nil, err
	}
	m.selection.Select(created.ID)
	return created, nil
}

// NextZIndex returns a z-index above maxExisting, drawn from the clock
// when the clock is ahead.
func NextZIndex(now time.Time, maxExisting int64) int64 {
	z := now.UnixMilli()
	if z <= maxExisting {
		z = maxExisting + 1
	}
	return z
}

// ToggleLock flips the locked flag of node id and persists it. A gesture
// already in progress on the node is not interrupted.
func (m *Machine) ToggleLock(ctx context.Context, id string) (bool, error) {
	n, ok := m.store.Get(id)
	if !ok {
		return false, fmt.Errorf("toggle lock %s: %w", id, domain.ErrNotFound)
	}
	locked := !n.Locked
	m.store.Update(ctx, id, domain.NodePatch{Locked: &locked})
	return locked, nil
}
