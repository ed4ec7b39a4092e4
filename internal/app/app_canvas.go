package app

import (
	"encoding/json"
	"fmt"
	"time"

	"canvasboard/internal/config"
	"canvasboard/internal/domain"
	"canvasboard/internal/interaction"
	"canvasboard/internal/layout"
	"canvasboard/internal/nodestore"
)

// ============================================================
// Pointer, keyboard and wheel input
// ============================================================

func (a *App) PointerDown(x, y float64, button int) {
	a.machine.PointerDown(interaction.PointerEvent{X: x, Y: y, Button: button})
}

func (a *App) PointerMove(x, y float64) {
	a.machine.PointerMove(interaction.PointerEvent{X: x, Y: y})
}

func (a *App) PointerUp(x, y float64) {
	a.machine.PointerUp(interaction.PointerEvent{X: x, Y: y})
}

// KeyDown runs a keyboard shortcut and reports whether the key was used,
// so the frontend can prevent the browser default.
func (a *App) KeyDown(ev interaction.KeyEvent) (bool, error) {
	return a.machine.KeyDown(a.ctx, ev)
}

func (a *App) Wheel(ev interaction.WheelEvent) {
	a.machine.Wheel(ev)
}

// ============================================================
// Viewport
// ============================================================

func (a *App) ZoomIn() domain.Viewport    { return a.viewport.ZoomIn() }
func (a *App) ZoomOut() domain.Viewport   { return a.viewport.ZoomOut() }
func (a *App) ResetZoom() domain.Viewport { return a.viewport.ResetZoom() }

func (a *App) SetZoom(scale float64) domain.Viewport {
	return a.viewport.SetZoom(scale)
}

// ============================================================
// Nodes
// ============================================================

// AddNode creates a node of type t with its default content and size,
// placed at the first free spot near the screen point (cx, cy), usually
// the middle of the window.
func (a *App) AddNode(t string, cx, cy float64) (*domain.Node, error) {
	board := a.currentBoard()
	if err := requireBoard(board); err != nil {
		return nil, err
	}
	typ, err := domain.ParseNodeType(t)
	if err != nil {
		return nil, err
	}

	spec := domain.DefaultNodeSpec(typ)
	spec.BoardID = board.ID
	center := a.viewport.ScreenToCanvas(domain.Point{X: cx, Y: cy})
	origin := domain.Point{X: center.X - spec.Size.Width/2, Y: center.Y - spec.Size.Height/2}
	p := layout.ForBoard(board).NextPositionFrom(a.store.Nodes(), spec.Size, origin)
	spec.Position = domain.Position{X: p.X, Y: p.Y, ZIndex: interaction.NextZIndex(a.now(), a.store.MaxZIndex())}

	n, err := a.store.Create(a.ctx, spec)
	if err != nil {
		return nil, err
	}
	a.selection.Select(n.ID)
	return n, nil
}

// UpdateContent merges contentJSON into the node's content locally and
// writes it once edits pause for the type's debounce window.
func (a *App) UpdateContent(id, contentJSON string) error {
	n, ok := a.store.Get(id)
	if !ok {
		return fmt.Errorf("update content %s: %w", id, domain.ErrNotFound)
	}
	if !json.Valid([]byte(contentJSON)) {
		return fmt.Errorf("update content %s: %w: not JSON", id, domain.ErrInvalidContent)
	}
	delay := contentDelay(a.currentConfig().Persistence, n.Type)
	a.store.UpdateDebounced(id, nodestore.GroupContent, domain.NodePatch{Content: json.RawMessage(contentJSON)}, delay)
	return nil
}

// UpdateStyle replaces the node's style and saves it right away.
func (a *App) UpdateStyle(id string, style domain.Style) {
	a.store.Update(a.ctx, id, domain.NodePatch{Style: &style})
}

func (a *App) SelectNode(id string) {
	if _, ok := a.store.Get(id); ok {
		a.selection.Select(id)
	}
}

func (a *App) ClearSelection() {
	a.selection.Clear()
}

func (a *App) DeleteNode(id string) error {
	return a.store.Delete(a.ctx, id)
}

func (a *App) DuplicateNode(id string) (*domain.Node, error) {
	return a.machine.Duplicate(a.ctx, id)
}

func (a *App) ToggleLock(id string) (bool, error) {
	return a.machine.ToggleLock(a.ctx, id)
}

// BringToFront stacks the node above every other node on the board.
func (a *App) BringToFront(id string) {
	z := interaction.NextZIndex(a.now(), a.store.MaxZIndex())
	a.store.Update(a.ctx, id, domain.NodePatch{Position: &domain.PositionPatch{ZIndex: &z}})
}

// ArrangeBoard lays the unlocked nodes out in a grid in one bulk write.
func (a *App) ArrangeBoard() error {
	board := a.currentBoard()
	if err := requireBoard(board); err != nil {
		return err
	}
	if err := a.store.Flush(a.ctx); err != nil {
		return err
	}
	var movable []domain.Node
	for _, n := range a.GetState().Nodes {
		if !n.Locked {
			movable = append(movable, n)
		}
	}
	return a.store.BulkUpdate(a.ctx, layout.ForBoard(board).ArrangeGroup(movable, domain.Point{}))
}

// FlushPending writes every debounced edit now.
func (a *App) FlushPending() error {
	return a.store.Flush(a.ctx)
}

// contentDelay is the debounce window for content edits of type t.
func contentDelay(p config.PersistenceConfig, t domain.NodeType) time.Duration {
	switch t {
	case domain.NodeTypePomodoro, domain.NodeTypeReminder:
		return p.DebounceTimer.D()
	case domain.NodeTypeDrawing, domain.NodeTypeCanvas:
		return p.DebounceDrawing.D()
	default:
		return p.DebounceText.D()
	}
}
