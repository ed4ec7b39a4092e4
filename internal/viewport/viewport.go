// Package viewport owns the board's zoom scale and pan offset and the
// transform between screen and canvas coordinates.
package viewport

import (
	"log"
	"math"
	"sync"

	"canvasboard/internal/domain"
)

const (
	MinScale = 0.1
	MaxScale = 5.0
	ZoomStep = 1.2

	// StateKey is the durable key the viewport is stored under.
	StateKey = "canvas-viewport"
)

// StateStore persists the viewport between sessions.
type StateStore interface {
	// LoadViewport returns ok=false when nothing has been saved yet.
	LoadViewport() (v domain.Viewport, ok bool, err error)
	SaveViewport(v domain.Viewport) error
}

// ClampScale limits s to [MinScale, MaxScale]. NaN maps to 1.
func ClampScale(s float64) float64 {
	switch {
	case math.IsNaN(s):
		return 1
	case s < MinScale:
		return MinScale
	case s > MaxScale:
		return MaxScale
	}
	return s
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Controller is the single owner of the viewport. Every mutation is
// written through to the StateStore before it returns.
type Controller struct {
	mu       sync.Mutex
	v        domain.Viewport
	store    StateStore
	onChange func(domain.Viewport)
}

// New creates a Controller at the identity transform. store may be nil.
func New(store StateStore) *Controller {
	return &Controller{v: domain.DefaultViewport(), store: store}
}

// OnChange registers fn to run after every mutation.
func (c *Controller) OnChange(fn func(domain.Viewport)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Restore loads the saved viewport, if any. Out-of-range saved values are
// sanitized rather than rejected.
func (c *Controller) Restore() error {
	if c.store == nil {
		return nil
	}
	v, ok, err := c.store.LoadViewport()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	c.mu.Lock()
	c.v = domain.Viewport{
		Scale:   ClampScale(v.Scale),
		OffsetX: finite(v.OffsetX),
		OffsetY: finite(v.OffsetY),
	}
	c.mu.Unlock()
	return nil
}

func (c *Controller) State() domain.Viewport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *Controller) ZoomIn() domain.Viewport {
	return c.mutate(func(v *domain.Viewport) { v.Scale = ClampScale(v.Scale * ZoomStep) })
}

func (c *Controller) ZoomOut() domain.Viewport {
	return c.mutate(func(v *domain.Viewport) { v.Scale = ClampScale(v.Scale / ZoomStep) })
}

// SetZoom sets the scale, keeping the offset.
func (c *Controller) SetZoom(scale float64) domain.Viewport {
	return c.mutate(func(v *domain.Viewport) { v.Scale = ClampScale(scale) })
}

// SetZoomAt sets the scale while keeping the canvas point under cursor
// (screen space) fixed on screen.
func (c *Controller) SetZoomAt(scale float64, cursor domain.Point) domain.Viewport {
	return c.mutate(func(v *domain.Viewport) { zoomAt(v, ClampScale(scale), cursor) })
}

// ZoomAt multiplies the current scale by factor around cursor.
func (c *Controller) ZoomAt(factor float64, cursor domain.Point) domain.Viewport {
	return c.mutate(func(v *domain.Viewport) { zoomAt(v, ClampScale(v.Scale*factor), cursor) })
}

func zoomAt(v *domain.Viewport, newScale float64, cursor domain.Point) {
	old := ClampScale(v.Scale)
	px := (cursor.X - v.OffsetX) / old
	py := (cursor.Y - v.OffsetY) / old
	v.Scale = newScale
	v.OffsetX = cursor.X - px*newScale
	v.OffsetY = cursor.Y - py*newScale
}

func (c *Controller) Pan(dx, dy float64) domain.Viewport {
	return c.mutate(func(v *domain.Viewport) {
		v.OffsetX += finite(dx)
		v.OffsetY += finite(dy)
	})
}

func (c *Controller) SetOffset(x, y float64) domain.Viewport {
	return c.mutate(func(v *domain.Viewport) {
		v.OffsetX = finite(x)
		v.OffsetY = finite(y)
	})
}

func (c *Controller) ResetZoom() domain.Viewport {
	return c.mutate(func(v *domain.Viewport) { *v = domain.DefaultViewport() })
}

// ScreenToCanvas maps a screen point into canvas space.
func (c *Controller) ScreenToCanvas(p domain.Point) domain.Point {
	return ScreenToCanvas(c.State(), p)
}

// CanvasToScreen maps a canvas point onto the screen.
func (c *Controller) CanvasToScreen(p domain.Point) domain.Point {
	return CanvasToScreen(c.State(), p)
}

// ScreenDeltaToCanvas scales a screen-space movement into canvas units.
func (c *Controller) ScreenDeltaToCanvas(d domain.Point) domain.Point {
	s := ClampScale(c.State().Scale)
	return domain.Point{X: d.X / s, Y: d.Y / s}
}

func ScreenToCanvas(v domain.Viewport, p domain.Point) domain.Point {
	s := ClampScale(v.Scale)
	return domain.Point{X: (p.X - v.OffsetX) / s, Y: (p.Y - v.OffsetY) / s}
}

func CanvasToScreen(v domain.Viewport, p domain.Point) domain.Point {
	s := ClampScale(v.Scale)
	return domain.Point{X: p.X*s + v.OffsetX, Y: p.Y*s + v.OffsetY}
}

func (c *Controller) mutate(fn func(v *domain.Viewport)) domain.Viewport {
	c.mu.Lock()
	fn(&c.v)
	v := c.v
	if c.store != nil {
		if err := c.store.SaveViewport(v); err != nil {
			log.Printf("[VIEWPORT] save failed: %v", err)
		}
	}
	onChange := c.onChange
	c.mu.Unlock()
	if onChange != nil {
		onChange(v)
	}
	return v
}
