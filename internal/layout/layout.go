// Package layout places nodes on a board so new ones don't overlap
// existing ones.
package layout

import (
	"math"

	"canvasboard/internal/domain"
)

const (
	DefaultGridSize = 20.0 // board default gridSize
	Padding         = 40.0 // clearance kept around existing nodes
	MaxRowW         = 1800.0

	maxScanY = 100000.0
)

type Engine struct {
	gridSize float64
	padding  float64
	maxRowW  float64
}

// NewEngine returns an engine snapping to gridSize. A non-positive size
// uses DefaultGridSize.
func NewEngine(gridSize float64) *Engine {
	if !(gridSize > 0) {
		gridSize = DefaultGridSize
	}
	return &Engine{
		gridSize: gridSize,
		padding:  Padding,
		maxRowW:  MaxRowW,
	}
}

// ForBoard returns an engine using the board's grid.
func ForBoard(b *domain.Board) *Engine {
	if b == nil {
		return NewEngine(0)
	}
	return NewEngine(float64(b.GridSize))
}

func (e *Engine) snap(v float64) float64 {
	return math.Round(v/e.gridSize) * e.gridSize
}

func (e *Engine) free(c domain.Rect, occupied []domain.Rect) bool {
	for _, occ := range occupied {
		padded := domain.Rect{
			X: occ.X - e.padding,
			Y: occ.Y - e.padding,
			W: occ.W + e.padding*2,
			H: occ.H + e.padding*2,
		}
		if c.Intersects(padded) {
			return false
		}
	}
	return true
}

// NextPosition finds the first free grid position for a node of size,
// scanning rows top to bottom from the origin.
func (e *Engine) NextPosition(existing []domain.Node, size domain.Size) domain.Point {
	return e.NextPositionFrom(existing, size, domain.Point{})
}

// NextPositionFrom is NextPosition with the scan starting at from. Rows
// span MaxRowW to the right of from.x.
func (e *Engine) NextPositionFrom(existing []domain.Node, size domain.Size, from domain.Point) domain.Point {
	start := domain.Point{X: e.snap(from.X), Y: e.snap(from.Y)}
	if len(existing) == 0 {
		return start
	}

	occupied := make([]domain.Rect, len(existing))
	for i := range existing {
		occupied[i] = existing[i].Rect()
	}

	c := domain.Rect{W: size.Width, H: size.Height}
	for y := start.Y; y < start.Y+maxScanY; y += e.gridSize {
		for x := start.X; x < start.X+e.maxRowW; x += e.gridSize {
			c.X, c.Y = x, y
			if e.free(c, occupied) {
				return domain.Point{X: c.X, Y: c.Y}
			}
		}
	}

	// Nothing free in the scan window: go below everything.
	maxY := start.Y
	for _, r := range occupied {
		if r.Y+r.H > maxY {
			maxY = r.Y + r.H
		}
	}
	return domain.Point{X: start.X, Y: e.snap(maxY + e.padding)}
}

// ArrangeGroup lays nodes out in rows from start, wrapping at MaxRowW,
// and returns the position updates in input order. Nodes are not
// modified.
func (e *Engine) ArrangeGroup(nodes []domain.Node, start domain.Point) []domain.NodeUpdate {
	x0 := e.snap(start.X)
	x, y := x0, e.snap(start.Y)
	rowHeight := 0.0

	updates := make([]domain.NodeUpdate, 0, len(nodes))
	for _, n := range nodes {
		if x > x0 && x+n.Size.Width > x0+e.maxRowW {
			x = x0
			y += e.snap(rowHeight + e.padding)
			rowHeight = 0
		}
		updates = append(updates, domain.NodeUpdate{ID: n.ID, NodePatch: domain.MovePatch(x, y)})

		if n.Size.Height > rowHeight {
			rowHeight = n.Size.Height
		}
		x += e.snap(n.Size.Width + e.padding)
	}
	return updates
}
