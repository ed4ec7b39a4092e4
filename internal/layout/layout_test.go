package layout

import (
	"testing"

	"canvasboard/internal/domain"
)

func node(id string, x, y, w, h float64) domain.Node {
	return domain.Node{
		ID:       id,
		Position: domain.Position{X: x, Y: y},
		Size:     domain.Size{Width: w, Height: h},
	}
}

func overlapsPadded(p domain.Point, size domain.Size, n domain.Node) bool {
	r := domain.Rect{X: p.X, Y: p.Y, W: size.Width, H: size.Height}
	padded := domain.Rect{
		X: n.Position.X - Padding,
		Y: n.Position.Y - Padding,
		W: n.Size.Width + Padding*2,
		H: n.Size.Height + Padding*2,
	}
	return r.Intersects(padded)
}

func TestNextPosition_EmptyBoard(t *testing.T) {
	e := NewEngine(20)
	p := e.NextPosition(nil, domain.Size{Width: 300, Height: 200})
	if p.X != 0 || p.Y != 0 {
		t.Errorf("expected (0, 0) for empty board, got (%.0f, %.0f)", p.X, p.Y)
	}
}

func TestNextPosition_AvoidsExistingNodes(t *testing.T) {
	e := NewEngine(20)
	existing := []domain.Node{
		node("a", 0, 0, 300, 200),
		node("b", 380, 0, 300, 200),
	}
	size := domain.Size{Width: 300, Height: 200}
	p := e.NextPosition(existing, size)

	for _, n := range existing {
		if overlapsPadded(p, size, n) {
			t.Errorf("position (%.0f, %.0f) overlaps node %s", p.X, p.Y, n.ID)
		}
	}
}

func TestNextPositionFrom_StartsAtOrigin(t *testing.T) {
	e := NewEngine(20)
	p := e.NextPositionFrom(nil, domain.Size{Width: 300, Height: 200}, domain.Point{X: 509, Y: 311})
	if p.X != 500 || p.Y != 320 {
		t.Errorf("expected snapped origin (500, 320), got (%.0f, %.0f)", p.X, p.Y)
	}
}

func TestNextPosition_SnapsToGrid(t *testing.T) {
	e := NewEngine(30)
	existing := []domain.Node{node("a", 0, 0, 500, 400)}
	p := e.NextPosition(existing, domain.Size{Width: 300, Height: 200})

	if int(p.X)%30 != 0 || int(p.Y)%30 != 0 {
		t.Errorf("position (%.0f, %.0f) is not grid-aligned", p.X, p.Y)
	}
}

func TestNewEngine_DefaultsGrid(t *testing.T) {
	if e := NewEngine(0); e.gridSize != DefaultGridSize {
		t.Errorf("gridSize = %v, want %v", e.gridSize, DefaultGridSize)
	}
	if e := ForBoard(&domain.Board{GridSize: 25}); e.gridSize != 25 {
		t.Errorf("board grid = %v, want 25", e.gridSize)
	}
}

func TestArrangeGroup_WrapsRows(t *testing.T) {
	e := NewEngine(20)
	nodes := make([]domain.Node, 5)
	for i := range nodes {
		nodes[i] = node(string(rune('a'+i)), 999, 999, 500, 300)
	}

	updates := e.ArrangeGroup(nodes, domain.Point{})
	if len(updates) != 5 {
		t.Fatalf("expected 5 updates, got %d", len(updates))
	}

	first := updates[0]
	if *first.Position.X != 0 || *first.Position.Y != 0 {
		t.Errorf("first node at (%.0f, %.0f), want (0, 0)", *first.Position.X, *first.Position.Y)
	}
	// 540px per column fits three 500px nodes in an 1800px row.
	fourth := updates[3]
	if *fourth.Position.X != 0 || *fourth.Position.Y <= 0 {
		t.Errorf("fourth node at (%.0f, %.0f), want start of second row", *fourth.Position.X, *fourth.Position.Y)
	}
	if nodes[0].Position.X != 999 {
		t.Error("ArrangeGroup modified its input")
	}
	for i, u := range updates {
		if u.ID != nodes[i].ID {
			t.Errorf("update %d is for %s, want %s", i, u.ID, nodes[i].ID)
		}
	}
}
