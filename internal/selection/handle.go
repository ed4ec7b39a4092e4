package selection

import "canvasboard/internal/domain"

// Handle names one of the eight resize grips around a node.
type Handle string

const (
	HandleN  Handle = "n"
	HandleS  Handle = "s"
	HandleE  Handle = "e"
	HandleW  Handle = "w"
	HandleNE Handle = "ne"
	HandleNW Handle = "nw"
	HandleSE Handle = "se"
	HandleSW Handle = "sw"
)

// Handles lists every grip, corners first so they win overlapping hit tests.
var Handles = []Handle{HandleNW, HandleNE, HandleSE, HandleSW, HandleN, HandleS, HandleE, HandleW}

// Edges is the set of node edges a resize grip moves.
type Edges struct {
	North, South, East, West bool
}

func (h Handle) Edges() Edges {
	var e Edges
	for _, c := range h {
		switch c {
		case 'n':
			e.North = true
		case 's':
			e.South = true
		case 'e':
			e.East = true
		case 'w':
			e.West = true
		}
	}
	return e
}

// Cursor is the CSS cursor shown while hovering the grip.
func (h Handle) Cursor() string {
	switch h {
	case HandleNW, HandleSE:
		return "nwse-resize"
	case HandleNE, HandleSW:
		return "nesw-resize"
	case HandleN, HandleS:
		return "ns-resize"
	case HandleE, HandleW:
		return "ew-resize"
	}
	return "default"
}

// Anchor returns the canvas point the grip is drawn at on r.
func (h Handle) Anchor(r domain.Rect) domain.Point {
	e := h.Edges()
	p := domain.Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
	if e.North {
		p.Y = r.Y
	}
	if e.South {
		p.Y = r.Y + r.H
	}
	if e.West {
		p.X = r.X
	}
	if e.East {
		p.X = r.X + r.W
	}
	return p
}
