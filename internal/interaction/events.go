package interaction

import "canvasboard/internal/domain"

// Mouse buttons as reported by the DOM.
const (
	ButtonPrimary   = 0
	ButtonMiddle    = 1
	ButtonSecondary = 2
)

// PointerEvent is a pointer sample in screen pixels relative to the
// canvas element.
type PointerEvent struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Button int     `json:"button"`
}

func (e PointerEvent) Point() domain.Point { return domain.Point{X: e.X, Y: e.Y} }

// KeyEvent is a keydown forwarded from the canvas. Editing is set when
// focus is inside a text field, where deletion keys belong to the editor.
type KeyEvent struct {
	Key     string `json:"key"`
	Ctrl    bool   `json:"ctrl"`
	Meta    bool   `json:"meta"`
	Shift   bool   `json:"shift"`
	Alt     bool   `json:"alt"`
	Editing bool   `json:"editing"`
}

func (e KeyEvent) command() bool { return e.Ctrl || e.Meta }

// WheelEvent is a wheel or trackpad scroll at a screen position.
type WheelEvent struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DeltaX float64 `json:"deltaX"`
	DeltaY float64 `json:"deltaY"`
	Ctrl   bool    `json:"ctrl"`
	Meta   bool    `json:"meta"`
}
