package domain

// BoardState is the complete render state of the open board. It is pushed
// to the frontend after every change so the canvas can redraw.
type BoardState struct {
	Board      *Board                `json:"board"`
	Nodes      []Node                `json:"nodes"` // render order, bottom first
	Chrome     map[string]NodeChrome `json:"chrome"`
	Viewport   Viewport              `json:"viewport"`
	SelectedID string                `json:"selectedId"`
	Gesture    string                `json:"gesture"`
	Loading    bool                  `json:"loading"`
	Error      string                `json:"error"`
}

// NodeChrome is the interaction affordance of one node: whether its
// selection ring and resize handles show, and which cursor hovers it.
type NodeChrome struct {
	Selected    bool           `json:"selected"`
	ShowHandles bool           `json:"showHandles"`
	Handles     []HandleChrome `json:"handles,omitempty"`
	Cursor      string         `json:"cursor"`
}

// HandleChrome is one resize grip and the cursor shown over it.
type HandleChrome struct {
	Name   string `json:"name"`
	Cursor string `json:"cursor"`
}
