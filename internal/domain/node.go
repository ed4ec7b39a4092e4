package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type NodeType string

const (
	NodeTypeSticky       NodeType = "sticky"
	NodeTypeTaskList     NodeType = "tasklist"
	NodeTypeCode         NodeType = "code"
	NodeTypePomodoro     NodeType = "pomodoro"
	NodeTypeAIChat       NodeType = "ai-chat"
	NodeTypeAIChatLegacy NodeType = "aichat"
	NodeTypeReminder     NodeType = "reminder"
	NodeTypeKanban       NodeType = "kanban"
	NodeTypeMarkdown     NodeType = "markdown"
	NodeTypeTextEditor   NodeType = "texteditor"
	NodeTypeCanvas       NodeType = "canvas"
	NodeTypeDrawing      NodeType = "drawing"
	NodeTypeBookmark     NodeType = "bookmark"
	NodeTypeChart        NodeType = "chart"
	NodeTypeCalendar     NodeType = "calendar"
	NodeTypeMindmap      NodeType = "mindmap"
	NodeTypeHabitTracker NodeType = "habit-tracker"
	NodeTypeSpreadsheet  NodeType = "spreadsheet"
	NodeTypeFile         NodeType = "file"
	NodeTypeImage        NodeType = "image"
	NodeTypeEmbed        NodeType = "embed"
	NodeTypeVoiceNote    NodeType = "voice-note"
	NodeTypeGallery      NodeType = "gallery"
	NodeTypeCalculator   NodeType = "calculator"
)

var nodeTypes = map[NodeType]bool{
	NodeTypeSticky: true, NodeTypeTaskList: true, NodeTypeCode: true, NodeTypePomodoro: true,
	NodeTypeAIChat: true, NodeTypeAIChatLegacy: true, NodeTypeReminder: true, NodeTypeKanban: true,
	NodeTypeMarkdown: true, NodeTypeTextEditor: true, NodeTypeCanvas: true, NodeTypeDrawing: true,
	NodeTypeBookmark: true, NodeTypeChart: true, NodeTypeCalendar: true, NodeTypeMindmap: true,
	NodeTypeHabitTracker: true, NodeTypeSpreadsheet: true, NodeTypeFile: true, NodeTypeImage: true,
	NodeTypeEmbed: true, NodeTypeVoiceNote: true, NodeTypeGallery: true, NodeTypeCalculator: true,
}

// Valid reports whether t is one of the known widget kinds.
func (t NodeType) Valid() bool { return nodeTypes[t] }

// ParseNodeType validates a wire type name.
func ParseNodeType(s string) (NodeType, error) {
	t := NodeType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidNodeType, s)
	}
	return t, nil
}

// Minimum node dimensions. Every committed size is clamped to these.
const (
	MinNodeWidth  = 200.0
	MinNodeHeight = 150.0
)

type Position struct {
	X      float64 `json:"x" bson:"x"`
	Y      float64 `json:"y" bson:"y"`
	ZIndex int64   `json:"zIndex" bson:"zIndex"`
}

type Size struct {
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
}

// Clamp raises both dimensions to the node minimums.
func (s Size) Clamp() Size {
	if !(s.Width >= MinNodeWidth) {
		s.Width = MinNodeWidth
	}
	if !(s.Height >= MinNodeHeight) {
		s.Height = MinNodeHeight
	}
	return s
}

type Style struct {
	BackgroundColor string  `json:"backgroundColor,omitempty" bson:"backgroundColor,omitempty"`
	BorderColor     string  `json:"borderColor,omitempty" bson:"borderColor,omitempty"`
	FontSize        float64 `json:"fontSize,omitempty" bson:"fontSize,omitempty"`
	FontFamily      string  `json:"fontFamily,omitempty" bson:"fontFamily,omitempty"`
}

// Node is a positioned, resizable widget on a board.
type Node struct {
	ID          string    `json:"_id"`
	BoardID     string    `json:"boardId"`
	Type        NodeType  `json:"type"`
	Position    Position  `json:"position"`
	Size        Size      `json:"size"`
	Content     Content   `json:"content"`
	Style       Style     `json:"style"`
	Locked      bool      `json:"locked"`
	Connections []string  `json:"connections"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Rect returns the node's canvas-space bounds.
func (n *Node) Rect() Rect {
	return Rect{X: n.Position.X, Y: n.Position.Y, W: n.Size.Width, H: n.Size.Height}
}

// Clone returns a deep copy. Content is copied through its JSON form so
// callers never share slices with the store.
func (n Node) Clone() Node {
	out := n
	if n.Connections != nil {
		out.Connections = append([]string(nil), n.Connections...)
	}
	if n.Content != nil {
		if c, err := cloneContent(n.Type, n.Content); err == nil {
			out.Content = c
		}
	}
	return out
}

// UnmarshalJSON decodes content into the variant selected by type.
func (n *Node) UnmarshalJSON(data []byte) error {
	type alias Node
	var raw struct {
		alias
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*n = Node(raw.alias)
	if n.Type == "" {
		return nil
	}
	c, err := DecodeContent(n.Type, raw.Content)
	if err != nil {
		return fmt.Errorf("node %s: %w", n.ID, err)
	}
	n.Content = c
	return nil
}

// NodeSpec is the body of a create call. The server assigns the id.
type NodeSpec struct {
	BoardID  string          `json:"boardId"`
	Type     NodeType        `json:"type"`
	Position Position        `json:"position"`
	Size     Size            `json:"size"`
	Content  json.RawMessage `json:"content,omitempty"`
	Style    Style           `json:"style"`
	Locked   bool            `json:"locked,omitempty"`
}

// Build validates the spec and returns the node it describes, with
// defaults filled in and size clamped. ID and timestamps are left empty.
func (s NodeSpec) Build() (*Node, error) {
	if s.BoardID == "" {
		return nil, fmt.Errorf("%w: boardId is required", ErrInvalidNode)
	}
	if !s.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNodeType, s.Type)
	}
	c, err := DecodeContent(s.Type, s.Content)
	if err != nil {
		return nil, err
	}
	size := s.Size
	if size.Width == 0 && size.Height == 0 {
		size = DefaultNodeSpec(s.Type).Size
	}
	return &Node{
		BoardID:     s.BoardID,
		Type:        s.Type,
		Position:    s.Position,
		Size:        size.Clamp(),
		Content:     c,
		Style:       s.Style,
		Locked:      s.Locked,
		Connections: []string{},
	}, nil
}

// SpecFrom builds a create spec carrying n's type, geometry, content and style.
func SpecFrom(n Node) (NodeSpec, error) {
	raw, err := json.Marshal(n.Content)
	if err != nil {
		return NodeSpec{}, fmt.Errorf("encode content: %w", err)
	}
	return NodeSpec{
		BoardID:  n.BoardID,
		Type:     n.Type,
		Position: n.Position,
		Size:     n.Size,
		Content:  raw,
		Style:    n.Style,
	}, nil
}

// DefaultNodeSpec returns the starting content and size for a new node of type t.
func DefaultNodeSpec(t NodeType) NodeSpec {
	size := Size{Width: 300, Height: 200}
	switch t {
	case NodeTypeTaskList:
		size = Size{Width: 350, Height: 400}
	case NodeTypePomodoro:
		size = Size{Width: 300, Height: 250}
	case NodeTypeCode:
		size = Size{Width: 500, Height: 400}
	}
	raw, _ := json.Marshal(defaultContent(t))
	return NodeSpec{Type: t, Size: size, Content: raw}
}

type NodeRepository interface {
	CreateNode(ctx context.Context, n *Node) error
	GetNode(ctx context.Context, id string) (*Node, error)
	ListNodes(ctx context.Context, boardID string) ([]Node, error)
	UpdateNode(ctx context.Context, n *Node) error
	// UpdateNodes writes several nodes as one unit.
	UpdateNodes(ctx context.Context, nodes []Node) error
	DeleteNode(ctx context.Context, id string) error
	DeleteNodesByBoard(ctx context.Context, boardID string) error
	// DeleteOrphanNodes removes nodes whose board no longer exists.
	DeleteOrphanNodes(ctx context.Context) (int64, error)
}
