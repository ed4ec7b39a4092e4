package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Content is the type-specific payload of a node. Each node type maps to
// exactly one variant; DecodeContent picks it from the type tag.
type Content interface {
	Validate() error
	isContent()
}

type StickyContent struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

var stickyColors = map[string]bool{"yellow": true, "pink": true, "blue": true, "green": true, "orange": true}

func (c *StickyContent) Validate() error {
	if c.Color == "" {
		c.Color = "yellow"
	}
	if !stickyColors[c.Color] {
		return fmt.Errorf("%w: sticky color %q", ErrInvalidContent, c.Color)
	}
	return nil
}

type Task struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

type TaskListContent struct {
	Title string `json:"title"`
	Tasks []Task `json:"tasks"`
}

func (c *TaskListContent) Validate() error {
	for i, t := range c.Tasks {
		if t.ID == "" {
			return fmt.Errorf("%w: task %d has no id", ErrInvalidContent, i)
		}
	}
	if c.Tasks == nil {
		c.Tasks = []Task{}
	}
	return nil
}

type CodeContent struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	Output   string `json:"output"`
}

func (c *CodeContent) Validate() error {
	if c.Language == "" {
		c.Language = "javascript"
	}
	return nil
}

type PomodoroContent struct {
	WorkDuration      int    `json:"workDuration"`
	BreakDuration     int    `json:"breakDuration"`
	SoundEnabled      bool   `json:"soundEnabled"`
	CurrentMode       string `json:"currentMode"`
	TimeLeft          int    `json:"timeLeft"`
	IsRunning         bool   `json:"isRunning"`
	SessionsCompleted int    `json:"sessionsCompleted"`
}

func (c *PomodoroContent) Validate() error {
	switch {
	case c.WorkDuration <= 0 || c.BreakDuration <= 0:
		return fmt.Errorf("%w: pomodoro durations must be positive", ErrInvalidContent)
	case c.TimeLeft < 0 || c.SessionsCompleted < 0:
		return fmt.Errorf("%w: pomodoro counters must not be negative", ErrInvalidContent)
	case c.CurrentMode != "work" && c.CurrentMode != "break":
		return fmt.Errorf("%w: pomodoro mode %q", ErrInvalidContent, c.CurrentMode)
	}
	return nil
}

type KanbanCard struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type KanbanColumn struct {
	ID    string       `json:"id"`
	Title string       `json:"title"`
	Color string       `json:"color"`
	Cards []KanbanCard `json:"cards"`
}

type KanbanContent struct {
	Columns []KanbanColumn `json:"columns"`
}

func (c *KanbanContent) Validate() error {
	seen := make(map[string]bool, len(c.Columns))
	for _, col := range c.Columns {
		if col.ID == "" || seen[col.ID] {
			return fmt.Errorf("%w: kanban column id %q", ErrInvalidContent, col.ID)
		}
		seen[col.ID] = true
	}
	return nil
}

// RichTextContent backs both the rich text editor (html) and markdown (text) nodes.
type RichTextContent struct {
	HTML string `json:"html,omitempty"`
	Text string `json:"text,omitempty"`
}

func (c *RichTextContent) Validate() error { return nil }

type CalendarEvent struct {
	Date  string `json:"date"`
	Title string `json:"title"`
	Color string `json:"color"`
}

type CalendarContent struct {
	Events    []CalendarEvent `json:"events"`
	ViewYear  int             `json:"viewYear"`
	ViewMonth int             `json:"viewMonth"` // 0-based, January = 0
}

func (c *CalendarContent) Validate() error {
	if c.ViewMonth < 0 || c.ViewMonth > 11 {
		return fmt.Errorf("%w: calendar month %d", ErrInvalidContent, c.ViewMonth)
	}
	for _, e := range c.Events {
		if _, err := time.Parse("2006-01-02", e.Date); err != nil {
			return fmt.Errorf("%w: calendar date %q", ErrInvalidContent, e.Date)
		}
	}
	if c.Events == nil {
		c.Events = []CalendarEvent{}
	}
	return nil
}

type Stroke struct {
	Points []Point `json:"points"`
	Color  string  `json:"color"`
	Width  float64 `json:"width"`
}

type DrawingContent struct {
	Strokes         []Stroke `json:"strokes"`
	BackgroundColor string   `json:"backgroundColor"`
}

func (c *DrawingContent) Validate() error {
	for i, s := range c.Strokes {
		if s.Width < 0 {
			return fmt.Errorf("%w: stroke %d width %v", ErrInvalidContent, i, s.Width)
		}
	}
	if c.Strokes == nil {
		c.Strokes = []Stroke{}
	}
	return nil
}

type ImageContent struct {
	ImageURL string `json:"imageUrl"`
	Caption  string `json:"caption"`
}

func (c *ImageContent) Validate() error { return nil }

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatContent struct {
	Messages     []ChatMessage `json:"messages"`
	SystemPrompt string        `json:"systemPrompt"`
}

func (c *ChatContent) Validate() error {
	for _, m := range c.Messages {
		switch m.Role {
		case "system", "user", "assistant":
		default:
			return fmt.Errorf("%w: chat role %q", ErrInvalidContent, m.Role)
		}
	}
	if c.Messages == nil {
		c.Messages = []ChatMessage{}
	}
	return nil
}

// GenericContent holds the payload of node kinds without a dedicated schema.
type GenericContent map[string]any

func (c GenericContent) Validate() error { return nil }

func (*StickyContent) isContent()   {}
func (*TaskListContent) isContent() {}
func (*CodeContent) isContent()     {}
func (*PomodoroContent) isContent() {}
func (*KanbanContent) isContent()   {}
func (*RichTextContent) isContent() {}
func (*CalendarContent) isContent() {}
func (*DrawingContent) isContent()  {}
func (*ImageContent) isContent()    {}
func (*ChatContent) isContent()     {}
func (GenericContent) isContent()   {}

func defaultContent(t NodeType) Content {
	switch t {
	case NodeTypeSticky:
		return &StickyContent{Color: "yellow"}
	case NodeTypeTaskList:
		return &TaskListContent{Title: "Task List", Tasks: []Task{}}
	case NodeTypeCode:
		return &CodeContent{Language: "javascript"}
	case NodeTypePomodoro:
		return &PomodoroContent{
			WorkDuration:  25,
			BreakDuration: 5,
			SoundEnabled:  true,
			CurrentMode:   "work",
			TimeLeft:      25 * 60,
		}
	case NodeTypeKanban:
		return &KanbanContent{Columns: []KanbanColumn{
			{ID: "todo", Title: "To Do", Color: "#ef4444", Cards: []KanbanCard{}},
			{ID: "progress", Title: "In Progress", Color: "#f59e0b", Cards: []KanbanCard{}},
			{ID: "done", Title: "Done", Color: "#10b981", Cards: []KanbanCard{}},
		}}
	case NodeTypeTextEditor:
		return &RichTextContent{HTML: "<p>Start typing...</p>"}
	case NodeTypeMarkdown:
		return &RichTextContent{}
	case NodeTypeCalendar:
		now := time.Now()
		return &CalendarContent{Events: []CalendarEvent{}, ViewYear: now.Year(), ViewMonth: int(now.Month()) - 1}
	case NodeTypeDrawing, NodeTypeCanvas:
		return &DrawingContent{Strokes: []Stroke{}, BackgroundColor: "#ffffff"}
	case NodeTypeImage:
		return &ImageContent{}
	case NodeTypeAIChat, NodeTypeAIChatLegacy:
		return &ChatContent{Messages: []ChatMessage{}, SystemPrompt: "You are a helpful assistant. Be concise."}
	default:
		return GenericContent{}
	}
}

// DecodeContent decodes raw into the variant for t. Fields absent from raw
// keep their defaults. An empty or null payload yields the defaults.
func DecodeContent(t NodeType, raw json.RawMessage) (Content, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNodeType, t)
	}
	c := defaultContent(t)
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if trimmed[0] != '{' {
			return nil, fmt.Errorf("%w: %s payload must be an object", ErrInvalidContent, t)
		}
		if g, ok := c.(GenericContent); ok {
			if err := json.Unmarshal(trimmed, &g); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
			}
			c = g
		} else if err := json.Unmarshal(trimmed, c); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidContent, t, err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// MergeContent overlays the top-level fields of patch onto existing and
// decodes the result as the variant for t. Fields the patch does not name
// are preserved. With an empty patch, existing is re-read as t, which is
// how a type change converts the content.
func MergeContent(t NodeType, existing Content, patch json.RawMessage) (Content, error) {
	base := map[string]json.RawMessage{}
	if existing != nil {
		data, err := json.Marshal(existing)
		if err != nil {
			return nil, fmt.Errorf("encode content: %w", err)
		}
		if err := json.Unmarshal(data, &base); err != nil {
			return nil, fmt.Errorf("decode content: %w", err)
		}
	}
	var over map[string]json.RawMessage
	if len(bytes.TrimSpace(patch)) > 0 {
		if err := json.Unmarshal(patch, &over); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
		}
	}
	for k, v := range over {
		base[k] = v
	}
	merged, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}
	return DecodeContent(t, merged)
}

// EncodeContent marshals a content value for use in a patch.
func EncodeContent(c any) json.RawMessage {
	data, err := json.Marshal(c)
	if err != nil {
		return nil
	}
	return data
}

func cloneContent(t NodeType, c Content) (Content, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return DecodeContent(t, data)
}
