package domain

import (
	"bytes"
	"encoding/json"
)

type PositionPatch struct {
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	ZIndex *int64   `json:"zIndex,omitempty"`
}

type SizePatch struct {
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
}

// NodePatch is a partial node update. Nil fields are left untouched;
// Position, Size and Content merge field-by-field into the node.
type NodePatch struct {
	Type        *NodeType       `json:"type,omitempty"`
	Position    *PositionPatch  `json:"position,omitempty"`
	Size        *SizePatch      `json:"size,omitempty"`
	Content     json.RawMessage `json:"content,omitempty"`
	Style       *Style          `json:"style,omitempty"`
	Locked      *bool           `json:"locked,omitempty"`
	Connections *[]string       `json:"connections,omitempty"`
}

// NodeUpdate is one entry of a bulk update: an id plus its patch fields.
type NodeUpdate struct {
	ID string `json:"_id"`
	NodePatch
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

// MovePatch sets the x/y position.
func MovePatch(x, y float64) NodePatch {
	return NodePatch{Position: &PositionPatch{X: &x, Y: &y}}
}

// GeometryPatch sets position and size together.
func GeometryPatch(x, y, w, h float64) NodePatch {
	return NodePatch{
		Position: &PositionPatch{X: &x, Y: &y},
		Size:     &SizePatch{Width: &w, Height: &h},
	}
}

func (p NodePatch) IsEmpty() bool {
	return p.Type == nil && p.Position == nil && p.Size == nil &&
		len(bytes.TrimSpace(p.Content)) == 0 && p.Style == nil &&
		p.Locked == nil && p.Connections == nil
}

// Merge returns p with the fields set in later applied on top. Sub-objects
// merge field-by-field, so a later x-only move keeps an earlier y.
func (p NodePatch) Merge(later NodePatch) NodePatch {
	out := p
	if later.Type != nil {
		out.Type = later.Type
	}
	if later.Position != nil {
		pp := PositionPatch{}
		if p.Position != nil {
			pp = *p.Position
		}
		if later.Position.X != nil {
			pp.X = later.Position.X
		}
		if later.Position.Y != nil {
			pp.Y = later.Position.Y
		}
		if later.Position.ZIndex != nil {
			pp.ZIndex = later.Position.ZIndex
		}
		out.Position = &pp
	}
	if later.Size != nil {
		sp := SizePatch{}
		if p.Size != nil {
			sp = *p.Size
		}
		if later.Size.Width != nil {
			sp.Width = later.Size.Width
		}
		if later.Size.Height != nil {
			sp.Height = later.Size.Height
		}
		out.Size = &sp
	}
	if len(bytes.TrimSpace(later.Content)) > 0 {
		out.Content = mergeObjects(p.Content, later.Content)
	}
	if later.Style != nil {
		out.Style = later.Style
	}
	if later.Locked != nil {
		out.Locked = later.Locked
	}
	if later.Connections != nil {
		out.Connections = later.Connections
	}
	return out
}

// Apply merges p into n. Size is re-clamped to the node minimums. The
// node is left unchanged when the content part of the patch is invalid.
func (p NodePatch) Apply(n *Node) error {
	t := n.Type
	if p.Type != nil {
		t = *p.Type
	}
	content := n.Content
	if len(bytes.TrimSpace(p.Content)) > 0 || t != n.Type {
		c, err := MergeContent(t, n.Content, p.Content)
		if err != nil {
			return err
		}
		content = c
	}
	n.Type = t
	n.Content = content
	if p.Position != nil {
		if p.Position.X != nil {
			n.Position.X = *p.Position.X
		}
		if p.Position.Y != nil {
			n.Position.Y = *p.Position.Y
		}
		if p.Position.ZIndex != nil {
			n.Position.ZIndex = *p.Position.ZIndex
		}
	}
	if p.Size != nil {
		if p.Size.Width != nil {
			n.Size.Width = *p.Size.Width
		}
		if p.Size.Height != nil {
			n.Size.Height = *p.Size.Height
		}
	}
	n.Size = n.Size.Clamp()
	if p.Style != nil {
		n.Style = *p.Style
	}
	if p.Locked != nil {
		n.Locked = *p.Locked
	}
	if p.Connections != nil {
		n.Connections = append([]string(nil), (*p.Connections)...)
	}
	return nil
}

// mergeObjects overlays the top-level keys of b onto a. If either side is
// not an object, b wins.
func mergeObjects(a, b json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(a)) == 0 {
		return b
	}
	var am, bm map[string]json.RawMessage
	if json.Unmarshal(a, &am) != nil || json.Unmarshal(b, &bm) != nil {
		return b
	}
	for k, v := range bm {
		am[k] = v
	}
	out, err := json.Marshal(am)
	if err != nil {
		return b
	}
	return out
}
