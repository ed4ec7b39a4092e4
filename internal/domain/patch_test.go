package domain_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"canvasboard/internal/domain"
)

func buildNode(t *testing.T, typ domain.NodeType, content string) *domain.Node {
	t.Helper()
	n, err := domain.NodeSpec{BoardID: "b1", Type: typ, Content: json.RawMessage(content)}.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return n
}

// ─────────────────────────────────────────────────────────────
// Merge
// ─────────────────────────────────────────────────────────────

func TestMerge_SubObjectsFieldByField(t *testing.T) {
	z := int64(9)
	p := domain.MovePatch(10, 20).Merge(domain.NodePatch{Position: &domain.PositionPatch{ZIndex: &z}})
	if *p.Position.X != 10 || *p.Position.Y != 20 || *p.Position.ZIndex != 9 {
		t.Errorf("position = %+v", p.Position)
	}

	w, h := 400.0, 300.0
	p = domain.NodePatch{Size: &domain.SizePatch{Width: &w}}.Merge(domain.NodePatch{Size: &domain.SizePatch{Height: &h}})
	if *p.Size.Width != 400 || *p.Size.Height != 300 {
		t.Errorf("size = %+v", p.Size)
	}

	x := 99.0
	p = domain.MovePatch(1, 2).Merge(domain.NodePatch{Position: &domain.PositionPatch{X: &x}})
	if *p.Position.X != 99 || *p.Position.Y != 2 {
		t.Errorf("later x-only move = %+v", p.Position)
	}
}

func TestMerge_ContentObjectsCombine(t *testing.T) {
	p := domain.NodePatch{Content: json.RawMessage(`{"text":"a","color":"pink"}`)}.
		Merge(domain.NodePatch{Content: json.RawMessage(`{"text":"b"}`)})
	var got map[string]string
	if err := json.Unmarshal(p.Content, &got); err != nil {
		t.Fatalf("merged content %s: %v", p.Content, err)
	}
	if got["text"] != "b" || got["color"] != "pink" {
		t.Errorf("merged content = %v", got)
	}
}

func TestMerge_LeavesEarlierFieldsAlone(t *testing.T) {
	locked := true
	p := domain.NodePatch{Locked: &locked}.Merge(domain.MovePatch(1, 1))
	if p.Locked == nil || !*p.Locked {
		t.Error("locked dropped by merge")
	}
	if (domain.NodePatch{}).IsEmpty() != true || p.IsEmpty() {
		t.Error("IsEmpty mismatch")
	}
	if !(domain.NodePatch{Content: json.RawMessage("  ")}).IsEmpty() {
		t.Error("blank content should count as empty")
	}
}

// ─────────────────────────────────────────────────────────────
// Apply
// ─────────────────────────────────────────────────────────────

func TestApply_DeepMergesContent(t *testing.T) {
	n := buildNode(t, domain.NodeTypeSticky, `{"text":"a","color":"pink"}`)
	if err := (domain.NodePatch{Content: json.RawMessage(`{"text":"b"}`)}).Apply(n); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	c := n.Content.(*domain.StickyContent)
	if c.Text != "b" || c.Color != "pink" {
		t.Errorf("content = %+v", c)
	}
}

func TestApply_InvalidContentLeavesNodeUnchanged(t *testing.T) {
	n := buildNode(t, domain.NodeTypeSticky, `{"text":"a"}`)
	before := n.Clone()
	patch := domain.MovePatch(500, 500)
	patch.Content = json.RawMessage(`{"color":"plaid"}`)

	if err := patch.Apply(n); !errors.Is(err, domain.ErrInvalidContent) {
		t.Fatalf("err = %v, want invalid content", err)
	}
	if n.Position != before.Position || n.Content.(*domain.StickyContent).Color != "yellow" {
		t.Errorf("node changed by rejected patch: %+v", n)
	}
}

func TestApply_TypeChangeConvertsContent(t *testing.T) {
	tests := []struct {
		name    string
		to      domain.NodeType
		content string
		check   func(t *testing.T, c domain.Content)
	}{
		{"sticky to code", domain.NodeTypeCode, "", func(t *testing.T, c domain.Content) {
			cc, ok := c.(*domain.CodeContent)
			if !ok || cc.Language != "javascript" {
				t.Errorf("content %T %+v, want default *CodeContent", c, c)
			}
		}},
		{"sticky to markdown keeps text", domain.NodeTypeMarkdown, "", func(t *testing.T, c domain.Content) {
			rt, ok := c.(*domain.RichTextContent)
			if !ok || rt.Text != "hello" {
				t.Errorf("content %T %+v, want *RichTextContent with text", c, c)
			}
		}},
		{"sticky to pomodoro with patch", domain.NodeTypePomodoro, `{"workDuration":50}`, func(t *testing.T, c domain.Content) {
			p, ok := c.(*domain.PomodoroContent)
			if !ok || p.WorkDuration != 50 || p.BreakDuration != 5 {
				t.Errorf("content %T %+v", c, c)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := buildNode(t, domain.NodeTypeSticky, `{"text":"hello"}`)
			to := tt.to
			if err := (domain.NodePatch{Type: &to, Content: json.RawMessage(tt.content)}).Apply(n); err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if n.Type != tt.to {
				t.Errorf("type = %s, want %s", n.Type, tt.to)
			}
			tt.check(t, n.Content)
		})
	}
}

func TestApply_TypeChangeRejectsIncompatibleContent(t *testing.T) {
	n := buildNode(t, domain.NodeTypeSticky, `{"text":"a"}`)
	pom := domain.NodeTypePomodoro
	err := domain.NodePatch{Type: &pom, Content: json.RawMessage(`{"currentMode":"nap"}`)}.Apply(n)
	if !errors.Is(err, domain.ErrInvalidContent) {
		t.Fatalf("err = %v, want invalid content", err)
	}
	if n.Type != domain.NodeTypeSticky {
		t.Errorf("type changed to %s by rejected patch", n.Type)
	}
}

func TestApply_ClampsSize(t *testing.T) {
	n := buildNode(t, domain.NodeTypeSticky, ``)
	w, h := 10.0, 1000.0
	if err := (domain.NodePatch{Size: &domain.SizePatch{Width: &w, Height: &h}}).Apply(n); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if n.Size.Width != domain.MinNodeWidth || n.Size.Height != 1000 {
		t.Errorf("size = %+v", n.Size)
	}
}

func TestSizeClamp(t *testing.T) {
	tests := []struct {
		in   domain.Size
		want domain.Size
	}{
		{domain.Size{Width: 300, Height: 200}, domain.Size{Width: 300, Height: 200}},
		{domain.Size{Width: 0, Height: 0}, domain.Size{Width: 200, Height: 150}},
		{domain.Size{Width: -50, Height: 149.9}, domain.Size{Width: 200, Height: 150}},
		{domain.Size{Width: math.NaN(), Height: math.NaN()}, domain.Size{Width: 200, Height: 150}},
		{domain.Size{Width: math.Inf(1), Height: 150}, domain.Size{Width: math.Inf(1), Height: 150}},
		{domain.Size{Width: math.Inf(-1), Height: 151}, domain.Size{Width: 200, Height: 151}},
	}
	for _, tt := range tests {
		if got := tt.in.Clamp(); got != tt.want {
			t.Errorf("Clamp(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}
