package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"canvasboard/internal/domain"
	"canvasboard/internal/service"
)

// ─────────────────────────────────────────────────────────────
// NodeService tests (sqlite-backed)
// ─────────────────────────────────────────────────────────────

func stickySpec(boardID, text string) domain.NodeSpec {
	raw, _ := json.Marshal(domain.StickyContent{Text: text, Color: "yellow"})
	return domain.NodeSpec{
		BoardID:  boardID,
		Type:     domain.NodeTypeSticky,
		Position: domain.Position{X: 10, Y: 20, ZIndex: 1},
		Size:     domain.Size{Width: 250, Height: 200},
		Content:  raw,
	}
}

func TestNodeService_CreateAssignsID(t *testing.T) {
	_, nodes := openStores(t)
	emitter := &service.MockEmitter{}
	svc := service.NewNodeService(nodes, emitter)
	ctx := context.Background()

	n, err := svc.CreateNode(ctx, stickySpec("b1", "hello"))
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	if n.ID == "" {
		t.Fatal("expected server-assigned id")
	}
	if n.CreatedAt.IsZero() {
		t.Error("expected createdAt to be set")
	}
	got, err := svc.GetNode(ctx, n.ID)
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if c, ok := got.Content.(*domain.StickyContent); !ok || c.Text != "hello" {
		t.Errorf("content = %#v", got.Content)
	}
	if emitter.Count(service.EventNodesChanged) != 1 {
		t.Errorf("events = %+v", emitter.Events)
	}
}

func TestNodeService_CreateValidation(t *testing.T) {
	_, nodes := openStores(t)
	svc := service.NewNodeService(nodes, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		spec domain.NodeSpec
	}{
		{"missing board", stickySpec("", "x")},
		{"unknown type", domain.NodeSpec{BoardID: "b1", Type: "widget"}},
		{"bad content", domain.NodeSpec{BoardID: "b1", Type: domain.NodeTypeSticky, Content: json.RawMessage(`[1,2]`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateNode(ctx, tt.spec)
			if !service.IsValidation(err) {
				t.Errorf("err = %v, want validation error", err)
			}
		})
	}
}

func TestNodeService_UpdateMerges(t *testing.T) {
	_, nodes := openStores(t)
	svc := service.NewNodeService(nodes, nil)
	ctx := context.Background()

	n, _ := svc.CreateNode(ctx, stickySpec("b1", "before"))

	patch := domain.NodePatch{
		Position: &domain.PositionPatch{X: domain.Ptr(120.0)},
		Size:     &domain.SizePatch{Width: domain.Ptr(50.0)},
		Content:  json.RawMessage(`{"text":"after"}`),
	}
	got, err := svc.UpdateNode(ctx, n.ID, patch)
	if err != nil {
		t.Fatalf("UpdateNode: %v", err)
	}
	if got.Position.X != 120 || got.Position.Y != 20 {
		t.Errorf("position = %+v, want x=120 y=20", got.Position)
	}
	if got.Size.Width != domain.MinNodeWidth {
		t.Errorf("width = %v, want clamped to %v", got.Size.Width, domain.MinNodeWidth)
	}
	c := got.Content.(*domain.StickyContent)
	if c.Text != "after" || c.Color != "yellow" {
		t.Errorf("content = %+v, want merged text with color kept", c)
	}
}

func TestNodeService_NotFound(t *testing.T) {
	_, nodes := openStores(t)
	svc := service.NewNodeService(nodes, nil)
	ctx := context.Background()

	if _, err := svc.UpdateNode(ctx, "missing", domain.MovePatch(1, 1)); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("UpdateNode err = %v", err)
	}
	if err := svc.DeleteNode(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("DeleteNode err = %v", err)
	}
}

func TestNodeService_BulkUpdateAllOrNothing(t *testing.T) {
	_, nodes := openStores(t)
	svc := service.NewNodeService(nodes, nil)
	ctx := context.Background()

	a, _ := svc.CreateNode(ctx, stickySpec("b1", "a"))
	b, _ := svc.CreateNode(ctx, stickySpec("b1", "b"))

	_, err := svc.BulkUpdate(ctx, []domain.NodeUpdate{
		{ID: a.ID, NodePatch: domain.MovePatch(500, 500)},
		{ID: "missing", NodePatch: domain.MovePatch(1, 1)},
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	got, _ := svc.GetNode(ctx, a.ID)
	if got.Position.X != 10 {
		t.Errorf("partial bulk update leaked: %+v", got.Position)
	}

	out, err := svc.BulkUpdate(ctx, []domain.NodeUpdate{
		{ID: a.ID, NodePatch: domain.MovePatch(500, 500)},
		{ID: b.ID, NodePatch: domain.NodePatch{Locked: domain.Ptr(true)}},
	})
	if err != nil {
		t.Fatalf("BulkUpdate: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("updated %d nodes", len(out))
	}
	got, _ = svc.GetNode(ctx, b.ID)
	if !got.Locked {
		t.Error("expected b locked")
	}
}

func TestNodeService_ListEmptyIsNotNil(t *testing.T) {
	_, nodes := openStores(t)
	svc := service.NewNodeService(nodes, nil)
	got, err := svc.ListNodes(context.Background(), "nothing-here")
	if err != nil {
		t.Fatalf("ListNodes: %v", err)
	}
	if got == nil {
		t.Error("expected empty slice, got nil")
	}
}

func TestNodeService_BulkUpdateRepeatedID(t *testing.T) {
	_, nodes := openStores(t)
	svc := service.NewNodeService(nodes, nil)
	ctx := context.Background()

	a, _ := svc.CreateNode(ctx, stickySpec("b1", "a"))
	out, err := svc.BulkUpdate(ctx, []domain.NodeUpdate{
		{ID: a.ID, NodePatch: domain.NodePatch{Position: &domain.PositionPatch{X: domain.Ptr(300.0)}}},
		{ID: a.ID, NodePatch: domain.NodePatch{Position: &domain.PositionPatch{Y: domain.Ptr(400.0)}}},
		{ID: a.ID, NodePatch: domain.NodePatch{Locked: domain.Ptr(true)}},
	})
	if err != nil {
		t.Fatalf("BulkUpdate: %v", err)
	}
	if len(out) != 1 {
		t.Errorf("returned %d nodes, want 1", len(out))
	}
	got, _ := svc.GetNode(ctx, a.ID)
	if got.Position.X != 300 || got.Position.Y != 400 || !got.Locked {
		t.Errorf("stored %+v locked=%v, want (300, 400) locked", got.Position, got.Locked)
	}
}

func TestNodeService_TypeChangeConvertsContent(t *testing.T) {
	_, nodes := openStores(t)
	svc := service.NewNodeService(nodes, nil)
	ctx := context.Background()

	n, _ := svc.CreateNode(ctx, stickySpec("b1", "note"))
	code := domain.NodeTypeCode
	if _, err := svc.UpdateNode(ctx, n.ID, domain.NodePatch{Type: &code}); err != nil {
		t.Fatalf("UpdateNode: %v", err)
	}
	got, err := svc.GetNode(ctx, n.ID)
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	c, ok := got.Content.(*domain.CodeContent)
	if got.Type != domain.NodeTypeCode || !ok {
		t.Fatalf("type %s content %T, want code / *CodeContent", got.Type, got.Content)
	}
	if c.Language != "javascript" {
		t.Errorf("language = %q, want default", c.Language)
	}
}
