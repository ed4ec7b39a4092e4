package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"canvasboard/internal/domain"
	"canvasboard/internal/interaction"
	"canvasboard/internal/selection"
)

func (s *Server) registerNodeTools() {
	// ── create_node ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_node",
		mcp.WithDescription("Create a new node on a board. Position is auto-calculated if not provided. The node is stacked above every existing node."),
		mcp.WithString("type",
			mcp.Description("Node type: sticky, tasklist, code, pomodoro, kanban, markdown, texteditor, drawing, calendar, image, ai-chat, ..."),
			mcp.Required(),
		),
		mcp.WithString("boardId", mcp.Description("Board ID (optional, defaults to active board)")),
		mcp.WithNumber("x", mcp.Description("X position (optional, auto-layout if omitted)")),
		mcp.WithNumber("y", mcp.Description("Y position (optional, auto-layout if omitted)")),
		mcp.WithNumber("width", mcp.Description("Width (optional, uses the type default)")),
		mcp.WithNumber("height", mcp.Description("Height (optional, uses the type default)")),
		mcp.WithString("content", mcp.Description("Initial content as a JSON object (optional)")),
	), s.handleCreateNode)

	// ── list_nodes ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_nodes",
		mcp.WithDescription("List the nodes on a board in render order (bottom first), optionally filtered by type"),
		mcp.WithString("boardId", mcp.Description("Board ID (optional, defaults to active board)")),
		mcp.WithString("type", mcp.Description("Filter by node type (optional)")),
	), s.handleListNodes)

	// ── update_node_content ────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_node_content",
		mcp.WithDescription("Merge fields into a node's content. Fields not named are kept."),
		mcp.WithString("nodeId", mcp.Description("Node ID"), mcp.Required()),
		mcp.WithString("content", mcp.Description("JSON object with the fields to set"), mcp.Required()),
	), s.handleUpdateNodeContent)

	// ── move_node ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_node",
		mcp.WithDescription("Move a node to a new canvas position"),
		mcp.WithString("nodeId", mcp.Description("Node ID"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("New X position"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("New Y position"), mcp.Required()),
	), s.handleMoveNode)

	// ── resize_node ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("resize_node",
		mcp.WithDescription("Resize a node. Sizes below 200×150 are raised to the minimum."),
		mcp.WithString("nodeId", mcp.Description("Node ID"), mcp.Required()),
		mcp.WithNumber("width", mcp.Description("New width"), mcp.Required()),
		mcp.WithNumber("height", mcp.Description("New height"), mcp.Required()),
	), s.handleResizeNode)

	// ── lock_node ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("lock_node",
		mcp.WithDescription("Lock or unlock a node. Locked nodes cannot be dragged or resized."),
		mcp.WithString("nodeId", mcp.Description("Node ID"), mcp.Required()),
		mcp.WithBoolean("locked", mcp.Description("true to lock, false to unlock"), mcp.Required()),
	), s.handleLockNode)

	// ── bring_to_front ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("bring_to_front",
		mcp.WithDescription("Stack a node above every other node on its board"),
		mcp.WithString("nodeId", mcp.Description("Node ID"), mcp.Required()),
	), s.handleBringToFront)

	// ── arrange_nodes ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("arrange_nodes",
		mcp.WithDescription("Auto-arrange the unlocked nodes of a board in a grid"),
		mcp.WithString("boardId", mcp.Description("Board ID (optional, defaults to active board)")),
		mcp.WithNumber("startX", mcp.Description("Starting X position (default 0)")),
		mcp.WithNumber("startY", mcp.Description("Starting Y position (default 0)")),
	), s.handleArrangeNodes)

	// ── delete_node (destructive) ──────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_node",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a node. Only allowed when the server runs with --allow-destructive."),
		mcp.WithString("nodeId", mcp.Description("Node ID to delete"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteNode)
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleCreateNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	typ, err := domain.ParseNodeType(req.GetString("type", ""))
	if err != nil {
		return nil, err
	}
	boardID, err := s.resolveBoardID(args)
	if err != nil {
		return nil, err
	}

	spec := domain.DefaultNodeSpec(typ)
	spec.BoardID = boardID
	spec.Size.Width = getFloat(args, "width", spec.Size.Width)
	spec.Size.Height = getFloat(args, "height", spec.Size.Height)
	if raw := req.GetString("content", ""); raw != "" {
		if !json.Valid([]byte(raw)) {
			return nil, fmt.Errorf("content is not valid JSON")
		}
		spec.Content = json.RawMessage(raw)
	}

	existing, err := s.nodes.ListNodes(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	x, hasX := args["x"].(float64)
	y, hasY := args["y"].(float64)
	if !hasX || !hasY {
		p := s.layoutFor(ctx, boardID).NextPosition(existing, spec.Size.Clamp())
		x, y = p.X, p.Y
	}
	spec.Position = domain.Position{X: x, Y: y, ZIndex: interaction.NextZIndex(time.Now(), maxZ(existing))}

	n, err := s.nodes.CreateNode(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("create node: %w", err)
	}
	return jsonResult(summarizeNode(*n))
}

func (s *Server) handleListNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	boardID, err := s.resolveBoardID(req.GetArguments())
	if err != nil {
		return nil, err
	}
	nodes, err := s.nodes.ListNodes(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}

	filter := req.GetString("type", "")
	summaries := []nodeSummary{}
	for _, n := range selection.RenderOrder(nodes) {
		if filter != "" && string(n.Type) != filter {
			continue
		}
		summaries = append(summaries, summarizeNode(n))
	}
	return jsonResult(summaries)
}

func (s *Server) handleUpdateNodeContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := s.getNodeForTool(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	raw := req.GetString("content", "")
	if !json.Valid([]byte(raw)) {
		return nil, fmt.Errorf("content is not valid JSON")
	}
	if _, err := s.nodes.UpdateNode(ctx, n.ID, domain.NodePatch{Content: json.RawMessage(raw)}); err != nil {
		return nil, fmt.Errorf("update content: %w", err)
	}
	return textResult(fmt.Sprintf("Node %s content updated", n.ID)), nil
}

func (s *Server) handleMoveNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	n, err := s.getNodeForTool(ctx, args)
	if err != nil {
		return nil, err
	}
	if n.Locked {
		return nil, fmt.Errorf("node %s is locked", n.ID)
	}
	x := getFloat(args, "x", n.Position.X)
	y := getFloat(args, "y", n.Position.Y)
	if _, err := s.nodes.UpdateNode(ctx, n.ID, domain.MovePatch(x, y)); err != nil {
		return nil, fmt.Errorf("move node: %w", err)
	}
	return textResult(fmt.Sprintf("Node %s moved to (%.0f, %.0f)", n.ID, x, y)), nil
}

func (s *Server) handleResizeNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	n, err := s.getNodeForTool(ctx, args)
	if err != nil {
		return nil, err
	}
	if n.Locked {
		return nil, fmt.Errorf("node %s is locked", n.ID)
	}
	w := getFloat(args, "width", n.Size.Width)
	h := getFloat(args, "height", n.Size.Height)
	saved, err := s.nodes.UpdateNode(ctx, n.ID, domain.NodePatch{Size: &domain.SizePatch{Width: &w, Height: &h}})
	if err != nil {
		return nil, fmt.Errorf("resize node: %w", err)
	}
	return textResult(fmt.Sprintf("Node %s resized to (%.0f × %.0f)", n.ID, saved.Size.Width, saved.Size.Height)), nil
}

func (s *Server) handleLockNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := s.getNodeForTool(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	locked := req.GetBool("locked", true)
	if _, err := s.nodes.UpdateNode(ctx, n.ID, domain.NodePatch{Locked: &locked}); err != nil {
		return nil, fmt.Errorf("lock node: %w", err)
	}
	state := "unlocked"
	if locked {
		state = "locked"
	}
	return textResult(fmt.Sprintf("Node %s %s", n.ID, state)), nil
}

func (s *Server) handleBringToFront(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := s.getNodeForTool(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	siblings, err := s.nodes.ListNodes(ctx, n.BoardID)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	z := interaction.NextZIndex(time.Now(), maxZ(siblings))
	if _, err := s.nodes.UpdateNode(ctx, n.ID, domain.NodePatch{Position: &domain.PositionPatch{ZIndex: &z}}); err != nil {
		return nil, fmt.Errorf("bring to front: %w", err)
	}
	return textResult(fmt.Sprintf("Node %s brought to front", n.ID)), nil
}

func (s *Server) handleArrangeNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	boardID, err := s.resolveBoardID(args)
	if err != nil {
		return nil, err
	}
	nodes, err := s.nodes.ListNodes(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}

	var movable []domain.Node
	for _, n := range selection.RenderOrder(nodes) {
		if !n.Locked {
			movable = append(movable, n)
		}
	}
	start := domain.Point{X: getFloat(args, "startX", 0), Y: getFloat(args, "startY", 0)}
	updates := s.layoutFor(ctx, boardID).ArrangeGroup(movable, start)
	if _, err := s.nodes.BulkUpdate(ctx, updates); err != nil {
		return nil, fmt.Errorf("arrange nodes: %w", err)
	}
	return textResult(fmt.Sprintf("Arranged %d nodes", len(updates))), nil
}

func (s *Server) handleDeleteNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := s.getNodeForTool(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	approved, err := s.approval.Request("delete_node", fmt.Sprintf("Delete %s node %s", n.Type, n.ID))
	if err != nil || !approved {
		return textResult("Action rejected: " + errString(err)), nil
	}
	if err := s.nodes.DeleteNode(ctx, n.ID); err != nil {
		return nil, fmt.Errorf("delete node: %w", err)
	}
	return textResult(fmt.Sprintf("Node %s deleted", n.ID)), nil
}

// ── Helper types ───────────────────────────────────────────

type nodeSummary struct {
	ID      string  `json:"id"`
	Type    string  `json:"type"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	ZIndex  int64   `json:"zIndex"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Locked  bool    `json:"locked,omitempty"`
	Preview string  `json:"preview"` // first 200 chars of content
}

func summarizeNode(n domain.Node) nodeSummary {
	preview := ""
	if data, err := json.Marshal(n.Content); err == nil {
		preview = string(data)
	}
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}
	return nodeSummary{
		ID:      n.ID,
		Type:    string(n.Type),
		X:       n.Position.X,
		Y:       n.Position.Y,
		ZIndex:  n.Position.ZIndex,
		Width:   n.Size.Width,
		Height:  n.Size.Height,
		Locked:  n.Locked,
		Preview: preview,
	}
}

func maxZ(nodes []domain.Node) int64 {
	var z int64
	for _, n := range nodes {
		if n.Position.ZIndex > z {
			z = n.Position.ZIndex
		}
	}
	return z
}

func errString(err error) string {
	if err == nil {
		return "not approved"
	}
	return err.Error()
}
