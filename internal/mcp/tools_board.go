package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"canvasboard/internal/domain"
)

func (s *Server) registerBoardTools() {
	// ── list_boards ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_boards",
		mcp.WithDescription("List all boards"),
	), s.handleListBoards)

	// ── create_board ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_board",
		mcp.WithDescription("Create a new board and make it the active board"),
		mcp.WithString("title", mcp.Description("Board title"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Board description (optional)")),
	), s.handleCreateBoard)

	// ── set_active_board ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_active_board",
		mcp.WithDescription("Set the active board for subsequent tool calls. Tools that accept boardId will default to this."),
		mcp.WithString("boardId", mcp.Description("ID of the board to make active"), mcp.Required()),
	), s.handleSetActiveBoard)
}

func (s *Server) handleListBoards(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	boards, err := s.boards.ListBoards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	return jsonResult(boards)
}

func (s *Server) handleCreateBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := req.GetString("title", "")
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	b, err := s.boards.CreateBoard(ctx, domain.Board{
		Title:       title,
		Description: req.GetString("description", ""),
	})
	if err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}
	s.setActiveBoard(b.ID)
	return jsonResult(b)
}

func (s *Server) handleSetActiveBoard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("boardId", "")
	if id == "" {
		return nil, fmt.Errorf("boardId is required")
	}
	if _, err := s.boards.GetBoard(ctx, id); err != nil {
		return nil, fmt.Errorf("get board %s: %w", id, err)
	}
	s.setActiveBoard(id)
	return textResult(fmt.Sprintf("Active board set to %s", id)), nil
}
