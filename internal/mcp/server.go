package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"canvasboard/internal/domain"
	"canvasboard/internal/layout"
	"canvasboard/internal/service"
)

// Server is the MCP server for canvas boards. It lets agents list, place
// and rearrange nodes through the same services the REST API uses.
type Server struct {
	mcp      *server.MCPServer
	approval *ApprovalPolicy

	nodes  *service.NodeService
	boards *service.BoardService

	mu            sync.Mutex
	activeBoardID string
}

// Deps holds what the MCP server needs from the process hosting it.
type Deps struct {
	Nodes  *service.NodeService
	Boards *service.BoardService
	// AllowDestructive lets delete tools run without a human in the loop.
	AllowDestructive bool
}

func New(deps Deps) *Server {
	s := &Server{
		approval: NewApprovalPolicy(deps.AllowDestructive),
		nodes:    deps.Nodes,
		boards:   deps.Boards,
	}

	s.mcp = server.NewMCPServer(
		"canvasboard-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	s.registerBoardTools()
	s.registerNodeTools()
	s.registerResources()

	return s
}

// ServeStdio serves MCP on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func (s *Server) setActiveBoard(id string) {
	s.mu.Lock()
	s.activeBoardID = id
	s.mu.Unlock()
}

// resolveBoardID returns the boardId argument, falling back to the
// active board.
func (s *Server) resolveBoardID(args map[string]any) (string, error) {
	if id, ok := args["boardId"].(string); ok && id != "" {
		return id, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeBoardID != "" {
		return s.activeBoardID, nil
	}
	return "", fmt.Errorf("no boardId provided and no active board set (use set_active_board first)")
}

func (s *Server) getNodeForTool(ctx context.Context, args map[string]any) (*domain.Node, error) {
	id, ok := args["nodeId"].(string)
	if !ok || id == "" {
		return nil, fmt.Errorf("nodeId is required")
	}
	return s.nodes.GetNode(ctx, id)
}

func (s *Server) layoutFor(ctx context.Context, boardID string) *layout.Engine {
	b, err := s.boards.GetBoard(ctx, boardID)
	if err != nil {
		return layout.NewEngine(0)
	}
	return layout.ForBoard(b)
}

func getFloat(args map[string]any, key string, fallback float64) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}
	return fallback
}

func boolPtr(v bool) *bool { return &v }
