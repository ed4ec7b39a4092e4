package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"canvasboard/internal/selection"
)

const (
	boardsURI      = "canvas://boards"
	boardURIPrefix = "canvas://board/"
	nodesURISuffix = "/nodes"
)

func (s *Server) registerResources() {
	// ── canvas://boards ────────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		boardsURI,
		"All Boards",
		mcp.WithMIMEType("application/json"),
	), s.handleBoardsResource)

	// ── canvas://board/{boardId}/nodes ─────────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			boardURIPrefix+"{boardId}"+nodesURISuffix,
			"Nodes on a Board",
		),
		s.handleBoardNodesResource,
	)
}

func (s *Server) handleBoardsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	boards, err := s.boards.ListBoards(ctx)
	if err != nil {
		return nil, err
	}

	type boardSummary struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	summaries := make([]boardSummary, len(boards))
	for i, b := range boards {
		summaries[i] = boardSummary{ID: b.ID, Title: b.Title}
	}

	data, _ := json.MarshalIndent(summaries, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      boardsURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleBoardNodesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	boardID := boardIDFromURI(uri)
	if boardID == "" {
		return nil, fmt.Errorf("could not extract boardId from URI: %s", uri)
	}

	nodes, err := s.nodes.ListNodes(ctx, boardID)
	if err != nil {
		return nil, err
	}
	ordered := selection.RenderOrder(nodes)
	summaries := make([]nodeSummary, len(ordered))
	for i, n := range ordered {
		summaries[i] = summarizeNode(n)
	}

	data, _ := json.MarshalIndent(summaries, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// boardIDFromURI extracts the id from "canvas://board/{id}/nodes".
func boardIDFromURI(uri string) string {
	rest, ok := strings.CutPrefix(uri, boardURIPrefix)
	if !ok {
		return ""
	}
	id, ok := strings.CutSuffix(rest, nodesURISuffix)
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}
