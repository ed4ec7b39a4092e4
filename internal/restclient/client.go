package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"canvasboard/internal/domain"
)

var (
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("not found")
	// ErrNetwork wraps transport failures and non-2xx responses.
	ErrNetwork = errors.New("network failure")
)

// maxBody caps how much of a response is read.
const maxBody = 5 * 1024 * 1024

// Client talks to the board REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for baseURL, e.g. "http://localhost:5000/api".
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type apiError struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := resp.Status
		var ae apiError
		if json.Unmarshal(data, &ae) == nil && ae.Error != "" {
			msg = ae.Error
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, msg)
		}
		return fmt.Errorf("%w: %s %s: %d %s", ErrNetwork, method, path, resp.StatusCode, msg)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ── Nodes ──────────────────────────────────────────────────

func (c *Client) ListNodes(ctx context.Context, boardID string) ([]domain.Node, error) {
	var nodes []domain.Node
	if err := c.do(ctx, http.MethodGet, "/nodes/board/"+url.PathEscape(boardID), nil, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (c *Client) GetNode(ctx context.Context, id string) (*domain.Node, error) {
	var n domain.Node
	if err := c.do(ctx, http.MethodGet, "/nodes/"+url.PathEscape(id), nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *Client) CreateNode(ctx context.Context, spec domain.NodeSpec) (*domain.Node, error) {
	var n domain.Node
	if err := c.do(ctx, http.MethodPost, "/nodes", spec, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// UpdateNode sends a partial update; the server merges it and returns the
// stored node.
func (c *Client) UpdateNode(ctx context.Context, id string, patch domain.NodePatch) (*domain.Node, error) {
	var n domain.Node
	if err := c.do(ctx, http.MethodPut, "/nodes/"+url.PathEscape(id), patch, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *Client) DeleteNode(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/nodes/"+url.PathEscape(id), nil, nil)
}

// BulkUpdateRequest is the body of POST /nodes/bulk-update.
type BulkUpdateRequest struct {
	Updates []domain.NodeUpdate `json:"updates"`
}

func (c *Client) BulkUpdate(ctx context.Context, updates []domain.NodeUpdate) error {
	return c.do(ctx, http.MethodPost, "/nodes/bulk-update", BulkUpdateRequest{Updates: updates}, nil)
}

// ── Boards ─────────────────────────────────────────────────

func (c *Client) ListBoards(ctx context.Context) ([]domain.Board, error) {
	var boards []domain.Board
	if err := c.do(ctx, http.MethodGet, "/boards", nil, &boards); err != nil {
		return nil, err
	}
	return boards, nil
}

func (c *Client) GetBoard(ctx context.Context, id string) (*domain.Board, error) {
	var b domain.Board
	if err := c.do(ctx, http.MethodGet, "/boards/"+url.PathEscape(id), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) CreateBoard(ctx context.Context, b domain.Board) (*domain.Board, error) {
	var out domain.Board
	if err := c.do(ctx, http.MethodPost, "/boards", b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateBoard(ctx context.Context, id string, patch domain.BoardPatch) (*domain.Board, error) {
	var out domain.Board
	if err := c.do(ctx, http.MethodPut, "/boards/"+url.PathEscape(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteBoard(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/boards/"+url.PathEscape(id), nil, nil)
}

// Health pings GET /health.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}
