package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"canvasboard/internal/domain"
	"canvasboard/internal/nodestore"
	"canvasboard/internal/restclient"
	"canvasboard/internal/server"
	"canvasboard/internal/service"
	"canvasboard/internal/storage"
)

func newTestServer(t *testing.T) (*httptest.Server, *restclient.Client) {
	t.Helper()
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "board.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	nodes := storage.NewNodeStore(db)
	boards := storage.NewBoardStore(db)
	srv := server.New(service.NewNodeService(nodes, nil), service.NewBoardService(boards, nodes, nil))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, restclient.New(ts.URL+"/api/", 5*time.Second)
}

// ─────────────────────────────────────────────────────────────
// REST contract
// ─────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	ts, client := newTestServer(t)
	if err := client.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "ok" || body["timestamp"] == "" {
		t.Errorf("health body = %v", body)
	}
}

func TestCreateNode_Returns201WithID(t *testing.T) {
	ts, _ := newTestServer(t)

	body := `{"boardId":"b1","type":"sticky","position":{"x":5,"y":6,"zIndex":1},"size":{"width":10,"height":10},"content":{"text":"hi"}}`
	resp, err := http.Post(ts.URL+"/api/nodes", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var n domain.Node
	if err := json.NewDecoder(resp.Body).Decode(&n); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n.ID == "" {
		t.Error("expected _id")
	}
	if n.Size.Width != domain.MinNodeWidth || n.Size.Height != domain.MinNodeHeight {
		t.Errorf("size = %+v, want clamped", n.Size)
	}
}

func TestErrorStatuses(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		msg    string
	}{
		{"unknown node", http.MethodGet, "/api/nodes/nope", "", 404, "Node not found"},
		{"update unknown node", http.MethodPut, "/api/nodes/nope", `{"locked":true}`, 404, "Node not found"},
		{"delete unknown board", http.MethodDelete, "/api/boards/nope", "", 404, "Board not found"},
		{"bad type", http.MethodPost, "/api/nodes", `{"boardId":"b","type":"nope"}`, 400, ""},
		{"malformed body", http.MethodPost, "/api/nodes", `{`, 400, ""},
		{"bad grid", http.MethodPost, "/api/boards", `{"title":"x","gridSize":-3}`, 400, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, ts.URL+tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var body struct {
				Error string `json:"error"`
			}
			json.NewDecoder(resp.Body).Decode(&body)
			if body.Error == "" {
				t.Error("expected error field")
			}
			if tt.msg != "" && body.Error != tt.msg {
				t.Errorf("error = %q, want %q", body.Error, tt.msg)
			}
		})
	}
}

func TestClientRoundTrip(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	b, err := client.CreateBoard(ctx, domain.Board{Title: "Sprint"})
	if err != nil {
		t.Fatalf("CreateBoard: %v", err)
	}

	spec := domain.DefaultNodeSpec(domain.NodeTypeTaskList)
	spec.BoardID = b.ID
	n, err := client.CreateNode(ctx, spec)
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}

	if _, err := client.UpdateNode(ctx, n.ID, domain.MovePatch(120, 80)); err != nil {
		t.Fatalf("UpdateNode: %v", err)
	}
	if err := client.BulkUpdate(ctx, []domain.NodeUpdate{
		{ID: n.ID, NodePatch: domain.NodePatch{Locked: domain.Ptr(true)}},
	}); err != nil {
		t.Fatalf("BulkUpdate: %v", err)
	}

	nodes, err := client.ListNodes(ctx, b.ID)
	if err != nil {
		t.Fatalf("ListNodes: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("nodes = %d, want 1", len(nodes))
	}
	got := nodes[0]
	if got.Position.X != 120 || got.Position.Y != 80 || !got.Locked {
		t.Errorf("node = %+v", got)
	}
	if _, ok := got.Content.(*domain.TaskListContent); !ok {
		t.Errorf("content type = %T", got.Content)
	}

	if err := client.DeleteBoard(ctx, b.ID); err != nil {
		t.Fatalf("DeleteBoard: %v", err)
	}
	if _, err := client.GetNode(ctx, n.ID); !errors.Is(err, restclient.ErrNotFound) {
		t.Errorf("node after board delete: %v", err)
	}
}

// The node store persists a drag through the real server.
func TestNodeStoreAgainstServer(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	b, _ := client.CreateBoard(ctx, domain.Board{Title: "Live"})
	spec := domain.DefaultNodeSpec(domain.NodeTypeSticky)
	spec.BoardID = b.ID
	created, err := client.CreateNode(ctx, spec)
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}

	store := nodestore.New(client, nil)
	if err := store.Fetch(ctx, b.ID); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	store.UpdateLocal(created.ID, domain.MovePatch(10, 10))
	store.Update(ctx, created.ID, domain.MovePatch(300, 40))
	store.UpdateDebounced(created.ID, nodestore.GroupContent,
		domain.NodePatch{Content: json.RawMessage(`{"text":"typed"}`)}, time.Hour)

	flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Flush(flushCtx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if store.Err() != "" {
		t.Fatalf("store error: %s", store.Err())
	}

	got, err := client.GetNode(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetNode: %v", err)
	}
	if got.Position.X != 300 || got.Position.Y != 40 {
		t.Errorf("persisted position = %+v", got.Position)
	}
	if c := got.Content.(*domain.StickyContent); c.Text != "typed" {
		t.Errorf("persisted content = %+v", c)
	}
}

func TestCORSPreflight(t *testing.T) {
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "board.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	nodes := storage.NewNodeStore(db)
	srv := server.New(service.NewNodeService(nodes, nil), service.NewBoardService(storage.NewBoardStore(db), nodes, nil))
	srv.AllowOrigin = "http://localhost:5173"

	req := httptest.NewRequest(http.MethodOptions, "/api/nodes", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow origin = %q", got)
	}
}
