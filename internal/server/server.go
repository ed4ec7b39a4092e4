package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"canvasboard/internal/domain"
	"canvasboard/internal/service"
)

// maxBodyBytes caps request bodies. Drawing content is the largest payload.
const maxBodyBytes = 10 << 20

// Server exposes boards and nodes over the REST API the desktop client
// persists through.
type Server struct {
	nodes  *service.NodeService
	boards *service.BoardService
	now    func() time.Time

	// AllowOrigin is sent as Access-Control-Allow-Origin when set.
	AllowOrigin string
}

func New(nodes *service.NodeService, boards *service.BoardService) *Server {
	return &Server{nodes: nodes, boards: boards, now: time.Now}
}

// Handler returns the API routes mounted under /api.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.health)

	mux.HandleFunc("GET /api/boards", s.listBoards)
	mux.HandleFunc("GET /api/boards/{id}", s.getBoard)
	mux.HandleFunc("POST /api/boards", s.createBoard)
	mux.HandleFunc("PUT /api/boards/{id}", s.updateBoard)
	mux.HandleFunc("DELETE /api/boards/{id}", s.deleteBoard)

	mux.HandleFunc("GET /api/nodes/board/{boardId}", s.listNodes)
	mux.HandleFunc("GET /api/nodes/{id}", s.getNode)
	mux.HandleFunc("POST /api/nodes", s.createNode)
	mux.HandleFunc("PUT /api/nodes/{id}", s.updateNode)
	mux.HandleFunc("DELETE /api/nodes/{id}", s.deleteNode)
	mux.HandleFunc("POST /api/nodes/bulk-update", s.bulkUpdate)

	return s.withCORS(withLogging(mux))
}

// ListenAndServe serves on addr until ctx is done, then drains open
// requests for up to five seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[API] listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Printf("[API] stopped")
	return nil
}

// ── helpers ────────────────────────────────────────────────

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if rec.status >= http.StatusInternalServerError {
			log.Printf("[API] %s %s %d (%s)", r.Method, r.URL.Path, rec.status, time.Since(start))
		}
	})
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	if s.AllowOrigin == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.AllowOrigin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] encode response: %v", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

type messageBody struct {
	Message string `json:"message"`
}

// writeError maps err to a status. what names the resource in 404s.
func writeError(w http.ResponseWriter, what string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: what + " not found"})
	case service.IsValidation(err), errors.Is(err, errBadBody):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		log.Printf("[API] %s: %v", what, err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

var errBadBody = errors.New("invalid request body")

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}
