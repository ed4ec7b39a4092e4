package server

import (
	"net/http"
	"time"

	"canvasboard/internal/domain"
)

type healthBody struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthBody{
		Status:    "ok",
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
	})
}

// ── boards ─────────────────────────────────────────────────

func (s *Server) listBoards(w http.ResponseWriter, r *http.Request) {
	boards, err := s.boards.ListBoards(r.Context())
	if err != nil {
		writeError(w, "Boards", err)
		return
	}
	writeJSON(w, http.StatusOK, boards)
}

func (s *Server) getBoard(w http.ResponseWriter, r *http.Request) {
	b, err := s.boards.GetBoard(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, "Board", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) createBoard(w http.ResponseWriter, r *http.Request) {
	var in domain.Board
	if err := decode(w, r, &in); err != nil {
		writeError(w, "Board", err)
		return
	}
	b, err := s.boards.CreateBoard(r.Context(), in)
	if err != nil {
		writeError(w, "Board", err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) updateBoard(w http.ResponseWriter, r *http.Request) {
	var patch domain.BoardPatch
	if err := decode(w, r, &patch); err != nil {
		writeError(w, "Board", err)
		return
	}
	b, err := s.boards.UpdateBoard(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, "Board", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) deleteBoard(w http.ResponseWriter, r *http.Request) {
	if err := s.boards.DeleteBoard(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, "Board", err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Board deleted successfully"})
}

// ── nodes ──────────────────────────────────────────────────

func (s *Server) listNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.nodes.ListNodes(r.Context(), r.PathValue("boardId"))
	if err != nil {
		writeError(w, "Nodes", err)
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) getNode(w http.ResponseWriter, r *http.Request) {
	n, err := s.nodes.GetNode(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, "Node", err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) createNode(w http.ResponseWriter, r *http.Request) {
	var spec domain.NodeSpec
	if err := decode(w, r, &spec); err != nil {
		writeError(w, "Node", err)
		return
	}
	n, err := s.nodes.CreateNode(r.Context(), spec)
	if err != nil {
		writeError(w, "Node", err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (s *Server) updateNode(w http.ResponseWriter, r *http.Request) {
	var patch domain.NodePatch
	if err := decode(w, r, &patch); err != nil {
		writeError(w, "Node", err)
		return
	}
	n, err := s.nodes.UpdateNode(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, "Node", err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) deleteNode(w http.ResponseWriter, r *http.Request) {
	if err := s.nodes.DeleteNode(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, "Node", err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Node deleted successfully"})
}

type bulkUpdateBody struct {
	Updates []domain.NodeUpdate `json:"updates"`
}

func (s *Server) bulkUpdate(w http.ResponseWriter, r *http.Request) {
	var body bulkUpdateBody
	if err := decode(w, r, &body); err != nil {
		writeError(w, "Node", err)
		return
	}
	if _, err := s.nodes.BulkUpdate(r.Context(), body.Updates); err != nil {
		writeError(w, "Node", err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: "Nodes updated successfully"})
}
