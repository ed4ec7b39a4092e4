package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"canvasboard/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Node Service: server-side rules for board nodes
// ─────────────────────────────────────────────────────────────

// NodeService validates and merges node writes before they reach the
// repository. The server assigns ids; updates merge into the stored node.
type NodeService struct {
	// mu serializes read-merge-write cycles so concurrent patches to one
	// node never drop each other's fields.
	mu      sync.Mutex
	nodes   domain.NodeRepository
	emitter EventEmitter
}

// NewNodeService creates a NodeService. emitter may be nil.
func NewNodeService(nodes domain.NodeRepository, emitter EventEmitter) *NodeService {
	return &NodeService{nodes: nodes, emitter: emitter}
}

func (s *NodeService) ListNodes(ctx context.Context, boardID string) ([]domain.Node, error) {
	nodes, err := s.nodes.ListNodes(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if nodes == nil {
		nodes = []domain.Node{}
	}
	return nodes, nil
}

func (s *NodeService) GetNode(ctx context.Context, id string) (*domain.Node, error) {
	return s.nodes.GetNode(ctx, id)
}

// CreateNode builds a node from spec and stores it under a fresh id.
func (s *NodeService) CreateNode(ctx context.Context, spec domain.NodeSpec) (*domain.Node, error) {
	n, err := spec.Build()
	if err != nil {
		return nil, err
	}
	n.ID = uuid.New().String()
	if err := s.nodes.CreateNode(ctx, n); err != nil {
		return nil, fmt.Errorf("create node: %w", err)
	}
	emit(ctx, s.emitter, EventNodesChanged, n.BoardID)
	return n, nil
}

// UpdateNode merges patch into the stored node and returns the result.
func (s *NodeService) UpdateNode(ctx context.Context, id string, patch domain.NodePatch) (*domain.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.nodes.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := patch.Apply(n); err != nil {
		return nil, fmt.Errorf("update node %s: %w", id, err)
	}
	if err := s.nodes.UpdateNode(ctx, n); err != nil {
		return nil, fmt.Errorf("update node: %w", err)
	}
	emit(ctx, s.emitter, EventNodesChanged, n.BoardID)
	return n, nil
}

func (s *NodeService) DeleteNode(ctx context.Context, id string) error {
	n, err := s.nodes.GetNode(ctx, id)
	if err != nil {
		return err
	}
	if err := s.nodes.DeleteNode(ctx, id); err != nil {
		return fmt.Errorf("delete node: %w", err)
	}
	emit(ctx, s.emitter, EventNodesChanged, n.BoardID)
	return nil
}

// BulkUpdate merges every patch and writes the nodes as one unit. Either
// all updates are stored or none are.
func (s *NodeService) BulkUpdate(ctx context.Context, updates []domain.NodeUpdate) ([]domain.Node, error) {
	if len(updates) == 0 {
		return []domain.Node{}, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Node, 0, len(updates))
	index := make(map[string]int, len(updates))
	boards := make(map[string]bool)
	for _, u := range updates {
		if u.ID == "" {
			return nil, fmt.Errorf("%w: update without _id", domain.ErrInvalidNode)
		}
		// Repeated ids apply in order to the same node.
		if i, seen := index[u.ID]; seen {
			if err := u.NodePatch.Apply(&out[i]); err != nil {
				return nil, fmt.Errorf("update node %s: %w", u.ID, err)
			}
			continue
		}
		n, err := s.nodes.GetNode(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		if err := u.NodePatch.Apply(n); err != nil {
			return nil, fmt.Errorf("update node %s: %w", u.ID, err)
		}
		index[u.ID] = len(out)
		out = append(out, *n)
		boards[n.BoardID] = true
	}
	if err := s.nodes.UpdateNodes(ctx, out); err != nil {
		return nil, fmt.Errorf("bulk update: %w", err)
	}
	for b := range boards {
		emit(ctx, s.emitter, EventNodesChanged, b)
	}
	return out, nil
}

// IsValidation reports whether err comes from rejected client input.
func IsValidation(err error) bool {
	return errors.Is(err, domain.ErrInvalidNode) ||
		errors.Is(err, domain.ErrInvalidNodeType) ||
		errors.Is(err, domain.ErrInvalidContent) ||
		errors.Is(err, domain.ErrInvalidBoard)
}
