package nodestore

import (
	"context"

	"canvasboard/internal/domain"
)

// Client is the remote record store the Node Store persists through.
// restclient.Client is the production implementation.
type Client interface {
	ListNodes(ctx context.Context, boardID string) ([]domain.Node, error)
	CreateNode(ctx context.Context, spec domain.NodeSpec) (*domain.Node, error)
	UpdateNode(ctx context.Context, id string, patch domain.NodePatch) (*domain.Node, error)
	DeleteNode(ctx context.Context, id string) error
	BulkUpdate(ctx context.Context, updates []domain.NodeUpdate) error
}
