package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"canvasboard/internal/domain"
)

const nodeColumns = `id, board_id, type, x, y, z_index, width, height, content, style_json, locked, connections_json, created_at, updated_at`

// NodeStore implements domain.NodeRepository over SQL.
type NodeStore struct {
	db *DB
}

func NewNodeStore(db *DB) *NodeStore {
	return &NodeStore{db: db}
}

type nodeRow struct {
	content, style, connections string
	locked                      int
}

func encodeNode(n *domain.Node) (nodeRow, error) {
	content, err := json.Marshal(n.Content)
	if err != nil {
		return nodeRow{}, fmt.Errorf("encode content: %w", err)
	}
	style, err := json.Marshal(n.Style)
	if err != nil {
		return nodeRow{}, fmt.Errorf("encode style: %w", err)
	}
	conns := n.Connections
	if conns == nil {
		conns = []string{}
	}
	connections, err := json.Marshal(conns)
	if err != nil {
		return nodeRow{}, fmt.Errorf("encode connections: %w", err)
	}
	return nodeRow{
		content:     string(content),
		style:       string(style),
		connections: string(connections),
		locked:      boolInt(n.Locked),
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(sc scanner) (*domain.Node, error) {
	var n domain.Node
	var r nodeRow
	if err := sc.Scan(&n.ID, &n.BoardID, &n.Type, &n.Position.X, &n.Position.Y, &n.Position.ZIndex,
		&n.Size.Width, &n.Size.Height, &r.content, &r.style, &r.locked, &r.connections,
		&n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	c, err := domain.DecodeContent(n.Type, json.RawMessage(r.content))
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", n.ID, err)
	}
	n.Content = c
	if err := json.Unmarshal([]byte(r.style), &n.Style); err != nil {
		return nil, fmt.Errorf("node %s style: %w", n.ID, err)
	}
	if err := json.Unmarshal([]byte(r.connections), &n.Connections); err != nil {
		return nil, fmt.Errorf("node %s connections: %w", n.ID, err)
	}
	n.Locked = r.locked != 0
	return &n, nil
}

func (s *NodeStore) CreateNode(ctx context.Context, n *domain.Node) error {
	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now
	r, err := encodeNode(n)
	if err != nil {
		return err
	}
	_, err = s.db.exec(ctx,
		`INSERT INTO nodes (`+nodeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.BoardID, string(n.Type), n.Position.X, n.Position.Y, n.Position.ZIndex,
		n.Size.Width, n.Size.Height, r.content, r.style, r.locked, r.connections, n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}
	return nil
}

func (s *NodeStore) GetNode(ctx context.Context, id string) (*domain.Node, error) {
	n, err := scanNode(s.db.queryRow(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get node %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get node: %w", err)
	}
	return n, nil
}

func (s *NodeStore) ListNodes(ctx context.Context, boardID string) ([]domain.Node, error) {
	rows, err := s.db.query(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE board_id = ? ORDER BY z_index ASC, created_at ASC, id ASC`,
		boardID,
	)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	defer rows.Close()

	nodes := []domain.Node{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *n)
	}
	return nodes, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *NodeStore) update(ctx context.Context, ex execer, n *domain.Node) error {
	n.UpdatedAt = time.Now().UTC()
	r, err := encodeNode(n)
	if err != nil {
		return err
	}
	res, err := ex.ExecContext(ctx, s.db.rebind(
		`UPDATE nodes SET type = ?, x = ?, y = ?, z_index = ?, width = ?, height = ?, content = ?, style_json = ?, locked = ?, connections_json = ?, updated_at = ? WHERE id = ?`),
		string(n.Type), n.Position.X, n.Position.Y, n.Position.ZIndex, n.Size.Width, n.Size.Height,
		r.content, r.style, r.locked, r.connections, n.UpdatedAt, n.ID,
	)
	if err != nil {
		return fmt.Errorf("update node: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update node %s: %w", n.ID, domain.ErrNotFound)
	}
	return nil
}

func (s *NodeStore) UpdateNode(ctx context.Context, n *domain.Node) error {
	return s.update(ctx, s.db.conn, n)
}

// UpdateNodes writes every node in one transaction.
func (s *NodeStore) UpdateNodes(ctx context.Context, nodes []domain.Node) error {
	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	for i := range nodes {
		if err := s.update(ctx, tx, &nodes[i]); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *NodeStore) DeleteNode(ctx context.Context, id string) error {
	res, err := s.db.exec(ctx, `DELETE FROM nodes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete node: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("delete node %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *NodeStore) DeleteNodesByBoard(ctx context.Context, boardID string) error {
	_, err := s.db.exec(ctx, `DELETE FROM nodes WHERE board_id = ?`, boardID)
	return err
}

// DeleteOrphanNodes removes nodes whose board no longer exists.
func (s *NodeStore) DeleteOrphanNodes(ctx context.Context) (int64, error) {
	res, err := s.db.exec(ctx, `DELETE FROM nodes WHERE board_id NOT IN (SELECT id FROM boards)`)
	if err != nil {
		return 0, fmt.Errorf("delete orphan nodes: %w", err)
	}
	return res.RowsAffected()
}
