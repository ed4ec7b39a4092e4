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

const boardColumns = `id, title, description, background_color, grid_size, tags_json, settings_json, created_at, updated_at`

// BoardStore implements domain.BoardRepository over SQL.
type BoardStore struct {
	db *DB
}

func NewBoardStore(db *DB) *BoardStore {
	return &BoardStore{db: db}
}

func scanBoard(sc scanner) (*domain.Board, error) {
	var b domain.Board
	var tags, settings string
	if err := sc.Scan(&b.ID, &b.Title, &b.Description, &b.BackgroundColor, &b.GridSize,
		&tags, &settings, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &b.Tags); err != nil {
		return nil, fmt.Errorf("board %s tags: %w", b.ID, err)
	}
	if err := json.Unmarshal([]byte(settings), &b.Settings); err != nil {
		return nil, fmt.Errorf("board %s settings: %w", b.ID, err)
	}
	return &b, nil
}

func encodeBoard(b *domain.Board) (tags, settings string, err error) {
	t := b.Tags
	if t == nil {
		t = []string{}
	}
	tb, err := json.Marshal(t)
	if err != nil {
		return "", "", fmt.Errorf("encode tags: %w", err)
	}
	sb, err := json.Marshal(b.Settings)
	if err != nil {
		return "", "", fmt.Errorf("encode settings: %w", err)
	}
	return string(tb), string(sb), nil
}

func (s *BoardStore) CreateBoard(ctx context.Context, b *domain.Board) error {
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	tags, settings, err := encodeBoard(b)
	if err != nil {
		return err
	}
	_, err = s.db.exec(ctx,
		`INSERT INTO boards (`+boardColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Title, b.Description, b.BackgroundColor, b.GridSize, tags, settings, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create board: %w", err)
	}
	return nil
}

func (s *BoardStore) GetBoard(ctx context.Context, id string) (*domain.Board, error) {
	b, err := scanBoard(s.db.queryRow(ctx, `SELECT `+boardColumns+` FROM boards WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get board %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get board: %w", err)
	}
	return b, nil
}

// ListBoards returns every board, most recently updated first.
func (s *BoardStore) ListBoards(ctx context.Context) ([]domain.Board, error) {
	rows, err := s.db.query(ctx, `SELECT `+boardColumns+` FROM boards ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	boards := []domain.Board{}
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, err
		}
		boards = append(boards, *b)
	}
	return boards, rows.Err()
}

func (s *BoardStore) UpdateBoard(ctx context.Context, b *domain.Board) error {
	b.UpdatedAt = time.Now().UTC()
	tags, settings, err := encodeBoard(b)
	if err != nil {
		return err
	}
	res, err := s.db.exec(ctx,
		`UPDATE boards SET title = ?, description = ?, background_color = ?, grid_size = ?, tags_json = ?, settings_json = ?, updated_at = ? WHERE id = ?`,
		b.Title, b.Description, b.BackgroundColor, b.GridSize, tags, settings, b.UpdatedAt, b.ID,
	)
	if err != nil {
		return fmt.Errorf("update board: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update board %s: %w", b.ID, domain.ErrNotFound)
	}
	return nil
}

func (s *BoardStore) DeleteBoard(ctx context.Context, id string) error {
	res, err := s.db.exec(ctx, `DELETE FROM boards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("delete board %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
