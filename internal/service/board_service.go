package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"canvasboard/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Board Service: boards and their node cascade
// ─────────────────────────────────────────────────────────────

type BoardService struct {
	boards  domain.BoardRepository
	nodes   domain.NodeRepository
	emitter EventEmitter
}

func NewBoardService(boards domain.BoardRepository, nodes domain.NodeRepository, emitter EventEmitter) *BoardService {
	return &BoardService{boards: boards, nodes: nodes, emitter: emitter}
}

func (s *BoardService) ListBoards(ctx context.Context) ([]domain.Board, error) {
	boards, err := s.boards.ListBoards(ctx)
	if err != nil {
		return nil, err
	}
	if boards == nil {
		boards = []domain.Board{}
	}
	return boards, nil
}

func (s *BoardService) GetBoard(ctx context.Context, id string) (*domain.Board, error) {
	return s.boards.GetBoard(ctx, id)
}

// CreateBoard stores a new board. Fields left empty in in get the board
// defaults.
func (s *BoardService) CreateBoard(ctx context.Context, in domain.Board) (*domain.Board, error) {
	b := domain.NewBoard(strings.TrimSpace(in.Title))
	b.ID = uuid.New().String()
	b.Description = in.Description
	if in.BackgroundColor != "" {
		b.BackgroundColor = in.BackgroundColor
	}
	if in.GridSize < 0 {
		return nil, fmt.Errorf("%w: gridSize must not be negative", domain.ErrInvalidBoard)
	}
	if in.GridSize > 0 {
		b.GridSize = in.GridSize
	}
	if in.Tags != nil {
		b.Tags = append([]string(nil), in.Tags...)
	}
	b.Settings = in.Settings

	if err := s.boards.CreateBoard(ctx, b); err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}
	emit(ctx, s.emitter, EventBoardsChanged, b.ID)
	return b, nil
}

func (s *BoardService) UpdateBoard(ctx context.Context, id string, patch domain.BoardPatch) (*domain.Board, error) {
	if patch.GridSize != nil && *patch.GridSize < 0 {
		return nil, fmt.Errorf("%w: gridSize must not be negative", domain.ErrInvalidBoard)
	}
	b, err := s.boards.GetBoard(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(b)
	if err := s.boards.UpdateBoard(ctx, b); err != nil {
		return nil, fmt.Errorf("update board: %w", err)
	}
	emit(ctx, s.emitter, EventBoardsChanged, b.ID)
	return b, nil
}

// DeleteBoard removes the board and every node on it. Nodes left behind
// by a failure halfway are collected by the orphan sweep.
func (s *BoardService) DeleteBoard(ctx context.Context, id string) error {
	if _, err := s.boards.GetBoard(ctx, id); err != nil {
		return err
	}
	if err := s.boards.DeleteBoard(ctx, id); err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	if err := s.nodes.DeleteNodesByBoard(ctx, id); err != nil {
		log.Printf("[API] board %s deleted but its nodes were not: %v", id, err)
	}
	emit(ctx, s.emitter, EventBoardsChanged, id)
	return nil
}
