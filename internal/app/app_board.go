package app

import (
	"fmt"

	"canvasboard/internal/domain"
	"canvasboard/internal/service"
)

// ============================================================
// Boards
// ============================================================

func (a *App) ListBoards() ([]domain.Board, error) {
	return a.api.ListBoards(a.ctx)
}

func (a *App) CreateBoard(title string) (*domain.Board, error) {
	b, err := a.api.CreateBoard(a.ctx, domain.Board{Title: title})
	if err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}
	a.emitter.Emit(a.ctx, service.EventBoardsChanged, b.ID)
	return b, nil
}

func (a *App) UpdateBoard(id string, patch domain.BoardPatch) (*domain.Board, error) {
	b, err := a.api.UpdateBoard(a.ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update board: %w", err)
	}
	if cur := a.currentBoard(); cur != nil && cur.ID == id {
		a.setBoard(b)
		a.emitState()
	}
	a.emitter.Emit(a.ctx, service.EventBoardsChanged, b.ID)
	return b, nil
}

// DeleteBoard deletes a board with all its nodes. Deleting the open board
// closes it.
func (a *App) DeleteBoard(id string) error {
	if err := a.api.DeleteBoard(a.ctx, id); err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	if cur := a.currentBoard(); cur != nil && cur.ID == id {
		a.machine.Close()
		a.selection.Clear()
		a.setBoard(nil)
		a.watcher.SetBoard("")
		a.emitState()
	}
	a.emitter.Emit(a.ctx, service.EventBoardsChanged, id)
	return nil
}

// OpenBoard loads a board and its nodes, replacing the open one. Writes
// pending on the previous board are flushed first. If the nodes cannot be
// loaded the previous board stays open.
func (a *App) OpenBoard(id string) (*domain.Board, error) {
	b, err := a.api.GetBoard(a.ctx, id)
	if err != nil {
		return nil, fmt.Errorf("open board: %w", err)
	}
	a.machine.Close()
	if err := a.store.Fetch(a.ctx, id); err != nil {
		return nil, fmt.Errorf("open board: %w", err)
	}
	a.setBoard(b)
	a.watcher.SetBoard(id)
	a.emitState()
	return b, nil
}
