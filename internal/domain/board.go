package domain

import (
	"context"
	"time"
)

type BoardSettings struct {
	SnapToGrid bool `json:"snapToGrid" bson:"snapToGrid"`
	ShowGrid   bool `json:"showGrid" bson:"showGrid"`
}

// Board is a canvas document containing a set of nodes.
type Board struct {
	ID              string        `json:"_id"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	BackgroundColor string        `json:"backgroundColor"`
	GridSize        int           `json:"gridSize"`
	Tags            []string      `json:"tags"`
	Settings        BoardSettings `json:"settings"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// NewBoard returns a board with the default title, colors and grid.
func NewBoard(title string) *Board {
	if title == "" {
		title = "Untitled Board"
	}
	return &Board{
		Title:           title,
		BackgroundColor: "#ffffff",
		GridSize:        20,
		Tags:            []string{},
		Settings:        BoardSettings{ShowGrid: true},
	}
}

// BoardPatch is a partial board update.
type BoardPatch struct {
	Title           *string        `json:"title,omitempty"`
	Description     *string        `json:"description,omitempty"`
	BackgroundColor *string        `json:"backgroundColor,omitempty"`
	GridSize        *int           `json:"gridSize,omitempty"`
	Tags            *[]string      `json:"tags,omitempty"`
	Settings        *BoardSettings `json:"settings,omitempty"`
}

func (p BoardPatch) Apply(b *Board) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.BackgroundColor != nil {
		b.BackgroundColor = *p.BackgroundColor
	}
	if p.GridSize != nil {
		b.GridSize = *p.GridSize
	}
	if p.Tags != nil {
		b.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.Settings != nil {
		b.Settings = *p.Settings
	}
}

type BoardRepository interface {
	CreateBoard(ctx context.Context, b *Board) error
	GetBoard(ctx context.Context, id string) (*Board, error)
	ListBoards(ctx context.Context) ([]Board, error)
	UpdateBoard(ctx context.Context, b *Board) error
	DeleteBoard(ctx context.Context, id string) error
}
