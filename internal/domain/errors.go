package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidNode     = errors.New("invalid node")
	ErrInvalidNodeType = errors.New("invalid node type")
	ErrInvalidContent  = errors.New("invalid content")
	ErrInvalidBoard    = errors.New("invalid board")
)
