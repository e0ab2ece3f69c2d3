package analysis

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

type Repository interface {
	Create(ctx context.Context, e Entry) error
	GetByID(ctx context.Context, id string) (Entry, error)
	// ListRecent devuelve las entradas más nuevas primero.
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
}
