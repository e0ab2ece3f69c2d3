package storage

import (
	"context"
	"errors"
)

var ErrInvalidImage = errors.New("invalid image")

// ImageStore guarda una imagen y devuelve la URL pública con la que se sirve.
type ImageStore interface {
	Save(ctx context.Context, name, contentType string, data []byte) (publicURL string, err error)
}
