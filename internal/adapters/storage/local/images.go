package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"nutrition-call-assistant/internal/ports/storage"
)

// ImageStore escribe en un directorio que el router sirve bajo /uploads/.
type ImageStore struct {
	dir     string
	baseURL string
}

var _ storage.ImageStore = (*ImageStore)(nil)

// NewImageStore crea dir si no existe. baseURL es la URL pública del servicio.
func NewImageStore(dir, baseURL string) (*ImageStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("local image store: empty dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("local image store: %w", err)
	}
	return &ImageStore{
		dir:     dir,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}, nil
}

func (s *ImageStore) Dir() string { return s.dir }

func (s *ImageStore) Save(_ context.Context, name, _ string, data []byte) (string, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) || len(data) == 0 {
		return "", storage.ErrInvalidImage
	}

	// Escritura atómica: tmp + rename.
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("local image store: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("local image store: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("local image store: close: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("local image store: chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("local image store: rename: %w", err)
	}

	return s.baseURL + "/uploads/" + name, nil
}
