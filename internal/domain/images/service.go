package images

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"nutrition-call-assistant/internal/platform/eventbus"
	"nutrition-call-assistant/internal/platform/idgen"
	"nutrition-call-assistant/internal/platform/logger"
	"nutrition-call-assistant/internal/ports/shortener"
	"nutrition-call-assistant/internal/ports/storage"
)

var (
	ErrInvalidImage     = errors.New("invalid image")
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrImageTooLarge    = errors.New("image too large")
)

// Publisher es la parte del bus que usa el servicio.
type Publisher interface {
	Publish(eventType string, data map[string]any) int
}

type Service struct {
	store     storage.ImageStore
	shortener shortener.Shortener
	bus       Publisher
	log       logger.Logger
	now       func() time.Time
	newID     func() (string, error)
}

func NewService(store storage.ImageStore, sh shortener.Shortener, bus Publisher, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		store:     store,
		shortener: sh,
		bus:       bus,
		log:       log.With(map[string]any{"component": "images"}),
		now:       time.Now,
		newID:     func() (string, error) { return idgen.New("img_") },
	}
}

// Save guarda data, acorta su URL y publica newImage.
func (s *Service) Save(ctx context.Context, data []byte, contentType, source string) (Upload, error) {
	if len(data) == 0 {
		return Upload{}, ErrInvalidImage
	}
	if len(data) > MaxImageBytes {
		return Upload{}, ErrImageTooLarge
	}

	contentType = normalizeType(contentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = normalizeType(http.DetectContentType(data))
	}
	ext, ok := allowedTypes[contentType]
	if !ok {
		return Upload{}, fmt.Errorf("%w: %s", ErrUnsupportedImage, contentType)
	}

	id, err := s.newID()
	if err != nil {
		return Upload{}, err
	}
	now := s.now().UTC()
	filename := fmt.Sprintf("image-%d-%s.%s", now.UnixMilli(), id, ext)

	url, err := s.store.Save(ctx, filename, contentType, data)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidImage) {
			return Upload{}, ErrInvalidImage
		}
		return Upload{}, fmt.Errorf("save image: %w", err)
	}

	if source == "" {
		source = SourceUpload
	}
	up := Upload{
		ImageID:     id,
		Filename:    filename,
		ContentType: contentType,
		Size:        len(data),
		URL:         url,
		ShortURL:    s.ShortURL(ctx, url),
		Source:      source,
		CreatedAt:   now,
	}

	s.bus.Publish(eventbus.TypeNewImage, map[string]any{
		"image_id":   up.ImageID,
		"url":        up.URL,
		"shortUrl":   up.ShortURL,
		"filename":   up.Filename,
		"source":     up.Source,
		"created_at": up.CreatedAt.Format(time.RFC3339),
	})
	s.log.Info("image stored", map[string]any{
		"image_id": up.ImageID,
		"bytes":    up.Size,
		"source":   up.Source,
	})
	return up, nil
}

// IngestDataURL decodifica un data URL (o base64 crudo) y lo guarda.
func (s *Service) IngestDataURL(ctx context.Context, dataURL, source string) (Upload, error) {
	data, contentType, err := DecodeDataURL(dataURL)
	if err != nil {
		return Upload{}, err
	}
	return s.Save(ctx, data, contentType, source)
}

// ShortURL acorta longURL; ante cualquier fallo devuelve longURL.
func (s *Service) ShortURL(ctx context.Context, longURL string) string {
	if s.shortener == nil || strings.HasPrefix(longURL, "data:") {
		return longURL
	}
	short, err := s.shortener.Shorten(ctx, longURL)
	if err != nil {
		s.log.Warn("url shortening failed, using original", map[string]any{"url": longURL, "err": err})
		return longURL
	}
	return short
}

// DecodeDataURL acepta "data:image/png;base64,..." o base64 sin prefijo.
func DecodeDataURL(in string) ([]byte, string, error) {
	in = strings.TrimSpace(in)
	if in == "" {
		return nil, "", ErrInvalidImage
	}

	contentType := ""
	payload := in
	if strings.HasPrefix(in, "data:") {
		meta, rest, ok := strings.Cut(in[len("data:"):], ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return nil, "", fmt.Errorf("%w: expected base64 data url", ErrInvalidImage)
		}
		contentType = normalizeType(strings.TrimSuffix(meta, ";base64"))
		payload = rest
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Algunos clientes mandan base64 sin padding o URL-safe.
		if data, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(payload, "=")); err != nil {
			return nil, "", fmt.Errorf("%w: bad base64", ErrInvalidImage)
		}
	}
	return data, contentType, nil
}

func normalizeType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "image/jpg" {
		ct = "image/jpeg"
	}
	return ct
}
