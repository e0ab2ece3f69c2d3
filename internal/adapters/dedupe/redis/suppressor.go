package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"nutrition-call-assistant/internal/platform/logger"
	"nutrition-call-assistant/internal/ports/dedupe"
)

const keyPrefix = "dedupe:"

// Suppressor comparte la ventana de duplicados entre instancias usando
// SET NX con TTL: Redis expira la clave, no hace falta barrido.
type Suppressor struct {
	client *goredis.Client
	window time.Duration
	log    logger.Logger
}

var _ dedupe.Suppressor = (*Suppressor)(nil)

// New conecta y hace ping antes de devolver el suppressor.
func New(ctx context.Context, addr string, window time.Duration, log logger.Logger) (*Suppressor, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return NewWithClient(client, window, log), nil
}

func NewWithClient(client *goredis.Client, window time.Duration, log logger.Logger) *Suppressor {
	if log == nil {
		log = logger.NewNop()
	}
	return &Suppressor{
		client: client,
		window: window,
		log:    log.With(map[string]any{"component": "dedupe-redis"}),
	}
}

// ShouldProcess falla abierto: si Redis no responde, el evento se procesa.
func (s *Suppressor) ShouldProcess(ctx context.Context, id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return true
	}

	ok, err := s.client.SetNX(ctx, keyPrefix+id, 1, s.window).Result()
	if err != nil {
		s.log.Warn("dedupe check failed, processing anyway", map[string]any{
			"id":  id,
			"err": err,
		})
		return true
	}
	return ok
}

func (s *Suppressor) Close() error {
	return s.client.Close()
}
