package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"nutrition-call-assistant/internal/ports/dedupe"
)

const DefaultWindow = 10 * time.Second

// Suppressor es un set con expiración por clave.
// La expiración es perezosa en lectura; Run barre periódicamente las claves
// vencidas para que el set no crezca si nadie vuelve a preguntar.
type Suppressor struct {
	mu      sync.Mutex
	window  time.Duration
	expires map[string]time.Time

	now func() time.Time
}

var _ dedupe.Suppressor = (*Suppressor)(nil)

func New(window time.Duration) *Suppressor {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Suppressor{
		window:  window,
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *Suppressor) ShouldProcess(_ context.Context, id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.expires[id]; ok {
		if now.Before(exp) {
			return false
		}
		delete(s.expires, id)
	}

	s.expires[id] = now.Add(s.window)
	return true
}

// Sweep elimina las claves vencidas y devuelve cuántas quitó.
func (s *Suppressor) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, exp := range s.expires {
		if !now.Before(exp) {
			delete(s.expires, id)
			removed++
		}
	}
	return removed
}

// Len devuelve cuántas claves hay registradas (vencidas o no).
func (s *Suppressor) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expires)
}

// Run barre cada interval hasta que ctx se cancele.
// interval <= 0 usa la ventana como intervalo.
func (s *Suppressor) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = s.window
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep()
		}
	}
}
