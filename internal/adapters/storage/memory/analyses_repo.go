package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"nutrition-call-assistant/internal/domain/analysis"
)

// DefaultMaxEntries acota el food log en memoria; al pasarse se descarta lo más viejo.
const DefaultMaxEntries = 500

type analysesRepo struct {
	mu   sync.RWMutex
	max  int
	byID map[string]analysis.Entry
}

func NewAnalysesRepo(max int) analysis.Repository {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	return &analysesRepo{
		max:  max,
		byID: make(map[string]analysis.Entry),
	}
}

func (r *analysesRepo) Create(ctx context.Context, e analysis.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.ID == "" {
		return errors.New("entry id required")
	}
	if _, exists := r.byID[e.ID]; exists {
		return errors.New("entry already exists")
	}

	r.byID[e.ID] = e
	if len(r.byID) > r.max {
		r.evictOldest()
	}
	return nil
}

func (r *analysesRepo) GetByID(ctx context.Context, id string) (analysis.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byID[id]
	if !ok {
		return analysis.Entry{}, analysis.ErrNotFound
	}
	return e, nil
}

func (r *analysesRepo) ListRecent(ctx context.Context, limit int) ([]analysis.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	out := make([]analysis.Entry, 0, len(r.byID))
	for _, e := range r.byID {
		out = append(out, e)
	}

	// Orden por created_at desc (más reciente primero)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// evictOldest asume el lock tomado.
func (r *analysesRepo) evictOldest() {
	var oldestID string
	for id, e := range r.byID {
		if oldestID == "" || e.CreatedAt.Before(r.byID[oldestID].CreatedAt) {
			oldestID = id
		}
	}
	delete(r.byID, oldestID)
}
