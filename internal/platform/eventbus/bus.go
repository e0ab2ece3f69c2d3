// Package eventbus implementa el bus de fan-out en proceso.
//
// Un productor (webhook, análisis) publica por tipo de evento y cada
// suscriptor registrado para ese tipo recibe el evento exactamente una vez,
// de forma síncrona, antes de que Publish retorne.
package eventbus

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"nutrition-call-assistant/internal/platform/logger"
	"nutrition-call-assistant/internal/platform/metrics"
)

// Tipos de evento conocidos.
const (
	TypeCallStarted       = "call_started"
	TypeCallEnded         = "call_ended"
	TypeImageData         = "image_data"
	TypeUserData          = "user_data"
	TypeNewImage          = "newImage"
	TypeAnalysisCompleted = "analysis_completed"
)

// Event es el payload que viaja por el bus y, serializado, por los streams.
type Event struct {
	ID          string         `json:"id,omitempty"`
	Type        string         `json:"type"`
	Data        map[string]any `json:"data"`
	PublishedAt time.Time      `json:"-"`
}

// Handler recibe eventos. No debe bloquear: corre dentro de Publish.
type Handler func(Event)

type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]Handler

	log     logger.Logger
	metrics *metrics.Registry
	now     func() time.Time
}

func New(log logger.Logger, m *metrics.Registry) *Bus {
	if log == nil {
		log = logger.NewNop()
	}
	return &Bus{
		subs:    make(map[string]map[uint64]Handler),
		log:     log.With(map[string]any{"component": "eventbus"}),
		metrics: m,
		now:     time.Now,
	}
}

// Subscribe registra h para eventType y devuelve la función que lo da de baja.
// La baja es idempotente y solo afecta a esta suscripción.
func (b *Bus) Subscribe(eventType string, h Handler) (unsubscribe func()) {
	if h == nil {
		return func() {}
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.subs[eventType] == nil {
		b.subs[eventType] = make(map[uint64]Handler)
	}
	b.subs[eventType][id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[eventType], id)
			if len(b.subs[eventType]) == 0 {
				delete(b.subs, eventType)
			}
		})
	}
}

// Publish entrega data a los suscriptores de eventType registrados en este
// momento y devuelve cuántos lo recibieron sin fallar.
// Sin suscriptores el evento se descarta (no hay buffer).
func (b *Bus) Publish(eventType string, data map[string]any) int {
	if data == nil {
		data = map[string]any{}
	}
	evt := Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		Data:        data,
		PublishedAt: b.now(),
	}

	// Snapshot: los callbacks corren sin el lock, así pueden darse de baja solos.
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[eventType]))
	for _, h := range b.subs[eventType] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	delivered, failed := 0, 0
	for _, h := range handlers {
		if err := b.deliver(h, evt); err != nil {
			failed++
			b.log.Error("subscriber callback failed", map[string]any{
				"event_type": eventType,
				"event_id":   evt.ID,
				"err":        err,
			})
			continue
		}
		delivered++
	}

	b.metrics.RecordPublish(eventType, delivered, failed)
	b.log.Debug("event published", map[string]any{
		"event_type":  eventType,
		"event_id":    evt.ID,
		"subscribers": len(handlers),
	})
	return delivered
}

// SubscriberCount devuelve cuántos callbacks hay para eventType.
func (b *Bus) SubscriberCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[eventType])
}

func (b *Bus) deliver(h Handler, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	h(evt)
	return nil
}
