package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"nutrition-call-assistant/internal/platform/eventbus"
	"nutrition-call-assistant/internal/platform/logger"
	"nutrition-call-assistant/internal/platform/metrics"
)

const DefaultBuffer = 64

// Notifier conecta suscriptores de streaming con el bus.
type Notifier struct {
	bus     *eventbus.Bus
	log     logger.Logger
	metrics *metrics.Registry
	buffer  int
}

func NewNotifier(bus *eventbus.Bus, log logger.Logger, m *metrics.Registry, buffer int) *Notifier {
	if log == nil {
		log = logger.NewNop()
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Notifier{
		bus:     bus,
		log:     log.With(map[string]any{"component": "stream"}),
		metrics: m,
		buffer:  buffer,
	}
}

// Serve registra los callbacks de st, envía el frame de conexión y reenvía
// los eventos hasta que ctx termine o el envío falle. Todo lo publicado
// después del frame de conexión llega al suscriptor. Al salir da de baja
// todos sus callbacks.
//
// Los callbacks del bus solo encolan; la escritura ocurre en la goroutine que
// llama a Serve, así nada se escribe sobre la conexión después de retornar.
func (n *Notifier) Serve(ctx context.Context, st Stream, sub Subscriber) error {
	log := n.log.With(map[string]any{
		"stream":     st.Name,
		"subscriber": sub.ID(),
		"transport":  sub.Transport(),
	})

	frames := make(chan []byte, n.buffer)
	unsubs := make([]func(), 0, len(st.Types))
	for _, t := range st.Types {
		unsubs = append(unsubs, n.bus.Subscribe(t, func(evt eventbus.Event) {
			b, err := json.Marshal(evt)
			if err != nil {
				log.Error("encode event failed", map[string]any{"event_type": evt.Type, "err": err})
				return
			}
			select {
			case frames <- b:
			default:
				n.metrics.FrameDropped(st.Name)
				log.Warn("subscriber buffer full, frame dropped", map[string]any{"event_type": evt.Type})
			}
		}))
	}
	defer func() {
		for _, u := range unsubs {
			u()
		}
	}()

	if err := sub.Send(connectedFrame); err != nil {
		return fmt.Errorf("send connected frame: %w", err)
	}

	n.metrics.StreamOpened(st.Name, sub.Transport())
	defer n.metrics.StreamClosed(st.Name, sub.Transport())
	log.Info("stream opened", nil)
	defer log.Info("stream closed", nil)

	for {
		select {
		case <-ctx.Done():
			return nil
		case b := <-frames:
			if err := sub.Send(b); err != nil {
				return fmt.Errorf("send frame: %w", err)
			}
		}
	}
}
