package stream

import "nutrition-call-assistant/internal/platform/eventbus"

// Subscriber es una conexión abierta capaz de recibir frames.
// El transporte (SSE, WebSocket, ...) decide cómo se escribe cada frame.
type Subscriber interface {
	ID() string
	Transport() string
	Send(frame []byte) error
}

// Stream nombra un conjunto de tipos de evento que se reenvían juntos.
type Stream struct {
	Name  string
	Types []string
}

var (
	WebhookStream = Stream{
		Name: "webhook",
		Types: []string{
			eventbus.TypeCallStarted,
			eventbus.TypeCallEnded,
			eventbus.TypeImageData,
			eventbus.TypeUserData,
		},
	}

	ImageStream = Stream{
		Name: "image",
		Types: []string{
			eventbus.TypeNewImage,
			eventbus.TypeAnalysisCompleted,
		},
	}
)

// connectedFrame se envía antes que cualquier evento.
var connectedFrame = []byte(`{"status":"connected"}`)
