package ai

import (
	"context"
	"errors"
)

// Los adapters envuelven estos errores para que los handlers los mapeen sin
// conocer al proveedor.
var (
	ErrNotConfigured = errors.New("ai provider not configured")
	ErrUpstream      = errors.New("ai provider upstream error")
)

// Message es un turno de chat.
type Message struct {
	Role    string
	Content string
}

// StructuredCompleter pide al modelo una respuesta JSON y la decodifica en out.
type StructuredCompleter interface {
	CompleteJSON(ctx context.Context, messages []Message, out any) error
}

// VisionDescriber describe en texto el contenido de una imagen (URL o data URL).
type VisionDescriber interface {
	DescribeImage(ctx context.Context, imageURL, prompt string) (string, error)
}

// SpeechSynthesizer convierte texto en audio (mp3).
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
