package shortener

import "context"

// Shortener devuelve una URL corta para longURL.
// Quien llama decide qué hacer si falla (normalmente usar la URL original).
type Shortener interface {
	Shorten(ctx context.Context, longURL string) (string, error)
}
