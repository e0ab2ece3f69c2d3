package signature

import "context"

// Verifier valida la firma de un callback entrante sobre el body crudo.
type Verifier interface {
	Verify(ctx context.Context, body []byte, signature string) error
}
