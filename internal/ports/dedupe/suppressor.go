package dedupe

import "context"

// Suppressor decide si un identificador ya se procesó dentro de la ventana.
// ShouldProcess devuelve false si id ya está registrado; si no, lo registra
// con expiración y devuelve true. Un id vacío siempre se procesa.
type Suppressor interface {
	ShouldProcess(ctx context.Context, id string) bool
}
