package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"nutrition-call-assistant/internal/platform/logger"
	"nutrition-call-assistant/internal/ports/signature"
)

const (
	SignatureHeader   = "X-Retell-Signature"
	maxSignedBodySize = 1 << 20
)

// WebhookSignature:
// - Si verifier == nil => modo dev: el request pasa sin verificar.
// - Si hay verifier => lee el body crudo, verifica X-Retell-Signature y lo
//   repone para el handler. Firma inválida o ausente corta con 401.
func WebhookSignature(verifier signature.Verifier, log logger.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSignedBodySize))
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid body")
				return
			}

			if err := verifier.Verify(r.Context(), body, r.Header.Get(SignatureHeader)); err != nil {
				log.Warn("webhook signature rejected", map[string]any{
					"remote": r.RemoteAddr,
					"err":    err,
				})
				writeError(w, http.StatusUnauthorized, "invalid signature")
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}
