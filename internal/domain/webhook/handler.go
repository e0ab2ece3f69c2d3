package webhook

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

func RegisterRoutes(r chi.Router, svc *Service, mws ...func(http.Handler) http.Handler) {
	r.With(mws...).Post("/webhook", webhookHandler(svc))
}

type successResponse struct {
	Success bool `json:"success"`
}

type duplicateResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Success *bool  `json:"success,omitempty"`
	Error   string `json:"error"`
}

// webhookHandler godoc
// @Summary Callback de la plataforma de llamadas
// @Description Recibe `{event, call}`. `call_analyzed` publica `image_data` en el stream salvo que el id (image_id o call_id) ya se haya visto en la ventana de deduplicación. Eventos desconocidos o ausentes se aceptan sin efecto.
// @Tags webhook
// @Accept json
// @Produce json
// @Param X-Retell-Signature header string false "HMAC-SHA256 del body (obligatoria si RETELL_API_KEY está configurada)"
// @Param body body Payload true "callback"
// @Success 200 {object} successResponse
// @Failure 400 {object} errorResponse
// @Failure 401 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /webhook [post]
func webhookHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Payload
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Success: boolPtr(false), Error: "invalid json"})
			return
		}

		out, err := svc.Handle(r.Context(), req.Event, req.Call)
		if err != nil {
			svc.log.Error("webhook failed", map[string]any{"event": req.Event, "call_id": req.Call.CallID, "err": err})
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}

		if out == OutcomeDuplicate {
			writeJSON(w, http.StatusOK, duplicateResponse{Message: "Duplicate image skipped"})
			return
		}
		writeJSON(w, http.StatusOK, successResponse{Success: true})
	}
}

func boolPtr(b bool) *bool { return &b }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
