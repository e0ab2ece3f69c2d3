package macros

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router) {
	r.Post("/api/macro-targets", macroTargetsHandler())
}

// Los valores llegan tal cual los manda la llamada: número o texto.
type macroTargetsRequest struct {
	Weight any    `json:"weight"`
	Height any    `json:"height"`
	Age    any    `json:"age"`
	Gender string `json:"gender"`
	Goal   string `json:"goal"`
}

type macroTargetsResponse struct {
	Success bool `json:"success"`
	Targets
}

// macroTargetsHandler godoc
// @Summary Objetivos diarios de calorías y macros
// @Description Mifflin-St Jeor (peso en lb, altura "5'10" o pulgadas), actividad moderada y ajuste por objetivo. Con datos faltantes devuelve ceros.
// @Tags macros
// @Accept json
// @Produce json
// @Param body body macroTargetsRequest true "perfil"
// @Success 200 {object} macroTargetsResponse
// @Failure 400 {object} map[string]any
// @Router /api/macro-targets [post]
func macroTargetsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req macroTargetsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid json"})
			return
		}

		t := Compute(Input{
			Weight: toFloat(req.Weight),
			Height: toString(req.Height),
			Age:    toFloat(req.Age),
			Gender: req.Gender,
			Goal:   req.Goal,
		})
		writeJSON(w, http.StatusOK, macroTargetsResponse{Success: true, Targets: t})
	}
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
