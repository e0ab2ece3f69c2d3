package analysis

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"nutrition-call-assistant/internal/ports/ai"
)

const maxRequestBytes = 50 << 20

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/api/analyze-image", analyzeImageHandler(svc))
	r.Post("/api/nutritional-analysis", nutritionalAnalysisHandler(svc))
	r.Post("/api/generate-recipe", generateRecipeHandler(svc))
	r.Post("/api/tts-directions", ttsDirectionsHandler(svc))
	r.Get("/api/food-log", listFoodLogHandler(svc))
}

type analyzeImageRequest struct {
	ImageURL *string `json:"imageUrl"`
	IsBase64 bool    `json:"isBase64"`
}

type analysisResponse struct {
	Success             bool                `json:"success"`
	Message             string              `json:"message"`
	ID                  string              `json:"id"`
	ImageURL            string              `json:"imageUrl"`
	ShortURL            string              `json:"shortUrl"`
	NutritionalAnalysis NutritionalAnalysis `json:"nutritionalAnalysis"`
}

type recipeResponse struct {
	Success bool   `json:"success"`
	Recipe  Recipe `json:"recipe"`
}

type ttsRequest struct {
	Directions []string `json:"directions"`
}

type ttsResponse struct {
	Success     bool   `json:"success"`
	AudioBase64 string `json:"audio_base64"`
}

type foodLogResponse struct {
	Success bool    `json:"success"`
	Entries []Entry `json:"entries"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// analyzeImageHandler godoc
// @Summary Analizar imagen de comida
// @Description Manda la URL (o data URL base64) al modelo estructurado y devuelve macro y micronutrientes. Publica `analysis_completed` en el stream de imágenes.
// @Tags analysis
// @Accept json
// @Produce json
// @Param body body analyzeImageRequest true "imagen"
// @Success 200 {object} analysisResponse
// @Failure 400 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /api/analyze-image [post]
func analyzeImageHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req analyzeImageRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		in := AnalyzeInput{IsBase64: req.IsBase64}
		if req.ImageURL != nil {
			in.ImageURL = *req.ImageURL
		}

		e, err := svc.AnalyzeImage(r.Context(), in)
		if err != nil {
			writeServiceError(w, svc, err)
			return
		}
		writeJSON(w, http.StatusOK, toAnalysisResponse(e))
	}
}

// nutritionalAnalysisHandler godoc
// @Summary Análisis nutricional con visión
// @Description Describe la imagen con el modelo de visión y estructura la descripción. Sin visión configurada se comporta como analyze-image.
// @Tags analysis
// @Accept json
// @Produce json
// @Param body body analyzeImageRequest true "imagen"
// @Success 200 {object} analysisResponse
// @Failure 400 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /api/nutritional-analysis [post]
func nutritionalAnalysisHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req analyzeImageRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		url := ""
		if req.ImageURL != nil {
			url = *req.ImageURL
		}

		e, err := svc.NutritionalAnalysis(r.Context(), url)
		if err != nil {
			writeServiceError(w, svc, err)
			return
		}
		writeJSON(w, http.StatusOK, toAnalysisResponse(e))
	}
}

// generateRecipeHandler godoc
// @Summary Receta personalizada
// @Tags analysis
// @Accept json
// @Produce json
// @Param body body Profile true "perfil del usuario"
// @Success 200 {object} recipeResponse
// @Failure 400 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /api/generate-recipe [post]
func generateRecipeHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p Profile
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		recipe, err := svc.GenerateRecipe(r.Context(), p)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				writeError(w, http.StatusBadRequest, "health_goal or dietary_preference required")
				return
			}
			writeServiceError(w, svc, err)
			return
		}
		writeJSON(w, http.StatusOK, recipeResponse{Success: true, Recipe: recipe})
	}
}

// ttsDirectionsHandler godoc
// @Summary Leer los pasos de la receta
// @Description Devuelve el mp3 en base64.
// @Tags analysis
// @Accept json
// @Produce json
// @Param body body ttsRequest true "pasos"
// @Success 200 {object} ttsResponse
// @Failure 400 {object} errorResponse
// @Failure 503 {object} errorResponse
// @Router /api/tts-directions [post]
func ttsDirectionsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ttsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		audio, err := svc.DirectionsAudio(r.Context(), req.Directions)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				writeError(w, http.StatusBadRequest, "directions required")
				return
			}
			writeServiceError(w, svc, err)
			return
		}
		writeJSON(w, http.StatusOK, ttsResponse{
			Success:     true,
			AudioBase64: base64.StdEncoding.EncodeToString(audio),
		})
	}
}

// listFoodLogHandler godoc
// @Summary Últimos análisis
// @Tags analysis
// @Produce json
// @Param limit query int false "máximo de entradas (default 20, máx 200)"
// @Success 200 {object} foodLogResponse
// @Failure 500 {object} errorResponse
// @Router /api/food-log [get]
func listFoodLogHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = n
		}

		entries, err := svc.Recent(r.Context(), limit)
		if err != nil {
			writeServiceError(w, svc, err)
			return
		}
		writeJSON(w, http.StatusOK, foodLogResponse{Success: true, Entries: entries})
	}
}

func toAnalysisResponse(e Entry) analysisResponse {
	return analysisResponse{
		Success:             true,
		Message:             "Image processed successfully",
		ID:                  e.ID,
		ImageURL:            e.ImageURL,
		ShortURL:            e.ShortURL,
		NutritionalAnalysis: e.Analysis,
	}
}

func writeServiceError(w http.ResponseWriter, svc *Service, err error) {
	switch {
	case errors.Is(err, ErrNoImageURL):
		writeError(w, http.StatusBadRequest, "No image URL provided")
	case errors.Is(err, ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ai.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		svc.log.Error("analysis request failed", map[string]any{"err": err})
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
