package images

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/api/upload-image", uploadImageHandler(svc))
}

type uploadImageRequest struct {
	Image string `json:"image"`
}

type uploadImageResponse struct {
	Success bool `json:"success"`
	Upload
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// uploadImageHandler godoc
// @Summary Subir imagen de comida
// @Description Acepta JSON `{image: "data:image/...;base64,..."}` o multipart con el campo `image`. Guarda la imagen, acorta su URL (si el acortador falla se devuelve la original) y publica `newImage` en el stream de imágenes.
// @Tags images
// @Accept json,mpfd
// @Produce json
// @Param body body uploadImageRequest false "imagen como data URL"
// @Success 200 {object} uploadImageResponse
// @Failure 400 {object} errorResponse
// @Failure 413 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /api/upload-image [post]
func uploadImageHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// base64 ocupa ~4/3 del binario; dejamos margen para el JSON.
		r.Body = http.MaxBytesReader(w, r.Body, MaxImageBytes*2)

		var (
			up  Upload
			err error
		)

		mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if strings.HasPrefix(mt, "multipart/") {
			if perr := r.ParseMultipartForm(MaxImageBytes); perr != nil {
				writeError(w, http.StatusBadRequest, "invalid multipart body")
				return
			}
			file, hdr, ferr := r.FormFile("image")
			if ferr != nil {
				writeError(w, http.StatusBadRequest, "image field required")
				return
			}
			defer file.Close()

			data, rerr := io.ReadAll(io.LimitReader(file, MaxImageBytes+1))
			if rerr != nil {
				writeError(w, http.StatusBadRequest, "invalid image")
				return
			}
			up, err = svc.Save(r.Context(), data, hdr.Header.Get("Content-Type"), SourceUpload)
		} else {
			var req uploadImageRequest
			if derr := json.NewDecoder(r.Body).Decode(&req); derr != nil {
				writeError(w, http.StatusBadRequest, "invalid json")
				return
			}
			if strings.TrimSpace(req.Image) == "" {
				writeError(w, http.StatusBadRequest, "No image provided")
				return
			}
			up, err = svc.IngestDataURL(r.Context(), req.Image, SourceUpload)
		}

		if err != nil {
			switch {
			case errors.Is(err, ErrImageTooLarge):
				writeError(w, http.StatusRequestEntityTooLarge, err.Error())
			case errors.Is(err, ErrInvalidImage), errors.Is(err, ErrUnsupportedImage):
				writeError(w, http.StatusBadRequest, err.Error())
			default:
				svc.log.Error("upload failed", map[string]any{"err": err})
				writeError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}

		writeJSON(w, http.StatusOK, uploadImageResponse{Success: true, Upload: up})
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
