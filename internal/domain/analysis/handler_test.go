package analysis

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"nutrition-call-assistant/internal/ports/ai"
)

func doReq(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func newTestRouter(f fixture) http.Handler {
	r := chi.NewRouter()
	RegisterRoutes(r, f.svc)
	return r
}

func TestAnalyzeImageHandler(t *testing.T) {
	f := newFixture(Deps{})
	h := newTestRouter(f)

	rec, out := doReq(t, h, http.MethodPost, "/api/analyze-image", `{"imageUrl":null}`)
	if rec.Code != http.StatusBadRequest || out["success"] != false || out["error"] != "No image URL provided" {
		t.Fatalf("null url: %d %v", rec.Code, out)
	}

	rec, out = doReq(t, h, http.MethodPost, "/api/analyze-image", `{"imageUrl":"https://x/meal.png"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", rec.Code, out)
	}
	if out["success"] != true || out["message"] != "Image processed successfully" || out["shortUrl"] != "https://tinyurl.com/short" {
		t.Fatalf("unexpected body %v", out)
	}
	na, _ := out["nutritionalAnalysis"].(map[string]any)
	if na["is_nutrient_dense"] != true {
		t.Fatalf("analysis missing: %v", out)
	}
}

func TestAnalyzeImageHandler_ErrorMapping(t *testing.T) {
	f := newFixture(Deps{})
	h := newTestRouter(f)

	f.completer.err = errors.New("upstream exploded")
	rec, out := doReq(t, h, http.MethodPost, "/api/analyze-image", `{"imageUrl":"https://x/meal.png"}`)
	if rec.Code != http.StatusInternalServerError || out["error"] != "upstream exploded" {
		t.Fatalf("expected 500 with upstream message, got %d %v", rec.Code, out)
	}

	f.completer.err = ai.ErrNotConfigured
	rec, _ = doReq(t, h, http.MethodPost, "/api/nutritional-analysis", `{"imageUrl":"https://x/meal.png"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	rec, _ = doReq(t, h, http.MethodPost, "/api/analyze-image", `nope`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid json, got %d", rec.Code)
	}
}

func TestRecipeAndTTSHandlers(t *testing.T) {
	f := newFixture(Deps{Speech: &fakeSpeech{}})
	h := newTestRouter(f)

	f.completer.response = `{"recipe_name":"Salad","ingredients":["lettuce"],"directions":["Mix"]}`
	rec, out := doReq(t, h, http.MethodPost, "/api/generate-recipe", `{"health_goal":"lose weight","dietary_preference":"vegan"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("recipe: %d %v", rec.Code, out)
	}
	recipe, _ := out["recipe"].(map[string]any)
	if recipe["recipe_name"] != "Salad" {
		t.Fatalf("unexpected recipe %v", out)
	}

	rec, _ = doReq(t, h, http.MethodPost, "/api/generate-recipe", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without goal/preference, got %d", rec.Code)
	}

	rec, out = doReq(t, h, http.MethodPost, "/api/tts-directions", `{"directions":["Mix"]}`)
	if rec.Code != http.StatusOK || out["audio_base64"] != "bXAz" {
		t.Fatalf("tts: %d %v", rec.Code, out)
	}
}

func TestFoodLogHandler(t *testing.T) {
	f := newFixture(Deps{})
	h := newTestRouter(f)

	for _, u := range []string{"https://x/1.png", "https://x/2.png"} {
		if rec, out := doReq(t, h, http.MethodPost, "/api/analyze-image", `{"imageUrl":"`+u+`"}`); rec.Code != http.StatusOK {
			t.Fatalf("seed: %d %v", rec.Code, out)
		}
	}

	rec, out := doReq(t, h, http.MethodGet, "/api/food-log?limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("food log: %d", rec.Code)
	}
	entries, _ := out["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %v", out)
	}
	first, _ := entries[0].(map[string]any)
	if first["imageUrl"] != "https://x/2.png" {
		t.Fatalf("newest entry first, got %v", first)
	}

	rec, _ = doReq(t, h, http.MethodGet, "/api/food-log?limit=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
	}
}
