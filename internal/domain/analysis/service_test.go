package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"nutrition-call-assistant/internal/domain/images"
	"nutrition-call-assistant/internal/platform/eventbus"
	"nutrition-call-assistant/internal/ports/ai"
)

type fakeCompleter struct {
	mu       sync.Mutex
	calls    [][]ai.Message
	response string
	err      error
}

func (f *fakeCompleter) CompleteJSON(_ context.Context, msgs []ai.Message, out any) error {
	f.mu.Lock()
	f.calls = append(f.calls, msgs)
	f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.response), out)
}

func (f *fakeCompleter) Calls() [][]ai.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]ai.Message(nil), f.calls...)
}

type fakeVision struct {
	desc string
	err  error
}

func (f fakeVision) DescribeImage(context.Context, string, string) (string, error) {
	return f.desc, f.err
}

type fakeSpeech struct {
	text string
}

func (f *fakeSpeech) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.text = text
	return []byte("mp3"), nil
}

type fakeIngester struct {
	ingested []string
	shortErr bool
}

func (f *fakeIngester) IngestDataURL(_ context.Context, dataURL, source string) (images.Upload, error) {
	if !strings.HasPrefix(dataURL, "data:image/") {
		return images.Upload{}, images.ErrInvalidImage
	}
	f.ingested = append(f.ingested, source)
	return images.Upload{
		URL:      "http://localhost:3103/uploads/image-1.png",
		ShortURL: "https://tinyurl.com/img1",
		Source:   source,
	}, nil
}

func (f *fakeIngester) ShortURL(_ context.Context, long string) string {
	if f.shortErr {
		return long
	}
	return "https://tinyurl.com/short"
}

type recordingBus struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (b *recordingBus) Publish(t string, data map[string]any) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, eventbus.Event{Type: t, Data: data})
	return 1
}

func (b *recordingBus) Events() []eventbus.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]eventbus.Event(nil), b.events...)
}

type memRepo struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *memRepo) Create(_ context.Context, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

func (r *memRepo) ListRecent(_ context.Context, limit int) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, 0, len(r.entries))
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.entries[i])
	}
	return out, nil
}

const analysisResponseJSON = `{"macronutrients":{"protein":32,"fats":14,"carbs":50},"micronutrients":{"vitamins":["A","C"],"minerals":["Iron"]},"is_nutrient_dense":true,"explanation":"lean protein and vegetables"}`

type fixture struct {
	svc       *Service
	completer *fakeCompleter
	ingester  *fakeIngester
	bus       *recordingBus
	repo      *memRepo
}

func newFixture(d Deps) fixture {
	f := fixture{
		completer: &fakeCompleter{response: analysisResponseJSON},
		ingester:  &fakeIngester{},
		bus:       &recordingBus{},
		repo:      &memRepo{},
	}
	d.Completer = f.completer
	d.Images = f.ingester
	d.Bus = f.bus
	d.Repo = f.repo
	f.svc = NewService(d)
	f.svc.now = func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) }
	return f
}

func TestAnalyzeImage_RequiresURL(t *testing.T) {
	f := newFixture(Deps{})
	for _, in := range []string{"", "   "} {
		if _, err := f.svc.AnalyzeImage(context.Background(), AnalyzeInput{ImageURL: in}); !errors.Is(err, ErrNoImageURL) {
			t.Fatalf("%q: expected ErrNoImageURL, got %v", in, err)
		}
	}
	if len(f.completer.Calls()) != 0 {
		t.Fatalf("model must not be called without an image")
	}
}

func TestAnalyzeImage_RemoteURL(t *testing.T) {
	f := newFixture(Deps{})

	e, err := f.svc.AnalyzeImage(context.Background(), AnalyzeInput{ImageURL: "https://cdn.example.com/meal.jpg"})
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}
	if e.Analysis.Macronutrients.Protein != 32 || !e.Analysis.IsNutrientDense {
		t.Fatalf("analysis not decoded: %+v", e.Analysis)
	}
	if e.ShortURL != "https://tinyurl.com/short" || e.Source != SourceAnalyzeImage || e.ID == "" {
		t.Fatalf("unexpected entry %+v", e)
	}

	msgs := f.completer.Calls()[0]
	if msgs[0].Role != "system" || !strings.Contains(msgs[0].Content, "\n    \"properties\"") {
		t.Fatalf("system prompt must carry the indented schema: %q", msgs[0].Content)
	}
	if !strings.HasSuffix(msgs[1].Content, "https://cdn.example.com/meal.jpg") {
		t.Fatalf("user prompt must carry the url: %q", msgs[1].Content)
	}

	if len(f.repo.entries) != 1 {
		t.Fatalf("entry must be stored")
	}
	evts := f.bus.Events()
	if len(evts) != 1 || evts[0].Type != eventbus.TypeAnalysisCompleted || evts[0].Data["id"] != e.ID {
		t.Fatalf("expected analysis_completed, got %+v", evts)
	}
}

func TestAnalyzeImage_ShortenerFallback(t *testing.T) {
	f := newFixture(Deps{})
	f.ingester.shortErr = true

	e, err := f.svc.AnalyzeImage(context.Background(), AnalyzeInput{ImageURL: "https://cdn.example.com/meal.jpg"})
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}
	if e.ShortURL != "https://cdn.example.com/meal.jpg" {
		t.Fatalf("expected original url, got %q", e.ShortURL)
	}
}

func TestAnalyzeImage_Base64IsStoredFirst(t *testing.T) {
	f := newFixture(Deps{})

	e, err := f.svc.AnalyzeImage(context.Background(), AnalyzeInput{ImageURL: "data:image/png;base64,iVBORw0KGgo=", IsBase64: true})
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}
	if len(f.ingester.ingested) != 1 || f.ingester.ingested[0] != images.SourceAnalysis {
		t.Fatalf("data url must be ingested with analyze source")
	}
	if e.ImageURL != "http://localhost:3103/uploads/image-1.png" || e.ShortURL != "https://tinyurl.com/img1" {
		t.Fatalf("unexpected urls %+v", e)
	}

	_, err = f.svc.AnalyzeImage(context.Background(), AnalyzeInput{ImageURL: "not-a-data-url", IsBase64: true})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAnalyzeImage_UpstreamErrorPropagates(t *testing.T) {
	f := newFixture(Deps{})
	f.completer.err = errors.New("groq down")

	if _, err := f.svc.AnalyzeImage(context.Background(), AnalyzeInput{ImageURL: "https://x/y.png"}); err == nil {
		t.Fatalf("expected error")
	}
	if len(f.bus.Events()) != 0 {
		t.Fatalf("failed analyses must not be announced")
	}
}

func TestNutritionalAnalysis_UsesVisionDescription(t *testing.T) {
	f := newFixture(Deps{Vision: fakeVision{desc: "a bowl of oatmeal with berries"}})

	e, err := f.svc.NutritionalAnalysis(context.Background(), "https://x/oat.jpg")
	if err != nil {
		t.Fatalf("NutritionalAnalysis: %v", err)
	}
	if e.Description != "a bowl of oatmeal with berries" || e.Source != SourceNutritional {
		t.Fatalf("unexpected entry %+v", e)
	}
	if user := f.completer.Calls()[0][1].Content; !strings.Contains(user, "oatmeal") {
		t.Fatalf("description must reach the model: %q", user)
	}
}

func TestNutritionalAnalysis_FallsBackWithoutVision(t *testing.T) {
	f := newFixture(Deps{Vision: fakeVision{err: ai.ErrNotConfigured}})

	e, err := f.svc.NutritionalAnalysis(context.Background(), "https://x/oat.jpg")
	if err != nil {
		t.Fatalf("NutritionalAnalysis: %v", err)
	}
	if e.Description != "" || !strings.HasSuffix(f.completer.Calls()[0][1].Content, "https://x/oat.jpg") {
		t.Fatalf("expected url-based analysis, got %+v", e)
	}
}

func TestGenerateRecipe(t *testing.T) {
	f := newFixture(Deps{})
	f.completer.response = `{"recipe_name":"Tofu bowl","ingredients":["tofu","rice"],"directions":["Cook rice","Fry tofu"]}`

	if _, err := f.svc.GenerateRecipe(context.Background(), Profile{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	r, err := f.svc.GenerateRecipe(context.Background(), Profile{DietaryPreference: "vegan", UserAge: 30})
	if err != nil {
		t.Fatalf("GenerateRecipe: %v", err)
	}
	if r.RecipeName != "Tofu bowl" || len(r.Directions) != 2 {
		t.Fatalf("unexpected recipe %+v", r)
	}
	user := f.completer.Calls()[0][1].Content
	if !strings.Contains(user, "- Dietary preference: vegan") || !strings.Contains(user, "- Age: 30") || strings.Contains(user, "Health goal") {
		t.Fatalf("unexpected prompt %q", user)
	}

	f.completer.response = `{"recipe_name":""}`
	if _, err := f.svc.GenerateRecipe(context.Background(), Profile{HealthGoal: "x"}); !errors.Is(err, ai.ErrUpstream) {
		t.Fatalf("expected ai.ErrUpstream for an empty recipe, got %v", err)
	}
}

func TestDirectionsAudio(t *testing.T) {
	speech := &fakeSpeech{}
	f := newFixture(Deps{Speech: speech})

	if _, err := f.svc.DirectionsAudio(context.Background(), []string{" ", ""}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	audio, err := f.svc.DirectionsAudio(context.Background(), []string{"Boil water", "", "Add pasta"})
	if err != nil {
		t.Fatalf("DirectionsAudio: %v", err)
	}
	if string(audio) != "mp3" || speech.text != "Step 1. Boil water Step 2. Add pasta" {
		t.Fatalf("unexpected tts input %q", speech.text)
	}

	noSpeech := newFixture(Deps{})
	if _, err := noSpeech.svc.DirectionsAudio(context.Background(), []string{"x"}); !errors.Is(err, ai.ErrNotConfigured) {
		t.Fatalf("expected ai.ErrNotConfigured, got %v", err)
	}
}

func TestAutoAnalyzer_DebouncesUploads(t *testing.T) {
	f := newFixture(Deps{})
	bus := eventbus.New(nil, nil)
	auto := NewAutoAnalyzer(f.svc, bus, 30*time.Millisecond, time.Second)
	defer auto.Stop()

	bus.Publish(eventbus.TypeNewImage, map[string]any{"url": "http://x/1.png", "source": images.SourceUpload})
	bus.Publish(eventbus.TypeNewImage, map[string]any{"url": "http://x/2.png", "source": images.SourceUpload})
	bus.Publish(eventbus.TypeNewImage, map[string]any{"url": "http://x/3.png", "source": images.SourceAnalysis})

	deadline := time.Now().Add(2 * time.Second)
	for len(f.completer.Calls()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	calls := f.completer.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected a single coalesced analysis, got %d", len(calls))
	}
	if !strings.HasSuffix(calls[0][1].Content, "http://x/2.png") {
		t.Fatalf("last upload should win: %q", calls[0][1].Content)
	}
	evts := f.bus.Events()
	if len(evts) != 1 || evts[0].Data["source"] != string(SourceAuto) {
		t.Fatalf("expected auto analysis_completed, got %+v", evts)
	}
}
