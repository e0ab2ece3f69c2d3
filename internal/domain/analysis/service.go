package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"nutrition-call-assistant/internal/domain/images"
	"nutrition-call-assistant/internal/platform/eventbus"
	"nutrition-call-assistant/internal/platform/logger"
	"nutrition-call-assistant/internal/ports/ai"
)

var (
	ErrNoImageURL   = errors.New("no image url provided")
	ErrInvalidInput = errors.New("invalid input")
)

const (
	nutritionistPrompt = "You are an AI nutritionist that analyzes food images and outputs structured nutritional data in JSON.\nThe JSON object must use this schema: "
	chefPrompt         = "You are an AI chef and nutritionist. Create one recipe tailored to the user's profile and output it as JSON.\nThe JSON object must use this schema: "
)

// ImageIngester guarda imágenes en base64 y acorta URLs.
type ImageIngester interface {
	IngestDataURL(ctx context.Context, dataURL, source string) (images.Upload, error)
	ShortURL(ctx context.Context, longURL string) string
}

type Publisher interface {
	Publish(eventType string, data map[string]any) int
}

// Deps agrupa los colaboradores; Vision y Speech son opcionales.
type Deps struct {
	Completer ai.StructuredCompleter
	Vision    ai.VisionDescriber
	Speech    ai.SpeechSynthesizer
	Images    ImageIngester
	Repo      Repository
	Bus       Publisher
	Log       logger.Logger
}

type Service struct {
	completer ai.StructuredCompleter
	vision    ai.VisionDescriber
	speech    ai.SpeechSynthesizer
	images    ImageIngester
	repo      Repository
	bus       Publisher
	log       logger.Logger
	now       func() time.Time
}

func NewService(d Deps) *Service {
	log := d.Log
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		completer: d.Completer,
		vision:    d.Vision,
		speech:    d.Speech,
		images:    d.Images,
		repo:      d.Repo,
		bus:       d.Bus,
		log:       log.With(map[string]any{"component": "analysis"}),
		now:       time.Now,
	}
}

type AnalyzeInput struct {
	ImageURL string
	IsBase64 bool
}

// AnalyzeImage manda la URL de la imagen al modelo estructurado.
// Las imágenes en base64 se guardan primero para tener una URL servible.
func (s *Service) AnalyzeImage(ctx context.Context, in AnalyzeInput) (Entry, error) {
	imageURL := strings.TrimSpace(in.ImageURL)
	if imageURL == "" {
		return Entry{}, ErrNoImageURL
	}

	var shortURL string
	if in.IsBase64 || strings.HasPrefix(imageURL, "data:") {
		up, err := s.images.IngestDataURL(ctx, imageURL, images.SourceAnalysis)
		if err != nil {
			if errors.Is(err, images.ErrInvalidImage) || errors.Is(err, images.ErrUnsupportedImage) || errors.Is(err, images.ErrImageTooLarge) {
				return Entry{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
			}
			return Entry{}, err
		}
		imageURL, shortURL = up.URL, up.ShortURL
	} else {
		shortURL = s.images.ShortURL(ctx, imageURL)
	}

	return s.analyzeURL(ctx, imageURL, shortURL, SourceAnalyzeImage)
}

// Analyze analiza una URL ya guardada; lo usa el auto-análisis de uploads.
func (s *Service) Analyze(ctx context.Context, imageURL, shortURL string, source Source) (Entry, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return Entry{}, ErrNoImageURL
	}
	if shortURL == "" {
		shortURL = imageURL
	}
	return s.analyzeURL(ctx, imageURL, shortURL, source)
}

func (s *Service) analyzeURL(ctx context.Context, imageURL, shortURL string, source Source) (Entry, error) {
	s.log.Info("requesting nutritional analysis", map[string]any{"image_url": shortURL, "source": string(source)})

	var out NutritionalAnalysis
	err := s.completer.CompleteJSON(ctx, []ai.Message{
		{Role: "system", Content: nutritionistPrompt + indentedSchema(analysisSchema)},
		{Role: "user", Content: "Analyze the following food image for macronutrients, micronutrients, and nutrient density: " + imageURL},
	}, &out)
	if err != nil {
		return Entry{}, err
	}

	return s.record(ctx, Entry{
		ImageURL: imageURL,
		ShortURL: shortURL,
		Source:   source,
		Analysis: out,
	}), nil
}

// NutritionalAnalysis describe la imagen con el modelo de visión y analiza
// la descripción. Sin visión configurada, analiza la URL directamente.
func (s *Service) NutritionalAnalysis(ctx context.Context, imageURL string) (Entry, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return Entry{}, ErrNoImageURL
	}
	if s.vision == nil {
		return s.analyzeURL(ctx, imageURL, s.images.ShortURL(ctx, imageURL), SourceNutritional)
	}

	desc, err := s.vision.DescribeImage(ctx, imageURL, "")
	if err != nil {
		if errors.Is(err, ai.ErrNotConfigured) {
			return s.analyzeURL(ctx, imageURL, s.images.ShortURL(ctx, imageURL), SourceNutritional)
		}
		return Entry{}, err
	}

	var out NutritionalAnalysis
	err = s.completer.CompleteJSON(ctx, []ai.Message{
		{Role: "system", Content: nutritionistPrompt + indentedSchema(analysisSchema)},
		{Role: "user", Content: "Analyze this meal for macronutrients, micronutrients, and nutrient density. Description of the photo: " + desc},
	}, &out)
	if err != nil {
		return Entry{}, err
	}

	return s.record(ctx, Entry{
		ImageURL:    imageURL,
		ShortURL:    s.images.ShortURL(ctx, imageURL),
		Source:      SourceNutritional,
		Description: desc,
		Analysis:    out,
	}), nil
}

// record guarda la entrada y publica analysis_completed.
// Un fallo del repo no invalida el análisis ya obtenido.
func (s *Service) record(ctx context.Context, e Entry) Entry {
	e.ID = uuid.NewString()
	e.CreatedAt = s.now().UTC()

	if s.repo != nil {
		if err := s.repo.Create(ctx, e); err != nil {
			s.log.Error("food log write failed", map[string]any{"entry_id": e.ID, "err": err})
		}
	}

	s.bus.Publish(eventbus.TypeAnalysisCompleted, map[string]any{
		"id":                  e.ID,
		"imageUrl":            e.ImageURL,
		"shortUrl":            e.ShortURL,
		"source":              string(e.Source),
		"nutritionalAnalysis": e.Analysis,
		"created_at":          e.CreatedAt.Format(time.RFC3339),
	})
	return e
}

// GenerateRecipe pide una receta para el perfil. Como en el webhook, basta
// con objetivo o preferencia.
func (s *Service) GenerateRecipe(ctx context.Context, p Profile) (Recipe, error) {
	p.HealthGoal = strings.TrimSpace(p.HealthGoal)
	p.DietaryPreference = strings.TrimSpace(p.DietaryPreference)
	if p.HealthGoal == "" && p.DietaryPreference == "" {
		return Recipe{}, ErrInvalidInput
	}

	var sb strings.Builder
	sb.WriteString("Create a personalized recipe for this user.\n")
	writeLine(&sb, "Health goal", p.HealthGoal)
	writeLine(&sb, "Dietary preference", p.DietaryPreference)
	writeLine(&sb, "Age", p.UserAge)
	writeLine(&sb, "Weight (lbs)", p.UserWeight)
	writeLine(&sb, "Height", p.UserHeight)
	writeLine(&sb, "Gender", p.UserGender)
	writeLine(&sb, "Notes", p.AdditionalNotes)

	var out Recipe
	err := s.completer.CompleteJSON(ctx, []ai.Message{
		{Role: "system", Content: chefPrompt + indentedSchema(recipeSchema)},
		{Role: "user", Content: sb.String()},
	}, &out)
	if err != nil {
		return Recipe{}, err
	}

	out.RecipeName = strings.TrimSpace(out.RecipeName)
	if out.RecipeName == "" || len(out.Directions) == 0 {
		return Recipe{}, fmt.Errorf("%w: incomplete recipe", ai.ErrUpstream)
	}
	if out.Ingredients == nil {
		out.Ingredients = []string{}
	}
	return out, nil
}

// DirectionsAudio lee los pasos numerados y devuelve el mp3.
func (s *Service) DirectionsAudio(ctx context.Context, directions []string) ([]byte, error) {
	steps := make([]string, 0, len(directions))
	for _, d := range directions {
		if d = strings.TrimSpace(d); d != "" {
			steps = append(steps, fmt.Sprintf("Step %d. %s", len(steps)+1, d))
		}
	}
	if len(steps) == 0 {
		return nil, ErrInvalidInput
	}
	if s.speech == nil {
		return nil, ai.ErrNotConfigured
	}
	return s.speech.Synthesize(ctx, strings.Join(steps, " "))
}

func (s *Service) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s.repo == nil {
		return []Entry{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	return s.repo.ListRecent(ctx, limit)
}

func writeLine(sb *strings.Builder, label string, v any) {
	if v == nil {
		return
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return
	}
	fmt.Fprintf(sb, "- %s: %s\n", label, s)
}
