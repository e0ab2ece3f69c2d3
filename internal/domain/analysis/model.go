package analysis

import (
	"encoding/json"
	"time"
)

type Source string

const (
	SourceAnalyzeImage Source = "analyze-image"
	SourceNutritional  Source = "nutritional-analysis"
	SourceAuto         Source = "auto"
)

type Macronutrients struct {
	Protein float64 `json:"protein"`
	Fats    float64 `json:"fats"`
	Carbs   float64 `json:"carbs"`
}

type Micronutrients struct {
	Vitamins []string `json:"vitamins"`
	Minerals []string `json:"minerals"`
}

// NutritionalAnalysis es la salida estructurada que pedimos al modelo.
type NutritionalAnalysis struct {
	Macronutrients  Macronutrients `json:"macronutrients"`
	Micronutrients  Micronutrients `json:"micronutrients"`
	IsNutrientDense bool           `json:"is_nutrient_dense"`
	Explanation     string         `json:"explanation"`
}

// Entry es un registro del food log.
type Entry struct {
	ID          string              `json:"id"`
	ImageURL    string              `json:"imageUrl"`
	ShortURL    string              `json:"shortUrl"`
	Source      Source              `json:"source"`
	Description string              `json:"description,omitempty"`
	Analysis    NutritionalAnalysis `json:"nutritionalAnalysis"`
	CreatedAt   time.Time           `json:"created_at"`
}

// Profile son los datos de usuario que llegan por el stream de la llamada.
type Profile struct {
	HealthGoal        string `json:"health_goal"`
	DietaryPreference string `json:"dietary_preference"`
	UserAge           any    `json:"user_age,omitempty"`
	UserWeight        any    `json:"user_weight,omitempty"`
	UserHeight        any    `json:"user_height,omitempty"`
	UserName          string `json:"user_name,omitempty"`
	UserGender        string `json:"user_gender,omitempty"`
	AdditionalNotes   string `json:"additional_notes,omitempty"`
}

type Recipe struct {
	RecipeName  string   `json:"recipe_name"`
	Ingredients []string `json:"ingredients"`
	Directions  []string `json:"directions"`
}

// analysisSchema se manda indentado en el prompt; el modelo responde mejor así.
var analysisSchema = map[string]any{
	"title": "Nutritional Analysis",
	"type":  "object",
	"properties": map[string]any{
		"macronutrients": map[string]any{
			"type":  "object",
			"title": "Macronutrients",
			"properties": map[string]any{
				"protein": map[string]any{"type": "number", "title": "Protein (g)"},
				"fats":    map[string]any{"type": "number", "title": "Fats (g)"},
				"carbs":   map[string]any{"type": "number", "title": "Carbohydrates (g)"},
			},
			"required": []string{"protein", "fats", "carbs"},
		},
		"micronutrients": map[string]any{
			"type":  "object",
			"title": "Micronutrients",
			"properties": map[string]any{
				"vitamins": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "title": "Vitamins"},
				"minerals": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "title": "Minerals"},
			},
			"required": []string{"vitamins", "minerals"},
		},
		"is_nutrient_dense": map[string]any{"type": "boolean", "title": "Is Nutrient Dense?"},
		"explanation":       map[string]any{"type": "string", "title": "Nutrient Density Explanation"},
	},
	"required": []string{"macronutrients", "micronutrients", "is_nutrient_dense", "explanation"},
}

var recipeSchema = map[string]any{
	"title": "Recipe",
	"type":  "object",
	"properties": map[string]any{
		"recipe_name": map[string]any{"type": "string"},
		"ingredients": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"directions":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	},
	"required": []string{"recipe_name", "ingredients", "directions"},
}

func indentedSchema(schema map[string]any) string {
	b, _ := json.MarshalIndent(schema, "", "    ")
	return string(b)
}
