// Package macros calcula calorías y macros diarios a partir del perfil.
//
// Calorías: Mifflin-St Jeor con factor de actividad moderada (1.55) y ajuste
// por objetivo. Proteína 1.5 g/kg, grasas 25% de las calorías, carbohidratos
// el resto.
package macros

import (
	"math"
	"strconv"
	"strings"
)

const (
	lbToKg         = 0.453592
	inchToCm       = 2.54
	activityFactor = 1.55
	proteinPerKg   = 1.5
	fatShare       = 0.25
)

// Input usa las unidades en que llegan los datos de la llamada:
// peso en libras, altura "5'10" o pulgadas.
type Input struct {
	Weight float64
	Height string
	Age    float64
	Gender string
	Goal   string
}

type Targets struct {
	Calories int `json:"calories"`
	Protein  int `json:"protein"`
	Carbs    int `json:"carbs"`
	Fats     int `json:"fats"`
}

// Compute devuelve ceros si falta peso, altura, edad o género.
func Compute(in Input) Targets {
	cal := DailyCalories(in)
	if cal == 0 {
		return Targets{}
	}
	t := MacroTargets(cal, in.Weight)
	t.Calories = cal
	return t
}

func DailyCalories(in Input) int {
	heightCm, ok := HeightCm(in.Height)
	gender := strings.ToLower(strings.TrimSpace(in.Gender))
	if in.Weight <= 0 || !ok || in.Age <= 0 || gender == "" {
		return 0
	}

	kg := in.Weight * lbToKg
	bmr := 10*kg + 6.25*heightCm - 5*in.Age
	if gender == "male" {
		bmr += 5
	} else {
		bmr -= 161
	}
	tdee := bmr * activityFactor

	switch strings.ToLower(strings.TrimSpace(in.Goal)) {
	case "gain muscle", "gain more muscle":
		tdee += 300
	case "lose weight":
		tdee -= 500
	}
	return round(tdee)
}

// MacroTargets reparte calories; weightLbs <= 0 usa 170.
func MacroTargets(calories int, weightLbs float64) Targets {
	if calories <= 0 {
		return Targets{}
	}
	if weightLbs <= 0 {
		weightLbs = 170
	}
	c := float64(calories)
	protein := round(weightLbs * lbToKg * proteinPerKg)
	return Targets{
		Protein: protein,
		Carbs:   round((c - float64(protein)*4 - c*fatShare) / 4),
		Fats:    round(c * fatShare / 9),
	}
}

// HeightCm acepta "5'10", "5'10\"", "5' 10" o pulgadas ("70").
func HeightCm(h string) (float64, bool) {
	h = strings.TrimSpace(h)
	if h == "" {
		return 0, false
	}
	if feet, inches, found := strings.Cut(h, "'"); found {
		f, ok := leadingInt(feet)
		if !ok {
			return 0, false
		}
		in, _ := leadingInt(inches)
		return float64(f*12+in) * inchToCm, true
	}
	v, err := strconv.ParseFloat(h, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v * inchToCm, true
}

func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	return n, err == nil
}

// round redondea .5 hacia arriba, igual que el dashboard.
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}
