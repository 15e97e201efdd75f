package model

import (
	"encoding/json"

	"github.com/recettes-ai/backend/internal/airtable"
)

// NutritionInfo holds per-serving nutrition values for a recipe.
type NutritionInfo struct {
	Calories float64           `json:"calories"`
	Protein  float64           `json:"protein"`
	Carbs    float64           `json:"carbs"`
	Fat      float64           `json:"fat"`
	Vitamins NutritionVitamins `json:"vitamins"`
	Minerals NutritionMinerals `json:"minerals"`
}

// NutritionVitamins holds vitamin values as a percentage of daily intake.
type NutritionVitamins struct {
	A float64 `json:"a"`
	C float64 `json:"c"`
	D float64 `json:"d"`
}

// NutritionMinerals holds mineral values in milligrams.
type NutritionMinerals struct {
	Calcium   float64 `json:"calcium"`
	Iron      float64 `json:"iron"`
	Magnesium float64 `json:"magnesium"`
}

// ZeroNutrition returns the all-zero nutrition structure used whenever the
// stored nutrition blob is absent or unparseable.
func ZeroNutrition() NutritionInfo {
	return NutritionInfo{}
}

// Recipe is the canonical, fully-populated representation of a recipe. Every
// field is always present regardless of what the store returned.
type Recipe struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Type         string        `json:"type"`
	Difficulty   string        `json:"difficulty"`
	PrepTime     int           `json:"prepTime"`
	CookTime     int           `json:"cookTime"`
	Servings     int           `json:"servings"`
	Ingredients  string        `json:"ingredients"`
	Instructions string        `json:"instructions"`
	Nutrition    NutritionInfo `json:"nutrition"`
	Allergies    []string      `json:"allergies"`
	ImageURL     string        `json:"imageUrl,omitempty"`
	CreatedAt    string        `json:"createdAt"`
	IsFavorite   bool          `json:"isFavorite"`
}

// RecipeFromRecord normalizes a raw store record into a canonical Recipe.
// The store schema uses French field names; this is the single point where
// untyped external data enters the system. Malformed nutrition JSON is
// replaced with the zero structure rather than propagated: one corrupt blob
// must never make a recipe unviewable.
func RecipeFromRecord(record *airtable.Record) Recipe {
	fields := record.Fields
	if fields == nil {
		fields = map[string]interface{}{}
	}

	nutrition := ZeroNutrition()
	if raw := fieldString(fields, "nutrition"); raw != "" {
		var parsed NutritionInfo
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			nutrition = parsed
		}
	}

	createdAt := fieldString(fields, "dateCreation")
	if createdAt == "" {
		createdAt = record.CreatedTime
	}

	servings := fieldInt(fields, "portions")
	if servings == 0 {
		servings = 1
	}

	return Recipe{
		ID:           record.ID,
		Title:        fieldString(fields, "titre"),
		Description:  fieldString(fields, "description"),
		Type:         fieldString(fields, "type"),
		Difficulty:   fieldString(fields, "difficulté"),
		PrepTime:     fieldInt(fields, "tempsPreparation"),
		CookTime:     fieldInt(fields, "tempsCuisson"),
		Servings:     servings,
		Ingredients:  fieldString(fields, "ingredients"),
		Instructions: fieldString(fields, "instructions"),
		Nutrition:    nutrition,
		Allergies:    fieldStringSlice(fields, "allergenes"),
		ImageURL:     fieldString(fields, "imageUrl"),
		CreatedAt:    createdAt,
		IsFavorite:   fieldBool(fields, "estFavori"),
	}
}

func fieldString(fields map[string]interface{}, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func fieldInt(fields map[string]interface{}, key string) int {
	switch v := fields[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func fieldBool(fields map[string]interface{}, key string) bool {
	if v, ok := fields[key].(bool); ok {
		return v
	}
	return false
}

func fieldStringSlice(fields map[string]interface{}, key string) []string {
	result := []string{}
	items, ok := fields[key].([]interface{})
	if !ok {
		return result
	}
	for _, item := range items {
		if s, ok := item.(string); ok {
			result = append(result, s)
		}
	}
	return result
}
