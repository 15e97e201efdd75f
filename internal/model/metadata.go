package model

import "github.com/recettes-ai/backend/internal/airtable"

// Allergen is a curated allergen entry from the metadata table.
type Allergen struct {
	ID          string `json:"id"`
	Name        string `json:"nom"`
	Description string `json:"description"`
}

// DishType is a dish category entry from the metadata table.
type DishType struct {
	ID          string `json:"id"`
	Name        string `json:"nom"`
	Description string `json:"description"`
}

// Ingredient is an ingredient entry from the metadata table.
type Ingredient struct {
	ID          string `json:"id"`
	Name        string `json:"nom"`
	Category    string `json:"categorie"`
	DefaultUnit string `json:"uniteParDefaut"`
}

// Metadata bundles the three metadata collections returned together by the
// metadata endpoint.
type Metadata struct {
	Allergens   []Allergen   `json:"allergenes"`
	DishTypes   []DishType   `json:"typesPlats"`
	Ingredients []Ingredient `json:"ingredients"`
}

// AllergenFromRecord normalizes a raw allergen record.
func AllergenFromRecord(record *airtable.Record) Allergen {
	return Allergen{
		ID:          record.ID,
		Name:        fieldString(record.Fields, "nom"),
		Description: fieldString(record.Fields, "description"),
	}
}

// DishTypeFromRecord normalizes a raw dish type record.
func DishTypeFromRecord(record *airtable.Record) DishType {
	return DishType{
		ID:          record.ID,
		Name:        fieldString(record.Fields, "nom"),
		Description: fieldString(record.Fields, "description"),
	}
}

// IngredientFromRecord normalizes a raw ingredient record.
func IngredientFromRecord(record *airtable.Record) Ingredient {
	return Ingredient{
		ID:          record.ID,
		Name:        fieldString(record.Fields, "nom"),
		Category:    fieldString(record.Fields, "categorie"),
		DefaultUnit: fieldString(record.Fields, "uniteParDefaut"),
	}
}
