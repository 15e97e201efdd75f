package service

import (
	"context"

	"github.com/recettes-ai/backend/internal/airtable"
	"github.com/recettes-ai/backend/internal/model"
)

// RecordStore is the subset of the Airtable client the services depend on.
// Tests substitute a fake implementation.
type RecordStore interface {
	Select(ctx context.Context, table string, opts airtable.SelectOptions) ([]airtable.Record, error)
	Find(ctx context.Context, table, id string) (*airtable.Record, error)
	Create(ctx context.Context, table string, fields map[string]interface{}) (*airtable.Record, error)
	Update(ctx context.Context, table, id string, fields map[string]interface{}) (*airtable.Record, error)
	Destroy(ctx context.Context, table, id string) error
}

// IRecipeService defines the recipe operations exposed to the HTTP layer.
type IRecipeService interface {
	List(ctx context.Context, query RecipeQuery) (*PaginatedRecipes, error)
	Get(ctx context.Context, id string) (*model.Recipe, error)
	Create(ctx context.Context, generated *GeneratedRecipe) (*model.Recipe, error)
	Update(ctx context.Context, id string, updates RecipeUpdate) (*model.Recipe, error)
	Delete(ctx context.Context, id string) error
	ToggleFavorite(ctx context.Context, id string) (*model.Recipe, error)
}

// ILLMService defines the generation operations exposed to the HTTP layer.
type ILLMService interface {
	GenerateRecipe(ctx context.Context, req GenerateRequest) (*GeneratedRecipe, error)
	AnalyzeNutrition(ctx context.Context, ingredients string, servings int) (*model.NutritionInfo, error)
}

// IMetadataService defines the metadata read operations.
type IMetadataService interface {
	Allergens(ctx context.Context) ([]model.Allergen, error)
	DishTypes(ctx context.Context) ([]model.DishType, error)
	Ingredients(ctx context.Context) ([]model.Ingredient, error)
	All(ctx context.Context) (*model.Metadata, error)
}
