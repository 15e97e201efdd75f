package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recettes-ai/backend/internal/model"
	"github.com/recettes-ai/backend/internal/service"
)

// fakeRecipeService records calls and returns canned results.
type fakeRecipeService struct {
	listCalls  []service.RecipeQuery
	listResult *service.PaginatedRecipes
	recipes    map[string]*model.Recipe
	created    []*service.GeneratedRecipe
	updates    map[string]service.RecipeUpdate
	deleteErr  error
}

func newFakeRecipeService() *fakeRecipeService {
	return &fakeRecipeService{
		recipes: map[string]*model.Recipe{},
		updates: map[string]service.RecipeUpdate{},
		listResult: &service.PaginatedRecipes{
			Data:       []model.Recipe{},
			Pagination: service.Pagination{Page: 1, Limit: 10},
		},
	}
}

func (f *fakeRecipeService) List(ctx context.Context, query service.RecipeQuery) (*service.PaginatedRecipes, error) {
	f.listCalls = append(f.listCalls, query)
	return f.listResult, nil
}

func (f *fakeRecipeService) Get(ctx context.Context, id string) (*model.Recipe, error) {
	if recipe, ok := f.recipes[id]; ok {
		return recipe, nil
	}
	return nil, service.ErrNotFound
}

func (f *fakeRecipeService) Create(ctx context.Context, generated *service.GeneratedRecipe) (*model.Recipe, error) {
	f.created = append(f.created, generated)
	recipe := &model.Recipe{
		ID:        fmt.Sprintf("rec%d", len(f.created)),
		Title:     generated.Title,
		Allergies: []string{},
	}
	f.recipes[recipe.ID] = recipe
	return recipe, nil
}

func (f *fakeRecipeService) Update(ctx context.Context, id string, updates service.RecipeUpdate) (*model.Recipe, error) {
	recipe, ok := f.recipes[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	f.updates[id] = updates
	if updates.Title != nil {
		recipe.Title = *updates.Title
	}
	if updates.IsFavorite != nil {
		recipe.IsFavorite = *updates.IsFavorite
	}
	return recipe, nil
}

func (f *fakeRecipeService) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.recipes[id]; !ok {
		return service.ErrNotFound
	}
	delete(f.recipes, id)
	return nil
}

func (f *fakeRecipeService) ToggleFavorite(ctx context.Context, id string) (*model.Recipe, error) {
	recipe, ok := f.recipes[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	recipe.IsFavorite = !recipe.IsFavorite
	return recipe, nil
}

// fakeLLMService returns canned generation results.
type fakeLLMService struct {
	generated    *service.GeneratedRecipe
	generateErr  error
	nutrition    *model.NutritionInfo
	analyzeErr   error
	generateReqs []service.GenerateRequest
}

func (f *fakeLLMService) GenerateRecipe(ctx context.Context, req service.GenerateRequest) (*service.GeneratedRecipe, error) {
	f.generateReqs = append(f.generateReqs, req)
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	return f.generated, nil
}

func (f *fakeLLMService) AnalyzeNutrition(ctx context.Context, ingredients string, servings int) (*model.NutritionInfo, error) {
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	return f.nutrition, nil
}

func setupRecipeRouter(recipes *fakeRecipeService, llm *fakeLLMService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewRecipeHandler(recipes, llm, nil)
	handler.RegisterRoutes(router.Group("/api"))
	return router
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		data, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListRecipes(t *testing.T) {
	t.Run("should pass the parsed query to the service", func(t *testing.T) {
		recipes := newFakeRecipeService()
		router := setupRecipeRouter(recipes, &fakeLLMService{})

		w := doJSON(router, "GET", "/api/recipes?search=risotto&type=Plat%20principal&difficulty=Moyen&allergies=gluten,lactose&allergies=noix&page=2&limit=5", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		require.Len(t, recipes.listCalls, 1)
		query := recipes.listCalls[0]
		assert.Equal(t, "risotto", query.Search)
		assert.Equal(t, "Plat principal", query.Type)
		assert.Equal(t, "Moyen", query.Difficulty)
		assert.Equal(t, []string{"gluten", "lactose", "noix"}, query.Allergies)
		assert.Equal(t, 2, query.Page)
		assert.Equal(t, 5, query.Limit)
	})

	t.Run("should return the envelope with pagination", func(t *testing.T) {
		recipes := newFakeRecipeService()
		recipes.listResult = &service.PaginatedRecipes{
			Data:       []model.Recipe{{ID: "rec1", Title: "Risotto aux champignons", Allergies: []string{}}},
			Pagination: service.Pagination{Page: 1, Limit: 10, Total: 1, TotalPages: 1},
		}
		router := setupRecipeRouter(recipes, &fakeLLMService{})

		w := doJSON(router, "GET", "/api/recipes?search=risotto", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var response struct {
			Success bool                     `json:"success"`
			Data    service.PaginatedRecipes `json:"data"`
			Message string                   `json:"message"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.True(t, response.Success)
		require.Len(t, response.Data.Data, 1)
		assert.Equal(t, "Risotto aux champignons", response.Data.Data[0].Title)
		assert.Equal(t, 1, response.Data.Pagination.Total)
	})

	t.Run("should reject limit above 100 before any store call", func(t *testing.T) {
		recipes := newFakeRecipeService()
		router := setupRecipeRouter(recipes, &fakeLLMService{})

		w := doJSON(router, "GET", "/api/recipes?limit=150", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, recipes.listCalls)

		var response APIResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.False(t, response.Success)
		assert.Contains(t, response.Error, "limit")
	})

	t.Run("should reject non-numeric page and limit", func(t *testing.T) {
		recipes := newFakeRecipeService()
		router := setupRecipeRouter(recipes, &fakeLLMService{})

		assert.Equal(t, http.StatusBadRequest, doJSON(router, "GET", "/api/recipes?page=abc", nil).Code)
		assert.Equal(t, http.StatusBadRequest, doJSON(router, "GET", "/api/recipes?limit=abc", nil).Code)
		assert.Empty(t, recipes.listCalls)
	})
}

func TestGetRecipe(t *testing.T) {
	recipes := newFakeRecipeService()
	recipes.recipes["rec1"] = &model.Recipe{ID: "rec1", Title: "Tarte", Allergies: []string{}}
	router := setupRecipeRouter(recipes, &fakeLLMService{})

	t.Run("should return the recipe", func(t *testing.T) {
		w := doJSON(router, "GET", "/api/recipes/rec1", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var response struct {
			Success bool         `json:"success"`
			Data    model.Recipe `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Tarte", response.Data.Title)
	})

	t.Run("should return 404 for a missing recipe", func(t *testing.T) {
		w := doJSON(router, "GET", "/api/recipes/missing", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		var response APIResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.False(t, response.Success)
		assert.Equal(t, "Recette non trouvée", response.Error)
	})
}

func TestGenerateRecipe(t *testing.T) {
	t.Run("should generate then persist and return 201", func(t *testing.T) {
		recipes := newFakeRecipeService()
		llm := &fakeLLMService{generated: &service.GeneratedRecipe{
			Title: "Curry de légumes", Ingredients: "légumes", Instructions: "cuire",
		}}
		router := setupRecipeRouter(recipes, llm)

		w := doJSON(router, "POST", "/api/recipes/generate", map[string]interface{}{
			"ingredients": []string{"carottes", "pois chiches"},
			"servings":    4,
			"allergies":   []string{"lactose"},
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		require.Len(t, llm.generateReqs, 1)
		assert.Equal(t, []string{"lactose"}, llm.generateReqs[0].Allergies)
		require.Len(t, recipes.created, 1)
		assert.Equal(t, "Curry de légumes", recipes.created[0].Title)
	})

	t.Run("should reject empty ingredients", func(t *testing.T) {
		recipes := newFakeRecipeService()
		llm := &fakeLLMService{}
		router := setupRecipeRouter(recipes, llm)

		w := doJSON(router, "POST", "/api/recipes/generate", map[string]interface{}{
			"ingredients": []string{},
			"servings":    4,
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, llm.generateReqs)
	})

	t.Run("should reject servings out of range", func(t *testing.T) {
		router := setupRecipeRouter(newFakeRecipeService(), &fakeLLMService{})

		for _, servings := range []int{0, 21} {
			w := doJSON(router, "POST", "/api/recipes/generate", map[string]interface{}{
				"ingredients": []string{"riz"},
				"servings":    servings,
			})
			assert.Equal(t, http.StatusBadRequest, w.Code, "servings=%d", servings)
		}
	})

	t.Run("should hide upstream detail on generation failure", func(t *testing.T) {
		llm := &fakeLLMService{generateErr: fmt.Errorf("%w: connection refused at 10.0.0.3", service.ErrUpstreamUnavailable)}
		router := setupRecipeRouter(newFakeRecipeService(), llm)

		w := doJSON(router, "POST", "/api/recipes/generate", map[string]interface{}{
			"ingredients": []string{"riz"},
			"servings":    2,
		})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var response APIResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Impossible de générer la recette. Veuillez réessayer.", response.Error)
		assert.NotContains(t, w.Body.String(), "10.0.0.3")
	})
}

func TestUpdateRecipe(t *testing.T) {
	t.Run("should apply a partial update", func(t *testing.T) {
		recipes := newFakeRecipeService()
		recipes.recipes["rec1"] = &model.Recipe{ID: "rec1", Title: "Avant", Allergies: []string{}}
		router := setupRecipeRouter(recipes, &fakeLLMService{})

		w := doJSON(router, "PUT", "/api/recipes/rec1", map[string]interface{}{"title": "Après"})

		assert.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, recipes.updates, "rec1")
		require.NotNil(t, recipes.updates["rec1"].Title)
		assert.Equal(t, "Après", *recipes.updates["rec1"].Title)
		assert.Nil(t, recipes.updates["rec1"].Description)
	})

	t.Run("should validate bounds on provided fields", func(t *testing.T) {
		recipes := newFakeRecipeService()
		recipes.recipes["rec1"] = &model.Recipe{ID: "rec1"}
		router := setupRecipeRouter(recipes, &fakeLLMService{})

		assert.Equal(t, http.StatusBadRequest,
			doJSON(router, "PUT", "/api/recipes/rec1", map[string]interface{}{"prepTime": -5}).Code)
		assert.Equal(t, http.StatusBadRequest,
			doJSON(router, "PUT", "/api/recipes/rec1", map[string]interface{}{"servings": 50}).Code)
		assert.Empty(t, recipes.updates)
	})
}

func TestDeleteRecipe(t *testing.T) {
	t.Run("should delete and confirm", func(t *testing.T) {
		recipes := newFakeRecipeService()
		recipes.recipes["rec1"] = &model.Recipe{ID: "rec1"}
		router := setupRecipeRouter(recipes, &fakeLLMService{})

		w := doJSON(router, "DELETE", "/api/recipes/rec1", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, recipes.recipes, "rec1")
	})

	t.Run("should return 500 on store failure", func(t *testing.T) {
		recipes := newFakeRecipeService()
		recipes.deleteErr = service.ErrUpstreamUnavailable
		router := setupRecipeRouter(recipes, &fakeLLMService{})

		w := doJSON(router, "DELETE", "/api/recipes/rec1", nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestToggleFavorite(t *testing.T) {
	t.Run("should toggle and pick the right message", func(t *testing.T) {
		recipes := newFakeRecipeService()
		recipes.recipes["rec1"] = &model.Recipe{ID: "rec1", Allergies: []string{}}
		router := setupRecipeRouter(recipes, &fakeLLMService{})

		w := doJSON(router, "POST", "/api/recipes/rec1/favorite", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		var response APIResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Recette ajoutée aux favoris", response.Message)

		w = doJSON(router, "POST", "/api/recipes/rec1/favorite", nil)
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Recette retirée des favoris", response.Message)
	})

	t.Run("should return 404 for a missing recipe", func(t *testing.T) {
		router := setupRecipeRouter(newFakeRecipeService(), &fakeLLMService{})

		w := doJSON(router, "POST", "/api/recipes/missing/favorite", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAnalyzeNutrition(t *testing.T) {
	t.Run("should return the analysis", func(t *testing.T) {
		llm := &fakeLLMService{nutrition: &model.NutritionInfo{Calories: 320}}
		router := setupRecipeRouter(newFakeRecipeService(), llm)

		w := doJSON(router, "POST", "/api/recipes/analyze-nutrition", map[string]interface{}{
			"ingredients": "200g de riz, 100g de poulet",
			"servings":    2,
		})

		assert.Equal(t, http.StatusOK, w.Code)
		var response struct {
			Success bool                `json:"success"`
			Data    model.NutritionInfo `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, float64(320), response.Data.Calories)
	})

	t.Run("should reject missing fields", func(t *testing.T) {
		router := setupRecipeRouter(newFakeRecipeService(), &fakeLLMService{})

		assert.Equal(t, http.StatusBadRequest,
			doJSON(router, "POST", "/api/recipes/analyze-nutrition", map[string]interface{}{"servings": 2}).Code)
		assert.Equal(t, http.StatusBadRequest,
			doJSON(router, "POST", "/api/recipes/analyze-nutrition", map[string]interface{}{"ingredients": "riz"}).Code)
	})

	t.Run("should return a generic message on analysis failure", func(t *testing.T) {
		llm := &fakeLLMService{analyzeErr: service.ErrGenerationFormat}
		router := setupRecipeRouter(newFakeRecipeService(), llm)

		w := doJSON(router, "POST", "/api/recipes/analyze-nutrition", map[string]interface{}{
			"ingredients": "riz",
			"servings":    2,
		})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var response APIResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Impossible d'analyser les valeurs nutritionnelles. Veuillez réessayer.", response.Error)
	})
}
