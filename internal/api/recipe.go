package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/recettes-ai/backend/internal/service"
	"github.com/recettes-ai/backend/pkg/logger"
)

const maxPageLimit = 100

// RecipeHandler handles recipe CRUD and generation requests.
type RecipeHandler struct {
	recipes service.IRecipeService
	llm     service.ILLMService
	log     *logger.Logger
}

// NewRecipeHandler creates a new RecipeHandler instance.
func NewRecipeHandler(recipes service.IRecipeService, llm service.ILLMService, log *logger.Logger) *RecipeHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &RecipeHandler{
		recipes: recipes,
		llm:     llm,
		log:     log,
	}
}

// RegisterRoutes registers the recipe routes.
func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	recipes := router.Group("/recipes")
	{
		recipes.GET("", h.ListRecipes)
		recipes.POST("/generate", h.GenerateRecipe)
		recipes.POST("/analyze-nutrition", h.AnalyzeNutrition)
		recipes.GET("/:id", h.GetRecipe)
		recipes.PUT("/:id", h.UpdateRecipe)
		recipes.DELETE("/:id", h.DeleteRecipe)
		recipes.POST("/:id/favorite", h.ToggleFavorite)
	}
}

// ListRecipes handles GET /api/recipes.
func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	query := service.RecipeQuery{
		Search:     c.Query("search"),
		Type:       c.Query("type"),
		Difficulty: c.Query("difficulty"),
		Allergies:  parseAllergies(c.QueryArray("allergies")),
		Page:       1,
		Limit:      10,
	}

	if pageStr := c.Query("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Le paramètre page doit être un nombre")
			return
		}
		query.Page = page
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Le paramètre limit doit être un nombre")
			return
		}
		if limit > maxPageLimit {
			respondError(c, http.StatusBadRequest, "Le paramètre limit ne peut pas dépasser 100")
			return
		}
		query.Limit = limit
	}

	result, err := h.recipes.List(c.Request.Context(), query)
	if err != nil {
		h.log.Errorw("failed to list recipes", "error", err)
		respondError(c, http.StatusInternalServerError, "Impossible de récupérer les recettes")
		return
	}

	respondData(c, http.StatusOK, result, "Recettes récupérées avec succès")
}

// GetRecipe handles GET /api/recipes/:id.
func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	recipe, err := h.recipes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Recette non trouvée")
			return
		}
		h.log.Errorw("failed to get recipe", "id", c.Param("id"), "error", err)
		respondError(c, http.StatusInternalServerError, "Impossible de récupérer la recette")
		return
	}

	respondData(c, http.StatusOK, recipe, "Recette récupérée avec succès")
}

// GenerateRecipe handles POST /api/recipes/generate: generate with the LLM,
// then persist.
func (h *RecipeHandler) GenerateRecipe(c *gin.Context) {
	var req GenerateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Données invalides")
		return
	}

	if len(req.Ingredients) == 0 {
		respondError(c, http.StatusBadRequest, "Au moins un ingrédient est requis")
		return
	}
	if req.Servings < 1 || req.Servings > 20 {
		respondError(c, http.StatusBadRequest, "Le nombre de portions doit être entre 1 et 20")
		return
	}

	generated, err := h.llm.GenerateRecipe(c.Request.Context(), service.GenerateRequest{
		Ingredients: req.Ingredients,
		Servings:    req.Servings,
		Allergies:   req.Allergies,
		Type:        req.Type,
		Difficulty:  req.Difficulty,
	})
	if err != nil {
		// Upstream detail stays in the logs, not in the response.
		h.log.Errorw("recipe generation failed", "error", err)
		respondError(c, http.StatusInternalServerError, "Impossible de générer la recette. Veuillez réessayer.")
		return
	}

	saved, err := h.recipes.Create(c.Request.Context(), generated)
	if err != nil {
		h.log.Errorw("failed to save generated recipe", "error", err)
		respondError(c, http.StatusInternalServerError, "Impossible de créer la recette")
		return
	}

	respondData(c, http.StatusCreated, saved, "Recette générée et sauvegardée avec succès")
}

// UpdateRecipe handles PUT /api/recipes/:id.
func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	var updates service.RecipeUpdate
	if err := c.ShouldBindJSON(&updates); err != nil {
		respondError(c, http.StatusBadRequest, "Données invalides")
		return
	}

	if updates.PrepTime != nil && *updates.PrepTime < 0 {
		respondError(c, http.StatusBadRequest, "Le temps de préparation doit être positif")
		return
	}
	if updates.CookTime != nil && *updates.CookTime < 0 {
		respondError(c, http.StatusBadRequest, "Le temps de cuisson doit être positif")
		return
	}
	if updates.Servings != nil && (*updates.Servings < 1 || *updates.Servings > 20) {
		respondError(c, http.StatusBadRequest, "Le nombre de portions doit être entre 1 et 20")
		return
	}

	recipe, err := h.recipes.Update(c.Request.Context(), c.Param("id"), updates)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Recette non trouvée")
			return
		}
		h.log.Errorw("failed to update recipe", "id", c.Param("id"), "error", err)
		respondError(c, http.StatusInternalServerError, "Impossible de mettre à jour la recette")
		return
	}

	respondData(c, http.StatusOK, recipe, "Recette mise à jour avec succès")
}

// DeleteRecipe handles DELETE /api/recipes/:id.
func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	if err := h.recipes.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Recette non trouvée")
			return
		}
		h.log.Errorw("failed to delete recipe", "id", c.Param("id"), "error", err)
		respondError(c, http.StatusInternalServerError, "Impossible de supprimer la recette")
		return
	}

	c.JSON(http.StatusOK, APIResponse{Success: true, Message: "Recette supprimée avec succès"})
}

// ToggleFavorite handles POST /api/recipes/:id/favorite.
func (h *RecipeHandler) ToggleFavorite(c *gin.Context) {
	recipe, err := h.recipes.ToggleFavorite(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Recette non trouvée")
			return
		}
		h.log.Errorw("failed to toggle favorite", "id", c.Param("id"), "error", err)
		respondError(c, http.StatusInternalServerError, "Impossible de modifier la recette")
		return
	}

	message := "Recette retirée des favoris"
	if recipe.IsFavorite {
		message = "Recette ajoutée aux favoris"
	}
	respondData(c, http.StatusOK, recipe, message)
}

// AnalyzeNutrition handles POST /api/recipes/analyze-nutrition.
func (h *RecipeHandler) AnalyzeNutrition(c *gin.Context) {
	var req AnalyzeNutritionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Données invalides")
		return
	}

	if req.Ingredients == "" || req.Servings == 0 {
		respondError(c, http.StatusBadRequest, "Ingrédients et nombre de portions requis")
		return
	}
	if req.Servings < 1 || req.Servings > 20 {
		respondError(c, http.StatusBadRequest, "Le nombre de portions doit être entre 1 et 20")
		return
	}

	nutrition, err := h.llm.AnalyzeNutrition(c.Request.Context(), req.Ingredients, req.Servings)
	if err != nil {
		h.log.Errorw("nutrition analysis failed", "error", err)
		respondError(c, http.StatusInternalServerError, "Impossible d'analyser les valeurs nutritionnelles. Veuillez réessayer.")
		return
	}

	respondData(c, http.StatusOK, nutrition, "Analyse nutritionnelle réalisée avec succès")
}

// parseAllergies accepts both repeated parameters and comma-separated values.
func parseAllergies(values []string) []string {
	var allergies []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				allergies = append(allergies, trimmed)
			}
		}
	}
	return allergies
}
