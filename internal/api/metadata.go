package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/recettes-ai/backend/internal/service"
	"github.com/recettes-ai/backend/pkg/logger"
)

// MetadataHandler handles reads of the allergen, dish type, and ingredient
// collections.
type MetadataHandler struct {
	metadata service.IMetadataService
	log      *logger.Logger
}

// NewMetadataHandler creates a new MetadataHandler instance.
func NewMetadataHandler(metadata service.IMetadataService, log *logger.Logger) *MetadataHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &MetadataHandler{metadata: metadata, log: log}
}

// RegisterRoutes registers the metadata routes.
func (h *MetadataHandler) RegisterRoutes(router *gin.RouterGroup) {
	metadata := router.Group("/metadata")
	{
		metadata.GET("/allergenes", h.GetAllergens)
		metadata.GET("/types-plats", h.GetDishTypes)
		metadata.GET("/ingredients", h.GetIngredients)
		metadata.GET("/all", h.GetAll)
	}
}

// GetAllergens handles GET /api/metadata/allergenes.
func (h *MetadataHandler) GetAllergens(c *gin.Context) {
	allergens, err := h.metadata.Allergens(c.Request.Context())
	if err != nil {
		h.log.Errorw("failed to fetch allergens", "error", err)
		respondError(c, http.StatusInternalServerError, "Impossible de récupérer les allergènes")
		return
	}
	respondData(c, http.StatusOK, allergens, "Allergènes récupérés avec succès")
}

// GetDishTypes handles GET /api/metadata/types-plats.
func (h *MetadataHandler) GetDishTypes(c *gin.Context) {
	dishTypes, err := h.metadata.DishTypes(c.Request.Context())
	if err != nil {
		h.log.Errorw("failed to fetch dish types", "error", err)
		respondError(c, http.StatusInternalServerError, "Impossible de récupérer les types de plats")
		return
	}
	respondData(c, http.StatusOK, dishTypes, "Types de plats récupérés avec succès")
}

// GetIngredients handles GET /api/metadata/ingredients.
func (h *MetadataHandler) GetIngredients(c *gin.Context) {
	ingredients, err := h.metadata.Ingredients(c.Request.Context())
	if err != nil {
		h.log.Errorw("failed to fetch ingredients", "error", err)
		respondError(c, http.StatusInternalServerError, "Impossible de récupérer les ingrédients")
		return
	}
	respondData(c, http.StatusOK, ingredients, "Ingrédients récupérés avec succès")
}

// GetAll handles GET /api/metadata/all with a concurrent fan-out of the three
// reads; any sub-fetch failing fails the whole response.
func (h *MetadataHandler) GetAll(c *gin.Context) {
	metadata, err := h.metadata.All(c.Request.Context())
	if err != nil {
		h.log.Errorw("failed to fetch metadata", "error", err)
		respondError(c, http.StatusInternalServerError, "Impossible de récupérer les métadonnées")
		return
	}
	respondData(c, http.StatusOK, metadata, "Métadonnées récupérées avec succès")
}
