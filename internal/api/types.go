package api

import "github.com/gin-gonic/gin"

// APIResponse is the uniform JSON envelope for every endpoint.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// GenerateRecipeRequest is the payload for POST /api/recipes/generate.
type GenerateRecipeRequest struct {
	Ingredients []string `json:"ingredients"`
	Servings    int      `json:"servings"`
	Allergies   []string `json:"allergies"`
	Type        string   `json:"type"`
	Difficulty  string   `json:"difficulty"`
}

// AnalyzeNutritionRequest is the payload for POST /api/recipes/analyze-nutrition.
type AnalyzeNutritionRequest struct {
	Ingredients string `json:"ingredients"`
	Servings    int    `json:"servings"`
}

func respondData(c *gin.Context, status int, data interface{}, message string) {
	c.JSON(status, APIResponse{Success: true, Data: data, Message: message})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, APIResponse{Success: false, Error: message})
}
