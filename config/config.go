package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort string
	ServerHost string

	// Airtable configuration
	AirtableAPIKey   string
	AirtableBaseID   string
	RecipesTable     string
	AllergensTable   string
	DishTypesTable   string
	IngredientsTable string

	// Ollama configuration
	OllamaBaseURL string
	OllamaModel   string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string

	// CORS configuration
	FrontendURL string

	// Rate limiting
	RateLimitWindow time.Duration
	RateLimitMax    int

	// Environment name (development, production)
	Environment string
}

// LoadConfig creates a new Config instance with values from the environment.
// A .env file is loaded first when present so local development does not need
// exported variables.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:       getEnv("PORT", "5000"),
		ServerHost:       getEnv("SERVER_HOST", "0.0.0.0"),
		AirtableAPIKey:   os.Getenv("AIRTABLE_API_KEY"),
		AirtableBaseID:   os.Getenv("AIRTABLE_BASE_ID"),
		RecipesTable:     getEnv("AIRTABLE_RECIPES_TABLE", "Recettes"),
		AllergensTable:   getEnv("AIRTABLE_ALLERGENS_TABLE", "Allergenes"),
		DishTypesTable:   getEnv("AIRTABLE_DISH_TYPES_TABLE", "TypesPlats"),
		IngredientsTable: getEnv("AIRTABLE_INGREDIENTS_TABLE", "Ingredients"),
		OllamaBaseURL:    getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:      getEnv("OLLAMA_MODEL", "llama3.2"),
		RedisHost:        getEnv("REDIS_HOST", "localhost"),
		RedisPort:        getEnv("REDIS_PORT", "6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisURL:         os.Getenv("REDIS_URL"),
		FrontendURL:      getEnv("FRONTEND_URL", "http://localhost:3000"),
		Environment:      getEnv("APP_ENV", "development"),
	}

	cfg.RedisDB = getEnvInt("REDIS_DB", 0)

	windowMs := getEnvInt("RATE_LIMIT_WINDOW_MS", 900000)
	cfg.RateLimitWindow = time.Duration(windowMs) * time.Millisecond
	cfg.RateLimitMax = getEnvInt("RATE_LIMIT_MAX_REQUESTS", 100)

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
