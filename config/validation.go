package config

import "fmt"

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig checks that all required configuration is present and sane.
func ValidateConfig(cfg *Config) error {
	if cfg.AirtableAPIKey == "" {
		return ValidationError{Field: "AIRTABLE_API_KEY", Message: "is required"}
	}
	if cfg.AirtableBaseID == "" {
		return ValidationError{Field: "AIRTABLE_BASE_ID", Message: "is required"}
	}
	if cfg.ServerPort == "" {
		return ValidationError{Field: "PORT", Message: "must not be empty"}
	}
	if cfg.RateLimitMax <= 0 {
		return ValidationError{Field: "RATE_LIMIT_MAX_REQUESTS", Message: "must be positive"}
	}
	if cfg.RateLimitWindow <= 0 {
		return ValidationError{Field: "RATE_LIMIT_WINDOW_MS", Message: "must be positive"}
	}
	return nil
}
