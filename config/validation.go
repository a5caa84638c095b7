package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// insecureSecrets are accepted outside production only.
var insecureSecrets = map[string]bool{
	"":                  true,
	"secret":            true,
	"changeme":          true,
	"your-secret-key":   true,
	"dev-secret":        true,
	"test-jwt-secret":   true,
	"insecure-dev-only": true,
}

// ValidateConfig checks that the configuration is usable for the current environment
func ValidateConfig(cfg *Config) error {
	var errs []string
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg}.Error())
	}

	if cfg.ServerPort == "" {
		add("SERVER_PORT", "is required")
	}

	switch cfg.DBDriver {
	case "postgres":
		if cfg.DBHost == "" {
			add("DB_HOST", "is required for postgres")
		}
		if cfg.DBName == "" {
			add("DB_NAME", "is required for postgres")
		}
		if cfg.DBUser == "" {
			add("DB_USER", "is required for postgres")
		}
	case "sqlite":
		if cfg.SQLitePath == "" {
			add("SQLITE_PATH", "is required for sqlite")
		}
	default:
		add("DB_DRIVER", fmt.Sprintf("unsupported driver %q", cfg.DBDriver))
	}

	if cfg.JWTSecret == "" {
		add("JWT_SECRET", "is required")
	} else if cfg.Env.IsProduction() && insecureSecrets[cfg.JWTSecret] {
		add("JWT_SECRET", "must not use a development value in production")
	}
	if cfg.JWTExpiry <= 0 {
		add("JWT_EXPIRY", "must be positive")
	}

	if cfg.PageSize < 1 {
		add("PAGE_SIZE", "must be at least 1")
	}
	if cfg.MaxPageSize < cfg.PageSize {
		add("MAX_PAGE_SIZE", "must not be smaller than PAGE_SIZE")
	}
	if cfg.MinCookingTime < 1 {
		add("MIN_COOKING_TIME", "must be at least 1")
	}
	if cfg.MinIngredientAmount < 1 {
		add("MIN_INGREDIENT_AMOUNT", "must be at least 1")
	}

	switch cfg.StorageDriver {
	case "local":
		if cfg.MediaRoot == "" {
			add("MEDIA_ROOT", "is required for local storage")
		}
	case "s3":
		if cfg.S3BucketName == "" {
			add("S3_BUCKET_NAME", "is required for s3 storage")
		}
	default:
		add("STORAGE_DRIVER", fmt.Sprintf("unsupported driver %q", cfg.StorageDriver))
	}

	if cfg.RateLimitRequests < 1 || cfg.RateLimitWindow <= 0 {
		add("RATE_LIMIT_REQUESTS", "rate limit must allow at least one request per positive window")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errs, "\n"))
	}

	return nil
}
