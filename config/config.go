package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Env Environment

	// Server configuration
	ServerPort string
	ServerHost string
	SiteURL    string

	// Database configuration
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	SQLitePath string

	// Redis is optional; rate limiting and token revocation fall back to memory
	RedisURL string

	// JWT configuration
	JWTSecret string
	JWTExpiry time.Duration

	// Domain limits
	PageSize            int
	MaxPageSize         int
	MinCookingTime      int
	MinIngredientAmount int

	// Media storage
	StorageDriver string
	MediaRoot     string
	MediaURL      string
	S3BucketName  string
	AWSRegion     string
	S3Endpoint    string
	S3PublicURL   string

	CORSOrigins []string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	LogLevel string
}

// Addr returns the listen address of the HTTP server
func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}

// LoadConfig reads configuration from .env, environment variables, an optional
// config.yaml and Docker secrets, in that order of precedence (env wins).
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	env := DetectEnvironment()

	v := viper.New()
	setDefaults(v, env)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/foodgram")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		log.Debug("using config file", "file", v.ConfigFileUsed())
	}

	cfg := fromViper(v, env)

	// Secrets not provided through the environment are read from Docker secrets
	if cfg.DBPassword == "" {
		cfg.DBPassword = readSecret("db_password")
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = readSecret("jwt_secret")
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = readSecret("redis_url")
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, env Environment) {
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("server_port", "8000")
	v.SetDefault("site_url", "http://localhost:8000")

	v.SetDefault("db_driver", "postgres")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_name", "foodgram")
	v.SetDefault("db_ssl_mode", "disable")
	v.SetDefault("sqlite_path", "foodgram.db")

	v.SetDefault("jwt_expiry", "24h")

	v.SetDefault("page_size", 6)
	v.SetDefault("max_page_size", 100)
	v.SetDefault("min_cooking_time", 1)
	v.SetDefault("min_ingredient_amount", 1)

	v.SetDefault("storage_driver", "local")
	v.SetDefault("media_root", "media")
	v.SetDefault("media_url", "/media/")
	v.SetDefault("s3_bucket_name", "foodgram-media")

	v.SetDefault("cors_origins", "http://localhost:3000")
	v.SetDefault("rate_limit_requests", 30)
	v.SetDefault("rate_limit_window", "1m")

	if env.IsProduction() {
		v.SetDefault("log_level", "info")
	} else {
		v.SetDefault("log_level", "debug")
	}
}

func fromViper(v *viper.Viper, env Environment) *Config {
	return &Config{
		Env:                 env,
		ServerPort:          v.GetString("server_port"),
		ServerHost:          v.GetString("server_host"),
		SiteURL:             strings.TrimRight(v.GetString("site_url"), "/"),
		DBDriver:            strings.ToLower(v.GetString("db_driver")),
		DBHost:              v.GetString("db_host"),
		DBPort:              v.GetString("db_port"),
		DBUser:              v.GetString("db_user"),
		DBPassword:          v.GetString("db_password"),
		DBName:              v.GetString("db_name"),
		DBSSLMode:           v.GetString("db_ssl_mode"),
		SQLitePath:          v.GetString("sqlite_path"),
		RedisURL:            v.GetString("redis_url"),
		JWTSecret:           v.GetString("jwt_secret"),
		JWTExpiry:           v.GetDuration("jwt_expiry"),
		PageSize:            v.GetInt("page_size"),
		MaxPageSize:         v.GetInt("max_page_size"),
		MinCookingTime:      v.GetInt("min_cooking_time"),
		MinIngredientAmount: v.GetInt("min_ingredient_amount"),
		StorageDriver:       strings.ToLower(v.GetString("storage_driver")),
		MediaRoot:           v.GetString("media_root"),
		MediaURL:            v.GetString("media_url"),
		S3BucketName:        v.GetString("s3_bucket_name"),
		AWSRegion:           v.GetString("aws_region"),
		S3Endpoint:          v.GetString("s3_endpoint"),
		S3PublicURL:         v.GetString("s3_public_url"),
		CORSOrigins:         splitList(v.GetString("cors_origins")),
		RateLimitRequests:   v.GetInt("rate_limit_requests"),
		RateLimitWindow:     v.GetDuration("rate_limit_window"),
		LogLevel:            v.GetString("log_level"),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
