package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment Environment

	// Server configuration
	ServerPort  string
	ServerHost  string
	CORSOrigins []string

	// Database configuration
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBPath     string

	// Redis configuration. Redis is optional; an empty RedisURL and
	// RedisHost means in-memory token store and rate limiter.
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Auth configuration
	JWTSecret string
	TokenTTL  time.Duration

	// Media storage
	StorageBackend string
	MediaRoot      string
	MediaURL       string
	S3BucketName   string
	AWSRegion      string

	// Logging
	LogLevel  string
	LogFormat string

	// Recipe creations allowed per user per hour, 0 disables the limit.
	RecipeCreationLimit int
}

// secretKeys are the values that may be overridden by Docker secrets.
var secretKeys = []string{"db_password", "jwt_secret", "redis_password"}

// LoadConfig creates a new Config from environment variables, an optional
// .env file in development and Docker secrets.
func LoadConfig() (*Config, error) {
	env := GetEnvironment()

	switch env {
	case Development:
		// A missing .env file is fine.
		_ = godotenv.Load()
	case Test, CI, Production:
	default:
		return nil, fmt.Errorf("unknown environment: %s", env)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	for _, name := range secretKeys {
		if secret := readSecret(name); secret != "" {
			v.Set(strings.ToUpper(name), secret)
		}
	}

	cfg := fromViper(v)
	cfg.Environment = env

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("CORS_ORIGINS", "*")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "foodgram")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "foodgram")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_PATH", "foodgram.db")

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("TOKEN_TTL", "240h")

	v.SetDefault("STORAGE_BACKEND", "local")
	v.SetDefault("MEDIA_ROOT", "media")
	v.SetDefault("MEDIA_URL", "/media/")
	v.SetDefault("S3_BUCKET_NAME", "foodgram-media")
	v.SetDefault("AWS_REGION", "us-east-1")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	v.SetDefault("RECIPE_CREATION_LIMIT", 0)
}

func fromViper(v *viper.Viper) *Config {
	origins := strings.Split(v.GetString("CORS_ORIGINS"), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return &Config{
		ServerPort:          v.GetString("SERVER_PORT"),
		ServerHost:          v.GetString("SERVER_HOST"),
		CORSOrigins:         origins,
		DBDriver:            strings.ToLower(v.GetString("DB_DRIVER")),
		DBHost:              v.GetString("DB_HOST"),
		DBPort:              v.GetString("DB_PORT"),
		DBUser:              v.GetString("DB_USER"),
		DBPassword:          v.GetString("DB_PASSWORD"),
		DBName:              v.GetString("DB_NAME"),
		DBSSLMode:           v.GetString("DB_SSL_MODE"),
		DBPath:              v.GetString("DB_PATH"),
		RedisURL:            v.GetString("REDIS_URL"),
		RedisHost:           v.GetString("REDIS_HOST"),
		RedisPort:           v.GetString("REDIS_PORT"),
		RedisPassword:       v.GetString("REDIS_PASSWORD"),
		RedisDB:             v.GetInt("REDIS_DB"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		TokenTTL:            v.GetDuration("TOKEN_TTL"),
		StorageBackend:      strings.ToLower(v.GetString("STORAGE_BACKEND")),
		MediaRoot:           v.GetString("MEDIA_ROOT"),
		MediaURL:            v.GetString("MEDIA_URL"),
		S3BucketName:        v.GetString("S3_BUCKET_NAME"),
		AWSRegion:           v.GetString("AWS_REGION"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		LogFormat:           v.GetString("LOG_FORMAT"),
		RecipeCreationLimit: v.GetInt("RECIPE_CREATION_LIMIT"),
	}
}

// Address returns host:port for the HTTP listener.
func (c *Config) Address() string {
	return c.ServerHost + ":" + c.ServerPort
}

// UsesRedis reports whether a redis server was configured.
func (c *Config) UsesRedis() bool {
	return c.RedisURL != "" || c.RedisHost != ""
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	if data, err := os.ReadFile(filepath.Join(secretsDir, name)); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
