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

var (
	supportedDrivers  = map[string]bool{"postgres": true, "mysql": true, "sqlite": true}
	supportedStorages = map[string]bool{"local": true, "s3": true}
	supportedFormats  = map[string]bool{"text": true, "json": true}
)

// ValidateConfig checks if the configuration meets the requirements for its
// environment. All problems are reported at once.
func ValidateConfig(cfg *Config) error {
	var errs []ValidationError

	if !supportedDrivers[cfg.DBDriver] {
		errs = append(errs, ValidationError{"DB_DRIVER", fmt.Sprintf("unsupported driver %q", cfg.DBDriver)})
	}
	if !supportedStorages[cfg.StorageBackend] {
		errs = append(errs, ValidationError{"STORAGE_BACKEND", fmt.Sprintf("unsupported backend %q", cfg.StorageBackend)})
	}
	if !supportedFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{"LOG_FORMAT", fmt.Sprintf("unsupported format %q", cfg.LogFormat)})
	}
	if cfg.ServerPort == "" {
		errs = append(errs, ValidationError{"SERVER_PORT", "is required"})
	}
	if cfg.TokenTTL <= 0 {
		errs = append(errs, ValidationError{"TOKEN_TTL", "must be positive"})
	}
	if cfg.RecipeCreationLimit < 0 {
		errs = append(errs, ValidationError{"RECIPE_CREATION_LIMIT", "must not be negative"})
	}
	if cfg.StorageBackend == "s3" && cfg.S3BucketName == "" {
		errs = append(errs, ValidationError{"S3_BUCKET_NAME", "is required for the s3 backend"})
	}

	// Production and CI must not run on defaults for sensitive values.
	if cfg.Environment == Production || cfg.Environment == CI {
		if cfg.JWTSecret == "" {
			errs = append(errs, ValidationError{"JWT_SECRET", fmt.Sprintf("is required in %s environment", cfg.Environment)})
		}
		if cfg.DBDriver != "sqlite" && cfg.DBPassword == "" {
			errs = append(errs, ValidationError{"DB_PASSWORD", fmt.Sprintf("is required in %s environment", cfg.Environment)})
		}
	}

	if len(errs) == 0 {
		return nil
	}

	lines := make([]string, len(errs))
	for i, e := range errs {
		lines[i] = e.Error()
	}
	return fmt.Errorf("configuration validation failed:\n%s", strings.Join(lines, "\n"))
}
