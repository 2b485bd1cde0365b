package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/server"
	"github.com/pageza/foodgram/backend/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	log.WithField("environment", cfg.Environment).Info("Starting foodgram API")

	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.RunMigrations(db, database.PostgresDSN(cfg)); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx := context.Background()

	var redisClient *redis.Client
	var tokens service.TokenStore = service.NewMemoryTokenStore()
	if cfg.UsesRedis() {
		redisClient, err = database.NewRedisClient(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		tokens = service.NewRedisTokenStore(redisClient)
	} else {
		log.Warn("No Redis configured, revoked tokens and rate limits are kept in memory")
	}

	images, err := imageStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize image storage: %v", err)
	}

	secret := cfg.JWTSecret
	if secret == "" {
		log.Warn("JWT_SECRET is not set, using a random secret; tokens will not survive a restart")
		secret = uuid.NewString()
	}

	var recipeLimiter *middleware.RateLimiter
	if cfg.RecipeCreationLimit > 0 {
		recipeLimiter = middleware.NewRecipeCreationRateLimiter(redisClient, cfg.RecipeCreationLimit)
	}

	srv := server.New(cfg, db, api.Deps{
		Auth:          service.NewAuthService(db, secret, cfg.TokenTTL, tokens),
		Users:         service.NewUserService(db),
		Recipes:       service.NewRecipeService(db),
		Subscriptions: service.NewSubscriptionService(db),
		Tags:          service.NewTagService(db),
		Ingredients:   service.NewIngredientService(db),
		Images:        service.NewImageService(images),
		RecipeLimiter: recipeLimiter,
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received signal")
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server shutdown error: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info("Server stopped")
}

func imageStore(ctx context.Context, cfg *config.Config) (service.Store, error) {
	if cfg.StorageBackend != "s3" {
		if err := os.MkdirAll(cfg.MediaRoot, 0o755); err != nil {
			return nil, err
		}
		return service.NewLocalStore(cfg.MediaRoot, cfg.MediaURL), nil
	}

	s3Cfg, err := config.NewS3Config(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return service.NewS3Store(s3Cfg.Client, s3Cfg.BucketName, s3Cfg.Region), nil
}
