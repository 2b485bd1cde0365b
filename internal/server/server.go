package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/middleware"
)

// Server represents the HTTP server
type Server struct {
	cfg    *config.Config
	db     *gorm.DB
	router *gin.Engine
	http   *http.Server
}

// New builds the router with the middleware chain, the health and metrics
// endpoints, local media and the /api routes.
func New(cfg *config.Config, db *gorm.DB, deps api.Deps) *Server {
	if cfg.Environment == config.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestLogger(logrus.StandardLogger()),
		metrics.Middleware(),
		middleware.CORS(cfg.CORSOrigins),
		middleware.ErrorHandler(),
	)

	s := &Server{cfg: cfg, db: db, router: router}

	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	if cfg.StorageBackend == "local" && strings.HasPrefix(cfg.MediaURL, "/") {
		router.Static(strings.TrimSuffix(cfg.MediaURL, "/"), cfg.MediaRoot)
	}
	api.SetupAPI(router, deps)

	s.http = &http.Server{
		Addr:              cfg.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	logrus.WithField("addr", s.http.Addr).Info("Starting HTTP server")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := database.HealthCheck(ctx, s.db); err != nil {
		logrus.WithError(err).Warn("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
