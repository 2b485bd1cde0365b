package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testhelpers.SetupSQLite(t)
	mediaRoot := t.TempDir()
	cfg := &config.Config{
		Environment:    config.Test,
		ServerHost:     "localhost",
		ServerPort:     "0",
		CORSOrigins:    []string{"http://frontend.test"},
		StorageBackend: "local",
		MediaRoot:      mediaRoot,
		MediaURL:       "/media/",
	}

	s := New(cfg, db, api.Deps{
		Auth:          service.NewAuthService(db, "test-secret", time.Hour, service.NewMemoryTokenStore()),
		Users:         service.NewUserService(db),
		Recipes:       service.NewRecipeService(db),
		Subscriptions: service.NewSubscriptionService(db),
		Tags:          service.NewTagService(db),
		Ingredients:   service.NewIngredientService(db),
		Images:        service.NewImageService(service.NewLocalStore(mediaRoot, cfg.MediaURL)),
	})
	return s, mediaRoot
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	w := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	sqlDB, err := s.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w = serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRoutesMounted(t *testing.T) {
	s, mediaRoot := newTestServer(t)

	w := serve(s, httptest.NewRequest(http.MethodGet, "/api/tags/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "foodgram_http_requests_total")

	require.NoError(t, os.MkdirAll(filepath.Join(mediaRoot, "recipes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(mediaRoot, "recipes", "pie.png"), []byte("png"), 0o644))
	w = serve(s, httptest.NewRequest(http.MethodGet, "/media/recipes/pie.png", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png", w.Body.String())

	w = serve(s, httptest.NewRequest(http.MethodGet, "/api/recipes/999/", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"not found"}`, w.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/recipes/", nil)
	req.Header.Set("Origin", "http://frontend.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := serve(s, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://frontend.test", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
