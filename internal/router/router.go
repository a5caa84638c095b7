package router

import (
	"strings"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/middleware"
)

// Handlers groups the API handlers mounted by SetupRouter
type Handlers struct {
	Auth    *api.AuthHandler
	Users   *api.UserHandler
	Recipes *api.RecipeHandler
	Catalog *api.CatalogHandler
}

// SetupRouter configures the application routes
func SetupRouter(cfg *config.Config, h Handlers) *gin.Engine {
	if cfg.Env.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		middleware.ErrorHandler(),
		middleware.RequestLogger(),
		middleware.CORS(cfg.CORSOrigins),
		gzip.Gzip(gzip.DefaultCompression),
	)

	router.GET("/health", api.HealthCheck)
	router.GET("/s/:code", h.Recipes.ShortLinkRedirect)

	// media is served by the API only for local storage mounted at a path
	if cfg.StorageDriver == "local" && strings.HasPrefix(cfg.MediaURL, "/") {
		router.Static(strings.TrimRight(cfg.MediaURL, "/"), cfg.MediaRoot)
	}

	v := router.Group("/api")
	{
		h.Auth.RegisterRoutes(v)
		h.Users.RegisterRoutes(v)
		h.Recipes.RegisterRoutes(v)
		h.Catalog.RegisterRoutes(v)
	}

	return router
}
