package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/router"
	"github.com/pageza/foodgram/backend/internal/service"
)

// Options carries the optional collaborators of the server
type Options struct {
	// Redis backs rate limiting and token revocation; nil falls back to memory
	Redis *redis.Client
	// ImageStore defaults to a LocalStore below cfg.MediaRoot
	ImageStore service.ImageStore
}

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	http   *http.Server
	cfg    *config.Config
}

// New wires services and handlers and builds the router
func New(cfg *config.Config, db *gorm.DB, opts Options) *Server {
	store := opts.ImageStore
	if store == nil {
		store = service.NewLocalStore(cfg.MediaRoot, cfg.MediaURL)
	}

	var (
		revocations service.RevocationStore
		createLimit middleware.Limiter
	)
	limitCfg := middleware.RateLimitConfig{
		Window:    cfg.RateLimitWindow,
		Limit:     cfg.RateLimitRequests,
		KeyPrefix: "foodgram:ratelimit:recipe_create",
	}
	if opts.Redis != nil {
		revocations = service.NewRedisRevocationStore(opts.Redis)
		createLimit = middleware.NewRateLimiter(opts.Redis, limitCfg)
	} else {
		revocations = service.NewMemoryRevocationStore()
		createLimit = middleware.NewLocalLimiter(limitCfg)
	}

	images := service.NewImageService(store)
	authService := service.NewAuthService(db, cfg.JWTSecret, cfg.JWTExpiry, revocations)
	recipeService := service.NewRecipeService(db, images, service.RecipeLimits{
		MinCookingTime:      cfg.MinCookingTime,
		MinIngredientAmount: cfg.MinIngredientAmount,
	}, cfg.SiteURL)

	paginator := api.Paginator{DefaultLimit: cfg.PageSize, MaxLimit: cfg.MaxPageSize}

	handlers := router.Handlers{
		Auth: api.NewAuthHandler(authService),
		Users: api.NewUserHandler(
			service.NewUserService(db, images),
			service.NewSubscriptionService(db, images),
			authService,
			paginator,
		),
		Recipes: api.NewRecipeHandler(
			recipeService,
			service.NewMembershipService(db, images),
			service.NewShoppingListService(db),
			authService,
			createLimit,
			paginator,
		),
		Catalog: api.NewCatalogHandler(service.NewTagService(db), service.NewIngredientService(db)),
	}

	engine := router.SetupRouter(cfg, handlers)
	return &Server{
		router: engine,
		cfg:    cfg,
		http: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Router exposes the HTTP handler, mainly for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start serves HTTP until Shutdown is called
func (s *Server) Start() error {
	log.Info("starting HTTP server", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info("shutting down HTTP server")
	return s.http.Shutdown(ctx)
}
