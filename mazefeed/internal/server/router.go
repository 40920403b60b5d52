package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/awsford/deeplens-maze-solver/common/middleware"
	"github.com/awsford/deeplens-maze-solver/mazefeed/internal/handlers"
)

// RouterConfig holds dependencies needed to configure routes
type RouterConfig struct {
	FeedHandler    *handlers.FeedHandler
	HealthHandler  *handlers.HealthHandler
	Auth           *handlers.BearerAuth
	AllowedOrigins []string
	StaticDir      string
}

// NewRouter constructs a ServeMux with the maze feed routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	auth := cfg.Auth
	if auth == nil {
		auth = handlers.NewBearerAuth("")
	}

	// Feed endpoints
	mux.Handle("GET /api/mazes", auth.Protect(http.HandlerFunc(cfg.FeedHandler.List)))
	mux.Handle("GET /api/mazes/stream", auth.Protect(http.HandlerFunc(cfg.FeedHandler.Stream)))

	// Health check
	mux.HandleFunc("GET /api/health", cfg.HealthHandler.Check)

	// Prometheus metrics
	mux.Handle("GET /metrics", promhttp.Handler())

	// Serve dashboard static files (must be last)
	if cfg.StaticDir != "" {
		mux.Handle("GET /", handlers.NewSPAHandler(cfg.StaticDir))
	}

	cors := middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	})

	return middleware.RequestID(cors(mux))
}
