package rest

import (
	"net/http"
	"strings"
	"time"

	"piiquante/application/commands/bus"
	"piiquante/application/ports"
	querybus "piiquante/application/queries/bus"
	"piiquante/infrastructure/config"
	"piiquante/interfaces/http/rest/handlers"
	"piiquante/interfaces/http/rest/middleware"
	"piiquante/pkg/common"
	pkgerrors "piiquante/pkg/errors"
	"piiquante/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	cfg          *config.Config
	commandBus   *bus.CommandBus
	queryBus     *querybus.QueryBus
	blobs        ports.BlobStore
	imageFS      afero.Fs
	auth         middleware.AuthConfig
	collector    *observability.Collector
	tracer       *observability.Tracer
	errorHandler *pkgerrors.ErrorHandler
	logger       *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	cfg *config.Config,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	blobs ports.BlobStore,
	imageFS afero.Fs,
	auth middleware.AuthConfig,
	collector *observability.Collector,
	tracer *observability.Tracer,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:          cfg,
		commandBus:   commandBus,
		queryBus:     queryBus,
		blobs:        blobs,
		imageFS:      imageFS,
		auth:         auth,
		collector:    collector,
		tracer:       tracer,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(rt.errorHandler.Middleware)
	router.Use(middleware.Logger(rt.logger, rt.collector))
	router.Use(rt.tracer.Middleware)
	router.Use(middleware.BaseURL(rt.cfg.PublicBaseURL))

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
			AllowedHeaders:   []string{"Origin", "X-Requested-With", "Content", "Accept", "Content-Type", "Authorization", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "Location"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.cfg.EnableMetrics && rt.collector != nil {
		router.Method(http.MethodGet, "/metrics", rt.collector.Handler())
	}

	// Uploaded images are public
	router.Handle("/images/*", http.StripPrefix("/images", rt.imageServer()))

	router.Route("/api/sauces", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.auth))
		r.Use(middleware.CircuitBreaker(
			middleware.DefaultCircuitBreakerConfig("sauces"), rt.errorHandler, rt.logger))

		sauceHandler := handlers.NewSauceHandler(
			rt.commandBus, rt.queryBus, rt.blobs, rt.errorHandler, rt.cfg.MaxUploadBytes, rt.logger)
		r.Get("/", sauceHandler.ListSauces)
		r.Post("/", sauceHandler.CreateSauce)
		r.Get("/{id}", sauceHandler.GetSauce)
		r.Put("/{id}", sauceHandler.UpdateSauce)
		r.Delete("/{id}", sauceHandler.DeleteSauce)
		r.Post("/{id}/like", sauceHandler.VoteSauce)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.errorHandler.Handle(w, r, pkgerrors.NewNotFoundError("route"))
	})

	return router
}

// imageServer serves single files and never lists the directory
func (rt *Router) imageServer() http.Handler {
	files := http.FileServer(afero.NewHttpFs(rt.imageFS).Dir("/"))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			rt.errorHandler.Handle(w, r, pkgerrors.NewNotFoundError("image"))
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=86400")
		files.ServeHTTP(w, r)
	})
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// readinessCheck reports whether the image directory is reachable
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	if _, err := rt.imageFS.Stat("/"); err != nil {
		rt.logger.Warn("Image storage not ready", zap.Error(err))
		rt.errorHandler.Handle(w, req, pkgerrors.NewUnavailableError("image storage"))
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
