package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"svg-converter/internal/config"
	"svg-converter/internal/handler"
	"svg-converter/internal/metrics"
	"svg-converter/internal/middleware"
)

type Handlers struct {
	Convert *handler.ConvertHandler
	Files   *handler.FileHandler
	Storage *handler.StorageHandler
	Docs    *handler.DocsHandler
}

func New(
	cfg *config.Config,
	authMiddleware *middleware.AuthMiddleware,
	handlers Handlers,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.ConvertRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics(m))
	r.Use(middleware.CORS(cfg.CORSOrigins, authMiddleware.Header()))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))
	}
	r.Get("/openapi.yaml", handlers.Docs.OpenAPI)
	r.Get("/swagger", handlers.Docs.SwaggerUI)

	r.Route("/api", func(api chi.Router) {
		api.Use(authMiddleware.RequireAPIKey)
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Post("/convert", handlers.Convert.Convert)
		api.Post("/convert-url", handlers.Convert.ConvertURL)
		api.Get("/storage/stats", handlers.Storage.Stats)
	})

	r.With(
		authMiddleware.RequireAPIKey,
		middleware.StreamingTimeout(cfg.DownloadTimeout, cfg.DownloadIdleTimeout),
	).Get("/files/{name}", handlers.Files.Serve)

	return r
}
