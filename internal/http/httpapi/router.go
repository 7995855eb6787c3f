package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"dreamlab/internal/http/handlers"
	"dreamlab/internal/middleware"
)

// Options configures the router.
type Options struct {
	App                *handlers.App
	Logger             zerolog.Logger
	JWTSecret          string
	CORSAllowedOrigins []string
	// RateLimitPerMin bounds generation and analysis calls per client IP.
	RateLimitPerMin int
	// StaticDir is served under /static when set.
	StaticDir string
}

func NewRouter(opts Options) http.Handler {
	app := opts.App
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		middleware.RequestID,
		middleware.Logger(opts.Logger),
		middleware.Metrics,
		chimw.Recoverer,
		middleware.CORS(opts.CORSAllowedOrigins),
	)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	if dir := strings.TrimSpace(opts.StaticDir); dir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(dir))))
	}

	limit := opts.RateLimitPerMin
	if limit <= 0 {
		limit = 30
	}
	throttle := middleware.RateLimit(limit, time.Minute)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", app.Health)
		r.Get("/models", app.Models)
		r.Get("/openapi.json", app.OpenAPIJSON)
		r.Get("/docs", app.OpenAPIDocs)

		r.Route("/generations", func(r chi.Router) {
			r.With(throttle).Post("/", app.CreateGeneration)
			r.Get("/{id}", app.GenerationStatus)
		})

		r.With(throttle).Post("/analyses", app.CreateAnalysis)

		r.Route("/gallery", func(r chi.Router) {
			r.Get("/", app.ListGallery)
			r.Group(func(r chi.Router) {
				r.Use(middleware.AuthJWT(opts.JWTSecret))
				r.Post("/", app.CreateGalleryPost)
				r.Delete("/{id}", app.DeleteGalleryPost)
			})
		})
	})

	return r
}
