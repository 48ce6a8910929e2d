package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/wolfman30/appointment-intake/internal/http/middleware"
	"github.com/wolfman30/appointment-intake/internal/intake"
	"github.com/wolfman30/appointment-intake/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	IntakeHandler      *intake.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// RateLimiter is applied to the intake endpoint when set.
	RateLimiter httpmiddleware.Limiter

	// Admin routes are mounted only when AdminAuthSecret is set.
	AdminAuthSecret string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", cfg.IntakeHandler.HealthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Group(func(api chi.Router) {
		if cfg.RateLimiter != nil {
			api.Use(httpmiddleware.RateLimit(cfg.RateLimiter, cfg.Logger))
		}
		api.Post("/process-appointment", cfg.IntakeHandler.ProcessAppointment)
	})

	// Admin routes (protected by JWT)
	if cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret, httpmiddleware.ScopeIntakesRead))
			admin.Get("/stats", cfg.IntakeHandler.Stats)
			admin.Route("/intakes", func(intakes chi.Router) {
				intakes.Get("/", cfg.IntakeHandler.ListIntakes)
				intakes.Get("/{id}", cfg.IntakeHandler.GetIntake)
				intakes.Get("/{id}/image", cfg.IntakeHandler.GetIntakeImage)
			})
		})
	}

	return r
}
