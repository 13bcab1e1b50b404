package router

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/toothdoctor-api/internal/audit"
	"github.com/wolfman30/toothdoctor-api/internal/catalog"
	httpmiddleware "github.com/wolfman30/toothdoctor-api/internal/http/middleware"
	"github.com/wolfman30/toothdoctor-api/internal/scheduling"
	"github.com/wolfman30/toothdoctor-api/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Appointments       *scheduling.Handler
	Catalog            *catalog.Handler
	Audit              *audit.Handler
	Resolver           httpmiddleware.PrincipalResolver
	AuthSecret         string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	// HealthCheck reports backing store reachability (optional).
	HealthCheck func(ctx context.Context) error
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.RateLimitRPS > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.HealthCheck))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		public.Get("/doctors", cfg.Catalog.ListDoctors)
		public.Get("/doctors/{id}/slots", cfg.Appointments.OpenSlots)
		public.Get("/services", cfg.Catalog.ListServices)
	})

	// Authenticated endpoints
	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Authenticate(cfg.AuthSecret, cfg.Resolver, cfg.Logger))
		private.Use(middleware.AllowContentType("application/json"))
		private.Mount("/appointments", cfg.Appointments.Routes())
		private.Post("/services", cfg.Catalog.CreateService)
		if cfg.Audit != nil {
			private.Get("/audit-logs", cfg.Audit.List)
		}
	})

	return r
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, code := "ok", http.StatusOK
		if check != nil {
			if err := check(r.Context()); err != nil {
				status, code = "unavailable", http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}
