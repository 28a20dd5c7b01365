package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/healthdesk/healthdesk-platform/internal/accounts"
	httpmiddleware "github.com/healthdesk/healthdesk-platform/internal/http/middleware"
	"github.com/healthdesk/healthdesk-platform/internal/locations"
	"github.com/healthdesk/healthdesk-platform/internal/reporting"
	"github.com/healthdesk/healthdesk-platform/internal/scheduling"
	"github.com/healthdesk/healthdesk-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	AccountsHandler     *accounts.Handler
	AppointmentsHandler *scheduling.Handler
	LocationsHandler    *locations.Handler
	ReportsHandler      *reporting.Handler

	// Actor auth
	JWTSecret string
	Directory accounts.Directory

	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Requests per second per IP; 0 disables rate limiting.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates the chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimitPerSecond > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	}

	actorAuth := httpmiddleware.ActorAuth(cfg.JWTSecret, cfg.Directory)

	// Public endpoints.
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.LocationsHandler != nil {
			public.Mount("/api/v1/locations", cfg.LocationsHandler.Routes())
		}
		if cfg.AccountsHandler != nil {
			public.Mount("/api/v1/accounts", cfg.AccountsHandler.PublicRoutes())
		}
		if cfg.AppointmentsHandler != nil {
			public.Get("/api/v1/doctors/{doctorID}/slots", cfg.AppointmentsHandler.DoctorSlots)
		}
	})

	// Authenticated endpoints.
	r.Group(func(authed chi.Router) {
		authed.Use(actorAuth)
		if cfg.AccountsHandler != nil {
			authed.Mount("/api/v1/account", cfg.AccountsHandler.AuthedRoutes())
		}
		if cfg.AppointmentsHandler != nil {
			authed.Mount("/api/v1/appointments", cfg.AppointmentsHandler.Routes())
		}
		if cfg.ReportsHandler != nil {
			authed.Mount("/api/v1/reports", cfg.ReportsHandler.Routes())
		}
	})

	// Admin endpoints.
	r.Group(func(admin chi.Router) {
		admin.Use(actorAuth)
		admin.Use(httpmiddleware.RequireRole(accounts.RoleAdmin))
		if cfg.ReportsHandler != nil {
			admin.Mount("/api/v1/admin/reports", cfg.ReportsHandler.AdminRoutes())
			// Flat aliases alongside the /admin prefix.
			admin.Post("/api/v1/reports/run", cfg.ReportsHandler.BulkGenerate)
			admin.Get("/api/v1/reports/system/{year}/{month}", cfg.ReportsHandler.SystemMonthly)
		}
		if cfg.LocationsHandler != nil {
			admin.Get("/api/v1/admin/locations/statistics", cfg.LocationsHandler.Statistics)
			admin.Post("/api/v1/admin/locations/cache/clear", cfg.LocationsHandler.ClearCache)
		}
	})

	return r
}
