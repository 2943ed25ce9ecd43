package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/bizsite-ai-platform/internal/agent"
	httpmiddleware "github.com/wolfman30/bizsite-ai-platform/internal/http/middleware"
	"github.com/wolfman30/bizsite-ai-platform/internal/leads"
	"github.com/wolfman30/bizsite-ai-platform/internal/tenancy"
	"github.com/wolfman30/bizsite-ai-platform/internal/webchat"
	"github.com/wolfman30/bizsite-ai-platform/pkg/logging"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	ChatHandler        *agent.Handler
	WebChat            *webchat.Handler
	LeadsHandler       *leads.Handler
	MetricsHandler     http.Handler
	HealthChecks       []HealthCheck
	CORSAllowedOrigins []string
	AdminAuthSecret    string
	DefaultOrgID       string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.HealthChecks))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Admin routes (HS256 JWT, org from token or X-Org-Id)
	if cfg.AdminAuthSecret != "" && cfg.LeadsHandler != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Get("/leads", cfg.LeadsHandler.ListLeads)
		})
	}

	// Tenant-scoped public API routes
	r.Group(func(tenant chi.Router) {
		tenant.Use(tenancy.Middleware(cfg.DefaultOrgID))
		if cfg.RateLimitRPS > 0 {
			tenant.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		}

		if cfg.LeadsHandler != nil {
			tenant.Route("/leads", func(r chi.Router) {
				r.Post("/web", cfg.LeadsHandler.CreateWebLead)
			})
		}

		tenant.Route("/chat", func(r chi.Router) {
			if cfg.ChatHandler != nil {
				r.Post("/message", cfg.ChatHandler.PostMessage)
			}
			if cfg.WebChat != nil {
				r.Get("/ws", cfg.WebChat.HandleWebSocket)
				r.Get("/history", cfg.WebChat.HandleHistory)
			}
		})
	})

	return r
}

// healthHandler runs every check with a short timeout and answers 503 when
// any fails.
func healthHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		resp := map[string]string{"status": "ok"}
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				resp["status"] = "degraded"
				resp[c.Name] = err.Error()
				continue
			}
			resp[c.Name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
