package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/synthflow/landing-platform/internal/http/handlers"
	httpmiddleware "github.com/synthflow/landing-platform/internal/http/middleware"
	"github.com/synthflow/landing-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger       *logging.Logger
	Funnel       *handlers.FunnelHandler
	Notification *handlers.NotificationHandler
	Events       *handlers.EventsHandler
	Newsletter   *handlers.NewsletterHandler
	AdminLeads   *handlers.AdminLeadsHandler

	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Per-IP rate limit for the public notification/newsletter endpoints.
	NotifyRateLimit float64
	NotifyBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
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

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Funnel session API driven by the landing page.
	if cfg.Funnel != nil {
		r.Route("/funnel", func(r chi.Router) {
			r.Get("/plans", cfg.Funnel.ListPlans)
			r.Post("/sessions", cfg.Funnel.StartSession)
			r.Route("/sessions/{sessionID}", func(r chi.Router) {
				r.Get("/", cfg.Funnel.GetSession)
				r.Post("/plan", cfg.Funnel.SelectPlan)
				r.Post("/register", cfg.Funnel.Register)
				r.Post("/billing", cfg.Funnel.SubmitBilling)
				r.Post("/back", cfg.Funnel.Back)
				r.Post("/accept", cfg.Funnel.Accept)
				r.Post("/decline", cfg.Funnel.Decline)
			})
		})
	}

	// Public page API. The notification and newsletter endpoints trigger
	// operator email, so they carry a per-IP rate limit.
	r.Route("/api", func(api chi.Router) {
		rate := cfg.NotifyRateLimit
		if rate <= 0 {
			rate = 1
		}
		burst := cfg.NotifyBurst
		if burst <= 0 {
			burst = 5
		}
		limited := api.With(httpmiddleware.RateLimit(rate, burst))
		if cfg.Notification != nil {
			limited.Post("/send-notification", cfg.Notification.SendNotification)
		}
		if cfg.Newsletter != nil {
			limited.Post("/newsletter", cfg.Newsletter.Subscribe)
		}
		if cfg.Events != nil {
			api.Post("/events", cfg.Events.TrackEvent)
		}
	})

	// Admin routes (protected by HMAC JWT).
	if cfg.AdminLeads != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Get("/leads", cfg.AdminLeads.ListLeads)
		})
	}

	return r
}
