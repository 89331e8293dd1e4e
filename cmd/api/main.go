package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/synthflow/landing-platform/cmd/mainconfig"
	"github.com/synthflow/landing-platform/internal/analytics"
	"github.com/synthflow/landing-platform/internal/api/router"
	"github.com/synthflow/landing-platform/internal/attribution"
	"github.com/synthflow/landing-platform/internal/billing"
	appconfig "github.com/synthflow/landing-platform/internal/config"
	"github.com/synthflow/landing-platform/internal/funnel"
	"github.com/synthflow/landing-platform/internal/http/handlers"
	"github.com/synthflow/landing-platform/internal/leads"
	"github.com/synthflow/landing-platform/internal/notify"
	"github.com/synthflow/landing-platform/internal/observability/metrics"
	"github.com/synthflow/landing-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting synthflow landing API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()
	funnelMetrics := metrics.NewFunnelMetrics(nil)

	// Session and attribution state live in Redis so the funnel survives
	// process restarts; without Redis everything degrades to in-memory.
	var (
		sessionStore funnel.SessionStore
		attrStore    attribution.Store
	)
	redisClient := newRedisClient(cfg)
	if redisClient != nil {
		sessionStore = funnel.NewRedisSessionStore(redisClient, cfg.SessionTTL)
		attrStore = attribution.NewRedisStore(redisClient, cfg.SessionTTL)
	} else {
		logger.Warn("redis unavailable, using in-memory session state")
		sessionStore = funnel.NewMemorySessionStore()
		attrStore = attribution.NewMemoryStore()
	}
	capturer := attribution.NewCapturer(attrStore)

	var leadsRepo leads.Repository
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		leadsRepo = leads.NewPostgresRepository(pool)
		logger.Info("lead storage: postgres")
	} else {
		leadsRepo = leads.NewInMemoryRepository()
		logger.Warn("DATABASE_URL not set, leads are stored in memory")
	}

	emailSender := buildEmailSender(ctx, cfg, logger)
	notifier := notify.NewService(emailSender, cfg.OperatorEmails, funnelMetrics, logger)

	var sinks []analytics.Sink
	if umami := analytics.NewUmamiSink(cfg.UmamiHost, cfg.UmamiWebsiteID); umami != nil {
		sinks = append(sinks, umami)
	}
	if cfg.AnalyticsWebhookURL != "" {
		sinks = append(sinks, analytics.NewWebhookSink(cfg.AnalyticsWebhookURL))
	}
	if len(sinks) == 0 {
		sinks = append(sinks, analytics.NewLogSink(logger))
	}
	emitter := analytics.NewEmitter(sinks, capturer, funnelMetrics, logger)

	ctrl := funnel.NewController(funnel.ControllerDeps{
		Store:    sessionStore,
		Attr:     capturer,
		Emitter:  emitter,
		Notifier: notifier,
		Leads:    leadsRepo,
		Timeline: billing.NewTimeline(scaledTimeline(cfg.ProcessingDelay)),
		Observer: funnelMetrics,
		Logger:   logger,
	})

	r := router.New(&router.Config{
		Logger:             logger,
		Funnel:             handlers.NewFunnelHandler(ctrl, logger),
		Notification:       handlers.NewNotificationHandler(notifier, leadsRepo, logger),
		Events:             handlers.NewEventsHandler(emitter, logger),
		Newsletter:         handlers.NewNewsletterHandler(notifier, leadsRepo, emitter, logger),
		AdminLeads:         handlers.NewAdminLeadsHandler(leadsRepo, logger),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		NotifyRateLimit:    cfg.NotifyRateLimit,
		NotifyBurst:        cfg.NotifyRateBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	// Let in-flight processing timelines finish before exiting.
	if err := ctrl.Shutdown(shutdownCtx); err != nil {
		logger.Warn("funnel controller shutdown timed out", "error", err)
	}

	logger.Info("server stopped")
}

// newRedisClient connects to Redis, returning nil when it is unreachable.
func newRedisClient(cfg *appconfig.Config) *redis.Client {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}

// buildEmailSender picks the configured email provider. "auto" prefers
// SendGrid when an API key is present, then SES, then the logging stub.
func buildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	provider := cfg.EmailProvider
	if provider == "auto" {
		switch {
		case cfg.SendGridAPIKey != "":
			provider = "sendgrid"
		case cfg.SESFromEmail != "" && cfg.AWSAccessKeyID != "":
			provider = "ses"
		default:
			provider = "stub"
		}
	}

	switch provider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
		if sender != nil {
			logger.Info("email provider: sendgrid")
			return sender
		}
		logger.Warn("sendgrid selected but not configured, falling back to stub")
	case "ses":
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config for SES", "error", err)
			break
		}
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger)
		if sender != nil {
			logger.Info("email provider: ses")
			return sender
		}
	}

	logger.Info("email provider: stub")
	return notify.NewStubEmailSender(logger)
}

// scaledTimeline stretches or compresses the fixed processing sub-steps so
// their total matches the configured delay.
func scaledTimeline(total time.Duration) []billing.TimelineStep {
	steps := billing.DefaultTimeline()
	base := time.Duration(0)
	for _, s := range steps {
		base += s.Duration
	}
	if total <= 0 || total == base || base == 0 {
		return steps
	}
	for i := range steps {
		steps[i].Duration = time.Duration(float64(steps[i].Duration) * float64(total) / float64(base))
	}
	return steps
}
