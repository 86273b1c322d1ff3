package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/DukeRupert/lingua/internal"
	"github.com/DukeRupert/lingua/internal/ai"
	"github.com/DukeRupert/lingua/internal/ai/setup"
	"github.com/DukeRupert/lingua/internal/domain"
	"github.com/DukeRupert/lingua/internal/email"
	"github.com/DukeRupert/lingua/internal/handler"
	"github.com/DukeRupert/lingua/internal/metrics"
	"github.com/DukeRupert/lingua/internal/middleware"
	"github.com/DukeRupert/lingua/internal/repository"
	"github.com/DukeRupert/lingua/internal/service"
	"github.com/DukeRupert/lingua/internal/session"
	"github.com/DukeRupert/lingua/internal/storage"
	"github.com/DukeRupert/lingua/internal/worker"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize repository
	repo := repository.New(db)

	// Session store
	sessions, closeSessions, err := newSessionStore(ctx, cfg, repo, logger)
	if err != nil {
		return err
	}
	defer closeSessions()

	// File storage
	store, err := newStorage(cfg, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	// AI clients. Nothing is built until first use.
	aiFactory := setup.NewFactory(setup.Config{
		Default:         cfg.AIProvider,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		OpenAIModel:     cfg.OpenAIModel,
		GroqAPIKey:      cfg.GroqAPIKey,
		GroqModel:       cfg.GroqModel,
		GeminiAPIKey:    cfg.GeminiAPIKey,
		GeminiModel:     cfg.GeminiModel,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		AnthropicModel:  cfg.AnthropicModel,
		Provider: ai.ProviderConfig{
			MaxRetries:     cfg.AIMaxRetries,
			RetryBaseDelay: cfg.AIRetryBaseDelay,
			RequestTimeout: cfg.AIRequestTimeout,
		},
	}, logger, metrics.ObserveClientBuild)
	clients := aiFactory.Clients()
	logger.Info("AI clients registered", "providers", clients.Names(), "default", clients.DefaultName())

	// Initialize services
	userService := service.NewUserService(repo, sessions, service.UserServiceConfig{
		SessionDuration: cfg.SessionDuration,
		AdminEmails:     cfg.AdminEmails,
	}, logger)
	avatarService := service.NewAvatarService(userService, store, service.NewImagingProcessor(), logger)
	otpService := service.NewOTPService(repo, newMailer(cfg, logger), service.OTPServiceConfig{
		ExposeDevCode: cfg.IsDevelopment() && !cfg.MailEnabled(),
	}, logger)
	apiKeyService := service.NewAPIKeyService(repo, service.APIKeyServiceConfig{}, logger)
	resolver := setup.NewResolver(clients, aiFactory, apiKeyService, logger)

	// Background worker
	var jobs *worker.Worker
	if cfg.WorkerEnabled {
		wcfg := worker.DefaultConfig()
		wcfg.Concurrency = cfg.WorkerConcurrency
		wcfg.PollInterval = cfg.WorkerPollInterval
		wcfg.JobTimeout = cfg.WorkerJobTimeout

		jobs, err = worker.New(worker.NewPostgresJobStore(db, repo), wcfg, logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}
		jobs.Register(worker.NewPurgeSessionsHandler(userService, logger))
		jobs.Every(worker.JobTypePurgeExpiredSessions, cfg.SessionPurgeInterval)
		jobs.Register(worker.NewPurgeOTPsHandler(otpService, logger))
		jobs.Every(worker.JobTypePurgeExpiredOTPs, cfg.OTPPurgeInterval)
	}

	// Initialize middleware
	isSecure := !cfg.IsDevelopment()
	cookies := session.CookieOptions{Secure: isSecure}
	authMw := middleware.NewAuthMiddleware(userService, cookies, logger)
	rateLimiter := middleware.NewAuthRateLimiter(logger)
	defer rateLimiter.Close()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(userService, cookies, logger)
	authHandler.OnLogin(rateLimiter.ResetLogin)
	otpHandler := handler.NewOTPHandler(otpService, logger)
	apiKeyHandler := handler.NewAPIKeyHandler(apiKeyService, logger)
	statusHandler := handler.NewStatusHandler(db, resolver, 10*time.Second, logger)
	pageHandler := handler.NewPageHandler(cfg.StaticDir)
	avatarHandler := handler.NewAvatarHandler(avatarService, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	// Static files
	staticFS := http.FileServer(http.Dir(cfg.StaticDir))
	mux.Handle("GET /static/", http.StripPrefix("/static/", staticFS))
	if cfg.StorageProvider == "local" {
		filesFS := http.FileServer(http.Dir(cfg.LocalStoragePath))
		mux.Handle("GET /files/", http.StripPrefix("/files/", filesFS))
	}

	// Health and status
	mux.HandleFunc("GET /health", statusHandler.Live)
	mux.HandleFunc("GET /api/health", statusHandler.Health)
	mux.HandleFunc("GET /api/check-api-status", statusHandler.CheckAPIStatus)

	// Metrics
	mux.Handle("GET /metrics", middleware.BasicAuth(cfg.MetricsUsername, cfg.MetricsPassword, "metrics")(promhttp.Handler()))

	// Auth API (public)
	mux.Handle("POST /api/auth/login", rateLimiter.LimitLogin(http.HandlerFunc(authHandler.Login)))
	mux.Handle("POST /api/auth/register", rateLimiter.LimitRegister(http.HandlerFunc(authHandler.Register)))
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.Handle("POST /api/auth/send-otp", rateLimiter.LimitOTP(http.HandlerFunc(otpHandler.SendOTP)))
	mux.Handle("POST /api/auth/verify-otp", rateLimiter.LimitOTP(http.HandlerFunc(otpHandler.VerifyOTP)))

	// Authenticated API
	mux.Handle("GET /api/users/me", authMw.RequireUser(http.HandlerFunc(authHandler.Me)))
	mux.Handle("POST /api/upload-avatar", authMw.RequireUser(http.HandlerFunc(avatarHandler.Upload)))
	mux.Handle("GET /api/user-api-keys", authMw.RequireUser(http.HandlerFunc(apiKeyHandler.Get)))
	mux.Handle("POST /api/user-api-keys", authMw.RequireUser(http.HandlerFunc(apiKeyHandler.Save)))
	mux.Handle("DELETE /api/user-api-keys", authMw.RequireUser(http.HandlerFunc(apiKeyHandler.Delete)))

	// Admin API
	if jobs != nil {
		adminHandler := handler.NewAdminHandler(jobs, logger)
		adminOnly := middleware.Stack(authMw.RequireUser, authMw.RequireAdmin)
		mux.Handle("POST /api/admin/jobs/{type}", adminOnly(http.HandlerFunc(adminHandler.RunJob)))
	}

	// Pages
	mux.HandleFunc("GET /survey", pageHandler.Survey)
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if isAPIPath(r.URL.Path) {
			handler.ErrorResponse(w, r, logger, &domain.Error{Code: domain.ENOTFOUND, Op: "route", Message: "Not found"})
			return
		}
		pageHandler.App(w, r)
	})

	security := middleware.NewSecurityHeadersMiddleware(isSecure, assetOrigins(cfg)...)
	requestLog := middleware.NewRequestLoggingMiddleware(logger)
	global := middleware.Stack(
		security.Handler,
		requestLog.Handler,
		metrics.Middleware,
		authMw.WithUser,
		authMw.PageGuard,
	)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           global(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	if jobs != nil {
		jobs.Start(workerCtx)
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal or a listener failure
	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
	case err := <-serverErr:
		logger.Error("Server failed", "error", err)
	}

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	if jobs != nil {
		jobs.Stop()
	}

	logger.Info("Server stopped")
	return nil
}

func newSessionStore(ctx context.Context, cfg *internal.Config, repo *repository.Queries, logger *slog.Logger) (session.Store, func(), error) {
	if cfg.SessionStore != "redis" {
		logger.Info("Session store ready", "backend", "postgres")
		return session.NewPostgresStore(repo), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping failed: %w", err)
	}
	logger.Info("Session store ready", "backend", "redis", "addr", opts.Addr)

	return session.NewRedisStore(client), func() { _ = client.Close() }, nil
}

// newMailer falls back to logging codes when no SMTP server is configured.
func newMailer(cfg *internal.Config, logger *slog.Logger) email.Sender {
	if !cfg.MailEnabled() {
		logger.Warn("SMTP_HOST not set, one-time codes will be logged")
		return email.NewLogSender(logger)
	}
	return email.NewSMTPSender(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.EmailFrom,
	}, logger)
}

func newStorage(cfg *internal.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.StorageProvider == "r2" {
		return storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		}, logger)
	}
	return storage.NewLocalStorage(storage.LocalConfig{
		BasePath: cfg.LocalStoragePath,
		BaseURL:  cfg.LocalStorageURL,
	}, logger)
}

// assetOrigins lists the origins avatar images are served from.
func assetOrigins(cfg *internal.Config) []string {
	var origins []string
	for _, raw := range []string{cfg.LocalStorageURL, cfg.R2PublicURL} {
		if u, err := url.Parse(raw); err == nil && u.Scheme != "" && u.Host != "" {
			origins = append(origins, u.Scheme+"://"+u.Host)
		}
	}
	if cfg.StorageProvider == "r2" {
		origins = append(origins, "https://*.r2.cloudflarestorage.com")
	}
	return origins
}

func isAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
