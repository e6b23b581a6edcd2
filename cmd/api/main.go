package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/satyamkes/JanSahyog/internal/aiclient"
	"github.com/satyamkes/JanSahyog/internal/cache"
	"github.com/satyamkes/JanSahyog/internal/config"
	"github.com/satyamkes/JanSahyog/internal/database"
	"github.com/satyamkes/JanSahyog/internal/events"
	"github.com/satyamkes/JanSahyog/internal/features"
	"github.com/satyamkes/JanSahyog/internal/handler"
	"github.com/satyamkes/JanSahyog/internal/logger"
	"github.com/satyamkes/JanSahyog/internal/middleware"
	"github.com/satyamkes/JanSahyog/internal/service"
	"github.com/satyamkes/JanSahyog/internal/tracing"
)

func main() {
	configFile := flag.String("config", "", "Path to a YAML or JSON config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zl, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// run has released its resources by the time it returns
	if err := run(cfg, zl); err != nil {
		zl.Error("server stopped", zap.Error(err))
		zl.Sync()
		os.Exit(1)
	}
	zl.Sync()
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx := context.Background()

	// Initialize tracing
	if _, err := tracing.InitTracing(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Environment: cfg.Tracing.Environment,
	}); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			zl.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	// Initialize catalog store
	store, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	// Initialize cache
	var schemeCache cache.Cache
	switch cfg.Cache.Backend {
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cache.DefaultPrefix)
		if err != nil {
			return err
		}
		defer rc.Close()
		schemeCache = rc
	default:
		schemeCache = cache.NewInMemoryCache()
	}

	flags := features.NewManagerFromConfig(cfg.Features)

	eventManager := events.NewManager(cfg.Features.EventHooksEnabled, zl)
	defer eventManager.Shutdown()
	eventLog := events.LogHandler(zl.Named("events"))
	for _, t := range []events.EventType{events.EventSchemeCreated, events.EventEligibilityChecked, events.EventAIFallback} {
		eventManager.Subscribe(t, eventLog)
	}

	opts := []service.Option{
		service.WithCache(schemeCache, cfg.Cache.TTL),
		service.WithEvents(eventManager),
		service.WithFeatures(flags),
		service.WithLogger(zl),
	}
	if cfg.AI.ServiceURL != "" {
		opts = append(opts, service.WithAIClient(aiclient.New(cfg.AI.ServiceURL, cfg.AI.Timeout)))
	}
	svc := service.NewService(store, opts...)

	h := handler.NewHandlerWithOptions(svc, handler.NewHandlerOptions{
		MaxBodySize: cfg.Security.MaxRequestBodySize,
		Logger:      zl,
	})

	// Setup router
	r := chi.NewRouter()

	// Middleware (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.AccessLog(zl))
	r.Use(chimw.Recoverer)
	r.Use(middleware.TracingMiddleware())

	if cfg.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Rate, time.Duration(cfg.RateLimit.Window)*time.Second)
		defer rateLimiter.Stop()
		r.Use(middleware.RateLimitMiddleware(rateLimiter))
	}

	origins := cfg.AllowedOrigins()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: !allowsAnyOrigin(origins),
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())
	h.Routes(r)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	protocol := "HTTP"
	if cfg.Server.EnableTLS {
		protocol = "HTTPS"
	}
	zl.Info("starting server",
		zap.String("protocol", protocol),
		zap.String("addr", addr),
		zap.String("database", cfg.Database.Driver),
		zap.String("cache", cfg.Cache.Backend),
		zap.Int("rate_limit", cfg.RateLimit.Rate),
		zap.Int("rate_window_seconds", cfg.RateLimit.Window),
	)

	serverErr := make(chan error, 1)
	go func() {
		var err error
		if cfg.Server.EnableTLS {
			err = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Graceful shutdown
	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-sigint:
	}

	zl.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
