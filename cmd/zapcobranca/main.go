package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/condozap/zap-cobranca-go/internal/billing"
	"github.com/condozap/zap-cobranca-go/internal/config"
	"github.com/condozap/zap-cobranca-go/internal/domain"
	"github.com/condozap/zap-cobranca-go/internal/engine"
	"github.com/condozap/zap-cobranca-go/internal/handler"
	"github.com/condozap/zap-cobranca-go/internal/infra/cache"
	"github.com/condozap/zap-cobranca-go/internal/infra/gateway"
	"github.com/condozap/zap-cobranca-go/internal/infra/observability"
	"github.com/condozap/zap-cobranca-go/internal/infra/postgres"
	"github.com/condozap/zap-cobranca-go/internal/infra/resilience"
	"github.com/condozap/zap-cobranca-go/internal/service"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("wpp_server_url", cfg.WPPServerURL),
		zap.String("default_session", cfg.DefaultWASession),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("handoff_hours", cfg.HandoffHours),
		zap.Bool("email_on_empty", cfg.EmailOnEmpty),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "zap-cobranca")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Postgres ---
	ctx := context.Background()
	db, err := postgres.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.Migrate(db); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	contactStore := postgres.NewContactStore(db)
	tenantStore := postgres.NewTenantStore(db)
	messageLog := postgres.NewMessageLog(db)
	adminStore := postgres.NewAdminStore(db)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	// --- Gateway de WhatsApp ---
	registry := gateway.NewRegistry(httpClient, cfg.WPPServerURL, cfg.WPPSecretKey)
	messenger := gateway.NewClient(
		httpClient,
		cfg.WPPServerURL,
		registry,
		resilience.NewCircuitBreaker("wppconnect"),
		resilienceCfg,
		logger,
	)

	// --- Superlógica ---
	superlogica := billing.NewSuperlogica(
		httpClient,
		billing.Options{
			BaseURLOverride:    cfg.SuperlogicaBaseURL,
			BoletosPath:        cfg.SuperlogicaBoletosURL,
			PortalHostOverride: cfg.SuperlogicaPortalHost,
			EmailPaths:         cfg.SuperlogicaEmailPaths,
			DefaultModule:      cfg.DefaultModule,
			DNSCheckTimeout:    cfg.DNSCheckTimeout,
			EmailOnEmpty:       cfg.EmailOnEmpty,
		},
		resilience.NewCircuitBreaker("superlogica"),
		resilienceCfg,
		metrics,
		logger,
	)

	// --- Engine + dispatcher ---
	eng := engine.New(engine.Deps{
		Contacts:        contactStore,
		Tenants:         tenantStore,
		Log:             messageLog,
		Messenger:       messenger,
		Boletos:         superlogica,
		Portal:          superlogica,
		TenantCache:     cache.New[*domain.Tenant](cfg.CacheTTL),
		Metrics:         metrics,
		Logger:          logger,
		HandoffDuration: time.Duration(cfg.HandoffHours) * time.Hour,
	})
	dispatcher := engine.NewDispatcher(eng, logger, engine.WithMaxConcurrency(cfg.MaxConcurrency))

	// --- Services ---
	authSvc := service.NewAuthService(adminStore, cfg.JWTSecret, cfg.JWTAccessTTL, logger)
	adminSvc := service.NewAdminService(adminStore, tenantStore, superlogica, logger)

	if err := authSvc.SeedAdmin(ctx, cfg.AdminSeedName, cfg.AdminSeedEmail, cfg.AdminSeedPassword); err != nil {
		logger.Fatal("failed to seed admin", zap.Error(err))
	}

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Auth:       authSvc,
		Admin:      adminSvc,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		Ready: func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return db.PingContext(pingCtx)
		},
	})

	// --- Server + graceful shutdown ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		// Deixa os workers terminarem as conversas em curso.
		return dispatcher.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}
