package main

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/bcforms/formgate/pkg/api"
	"github.com/bcforms/formgate/pkg/audit"
	"github.com/bcforms/formgate/pkg/config"
	"github.com/bcforms/formgate/pkg/observability"
	"github.com/bcforms/formgate/pkg/rbac"
	"github.com/bcforms/formgate/pkg/sso"
	"github.com/bcforms/formgate/pkg/tokens"
)

func main() {
	startup := logrus.New()
	startup.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		startup.Fatalf("Failed to load configuration: %v", err)
	}
	startup.SetLevel(logrusLevel(cfg.Observability.LogLevel))

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		startup.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLife)
	if err := db.PingContext(ctx); err != nil {
		startup.Fatalf("Failed to connect to database: %v", err)
	}
	startup.Info("Connected to database")

	if err := rbac.RunMigrations(ctx, db, logger); err != nil {
		startup.Fatalf("Failed to run migrations: %v", err)
	}

	store := rbac.NewStore(db)
	if err := rbac.SeedDefaultRoles(ctx, store); err != nil {
		startup.Fatalf("Failed to seed default roles: %v", err)
	}

	// Redis, for the OIDC login-state store
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		startup.Fatalf("Failed to parse redis URL: %v", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		startup.Fatalf("Failed to connect to redis: %v", err)
	}
	startup.Info("Connected to redis")

	// Signing keys
	keys, err := tokens.LoadOrGenerateKeys(cfg.Tokens.KeyDir)
	if err != nil {
		startup.Fatalf("Failed to load signing keys: %v", err)
	}
	tokenService := tokens.NewService(keys, tokens.Config{
		Issuer:     cfg.Tokens.Issuer,
		Audience:   cfg.Tokens.Audience,
		AccessTTL:  cfg.Tokens.AccessTTL,
		RefreshTTL: cfg.Tokens.RefreshTTL,
	})

	// Metrics
	var metrics *observability.Metrics
	registry := prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	recorder, err := audit.NewRecorder(db, logger, metrics)
	if err != nil {
		startup.Fatalf("Failed to create audit recorder: %v", err)
	}

	resolver := rbac.NewResolver(store)
	gate := rbac.NewGate(resolver, store, recorder, metrics)

	// Identity provider
	provider, err := sso.NewProvider(ctx, cfg.OIDC)
	if err != nil {
		startup.Fatalf("Failed to configure identity provider: %v", err)
	}
	states := sso.NewStateStore(redisClient, cfg.Redis.StateTTL)
	provisioner := sso.NewProvisioner(store, tokenService, recorder, logger)

	server := api.NewServer(api.Deps{
		Store:       store,
		Resolver:    resolver,
		Gate:        gate,
		Tokens:      tokenService,
		Provider:    provider,
		States:      states,
		Provisioner: provisioner,
		Recorder:    recorder,
		Logger:      logger,
		Metrics:     metrics,
	})

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate port so probes bypass auth
	opsMux := http.NewServeMux()
	observability.RegisterHealthRoutes(opsMux, observability.NewHealthChecker(db, redisClient))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(opsMux, registry)
	}
	opsServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: opsMux,
	}

	errCh := make(chan error, 2)
	go func() {
		startup.Infof("Starting API server on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	go func() {
		startup.Infof("Starting health/metrics server on %s", opsServer.Addr)
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		startup.Fatalf("Server failed: %v", err)
	case <-ctx.Done():
		startup.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		startup.Errorf("API server shutdown: %v", err)
	}
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		startup.Errorf("Health server shutdown: %v", err)
	}
	startup.Info("Shutdown complete")
}

func logrusLevel(level observability.LogLevel) logrus.Level {
	switch level {
	case observability.DebugLevel:
		return logrus.DebugLevel
	case observability.WarnLevel:
		return logrus.WarnLevel
	case observability.ErrorLevel:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
