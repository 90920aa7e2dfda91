package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"

	"github.com/smartcampus/facilities/pkg/api"
	"github.com/smartcampus/facilities/pkg/auth"
	"github.com/smartcampus/facilities/pkg/config"
	"github.com/smartcampus/facilities/pkg/httputil"
	"github.com/smartcampus/facilities/pkg/middleware"
	"github.com/smartcampus/facilities/pkg/observability"
	"github.com/smartcampus/facilities/pkg/sso"
	"github.com/smartcampus/facilities/pkg/storage"
)

// memoryPurgeInterval bounds how long expired entries linger in the
// process-local revocation list.
const memoryPurgeInterval = 10 * time.Minute

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, os.Stdout)
	logger.Info("Starting campus facilities server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	signingKey := []byte(cfg.Auth.SigningKey)
	if len(signingKey) == 0 {
		signingKey, err = auth.GenerateSigningKey()
		if err != nil {
			log.Fatalf("Failed to generate signing key: %v", err)
		}
		logger.Warn("CAMPUS_JWT_SECRET is not set; tokens will not survive a restart")
	}

	// Revocation list: shared via Redis when configured, process-local
	// otherwise.
	var revocation auth.RevocationList
	var memoryRevocation *auth.MemoryRevocationList
	if cfg.Auth.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Auth.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		client := redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			cancel()
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		cancel()
		defer client.Close()

		revocation = auth.NewRedisRevocationList(client, "campus:revoked:")
		logger.Info("Token revocation backed by Redis")
	} else {
		memoryRevocation = auth.NewMemoryRevocationList()
		revocation = memoryRevocation
		logger.Warn("Token revocation is process-local; set CAMPUS_REDIS_URL for multi-replica deployments")
	}

	tokens := auth.NewTokenService(signingKey, cfg.Auth.TokenTTL, revocation)

	var users auth.UserStore
	var resources api.ResourceStore
	if cfg.Storage.DatabaseURL != "" {
		db, err := storage.Connect(storage.ConnectionConfig{
			URL:      cfg.Storage.DatabaseURL,
			MaxConns: cfg.Storage.MaxConns,
			MinConns: cfg.Storage.MinConns,
			Timeout:  cfg.Storage.Timeout,
		})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := storage.RunMigrations(ctx, db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}

		users = storage.NewUserStore(db)
		resources = storage.NewResourceStore(db)
		logger.Info("Storage backed by PostgreSQL")
	} else {
		users = storage.NewMemoryUserStore()
		resources = storage.NewMemoryResourceStore()
		logger.Warn("CAMPUS_DATABASE_URL is not set; running on in-memory stores")
	}

	if cfg.Auth.SeedUsers {
		if err := storage.SeedDefaultUsers(ctx, users, logger); err != nil {
			log.Fatalf("Failed to seed default users: %v", err)
		}
	}

	metrics := observability.NewMetrics(nil)
	server := api.NewServer(resources, users, tokens, logger, metrics)

	if cfg.OIDC.Enabled() {
		provider, err := sso.NewOIDCProvider(ctx, cfg.OIDC)
		if err != nil {
			log.Fatalf("Failed to initialize OIDC provider: %v", err)
		}
		handler := sso.NewHandler(provider, users, tokens,
			cfg.OIDC.FrontendRedirectURL, logger, metrics)
		server.RegisterFederation(handler)
		logger.WithField("issuer", cfg.OIDC.IssuerURL).Info("Federated login enabled")
	}

	gate := middleware.NewAccessGate(tokens, middleware.DefaultPolicy(), logger, metrics)
	chain := httputil.Chain(
		httputil.RecoveryMiddleware(logger),
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(logger),
		httputil.CORSMiddleware(cfg.CORSOrigins),
		metrics.HTTPMiddleware,
		gate.Middleware,
	)

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      chain(server),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	healthMux.Handle("/metrics", metrics.Handler())
	healthMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteSuccess(w, map[string]string{"status": "healthy"})
	})
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("API server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("Health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	if memoryRevocation != nil {
		g.Go(func() error {
			ticker := time.NewTicker(memoryPurgeInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					memoryRevocation.Purge()
				}
			}
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("API server shutdown failed")
		}
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Health server shutdown failed")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	logger.Info("Server stopped")
}
