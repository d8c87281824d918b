package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/timoknapp/sports-meet/pkg/api"
	"github.com/timoknapp/sports-meet/pkg/config"
	"github.com/timoknapp/sports-meet/pkg/logger"
	"github.com/timoknapp/sports-meet/pkg/meet"
	"github.com/timoknapp/sports-meet/pkg/metrics"
	"github.com/timoknapp/sports-meet/pkg/scheduler"
	"github.com/timoknapp/sports-meet/pkg/session"
	"github.com/timoknapp/sports-meet/pkg/store"
)

func main() {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration: %v", err)
		os.Exit(1)
	}
	if cfg.LogLevel != "" {
		logger.SetLogLevelFromString(cfg.LogLevel)
	}
	logger.Info("Starting sports meet backend server...")

	backend, err := openBackend(cfg)
	if err != nil {
		logger.Error("Failed to open %s store: %v", cfg.StoreDriver, err)
		os.Exit(1)
	}
	s := store.New(backend)
	defer func() {
		if err := s.Close(); err != nil {
			logger.Error("Failed to close store: %v", err)
		}
	}()
	metrics.TrackPersistenceFailures(s.PersistenceFailures)
	logger.Info("Store initialized with %s driver", cfg.StoreDriver)

	hasher, err := session.HasherFor(cfg.PasswordMode)
	if err != nil {
		logger.Error("Invalid password mode: %v", err)
		os.Exit(1)
	}
	auth := session.NewAuthenticator(s, hasher)
	if _, err := auth.EnsureDefaultAdmin(); err != nil {
		logger.Error("Failed to create default administrator: %v", err)
		os.Exit(1)
	}

	secret := cfg.JWTSecret
	if secret == "" {
		secret = strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
		logger.Warn("MEET_JWT_SECRET not set, using a random secret; tokens will not survive a restart")
	}
	tokens := session.NewTokenIssuer(secret, cfg.TokenTTL)
	svc := meet.New(s, auth, meet.WithLocation(cfg.Timezone))

	sch, err := scheduler.New(scheduler.FromEnv(), s)
	if err != nil {
		logger.Error("Failed to create backup scheduler: %v", err)
		os.Exit(1)
	}
	sch.Start()
	defer sch.Stop()
	metrics.SetReloadCallback(sch.Reload)
	metrics.Init()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewServer(svc, auth, tokens, cfg.CORSOrigins).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Starting HTTP server on %s...", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to start: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed: %v", err)
	}
}

func openBackend(cfg config.Config) (store.Backend, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return store.NewMemoryBackend(), nil
	case config.DriverPostgres:
		return store.NewPostgresBackend(cfg.PostgresDSN)
	default:
		return store.NewBoltBackend(cfg.BoltPath)
	}
}
