package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"notes-saas/internal/api"
	"notes-saas/internal/auth"
	"notes-saas/internal/config"
	"notes-saas/internal/entitlement"
	"notes-saas/internal/logger"
	"notes-saas/internal/manager"
	"notes-saas/internal/messaging"
	"notes-saas/internal/metrics"
	"notes-saas/internal/notes"
	"notes-saas/internal/seed"
	"notes-saas/internal/storage"
	"notes-saas/internal/tenancy"
	"notes-saas/internal/worker"
)

// @title Notes SaaS API
// @version 1.0
// @description Multi-tenant notes API with per-tenant isolation and subscription quotas
// @host localhost:8080
// @BasePath /
// @schemes http

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		doSeed     bool
	)

	cmd := &cobra.Command{
		Use:           "notes-saas",
		Short:         "Multi-tenant notes API server",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
				return err
			}

			zl, err := logger.New(cfg.Log.Level, cfg.Log.Development)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
				return err
			}
			defer func() { _ = zl.Sync() }()

			if err := run(cfg, doSeed, zl); err != nil {
				zl.Error("server exited", zap.Error(err))
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	cmd.Flags().BoolVar(&doSeed, "seed", false, "create demo tenants and users when the store is empty")
	return cmd
}

func run(cfg *config.Config, doSeed bool, zl *zap.Logger) error {
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer store.Close()

	var rabbitClient *messaging.RabbitClient
	if cfg.RabbitMQ.URL != "" {
		rabbitClient, err = messaging.NewRabbitClient(cfg.RabbitMQ.URL, zl)
		if err != nil {
			return err
		}
		defer rabbitClient.Close()
		zl.Info("RabbitMQ connected")
	} else {
		zl.Info("RabbitMQ disabled, events are recorded in-process")
	}

	pool := worker.NewWorkerPool(cfg.Workers, cfg.Workers*64, zl)
	pool.Start()

	tm := manager.NewTenantManager(rabbitClient, store, pool, cfg.Workers, zl)

	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	if doSeed {
		if _, err := seed.Run(ctx, store, tm, hasher, zl); err != nil {
			return err
		}
	}

	// Recover existing tenants
	tenants, err := store.ListTenants(ctx)
	if err != nil {
		return err
	}
	for _, t := range tenants {
		if err := tm.AddTenant(ctx, t.ID); err != nil {
			zl.Warn("failed to recover tenant", zap.Stringer("tenant_id", t.ID), zap.Error(err))
		}
	}

	if rabbitClient != nil {
		go queueDepthLoop(ctx, tm, rabbitClient)
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	apiHandler := api.NewAPI(
		auth.NewService(store, tokens, hasher, tm, cfg.Auth.DefaultInvitePassword, zl),
		auth.NewMiddleware(tokens, tenancy.NewResolver(store)),
		notes.NewService(store, entitlement.NewEngine(store), tm, zl),
		tm,
		store,
		cfg,
		zl,
	)
	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           apiHandler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("starting API server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	zl.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Warn("HTTP shutdown error", zap.Error(err))
	}

	tm.ShutdownAll()

	zl.Info("graceful shutdown complete")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, zl *zap.Logger) (storage.Store, error) {
	if cfg.Database.URL == "" {
		zl.Warn("database.url not set, using the in-memory store")
		return storage.NewMemoryStore(), nil
	}

	db, err := storage.NewStorage(cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	zl.Info("PostgreSQL connected")
	return db, nil
}

func queueDepthLoop(ctx context.Context, tm *manager.TenantManager, rc *messaging.RabbitClient) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, tenantID := range tm.ListTenantIDs() {
				rc.UpdateQueueDepth(tenantID)
			}
		}
	}
}
