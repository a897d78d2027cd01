// Package main is the entrypoint for the Curbside API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/curbsidehq/curbside/internal/api"
	"github.com/curbsidehq/curbside/internal/api/handler"
	mw "github.com/curbsidehq/curbside/internal/api/middleware"
	"github.com/curbsidehq/curbside/internal/api/response"
	"github.com/curbsidehq/curbside/internal/auth"
	"github.com/curbsidehq/curbside/internal/blob"
	"github.com/curbsidehq/curbside/internal/cache"
	"github.com/curbsidehq/curbside/internal/config"
	"github.com/curbsidehq/curbside/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// 1. Load config — fail fast on invalid config
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run public-schema migrations; tenant schemas are provisioned
	// per registration, not here.
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Blob storage for trust artifacts
	blobs, err := blob.NewFSStore(cfg.Blob.Dir, cfg.Blob.BaseURL)
	if err != nil {
		return fmt.Errorf("create blob store: %w", err)
	}

	// 6. Core services
	s := store.New(pool)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.RefreshTokenSecret,
		cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	authSvc := auth.NewService(s, tokens, logger, cfg.Auth.BcryptCost, cfg.Auth.TrialDays)

	// 7. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(tokens, s, redisCache),
		RateLimit: mw.NewRateLimit(redisCache, cfg.Server.RequestsPerMinute),

		HealthHandler: healthHandler(s, redisCache),

		RegisterHandler: handler.NewRegisterHandler(authSvc),
		LoginHandler:    handler.NewLoginHandler(authSvc),
		RefreshHandler:  handler.NewRefreshHandler(authSvc),
		LogoutHandler:   handler.NewLogoutHandler(authSvc),

		ListCustomers:  handler.NewListCustomersHandler(s),
		GetCustomer:    handler.NewGetCustomerHandler(s),
		CreateCustomer: handler.NewCreateCustomerHandler(s),
		UpdateCustomer: handler.NewUpdateCustomerHandler(s),
		DeleteCustomer: handler.NewDeleteCustomerHandler(s),

		ListVehicles:  handler.NewListVehiclesHandler(s),
		GetVehicle:    handler.NewGetVehicleHandler(s),
		CreateVehicle: handler.NewCreateVehicleHandler(s),
		UpdateVehicle: handler.NewUpdateVehicleHandler(s),
		DeleteVehicle: handler.NewDeleteVehicleHandler(s),

		ListJobs:        handler.NewListJobsHandler(s),
		GetJob:          handler.NewGetJobHandler(s),
		CreateJob:       handler.NewCreateJobHandler(s),
		UpdateJob:       handler.NewUpdateJobHandler(s),
		UpdateJobStatus: handler.NewUpdateJobStatusHandler(s),
		DeleteJob:       handler.NewDeleteJobHandler(s),
		ListJobParts:    handler.NewListJobPartsHandler(s),

		ListTemplates:  handler.NewListTemplatesHandler(s),
		GetTemplate:    handler.NewGetTemplateHandler(s),
		CreateTemplate: handler.NewCreateTemplateHandler(s),
		UpdateTemplate: handler.NewUpdateTemplateHandler(s),
		DeleteTemplate: handler.NewDeleteTemplateHandler(s),
		SpawnJob:       handler.NewSpawnJobHandler(s),
		TemplateUsage:  handler.NewTemplateUsageHandler(s, redisCache),

		ListParts:  handler.NewListPartsHandler(s),
		GetPart:    handler.NewGetPartHandler(s),
		CreatePart: handler.NewCreatePartHandler(s),
		UpdatePart: handler.NewUpdatePartHandler(s),
		DeletePart: handler.NewDeletePartHandler(s),

		ListInventory:     handler.NewListInventoryHandler(s),
		GetInventoryItem:  handler.NewGetInventoryItemHandler(s),
		AddInventory:      handler.NewAddInventoryHandler(s),
		UpdateInventory:   handler.NewUpdateInventoryHandler(s),
		DeleteInventory:   handler.NewDeleteInventoryHandler(s),
		TransferInventory: handler.NewTransferInventoryHandler(s),
		AllocateInventory: handler.NewAllocateInventoryHandler(s),
		Deallocate:        handler.NewDeallocateInventoryHandler(s),

		ListArtifacts:  handler.NewListArtifactsHandler(s),
		GetArtifact:    handler.NewGetArtifactHandler(s),
		UploadArtifact: handler.NewUploadArtifactHandler(s, blobs, logger),
		UpdateArtifact: handler.NewUpdateArtifactHandler(s),
		DeleteArtifact: handler.NewDeleteArtifactHandler(s, blobs, logger),
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database and cache connectivity.
func healthHandler(s *store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		if checks["database"] != "ok" || checks["cache"] != "ok" {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
