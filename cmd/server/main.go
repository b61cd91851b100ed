package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/unionbase/jibun/api/internal/config"
	"github.com/unionbase/jibun/api/internal/conflict"
	"github.com/unionbase/jibun/api/internal/database"
	"github.com/unionbase/jibun/api/internal/handlers"
	"github.com/unionbase/jibun/api/internal/jobs"
	"github.com/unionbase/jibun/api/internal/logger"
	"github.com/unionbase/jibun/api/internal/matching"
	"github.com/unionbase/jibun/api/internal/middleware"
	"github.com/unionbase/jibun/api/internal/repository"
	"github.com/unionbase/jibun/api/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.Server.Env)
	log.Info("Starting reconciliation API", map[string]interface{}{
		"version":     "0.1.0",
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
	})

	// Create database connection pool
	ctx := context.Background()
	db, err := database.NewPostgresPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", err, map[string]interface{}{
			"host": cfg.Database.Host,
			"port": cfg.Database.Port,
			"name": cfg.Database.Name,
		})
	}
	defer db.Close()

	log.Info("Database connection established", map[string]interface{}{
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"database": cfg.Database.Name,
		"pool_min": cfg.Database.PoolMin,
		"pool_max": cfg.Database.PoolMax,
	})

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Recovery -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.Origins))

	// Register health check routes
	healthHandler := handlers.NewHealthHandler(db, cfg.Server.Env)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/api/v1/info", healthHandler.Info)

	// Initialize repository layer
	parcelRepo := repository.NewParcelRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	ownershipRepo := repository.NewOwnershipRepository(db)
	jobRepo := repository.NewJobRepository(db)

	// Registry matcher with its candidate cache
	matcher, err := matching.New(parcelRepo, cfg.Matcher.FuzzyThreshold, cfg.Matcher.CacheSize, log)
	if err != nil {
		log.Fatal("Failed to create matcher", err, nil)
	}

	// Job runner: one worker slot per concurrent batch job
	runner := jobs.NewRunner(jobRepo, cfg.Batch.Workers, cfg.Batch.MaxRowErrors, log)

	// Conflict pipeline
	detector := conflict.NewDetector(ownershipRepo, log)
	resolver := conflict.NewResolver(ownershipRepo, log)

	// Initialize service layer
	preRegisterService := services.NewPreRegisterService(runner, memberRepo, matcher, cfg.Batch.ChunkSize, log)
	syncService := services.NewSyncService(runner, memberRepo, matcher, cfg.Batch.ChunkSize, log)
	memberService := services.NewMemberService(memberRepo, matcher, log)
	parcelService := services.NewParcelService(parcelRepo, log)
	conflictService := services.NewConflictService(detector, resolver, ownershipRepo, log)
	jobService := services.NewJobService(jobRepo, log)

	// Initialize handlers
	uploadHandler := handlers.NewUploadHandler(preRegisterService, syncService)
	jobHandler := handlers.NewJobHandler(jobService)
	memberHandler := handlers.NewMemberHandler(memberService)
	conflictHandler := handlers.NewConflictHandler(conflictService)
	parcelHandler := handlers.NewParcelHandler(parcelService)

	// Register API v1 routes
	v1 := router.Group("/api/v1")
	{
		tenants := v1.Group("/tenants")
		{
			tenants.POST("/:tenantID/pre-register", uploadHandler.PreRegister)
			tenants.POST("/:tenantID/sync-properties", uploadHandler.SyncProperties)
			tenants.DELETE("/:tenantID/members", memberHandler.ResetTenant)
		}
		jobsGroup := v1.Group("/jobs")
		{
			jobsGroup.GET("/:jobID", jobHandler.Status)
			jobsGroup.DELETE("/:jobID", jobHandler.Delete)
			jobsGroup.POST("/:jobID/publish", jobHandler.Publish)
		}
		members := v1.Group("/members")
		{
			members.POST("/:memberID/rematch", memberHandler.Rematch)
			members.DELETE("/:memberID", memberHandler.Delete)
		}
		conflicts := v1.Group("/conflicts")
		{
			conflicts.POST("/units", conflictHandler.EnsureUnit)
			conflicts.POST("/check", conflictHandler.Check)
			conflicts.POST("/resolve", conflictHandler.Resolve)
		}
		parcels := v1.Group("/parcels")
		{
			parcels.GET("/at-point", parcelHandler.AtPoint)
			parcels.GET("/:pnu", parcelHandler.ByPNU)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown: stop accepting requests, then drain in-flight jobs
	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	if err := runner.Shutdown(shutdownCtx); err != nil {
		log.Error("Job runner forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}
