// SWS Review Engine Server - plan ingestion and review orchestration
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/swsreview/engine/internal/application/airule"
	"github.com/swsreview/engine/internal/application/catalog"
	"github.com/swsreview/engine/internal/application/export"
	"github.com/swsreview/engine/internal/application/kb"
	"github.com/swsreview/engine/internal/application/pipeline"
	"github.com/swsreview/engine/internal/application/progress"
	"github.com/swsreview/engine/internal/application/reviewrun"
	"github.com/swsreview/engine/internal/application/sweep"
	"github.com/swsreview/engine/internal/config"
	"github.com/swsreview/engine/internal/infrastructure/api/rest"
	"github.com/swsreview/engine/internal/infrastructure/cache"
	"github.com/swsreview/engine/internal/infrastructure/converter"
	"github.com/swsreview/engine/internal/infrastructure/logger"
	"github.com/swsreview/engine/internal/infrastructure/objectstore"
	"github.com/swsreview/engine/internal/infrastructure/storage"
	"github.com/swsreview/engine/internal/infrastructure/tracing"
)

const checkpointCatalogPath = "./configs/checkpoints.yaml"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.New(cfg.Logging)
	logger.SetDefault(appLogger)

	appLogger.Info("Starting SWS Review Engine",
		"version", "1.0.0",
		"port", cfg.Server.Port,
	)

	dbConfig := &storage.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		Debug:           cfg.Database.Debug,
	}

	db, err := storage.NewDB(dbConfig)
	if err != nil {
		appLogger.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer storage.Close(db)

	appLogger.Info("Database connected", "max_conns", cfg.Database.MaxOpenConns)

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		appLogger.Warn("Failed to initialize Redis cache", "error", err)
		redisCache = nil
	} else {
		defer redisCache.Close()
		appLogger.Info("Redis cache connected")
	}

	tracingProvider, err := tracing.NewProvider(context.Background(), tracing.Config{
		Enabled:     cfg.Observability.Enabled,
		ServiceName: cfg.Observability.ServiceName,
		Endpoint:    cfg.Observability.OTLPEndpoint,
	})
	if err != nil {
		appLogger.Warn("Failed to initialize tracing provider", "error", err)
	}
	if tracingProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracingProvider.Shutdown(shutdownCtx); err != nil {
				appLogger.Error("Tracing provider shutdown failed", "error", err)
			}
		}()
		appLogger.Info("Tracing provider initialized", "endpoint", cfg.Observability.OTLPEndpoint)
	}

	store, err := objectstore.New(context.Background(), objectstore.Config{
		Backend:   cfg.ObjectStore.Backend,
		LocalRoot: cfg.ObjectStore.LocalRoot,
		GCSBucket: cfg.ObjectStore.GCSBucket,
	})
	if err != nil {
		appLogger.Error("Failed to initialize object store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	appLogger.Info("Object store initialized", "backend", cfg.ObjectStore.Backend)

	conv, err := converter.New(cfg.Pipeline.ConverterBinary, cfg.Pipeline.ConvertTimeout)
	if err != nil {
		appLogger.Error("Failed to initialize converter", "error", err)
		os.Exit(1)
	}

	// Repositories
	documentRepo := storage.NewDocumentRepository(db)
	versionRepo := storage.NewVersionRepository(db)
	outlineRepo := storage.NewOutlineRepository(db)
	blockRepo := storage.NewBlockRepository(db)
	tableRepo := storage.NewTableRepository(db)
	factRepo := storage.NewFactRepository(db)
	checkpointRepo := storage.NewCheckpointRepository(db)
	reviewRunRepo := storage.NewReviewRunRepository(db)
	kbRepo := storage.NewKBRepository(db)

	appLogger.Info("Repositories initialized")

	// Seed the checkpoint catalog from its bundled definition, the way
	// the teacher's YAML importer seeds workflow definitions at boot.
	if f, err := os.Open(checkpointCatalogPath); err != nil {
		appLogger.Warn("Checkpoint catalog not loaded", "path", checkpointCatalogPath, "error", err)
	} else {
		n, err := catalog.NewLoader(checkpointRepo).LoadFromReader(context.Background(), f)
		f.Close()
		if err != nil {
			appLogger.Error("Failed to load checkpoint catalog", "error", err)
		} else {
			appLogger.Info("Checkpoint catalog loaded", "count", n)
		}
	}

	bus := progress.NewBus(progress.WithLogger(appLogger))

	kbIndexer := kb.NewIndexer(kbRepo, store, appLogger)

	pipe := pipeline.New(versionRepo, documentRepo, outlineRepo, blockRepo, tableRepo, factRepo, store, conv, bus, appLogger)

	var aiClient airule.Client
	if cfg.Model.APIKey != "" {
		aiClient, err = airule.NewOpenAIClient(cfg.Model.APIKey, cfg.Model.BaseURL)
		if err != nil {
			appLogger.Warn("AI rule client not initialized - AI checkpoints disabled", "error", err)
			aiClient = nil
		} else {
			appLogger.Info("AI rule client initialized", "model", cfg.Model.Name)
		}
	} else {
		appLogger.Warn("SWS_MODEL_API_KEY not set - AI checkpoints disabled")
	}

	reviewService := reviewrun.New(
		versionRepo, outlineRepo, blockRepo, tableRepo, factRepo,
		checkpointRepo, reviewRunRepo, kbRepo,
		aiClient,
		reviewrun.Config{
			AIModel:       cfg.Model.Name,
			AIConcurrency: cfg.AI.Concurrency,
			AIMaxRetries:  cfg.AI.MaxRetries,
			KBSearchTopK:  5,
		},
		bus, appLogger,
	)

	exportRenderer := export.New(versionRepo, documentRepo, outlineRepo, blockRepo, reviewRunRepo)

	// Background sweeper: requeues versions stalled mid-pipeline and
	// periodically reindexes the knowledge base.
	scheduler := sweep.NewScheduler(pipe, kbIndexer, appLogger, 30*60)
	if err := scheduler.Start("@every 5m", "@every 1h"); err != nil {
		appLogger.Error("Failed to start sweep scheduler", "error", err)
	} else {
		appLogger.Info("Sweep scheduler started")
		defer scheduler.Stop()
	}

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	loggingMiddleware := rest.NewLoggingMiddleware(appLogger)
	recoveryMiddleware := rest.NewRecoveryMiddleware(appLogger)
	bodySizeMiddleware := rest.NewBodySizeMiddleware(appLogger, 100<<20)

	router.Use(recoveryMiddleware.Recovery())
	router.Use(loggingMiddleware.RequestLogger())
	router.Use(bodySizeMiddleware.LimitBodySize())

	if cfg.Server.CORS {
		router.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, PATCH, OPTIONS")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Max-Age", "86400")
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusNoContent)
				return
			}
			c.Next()
		})
		appLogger.Info("CORS enabled")
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	router.GET("/metrics", func(c *gin.Context) {
		stats := db.DB.Stats()
		c.JSON(http.StatusOK, gin.H{"metrics": gin.H{
			"database": gin.H{
				"open_connections": stats.OpenConnections,
				"in_use":           stats.InUse,
				"idle":             stats.Idle,
			},
		}})
	})

	versionHandlers := rest.NewVersionHandlers(versionRepo, documentRepo, store, pipe, appLogger)
	reviewHandlers := rest.NewReviewHandlers(reviewRunRepo, reviewService, appLogger)
	exportHandlers := rest.NewExportHandlers(exportRenderer, appLogger)

	api := router.Group("/api")
	{
		// Project/Document CRUD is out of scope (see SPEC_FULL §1); a
		// Document's row is expected to already exist (seeded by an
		// external collaborator system) before a Version is uploaded
		// against it.
		api.POST("/documents/:document_id/versions", versionHandlers.HandleUploadVersion)
		api.GET("/versions/:id", versionHandlers.HandleGetVersion)
		api.GET("/versions/:id/stream", rest.HandleStreamProgress(bus))

		api.POST("/versions/:id/review-runs", reviewHandlers.HandleStartReviewRun)
		api.GET("/review-runs/:id", reviewHandlers.HandleGetReviewRun)
		api.GET("/versions/:id/issues", reviewHandlers.HandleListIssues)
		api.PATCH("/issues/:issue_id", reviewHandlers.HandleUpdateIssueStatus)

		api.GET("/versions/:id/export", exportHandlers.HandleExport)
		api.POST("/versions/:id/export", exportHandlers.HandleExport)
	}

	appLogger.Info("REST API routes registered")

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		appLogger.Info("HTTP server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server error", "error", err)
			os.Exit(1)
		}

	case sig := <-shutdown:
		appLogger.Info("Server shutdown initiated", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			appLogger.Error("Graceful shutdown failed", "error", err)
			if err := server.Close(); err != nil {
				appLogger.Error("Server close failed", "error", err)
			}
		}

		appLogger.Info("Server stopped")
	}
}
