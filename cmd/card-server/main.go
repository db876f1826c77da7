package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/student-card-api/api/swagger"
	"github.com/noah-isme/student-card-api/internal/handler"
	"github.com/noah-isme/student-card-api/internal/middleware"
	"github.com/noah-isme/student-card-api/internal/repository"
	"github.com/noah-isme/student-card-api/internal/service"
	"github.com/noah-isme/student-card-api/pkg/archive"
	"github.com/noah-isme/student-card-api/pkg/card"
	"github.com/noah-isme/student-card-api/pkg/card/assets"
	"github.com/noah-isme/student-card-api/pkg/config"
	"github.com/noah-isme/student-card-api/pkg/export"
	"github.com/noah-isme/student-card-api/pkg/jobs"
	"github.com/noah-isme/student-card-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/student-card-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/student-card-api/pkg/middleware/requestid"
	"github.com/noah-isme/student-card-api/pkg/storage"
)

// @title Student Card API
// @version 1.0.0
// @description Generates student ID cards as PNG images and ZIP archives.
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	students := repository.NewStudentStore()

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService(students.Count)
	}

	logo := assets.NewLogoFetcher(cfg.Card.LogoURL,
		assets.WithTimeout(cfg.Card.LogoTimeout),
		assets.WithCache(cfg.Card.LogoCacheSize, cfg.Card.LogoCacheTTL),
		assets.WithCacheObserver(metricsSvc.RecordLogoLookup),
	)
	renderer, err := card.NewRenderer(logo, card.WithLogger(logr))
	if err != nil {
		logr.Sugar().Fatalw("failed to init renderer", "error", err)
	}
	packager, err := archive.NewPackager(renderer, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to init packager", "error", err)
	}
	defer packager.Close() //nolint:errcheck

	studentSvc := service.NewStudentService(students, validator.New(), logr, service.StudentServiceConfig{
		DefaultSchoolName: cfg.Card.DefaultSchoolName,
		MaxPhotoSizeBytes: cfg.Card.MaxPhotoSizeBytes,
	})
	cardSvc := service.NewCardService(students, renderer, packager, metricsSvc, logr)
	importSvc := service.NewImportService(studentSvc, cfg.Import.MaxFileSizeBytes, logr)
	rosterSvc := service.NewRosterService(students, export.NewCSVExporter(';'), export.NewPDFExporter(), logr)

	batchHandler, readiness, stopBatches := setupBatches(ctx, cfg, logr, students, packager, metricsSvc)
	defer stopBatches()

	studentHandler := handler.NewStudentHandler(studentSvc, cfg.Card.MaxPhotoSizeBytes)
	cardHandler := handler.NewCardHandler(cardSvc)
	importHandler := handler.NewImportHandler(importSvc)
	rosterHandler := handler.NewRosterHandler(rosterSvc)
	readiness = append(readiness, handler.ReadinessCheck{Name: "surface", Check: func(context.Context) error {
		surface, err := card.NewSurface()
		if err != nil {
			return err
		}
		return surface.Close()
	}})
	var metricsHandler *handler.MetricsHandler
	if metricsSvc != nil {
		metricsHandler = handler.NewMetricsHandler(metricsSvc, readiness...)
	} else {
		metricsHandler = handler.NewMetricsHandler(nil, readiness...)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.GET("/students", studentHandler.List)
	api.POST("/students", studentHandler.Create)
	api.GET("/students/export", rosterHandler.Export)
	api.GET("/students/:id", studentHandler.Get)
	api.PUT("/students/:id", studentHandler.Update)
	api.DELETE("/students/:id", studentHandler.Delete)
	api.PUT("/students/:id/photo", studentHandler.UploadPhoto)
	api.DELETE("/students/:id/photo", studentHandler.DeletePhoto)
	api.GET("/students/:id/card.png", cardHandler.Card)
	api.POST("/cards/archive", middleware.GenerationGuard(), cardHandler.Archive)

	api.POST("/imports/preview", importHandler.Preview)
	api.POST("/imports", importHandler.Import)

	api.POST("/batches", batchHandler.Create)
	api.GET("/batches/:id", batchHandler.Status)
	api.GET("/batches/download/:token", batchHandler.Download)

	api.GET("/system/metrics", metricsHandler.System)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "batches", cfg.Batches.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server forced shutdown", "error", err)
	}
}

// setupBatches wires the asynchronous archive pipeline. When batches are
// disabled the returned handler answers every route with FEATURE_DISABLED.
func setupBatches(ctx context.Context, cfg *config.Config, logr *zap.Logger, students *repository.StudentStore, packager *archive.Packager, metricsSvc *service.MetricsService) (*handler.BatchHandler, []handler.ReadinessCheck, func()) {
	if !cfg.Batches.Enabled {
		return handler.NewBatchHandler(nil), nil, func() {}
	}

	store, err := storage.NewLocalStorage(cfg.Batches.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init batch storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Batches.SignedURLSecret, cfg.Batches.SignedURLTTL)
	batches := repository.NewBatchJobStore()
	batchCfg := service.BatchServiceConfig{
		DownloadPath:    strings.TrimRight(cfg.APIPrefix, "/") + "/batches/download/",
		ResultTTL:       cfg.Batches.ResultTTL,
		CleanupInterval: cfg.Batches.CleanupInterval,
		MaxRetries:      cfg.Batches.WorkerRetries,
	}

	worker := service.NewBatchWorker(batches, packager, store, signer, metricsSvc, logr, batchCfg)
	queue := jobs.NewQueue[string]("card-batches", worker.Handle, jobs.QueueConfig{
		Workers:    1,
		MaxRetries: cfg.Batches.WorkerRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	queue.OnGiveUp(func(job jobs.Job[string], err error) {
		logr.Sugar().Errorw("card batch abandoned", "batch_id", job.Payload, "attempts", job.Attempt, "error", err)
	})
	queue.Start(ctx)

	batchSvc := service.NewBatchService(batches, students, queue, store, signer, logr, batchCfg)
	batchSvc.StartCleanup(ctx)

	checks := []handler.ReadinessCheck{{Name: "storage", Check: func(context.Context) error {
		info, err := os.Stat(cfg.Batches.StorageDir)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", cfg.Batches.StorageDir)
		}
		return nil
	}}}
	return handler.NewBatchHandler(batchSvc), checks, queue.Stop
}
