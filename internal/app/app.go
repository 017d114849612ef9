package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shirts/opencv-tracking/internal/config"
	"github.com/shirts/opencv-tracking/internal/logger"
	"github.com/shirts/opencv-tracking/internal/metrics"
	"github.com/shirts/opencv-tracking/internal/repository/sqlite"
	"github.com/shirts/opencv-tracking/internal/route"
	"github.com/shirts/opencv-tracking/internal/service"
	"github.com/shirts/opencv-tracking/internal/service/ai"
	"github.com/shirts/opencv-tracking/internal/service/storage"
	wshub "github.com/shirts/opencv-tracking/internal/service/websocket"
)

// Devices supplies the hardware and engine backed collaborators.
type Devices struct {
	Engine     ai.Engine
	Definition func(name string) ([]byte, error)
	OpenSource func(device int) (ai.Source, error)
	OpenWindow func(name string) (ai.Preview, error)
}

type App struct {
	config   *config.Config
	logger   *logger.Logger
	metrics  *metrics.Metrics
	hub      *wshub.HubService
	pipeline *service.Pipeline
	server   *http.Server
	closers  []io.Closer
}

// New provisions directories, stages and loads every detector, opens the
// index, the camera and the preview surface, in that order. Anything opened
// before a failure is closed again.
func New(cfg *config.Config, log *logger.Logger, devices Devices) (_ *App, err error) {
	for _, problem := range cfg.Validate() {
		log.Warning("Config: %s", problem)
	}

	a := &App{
		config:  cfg,
		logger:  log,
		metrics: metrics.New(),
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if !storage.EnsureDirectory(cfg.CacheDirectory) {
		return nil, fmt.Errorf("%w: cannot create cache directory %s", storage.ErrIO, cfg.CacheDirectory)
	}
	if !storage.EnsureDirectory(cfg.ArtifactDirectory) {
		if cfg.DirectoryPolicy != config.DirectoryBestEffort {
			return nil, fmt.Errorf("%w: cannot create artifact directory %s", storage.ErrIO, cfg.ArtifactDirectory)
		}
		log.Warning("Artifact directory %s is not available", cfg.ArtifactDirectory)
	}

	staged, err := storage.StageAll(cfg.CacheDirectory, ai.Classes, devices.Definition)
	if err != nil {
		return nil, err
	}

	registry, err := ai.BuildAll(devices.Engine, staged)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, registry)
	log.Info("🤖 Loaded %d detectors from %s", len(registry.Detectors()), cfg.CacheDirectory)

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db)
	artifactRepo := sqlite.NewArtifactRepository(db)
	detectionRepo := sqlite.NewDetectionRepository(db)

	source, err := devices.OpenSource(cfg.CameraDevice)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrCapture, err)
	}
	a.closers = append(a.closers, source)

	a.hub = wshub.NewHubService(log, a.metrics)

	var preview ai.Preview
	if cfg.PreviewMode == config.PreviewWebsocket {
		preview = wshub.NewPreview(a.hub)
	} else {
		if preview, err = devices.OpenWindow(cfg.WindowName); err != nil {
			return nil, fmt.Errorf("failed to open preview window: %w", err)
		}
	}
	a.closers = append(a.closers, preview)

	artifacts := storage.NewArtifactService(cfg, log, a.metrics, artifactRepo, detectionRepo)
	a.pipeline = service.NewPipeline(cfg, log, a.metrics, source, registry, preview, artifacts)

	if cfg.Port > 0 {
		a.server = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           route.SetupRoutes(cfg, log, a.metrics, a.hub, artifactRepo, detectionRepo),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	return a, nil
}

// Run starts the background services and runs the pipeline on the calling
// goroutine until ctx is cancelled or the pipeline fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.hub.Run(ctx)

	if a.server != nil {
		go func() {
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("HTTP server failed: %v", err)
			}
		}()
	}

	fmt.Printf("🚀 OpenCV Tracker\n")
	fmt.Printf("📷 Camera: %d\n", a.config.CameraDevice)
	fmt.Printf("🖥️  Preview: %s\n", a.config.PreviewMode)
	fmt.Printf("📁 Detections: %s\n", a.config.ArtifactDirectory)
	if a.server != nil {
		fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	}

	err := a.pipeline.Run(ctx)

	if a.server != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if serr := a.server.Shutdown(shutdownCtx); serr != nil {
			a.logger.Error("HTTP server shutdown: %v", serr)
		}
	}

	return err
}

// Metrics exposes the application metrics.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// Close releases everything New opened, newest first.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}
