package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/shirts/opencv-tracking/internal/app"
	"github.com/shirts/opencv-tracking/internal/assets"
	"github.com/shirts/opencv-tracking/internal/config"
	"github.com/shirts/opencv-tracking/internal/logger"
	"github.com/shirts/opencv-tracking/internal/service/ai"
	"github.com/shirts/opencv-tracking/internal/service/ai/opencv"
)

// highgui windows only work from the main OS thread
func init() {
	runtime.LockOSThread()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLog := logger.NewLogger(cfg)
	defer appLog.Close()

	if names, err := assets.Names(); err == nil {
		appLog.Info("Bundled cascades: %v", names)
	}

	application, err := app.New(cfg, appLog, app.Devices{
		Engine:     opencv.CascadeEngine{},
		Definition: assets.Definition,
		OpenSource: func(device int) (ai.Source, error) {
			return opencv.OpenCamera(device)
		},
		OpenWindow: func(name string) (ai.Preview, error) {
			return opencv.NewWindow(name), nil
		},
	})
	if err != nil {
		log.Fatalf("Failed to start tracker: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := application.Run(ctx)
	if err := application.Close(); err != nil {
		appLog.Error("Error releasing resources: %v", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		appLog.Close()
		log.Fatalf("Tracker stopped: %v", runErr)
	}
}
