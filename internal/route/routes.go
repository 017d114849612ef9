package route

import (
	"net/http"

	"github.com/shirts/opencv-tracking/internal/config"
	"github.com/shirts/opencv-tracking/internal/handler"
	"github.com/shirts/opencv-tracking/internal/logger"
	"github.com/shirts/opencv-tracking/internal/metrics"
	"github.com/shirts/opencv-tracking/internal/middleware"
	"github.com/shirts/opencv-tracking/internal/repository"
	wshub "github.com/shirts/opencv-tracking/internal/service/websocket"
)

// SetupRoutes registers the preview stream, artifact API, log and metrics
// endpoints, and wraps the mux with the authentication middleware.
func SetupRoutes(cfg *config.Config, logger *logger.Logger, m *metrics.Metrics, hub *wshub.HubService,
	artifactRepo repository.ArtifactRepository, detectionRepo repository.DetectionRepository) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.NewAuth(cfg.Password)

	// API endpoints
	mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(hub, logger))
	mux.HandleFunc("/api/artifacts", handler.GetArtifactsHandler(cfg, logger, artifactRepo, detectionRepo))
	mux.HandleFunc("/api/artifacts/view", handler.ViewArtifactHandler(cfg))
	mux.HandleFunc("/api/artifacts/delete", handler.DeleteArtifactHandler(cfg, logger, artifactRepo))

	// Log endpoints
	for _, level := range []string{"info", "warning", "error"} {
		file := level + ".log"
		mux.HandleFunc("/logs/"+level, handler.ShowLogsHandler(logger, file))
		mux.HandleFunc("/logs/"+level+"/clear", handler.ClearLogsHandler(logger, file))
	}

	mux.Handle("/metrics", m.Handler())

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(auth, logger))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Apply middleware
	return auth.Middleware(mux)
}
