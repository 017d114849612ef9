package handler

import (
	"encoding/json"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/shirts/opencv-tracking/internal/config"
	"github.com/shirts/opencv-tracking/internal/dto"
	"github.com/shirts/opencv-tracking/internal/logger"
	"github.com/shirts/opencv-tracking/internal/model"
	"github.com/shirts/opencv-tracking/internal/repository"
	"github.com/shirts/opencv-tracking/internal/service/ai"
	"github.com/shirts/opencv-tracking/internal/service/storage"
)

const maxArtifactsLimit = 100

// GetArtifactsHandler returns a filtered, paginated list of indexed artifacts.
func GetArtifactsHandler(cfg *config.Config, logger *logger.Logger,
	artifactRepo repository.ArtifactRepository, detectionRepo repository.DetectionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)
		if limit > maxArtifactsLimit {
			limit = maxArtifactsLimit
		}
		if page-1 > math.MaxInt/limit {
			http.Error(w, "Page out of range", http.StatusBadRequest)
			return
		}

		class := q.Get("class")
		if class != "" {
			if _, ok := ai.ClassByName(class); !ok {
				http.Error(w, "Unknown class", http.StatusBadRequest)
				return
			}
		}

		filter := &model.ArtifactFilter{
			Class:  class,
			Limit:  limit,
			Offset: (page - 1) * limit,
		}

		artifacts, err := artifactRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying artifacts from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalCount, err := artifactRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting artifacts: %v", err)
			totalCount = len(artifacts)
		}

		counts, err := artifactRepo.CountByClass()
		if err != nil {
			logger.Error("Error counting artifacts per class: %v", err)
			counts = map[string]int{}
		}

		infos := make([]dto.ArtifactInfo, 0, len(artifacts))
		for _, a := range artifacts {
			boxes := []dto.Box{}
			if detectionRepo != nil {
				detections, err := detectionRepo.GetByArtifactID(a.ID)
				if err != nil {
					logger.Error("Error getting detections for artifact %d: %v", a.ID, err)
				}
				for _, d := range detections {
					boxes = append(boxes, dto.Box{X: d.X, Y: d.Y, Width: d.Width, Height: d.Height})
				}
			}

			infos = append(infos, dto.ArtifactInfo{
				Name:      a.Filename,
				Class:     a.Class,
				Date:      a.Timestamp,
				TimeOfDay: a.Timestamp,
				Size:      a.FileSize,
				Boxes:     boxes,
			})
		}

		data := dto.ArtifactsData{
			Artifacts:   infos,
			Directory:   cfg.ArtifactDirectory,
			Counts:      counts,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

// ViewArtifactHandler serves a single artifact named by the "name" query parameter.
func ViewArtifactHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		if name == "" {
			http.Error(w, "Name parameter is required", http.StatusBadRequest)
			return
		}
		if _, _, err := storage.ParseArtifactName(name); err != nil || filepath.Base(name) != name {
			http.Error(w, "Invalid artifact name", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "image/jpeg")
		http.ServeFile(w, r, filepath.Join(cfg.ArtifactDirectory, name))
	}
}

// DeleteArtifactHandler removes an artifact from disk and from the index.
func DeleteArtifactHandler(cfg *config.Config, logger *logger.Logger,
	artifactRepo repository.ArtifactRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodDelete {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		name := r.URL.Query().Get("name")
		if _, _, err := storage.ParseArtifactName(name); err != nil || filepath.Base(name) != name {
			http.Error(w, "Invalid artifact name", http.StatusBadRequest)
			return
		}

		filePath := filepath.Join(cfg.ArtifactDirectory, name)
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			logger.Error("Failed to delete file %s: %v", filePath, err)
			http.Error(w, "Failed to delete artifact", http.StatusInternalServerError)
			return
		}

		if err := artifactRepo.DeleteByFilename(name); err != nil {
			logger.Error("Failed to delete from database: %v", err)
		}

		logger.Info("Deleted artifact: %s", name)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "deleted", "name": name})
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}
