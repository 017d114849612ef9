package storage

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirts/opencv-tracking/internal/config"
	"github.com/shirts/opencv-tracking/internal/logger"
	"github.com/shirts/opencv-tracking/internal/metrics"
	"github.com/shirts/opencv-tracking/internal/model"
	"github.com/shirts/opencv-tracking/internal/repository"
	"github.com/shirts/opencv-tracking/internal/service/ai"
)

// ArtifactTimeLayout is the timestamp part of artifact filenames.
const ArtifactTimeLayout = "20060102_150405"

// ArtifactName returns the filename of an artifact for class taken at t.
func ArtifactName(class string, t time.Time) string {
	return fmt.Sprintf("%s_%s.jpg", class, t.Format(ArtifactTimeLayout))
}

// ParseArtifactName splits an artifact filename into its class and local
// timestamp.
func ParseArtifactName(name string) (string, time.Time, error) {
	base := strings.TrimSuffix(name, ".jpg")
	if base == name {
		return "", time.Time{}, fmt.Errorf("not an artifact: %s", name)
	}

	// the layout itself contains one underscore
	if len(base) <= len(ArtifactTimeLayout)+1 || base[len(base)-len(ArtifactTimeLayout)-1] != '_' {
		return "", time.Time{}, fmt.Errorf("not an artifact: %s", name)
	}
	class := base[:len(base)-len(ArtifactTimeLayout)-1]
	stamp := base[len(base)-len(ArtifactTimeLayout):]

	if _, ok := ai.ClassByName(class); !ok {
		return "", time.Time{}, fmt.Errorf("unknown class %q in %s", class, name)
	}

	ts, err := time.ParseInLocation(ArtifactTimeLayout, stamp, time.Local)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("bad timestamp in %s: %w", name, err)
	}
	return class, ts, nil
}

// ArtifactService writes a JPEG snapshot whenever a detector fires and
// indexes it when repositories are configured.
type ArtifactService struct {
	artifactsDir  string
	policy        config.DirectoryPolicy
	logger        *logger.Logger
	metrics       *metrics.Metrics
	artifactRepo  repository.ArtifactRepository
	detectionRepo repository.DetectionRepository
	now           func() time.Time
}

// NewArtifactService creates an ArtifactService writing into the configured
// artifact directory. Repositories and metrics may be nil.
func NewArtifactService(cfg *config.Config, logger *logger.Logger, m *metrics.Metrics, artifactRepo repository.ArtifactRepository, detectionRepo repository.DetectionRepository) *ArtifactService {
	return &ArtifactService{
		artifactsDir:  cfg.ArtifactDirectory,
		policy:        cfg.DirectoryPolicy,
		logger:        logger,
		metrics:       m,
		artifactRepo:  artifactRepo,
		detectionRepo: detectionRepo,
		now:           time.Now,
	}
}

// SetClock replaces the time source used for artifact names.
func (s *ArtifactService) SetClock(now func() time.Time) {
	s.now = now
}

// Directory returns the artifact directory.
func (s *ArtifactService) Directory() string {
	return s.artifactsDir
}

// OnDetected saves frame as <class>_<timestamp>.jpg. A second detection of
// the same class within one second overwrites the earlier file.
func (s *ArtifactService) OnDetected(class ai.Class, frame ai.Frame, boxes []image.Rectangle) error {
	s.logger.Info("%s detected!", class.Label)

	if !EnsureDirectory(s.artifactsDir) {
		if s.policy != config.DirectoryBestEffort {
			return fmt.Errorf("%w: artifact directory %s is not available", ErrIO, s.artifactsDir)
		}
		s.logger.Warning("Artifact directory %s is not available, writing anyway", s.artifactsDir)
	}

	ts := s.now()
	filename := ArtifactName(class.Name, ts)
	fullpath := filepath.Join(s.artifactsDir, filename)

	data, err := frame.EncodeJPEG()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncode, filename, err)
	}

	if err := os.WriteFile(fullpath, data, 0644); err != nil {
		return fmt.Errorf("%w: failed to write %s: %v", ErrIO, fullpath, err)
	}

	s.metrics.ArtifactWritten(class.Name)
	s.index(class, filename, fullpath, ts, int64(len(data)), boxes)

	return nil
}

func (s *ArtifactService) index(class ai.Class, filename, fullpath string, ts time.Time, size int64, boxes []image.Rectangle) {
	if s.artifactRepo == nil {
		return
	}

	artifactID, err := s.artifactRepo.Upsert(&model.Artifact{
		Filename:  filename,
		Class:     class.Name,
		Timestamp: ts.Truncate(time.Second),
		FilePath:  fullpath,
		FileSize:  size,
	})
	if err != nil {
		s.logger.Error("Error saving artifact to database %s: %v", filename, err)
		return
	}

	if s.detectionRepo == nil {
		return
	}

	// an overwritten artifact only keeps the boxes of its latest frame
	if err := s.detectionRepo.DeleteByArtifactID(artifactID); err != nil {
		s.logger.Error("Error clearing detections for %s: %v", filename, err)
		return
	}

	dbDetections := make([]model.Detection, 0, len(boxes))
	for _, box := range boxes {
		dbDetections = append(dbDetections, model.Detection{
			ArtifactID: artifactID,
			Class:      class.Name,
			X:          box.Min.X,
			Y:          box.Min.Y,
			Width:      box.Dx(),
			Height:     box.Dy(),
		})
	}
	if err := s.detectionRepo.InsertBatch(dbDetections); err != nil {
		s.logger.Error("Error saving detections to database: %v", err)
	}
}
