package repository

import (
	"github.com/shirts/opencv-tracking/internal/model"
)

// ArtifactRepository defines the interface for artifact index operations.
type ArtifactRepository interface {
	// Upsert inserts the artifact or, when its filename is already indexed,
	// updates the existing row. It returns the row ID.
	Upsert(a *model.Artifact) (int64, error)

	GetByFilename(filename string) (*model.Artifact, error)
	GetAll(filter *model.ArtifactFilter) ([]model.Artifact, error)
	GetTotalCount(filter *model.ArtifactFilter) (int, error)
	CountByClass() (map[string]int, error)

	DeleteByFilename(filename string) error
}

// DetectionRepository defines the interface for detection box operations.
type DetectionRepository interface {
	InsertBatch(detections []model.Detection) error
	GetByArtifactID(artifactID int64) ([]model.Detection, error)
	DeleteByArtifactID(artifactID int64) error
}
