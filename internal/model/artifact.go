package model

import "time"

// Artifact represents a persisted detection snapshot.
type Artifact struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	Class     string    `json:"class"`
	Timestamp time.Time `json:"timestamp"`
	FilePath  string    `json:"filepath"`
	FileSize  int64     `json:"filesize"`
}

// ArtifactFilter contains filtering options for querying artifacts.
type ArtifactFilter struct {
	Class  string
	Limit  int
	Offset int
}
