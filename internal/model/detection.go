package model

// Detection represents one bounding box reported in an artifact.
type Detection struct {
	ID         int64  `json:"id"`
	ArtifactID int64  `json:"artifact_id"`
	Class      string `json:"class"`
	X          int    `json:"x"`
	Y          int    `json:"y"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}
