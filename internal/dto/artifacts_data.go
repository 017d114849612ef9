// ArtifactsData is a paginated response payload for the artifact list.
package dto

type ArtifactsData struct {
	Artifacts   []ArtifactInfo `json:"artifacts"`
	Directory   string         `json:"directory"`
	Counts      map[string]int `json:"counts"`
	Length      int            `json:"length"`
	TotalPages  int            `json:"totalPages"`
	CurrentPage int            `json:"currentPage"`
	Limit       int            `json:"pageSize"`
}
