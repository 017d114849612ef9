package dto

import (
	"encoding/json"
	"time"
)

// Box is one detection rectangle in artifact pixel coordinates.
type Box struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ArtifactInfo describes a stored detection snapshot.
type ArtifactInfo struct {
	Name      string    `json:"name"`
	Class     string    `json:"class"`
	Date      time.Time `json:"date"`
	TimeOfDay time.Time `json:"timeOfDay"`
	Size      int64     `json:"size"`
	Boxes     []Box     `json:"boxes"`
}

// MarshalJSON formats the date as DD-MM-YYYY and the time of day as HH:MM:SS.
func (a ArtifactInfo) MarshalJSON() ([]byte, error) {
	type Alias ArtifactInfo
	return json.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      a.Date.Format("02-01-2006"),
		TimeOfDay: a.TimeOfDay.Format("15:04:05"),
		Alias:     (Alias)(a),
	})
}
