package opencv

import (
	"fmt"
	"image"
	"os"

	"github.com/shirts/opencv-tracking/internal/service/ai"
	"gocv.io/x/gocv"
)

// CascadeEngine loads Haar cascade classifiers.
type CascadeEngine struct{}

// Load reads the cascade definition at path.
func (CascadeEngine) Load(path string) (ai.Classifier, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: cascade file not found: %s", ai.ErrEngineInit, path)
	}

	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("%w: error reading cascade file: %s", ai.ErrEngineInit, path)
	}

	return &Cascade{classifier: classifier}, nil
}

// Cascade is a loaded gocv.CascadeClassifier.
type Cascade struct {
	classifier gocv.CascadeClassifier
}

// DetectMultiScale scans gray, which must be a non-empty MatFrame.
func (c *Cascade) DetectMultiScale(gray ai.Frame, params ai.ScanParams) ([]image.Rectangle, error) {
	frame, ok := gray.(*MatFrame)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported frame type %T", ai.ErrEngineRuntime, gray)
	}
	if frame.mat.Empty() {
		return nil, fmt.Errorf("%w: empty frame", ai.ErrEngineRuntime)
	}

	return c.classifier.DetectMultiScaleWithParams(
		frame.mat,
		params.Scale,
		params.MinNeighbors,
		params.Flags,
		params.MinSize,
		params.MaxSize,
	), nil
}

func (c *Cascade) Close() error {
	return c.classifier.Close()
}
