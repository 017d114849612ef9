package ai

import (
	"image"
	"image/color"
)

// Frame is a captured image buffer. Implementations are not safe for
// concurrent use.
type Frame interface {
	Width() int
	Height() int
	// Clone returns an independent copy of the pixels.
	Clone() Frame
	// Grayscale returns a new single channel copy of the frame.
	Grayscale() (Frame, error)
	Rectangle(r image.Rectangle, c color.RGBA, thickness int) error
	EncodeJPEG() ([]byte, error)
	Close() error
}

// Empty reports whether f carries no pixels.
func Empty(f Frame) bool {
	return f == nil || f.Width() <= 0 || f.Height() <= 0
}

// Classifier runs one loaded cascade over grayscale frames.
type Classifier interface {
	DetectMultiScale(gray Frame, params ScanParams) ([]image.Rectangle, error)
	Close() error
}

// Engine loads classifiers from definition files on disk.
type Engine interface {
	Load(path string) (Classifier, error)
}

// Source produces frames from a capture device. Read may return an empty
// frame when the device has nothing ready.
type Source interface {
	Read() (Frame, error)
	Close() error
}

// Preview presents annotated frames.
type Preview interface {
	Show(f Frame) error
	// Pump lets the surface process events for delayMs and returns the key
	// pressed, or -1.
	Pump(delayMs int) int
	Close() error
}
