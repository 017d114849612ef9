package ai

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

var (
	// ErrEngineInit is returned when a detector definition cannot be loaded.
	ErrEngineInit = errors.New("detector init failed")
	// ErrEngineRuntime is returned when a detection pass fails on a frame.
	ErrEngineRuntime = errors.New("detection failed")
)

// ScanParams holds the multi-scale search settings of one detector class.
// A zero MinSize or MaxSize leaves that bound to the engine.
type ScanParams struct {
	Scale        float64
	MinNeighbors int
	Flags        int
	MinSize      image.Point
	MaxSize      image.Point
}

// Class describes one detector class: its artifact prefix, the bundled
// definition it loads, its scan parameters and its outline color.
type Class struct {
	Name       string
	Label      string
	Definition string
	Params     ScanParams
	Color      color.RGBA
}

// OutlineThickness is the width of every detection rectangle.
const OutlineThickness = 2

// Classes lists the detector classes in the order they run on every frame.
var Classes = []Class{
	{
		Name:       "face",
		Label:      "Face",
		Definition: "haarcascade_frontalface_alt.xml",
		Params:     ScanParams{Scale: 1.1, MinNeighbors: 5, Flags: 1},
		Color:      color.RGBA{R: 0, G: 255, B: 0, A: 0},
	},
	{
		// eyes need far more votes to stay clear of skin texture
		Name:       "eye",
		Label:      "Eye",
		Definition: "haarcascade_eye.xml",
		Params:     ScanParams{Scale: 1.1, MinNeighbors: 70, Flags: 1, MinSize: image.Pt(5, 5)},
		Color:      color.RGBA{R: 0, G: 0, B: 255, A: 0},
	},
	{
		Name:       "body",
		Label:      "Body",
		Definition: "haarcascade_fullbody.xml",
		Params:     ScanParams{Scale: 1.1, MinNeighbors: 5, Flags: 1, MinSize: image.Pt(50, 100)},
		Color:      color.RGBA{R: 255, G: 0, B: 0, A: 0},
	},
	{
		Name:       "cat",
		Label:      "Cat",
		Definition: "haarcascade_frontalcatface_extended.xml",
		Params:     ScanParams{Scale: 1.1, MinNeighbors: 5, Flags: 1},
		Color:      color.RGBA{R: 0, G: 0, B: 255, A: 0},
	},
}

// ClassByName returns the class with the given artifact prefix.
func ClassByName(name string) (Class, bool) {
	for _, c := range Classes {
		if c.Name == name {
			return c, true
		}
	}
	return Class{}, false
}

// Detector binds a class to its loaded classifier.
type Detector struct {
	Class      Class
	Path       string
	classifier Classifier
}

// Detect runs the class scan over a grayscale frame.
func (d *Detector) Detect(gray Frame) ([]image.Rectangle, error) {
	rects, err := d.classifier.DetectMultiScale(gray, d.Class.Params)
	if err != nil {
		if errors.Is(err, ErrEngineRuntime) {
			return nil, fmt.Errorf("%s: %w", d.Class.Name, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrEngineRuntime, d.Class.Name, err)
	}
	return rects, nil
}

// Registry holds one detector per class for the lifetime of the process.
type Registry struct {
	detectors []*Detector
}

// BuildAll loads a detector for every class from its staged definition path.
// Nothing is kept when any class fails.
func BuildAll(engine Engine, staged map[string]string) (*Registry, error) {
	registry := &Registry{detectors: make([]*Detector, 0, len(Classes))}

	for _, class := range Classes {
		path, ok := staged[class.Name]
		if !ok || path == "" {
			registry.Close()
			return nil, fmt.Errorf("%w: no staged definition for %s", ErrEngineInit, class.Name)
		}

		classifier, err := engine.Load(path)
		if err != nil {
			registry.Close()
			if errors.Is(err, ErrEngineInit) {
				return nil, fmt.Errorf("%s: %w", class.Name, err)
			}
			return nil, fmt.Errorf("%w: %s: %v", ErrEngineInit, class.Name, err)
		}

		registry.detectors = append(registry.detectors, &Detector{
			Class:      class,
			Path:       path,
			classifier: classifier,
		})
	}

	return registry, nil
}

// Detectors returns the detectors in run order.
func (r *Registry) Detectors() []*Detector {
	return r.detectors
}

// Close releases every loaded classifier.
func (r *Registry) Close() error {
	var firstErr error
	for _, d := range r.detectors {
		if err := d.classifier.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.detectors = nil
	return firstErr
}
