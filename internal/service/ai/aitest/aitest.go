// Package aitest provides in-memory frames, engines, sources and previews
// for testing code built on package ai without a camera or OpenCV.
package aitest

import (
	"errors"
	"image"
	"image/color"
	"sync"

	"github.com/shirts/opencv-tracking/internal/service/ai"
)

// ErrExhausted is returned by Source once every queued frame was read.
var ErrExhausted = errors.New("aitest: no more frames")

// Drawn is a rectangle drawn on a Frame.
type Drawn struct {
	Rect      image.Rectangle
	Color     color.RGBA
	Thickness int
}

// Frame records drawing instead of touching pixels.
type Frame struct {
	W, H      int
	Gray      bool
	Drawn     []Drawn
	EncodeErr error
	GrayErr   error
	Closed    bool
}

// NewFrame returns a color frame of the given size.
func NewFrame(w, h int) *Frame {
	return &Frame{W: w, H: h}
}

func (f *Frame) Width() int  { return f.W }
func (f *Frame) Height() int { return f.H }

func (f *Frame) Clone() ai.Frame {
	c := *f
	c.Drawn = append([]Drawn(nil), f.Drawn...)
	c.Closed = false
	return &c
}

func (f *Frame) Grayscale() (ai.Frame, error) {
	if f.GrayErr != nil {
		return nil, f.GrayErr
	}
	g := f.Clone().(*Frame)
	g.Gray = true
	return g, nil
}

func (f *Frame) Rectangle(r image.Rectangle, c color.RGBA, thickness int) error {
	f.Drawn = append(f.Drawn, Drawn{Rect: r, Color: c, Thickness: thickness})
	return nil
}

// EncodeJPEG returns a fake payload with a JPEG start-of-image marker.
func (f *Frame) EncodeJPEG() ([]byte, error) {
	if f.EncodeErr != nil {
		return nil, f.EncodeErr
	}
	return []byte{0xFF, 0xD8, byte(len(f.Drawn)), 0xFF, 0xD9}, nil
}

func (f *Frame) Close() error {
	f.Closed = true
	return nil
}

// CountColor returns how many drawn rectangles use c.
func (f *Frame) CountColor(c color.RGBA) int {
	n := 0
	for _, d := range f.Drawn {
		if d.Color == c {
			n++
		}
	}
	return n
}

// Classifier returns scripted results, one entry per call. Calls past the
// script return no detections.
type Classifier struct {
	Script [][]image.Rectangle
	Err    error
	Calls  int
	Seen   []*Frame
	Params []ai.ScanParams
	Closed bool
}

func (c *Classifier) DetectMultiScale(gray ai.Frame, params ai.ScanParams) ([]image.Rectangle, error) {
	c.Calls++
	if f, ok := gray.(*Frame); ok {
		c.Seen = append(c.Seen, f)
	}
	c.Params = append(c.Params, params)
	if c.Err != nil {
		return nil, c.Err
	}
	if c.Calls <= len(c.Script) {
		return c.Script[c.Calls-1], nil
	}
	return nil, nil
}

func (c *Classifier) Close() error {
	c.Closed = true
	return nil
}

// Engine hands out classifiers by definition path.
type Engine struct {
	Classifiers map[string]*Classifier
	Fail        map[string]error
	Loaded      []string
}

// NewEngine returns an engine that creates empty classifiers on demand.
func NewEngine() *Engine {
	return &Engine{
		Classifiers: make(map[string]*Classifier),
		Fail:        make(map[string]error),
	}
}

func (e *Engine) Load(path string) (ai.Classifier, error) {
	if err, ok := e.Fail[path]; ok {
		return nil, err
	}
	e.Loaded = append(e.Loaded, path)
	c, ok := e.Classifiers[path]
	if !ok {
		c = &Classifier{}
		e.Classifiers[path] = c
	}
	return c, nil
}

// Source replays queued frames; nil entries model a device with no frame ready.
type Source struct {
	Frames []ai.Frame
	Err    error
	Reads  int
	Closed bool
}

func (s *Source) Read() (ai.Frame, error) {
	if s.Reads >= len(s.Frames) {
		if s.Err != nil {
			return nil, s.Err
		}
		return nil, ErrExhausted
	}
	f := s.Frames[s.Reads]
	s.Reads++
	if f == nil {
		return NewFrame(0, 0), nil
	}
	return f, nil
}

func (s *Source) Close() error {
	s.Closed = true
	return nil
}

// Preview keeps a copy of every shown frame.
type Preview struct {
	mu     sync.Mutex
	Shown  []*Frame
	Pumps  []int
	Closed bool
}

func (p *Preview) Show(f ai.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ff, ok := f.(*Frame); ok {
		p.Shown = append(p.Shown, ff.Clone().(*Frame))
	}
	return nil
}

func (p *Preview) Pump(delayMs int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Pumps = append(p.Pumps, delayMs)
	return -1
}

func (p *Preview) Close() error {
	p.Closed = true
	return nil
}
