package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/shirts/opencv-tracking/internal/config"
	"github.com/shirts/opencv-tracking/internal/logger"
	"github.com/shirts/opencv-tracking/internal/metrics"
	"github.com/shirts/opencv-tracking/internal/service/ai"
)

// ErrCapture is returned when the capture source fails.
var ErrCapture = errors.New("capture failed")

// Bridge receives every non-empty detection result of a frame.
type Bridge interface {
	OnDetected(class ai.Class, frame ai.Frame, boxes []image.Rectangle) error
}

// Pipeline reads frames, runs every detector on them, annotates the hits and
// shows the result. It is not safe for concurrent use; Run must be called
// from the goroutine that owns the preview.
type Pipeline struct {
	source    ai.Source
	detectors []*ai.Detector
	preview   ai.Preview
	bridge    Bridge
	logger    *logger.Logger
	metrics   *metrics.Metrics

	delayMs int
	scan    config.DetectionSource
	failure config.FailurePolicy
}

// NewPipeline wires a pipeline. m may be nil.
func NewPipeline(cfg *config.Config, logger *logger.Logger, m *metrics.Metrics, source ai.Source, registry *ai.Registry, preview ai.Preview, bridge Bridge) *Pipeline {
	delay := cfg.PreviewDelay
	if delay < 1 {
		delay = 1
	}
	return &Pipeline{
		source:    source,
		detectors: registry.Detectors(),
		preview:   preview,
		bridge:    bridge,
		logger:    logger,
		metrics:   m,
		delayMs:   delay,
		scan:      cfg.DetectionSource,
		failure:   cfg.ArtifactFailure,
	}
}

// Run processes frames until ctx is cancelled or a step fails. Cancellation
// is not an error.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("🎬 Pipeline started with %d detectors", len(p.detectors))

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("🛑 Pipeline stopped")
			return nil
		default:
		}

		if err := p.Step(); err != nil {
			p.logger.Error("Pipeline stopped: %v", err)
			return err
		}
	}
}

// Step processes a single frame. Empty frames are skipped without running
// detectors or touching the preview.
func (p *Pipeline) Step() error {
	frame, err := p.source.Read()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCapture, err)
	}
	if ai.Empty(frame) {
		if frame != nil {
			frame.Close()
		}
		p.metrics.FrameSkipped()
		return nil
	}
	defer frame.Close()

	p.metrics.FrameCaptured()
	start := time.Now()

	annotated := frame.Clone()
	defer annotated.Close()

	if err := p.detect(frame, annotated); err != nil {
		return err
	}

	p.metrics.FrameProcessed(time.Since(start))

	if err := p.preview.Show(annotated); err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	p.preview.Pump(p.delayMs)

	return nil
}

func (p *Pipeline) detect(frame, annotated ai.Frame) error {
	var pristine ai.Frame
	if p.scan != config.SourceAnnotated {
		gray, err := frame.Grayscale()
		if err != nil {
			return fmt.Errorf("%w: grayscale: %v", ai.ErrEngineRuntime, err)
		}
		defer gray.Close()
		pristine = gray
	}

	for _, d := range p.detectors {
		boxes, err := p.scanWith(d, pristine, annotated)
		if err != nil {
			return err
		}

		for _, box := range boxes {
			if err := annotated.Rectangle(box, d.Class.Color, ai.OutlineThickness); err != nil {
				return fmt.Errorf("%w: drawing %s: %v", ai.ErrEngineRuntime, d.Class.Name, err)
			}
		}

		if len(boxes) == 0 {
			continue
		}
		p.metrics.Detected(d.Class.Name, len(boxes))

		if err := p.bridge.OnDetected(d.Class, annotated, boxes); err != nil {
			p.metrics.ArtifactFailed()
			if p.failure != config.FailContinue {
				return err
			}
			p.logger.Error("Error saving %s artifact: %v", d.Class.Name, err)
		}
	}

	return nil
}

// scanWith runs d over the pristine grayscale when one is given, otherwise
// over a fresh grayscale of the annotated frame.
func (p *Pipeline) scanWith(d *ai.Detector, pristine, annotated ai.Frame) ([]image.Rectangle, error) {
	if pristine != nil {
		return d.Detect(pristine)
	}

	gray, err := annotated.Grayscale()
	if err != nil {
		return nil, fmt.Errorf("%w: grayscale: %v", ai.ErrEngineRuntime, err)
	}
	defer gray.Close()

	return d.Detect(gray)
}
