package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the tracker counters. A nil *Metrics discards every update.
type Metrics struct {
	// Frame counters
	FramesCaptured  atomic.Uint64
	FramesSkipped   atomic.Uint64
	FramesProcessed atomic.Uint64

	// Artifact failures (encode or write)
	ArtifactErrors atomic.Uint64

	// Last frame processing time in ms
	FrameLatencyMs atomic.Uint64

	// Active preview stream clients
	ViewClients atomic.Int64

	detections    *prometheus.CounterVec
	artifacts     *prometheus.CounterVec
	frameDuration prometheus.Histogram

	registry *prometheus.Registry
}

// New creates a new Metrics instance with its own Prometheus registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_detections_total",
			Help: "Detection rectangles found, per class",
		}, []string{"class"}),
		artifacts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_artifacts_total",
			Help: "Artifact images written, per class",
		}, []string{"class"}),
		frameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_frame_duration_seconds",
			Help:    "Time spent running all detectors on one frame",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
	}

	m.registerPrometheusMetrics()

	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	m.registry.MustRegister(m.detections, m.artifacts, m.frameDuration)

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "tracker_frames_captured_total",
			Help: "Total frames read from the camera",
		},
		func() float64 { return float64(m.FramesCaptured.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "tracker_frames_skipped_total",
			Help: "Total empty frames skipped",
		},
		func() float64 { return float64(m.FramesSkipped.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "tracker_frames_processed_total",
			Help: "Total frames run through every detector",
		},
		func() float64 { return float64(m.FramesProcessed.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "tracker_artifact_errors_total",
			Help: "Total artifacts that could not be encoded or written",
		},
		func() float64 { return float64(m.ArtifactErrors.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "tracker_frame_latency_ms",
			Help: "Processing time of the last frame in milliseconds",
		},
		func() float64 { return float64(m.FrameLatencyMs.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "tracker_view_clients",
			Help: "Connected preview stream clients",
		},
		func() float64 { return float64(m.ViewClients.Load()) },
	))
}

// FrameCaptured counts a frame read from the source.
func (m *Metrics) FrameCaptured() {
	if m == nil {
		return
	}
	m.FramesCaptured.Add(1)
}

// FrameSkipped counts an empty frame.
func (m *Metrics) FrameSkipped() {
	if m == nil {
		return
	}
	m.FramesSkipped.Add(1)
}

// FrameProcessed counts a fully processed frame and records its duration.
func (m *Metrics) FrameProcessed(d time.Duration) {
	if m == nil {
		return
	}
	m.FramesProcessed.Add(1)
	m.FrameLatencyMs.Store(uint64(d.Milliseconds()))
	m.frameDuration.Observe(d.Seconds())
}

// Detected adds n detections for class.
func (m *Metrics) Detected(class string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.detections.WithLabelValues(class).Add(float64(n))
}

// ArtifactWritten counts an artifact saved for class.
func (m *Metrics) ArtifactWritten(class string) {
	if m == nil {
		return
	}
	m.artifacts.WithLabelValues(class).Inc()
}

// ArtifactFailed counts an artifact that could not be saved.
func (m *Metrics) ArtifactFailed() {
	if m == nil {
		return
	}
	m.ArtifactErrors.Add(1)
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
