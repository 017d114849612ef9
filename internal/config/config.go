package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// PreviewMode selects the surface annotated frames are presented on.
type PreviewMode string

const (
	PreviewWindow    PreviewMode = "window"
	PreviewWebsocket PreviewMode = "websocket"
)

// DetectionSource selects which pixels each detector scans.
type DetectionSource string

const (
	// SourcePristine scans the unannotated capture for every detector.
	SourcePristine DetectionSource = "pristine"
	// SourceAnnotated scans the annotated frame, including boxes drawn by
	// earlier detectors in the same frame.
	SourceAnnotated DetectionSource = "annotated"
)

// FailurePolicy decides what a failed artifact write does to the pipeline.
type FailurePolicy string

const (
	FailFatal    FailurePolicy = "fatal"
	FailContinue FailurePolicy = "continue"
)

// DirectoryPolicy decides whether an artifact write is attempted when the
// artifact directory could not be provisioned.
type DirectoryPolicy string

const (
	DirectoryFail       DirectoryPolicy = "fail"
	DirectoryBestEffort DirectoryPolicy = "best-effort"
)

type Config struct {
	Port              int
	Password          string
	CameraDevice      int
	WindowName        string
	PreviewMode       PreviewMode
	PreviewDelay      int // milliseconds handed to the preview event pump, at least 1
	DetectionSource   DetectionSource
	ArtifactFailure   FailurePolicy
	DirectoryPolicy   DirectoryPolicy
	HomeDirectory     string
	CacheDirectory    string // staged detector definitions
	ArtifactDirectory string // detection snapshots
	DatabasePath      string
	LogDirectory      string
}

// Load reads an optional .env file and the process environment. The cache and
// artifact directories always live under <home>/Desktop.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home directory: %w", err)
	}

	cfg := &Config{
		Port:            getEnvAsInt("PORT", 8080),
		Password:        getEnv("PASSWORD", ""),
		CameraDevice:    getEnvAsInt("CAMERA_DEVICE", 1),
		WindowName:      getEnv("WINDOW_NAME", "Webcam"),
		PreviewMode:     PreviewMode(getEnv("PREVIEW_MODE", string(PreviewWindow))),
		PreviewDelay:    getEnvAsInt("PREVIEW_DELAY_MS", 1),
		DetectionSource: DetectionSource(getEnv("DETECTION_SOURCE", string(SourcePristine))),
		ArtifactFailure: FailurePolicy(getEnv("ARTIFACT_FAILURE_POLICY", string(FailFatal))),
		DirectoryPolicy: DirectoryPolicy(getEnv("DIRECTORY_POLICY", string(DirectoryFail))),
		DatabasePath:    getEnv("DB_PATH", filepath.Join(".", "data", "detections.db")),
		LogDirectory:    getEnv("LOG_DIR", filepath.Join(".", "logs")),
	}
	cfg.SetHome(home)

	return cfg, nil
}

// SetHome derives the cache and artifact directories from home.
func (c *Config) SetHome(home string) {
	c.HomeDirectory = home
	c.CacheDirectory = filepath.Join(home, "Desktop", "camera")
	c.ArtifactDirectory = filepath.Join(home, "Desktop", "detections")
}

// Validate resets unknown enum values to their defaults and reports each one.
func (c *Config) Validate() []string {
	var problems []string

	switch c.PreviewMode {
	case PreviewWindow, PreviewWebsocket:
	default:
		problems = append(problems, fmt.Sprintf("unknown PREVIEW_MODE %q, using %q", c.PreviewMode, PreviewWindow))
		c.PreviewMode = PreviewWindow
	}

	switch c.DetectionSource {
	case SourcePristine, SourceAnnotated:
	default:
		problems = append(problems, fmt.Sprintf("unknown DETECTION_SOURCE %q, using %q", c.DetectionSource, SourcePristine))
		c.DetectionSource = SourcePristine
	}

	switch c.ArtifactFailure {
	case FailFatal, FailContinue:
	default:
		problems = append(problems, fmt.Sprintf("unknown ARTIFACT_FAILURE_POLICY %q, using %q", c.ArtifactFailure, FailFatal))
		c.ArtifactFailure = FailFatal
	}

	switch c.DirectoryPolicy {
	case DirectoryFail, DirectoryBestEffort:
	default:
		problems = append(problems, fmt.Sprintf("unknown DIRECTORY_POLICY %q, using %q", c.DirectoryPolicy, DirectoryFail))
		c.DirectoryPolicy = DirectoryFail
	}

	if c.PreviewDelay < 1 {
		problems = append(problems, fmt.Sprintf("PREVIEW_DELAY_MS %d below minimum, using 1", c.PreviewDelay))
		c.PreviewDelay = 1
	}

	if c.PreviewMode == PreviewWebsocket && c.Port <= 0 {
		problems = append(problems, "PREVIEW_MODE websocket needs PORT, using 8080")
		c.Port = 8080
	}

	return problems
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
