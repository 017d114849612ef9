package storage

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shirts/opencv-tracking/internal/config"
	"github.com/shirts/opencv-tracking/internal/logger"
	"github.com/shirts/opencv-tracking/internal/metrics"
	"github.com/shirts/opencv-tracking/internal/repository/sqlite"
	"github.com/shirts/opencv-tracking/internal/service/ai"
	"github.com/shirts/opencv-tracking/internal/service/ai/aitest"
)

var fixedTime = time.Date(2025, 6, 15, 14, 30, 5, 250, time.Local)

func setupArtifactService(t *testing.T, dir string, policy config.DirectoryPolicy) (*ArtifactService, *logger.Logger) {
	t.Helper()

	log, err := logger.New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	t.Cleanup(func() { log.Close() })

	cfg := &config.Config{ArtifactDirectory: dir, DirectoryPolicy: policy}
	s := NewArtifactService(cfg, log, nil, nil, nil)
	s.SetClock(func() time.Time { return fixedTime })
	return s, log
}

func mustClass(t *testing.T, name string) ai.Class {
	t.Helper()
	c, ok := ai.ClassByName(name)
	if !ok {
		t.Fatalf("Unknown class %s", name)
	}
	return c
}

func TestArtifactName(t *testing.T) {
	got := ArtifactName("face", time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local))
	if got != "face_20240102_030405.jpg" {
		t.Errorf("Unexpected name %s", got)
	}
}

func TestParseArtifactName(t *testing.T) {
	class, ts, err := ParseArtifactName("cat_20240102_030405.jpg")
	if err != nil {
		t.Fatalf("ParseArtifactName failed: %v", err)
	}
	if class != "cat" {
		t.Errorf("Expected cat, got %s", class)
	}
	if !ts.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)) {
		t.Errorf("Unexpected timestamp %v", ts)
	}

	invalid := []string{
		"",
		"face.jpg",
		"face_20240102_030405.png",
		"dog_20240102_030405.jpg",
		"face_2024010_030405.jpg",
		"face-20240102_030405.jpg",
		"face_20241302_030405.jpg",
	}
	for _, name := range invalid {
		if _, _, err := ParseArtifactName(name); err == nil {
			t.Errorf("Expected %q to be rejected", name)
		}
	}
}

func TestOnDetected_WritesArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "detections")
	s, log := setupArtifactService(t, dir, config.DirectoryFail)

	frame := aitest.NewFrame(64, 48)
	if err := s.OnDetected(mustClass(t, "face"), frame, []image.Rectangle{image.Rect(10, 10, 60, 60)}); err != nil {
		t.Fatalf("OnDetected failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "face_20250615_143005.jpg"))
	if err != nil {
		t.Fatalf("Artifact not written: %v", err)
	}
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Errorf("Artifact is not a JPEG payload: %v", data)
	}

	logged, _ := os.ReadFile(filepath.Join(log.Dir(), "info.log"))
	if !strings.Contains(string(logged), "Face detected!") {
		t.Errorf("Expected detection log line, got %q", logged)
	}
}

func TestOnDetected_SameSecondDistinctClasses(t *testing.T) {
	dir := t.TempDir()
	s, _ := setupArtifactService(t, dir, config.DirectoryFail)
	box := []image.Rectangle{image.Rect(0, 0, 5, 5)}

	s.OnDetected(mustClass(t, "face"), aitest.NewFrame(10, 10), box)
	s.OnDetected(mustClass(t, "eye"), aitest.NewFrame(10, 10), box)

	entries, _ := os.ReadDir(dir)
	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name()] = true
	}
	if len(names) != 2 || !names["face_20250615_143005.jpg"] || !names["eye_20250615_143005.jpg"] {
		t.Errorf("Expected distinct face and eye artifacts, got %v", names)
	}
}

func TestOnDetected_SameSecondSameClassOverwrites(t *testing.T) {
	dir := t.TempDir()
	s, _ := setupArtifactService(t, dir, config.DirectoryFail)
	class := mustClass(t, "body")

	first := aitest.NewFrame(10, 10)
	s.OnDetected(class, first, nil)

	second := aitest.NewFrame(10, 10)
	second.Rectangle(image.Rect(1, 1, 2, 2), class.Color, 2)
	second.Rectangle(image.Rect(3, 3, 4, 4), class.Color, 2)
	s.OnDetected(class, second, nil)

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("Expected one artifact, got %d", len(entries))
	}
	data, _ := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if data[2] != 2 {
		t.Errorf("Expected the later frame to win, got payload %v", data)
	}
}

func TestOnDetected_EncodeFailure(t *testing.T) {
	dir := t.TempDir()
	s, _ := setupArtifactService(t, dir, config.DirectoryFail)

	frame := aitest.NewFrame(10, 10)
	frame.EncodeErr = errors.New("codec unavailable")

	err := s.OnDetected(mustClass(t, "cat"), frame, nil)
	if !errors.Is(err, ErrEncode) {
		t.Fatalf("Expected ErrEncode, got %v", err)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("Expected no artifact, got %d files", len(entries))
	}
}

func TestOnDetected_DirectoryPolicy(t *testing.T) {
	blocked := filepath.Join(t.TempDir(), "file")
	os.WriteFile(blocked, []byte("x"), 0644)
	dir := filepath.Join(blocked, "detections")

	t.Run("fail", func(t *testing.T) {
		s, log := setupArtifactService(t, dir, config.DirectoryFail)
		err := s.OnDetected(mustClass(t, "face"), aitest.NewFrame(10, 10), nil)
		if !errors.Is(err, ErrIO) {
			t.Fatalf("Expected ErrIO, got %v", err)
		}
		warnings, _ := os.ReadFile(filepath.Join(log.Dir(), "warning.log"))
		if len(warnings) != 0 {
			t.Errorf("Fail policy should not warn, got %q", warnings)
		}
	})

	t.Run("best-effort", func(t *testing.T) {
		s, log := setupArtifactService(t, dir, config.DirectoryBestEffort)
		err := s.OnDetected(mustClass(t, "face"), aitest.NewFrame(10, 10), nil)
		if !errors.Is(err, ErrIO) {
			t.Fatalf("Expected the write itself to fail with ErrIO, got %v", err)
		}
		warnings, _ := os.ReadFile(filepath.Join(log.Dir(), "warning.log"))
		if !strings.Contains(string(warnings), "writing anyway") {
			t.Errorf("Expected a warning, got %q", warnings)
		}
	})
}

func TestOnDetected_IndexesArtifact(t *testing.T) {
	db, err := sqlite.New(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	artifacts := sqlite.NewArtifactRepository(db)
	detections := sqlite.NewDetectionRepository(db)

	log, _ := logger.New(t.TempDir())
	defer log.Close()

	m := metrics.New()
	dir := t.TempDir()
	s := NewArtifactService(&config.Config{ArtifactDirectory: dir}, log, m, artifacts, detections)
	s.SetClock(func() time.Time { return fixedTime })

	class := mustClass(t, "face")
	s.OnDetected(class, aitest.NewFrame(10, 10), []image.Rectangle{image.Rect(1, 1, 3, 3), image.Rect(5, 5, 9, 9)})
	s.OnDetected(class, aitest.NewFrame(10, 10), []image.Rectangle{image.Rect(10, 10, 60, 60)})

	a, err := artifacts.GetByFilename("face_20250615_143005.jpg")
	if err != nil || a == nil {
		t.Fatalf("Expected indexed artifact, got %v, %v", a, err)
	}
	if a.Class != "face" || a.FilePath != filepath.Join(dir, a.Filename) {
		t.Errorf("Unexpected artifact row: %+v", a)
	}

	boxes, _ := detections.GetByArtifactID(a.ID)
	if len(boxes) != 1 {
		t.Fatalf("Expected only the latest frame's box, got %d", len(boxes))
	}
	if boxes[0].X != 10 || boxes[0].Y != 10 || boxes[0].Width != 50 || boxes[0].Height != 50 {
		t.Errorf("Unexpected box: %+v", boxes[0])
	}
}
