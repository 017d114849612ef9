package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shirts/opencv-tracking/internal/config"
	"github.com/shirts/opencv-tracking/internal/dto"
	"github.com/shirts/opencv-tracking/internal/logger"
	"github.com/shirts/opencv-tracking/internal/middleware"
	"github.com/shirts/opencv-tracking/internal/model"
	"github.com/shirts/opencv-tracking/internal/repository/sqlite"
)

// ========================================
// Test Setup Helpers
// ========================================

type testEnv struct {
	cfg        *config.Config
	logger     *logger.Logger
	artifacts  *sqlite.ArtifactRepository
	detections *sqlite.DetectionRepository
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log, err := logger.New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	t.Cleanup(func() { log.Close() })

	return &testEnv{
		cfg:        &config.Config{ArtifactDirectory: t.TempDir()},
		logger:     log,
		artifacts:  sqlite.NewArtifactRepository(db),
		detections: sqlite.NewDetectionRepository(db),
	}
}

// addArtifact writes an artifact file and indexes it with one box.
func (e *testEnv) addArtifact(t *testing.T, class string, ts time.Time) string {
	t.Helper()

	name := class + "_" + ts.Format("20060102_150405") + ".jpg"
	path := filepath.Join(e.cfg.ArtifactDirectory, name)
	if err := os.WriteFile(path, []byte{0xFF, 0xD8, 0xFF, 0xD9}, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	id, err := e.artifacts.Upsert(&model.Artifact{
		Filename:  name,
		Class:     class,
		Timestamp: ts,
		FilePath:  path,
		FileSize:  4,
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	e.detections.InsertBatch([]model.Detection{{ArtifactID: id, Class: class, X: 10, Y: 10, Width: 50, Height: 50}})
	return name
}

// ========================================
// Helper Function Tests
// ========================================

func TestAtoiDefault(t *testing.T) {
	tests := []struct {
		input    string
		def      int
		expected int
	}{
		{"10", 5, 10},
		{"1", 0, 1},
		{"", 5, 5},
		{"abc", 10, 10},
		{"-1", 5, 5},
		{"0", 5, 5},
		{"12.5", 5, 5},
	}

	for _, tt := range tests {
		if result := atoiDefault(tt.input, tt.def); result != tt.expected {
			t.Errorf("atoiDefault(%q, %d) = %d, expected %d", tt.input, tt.def, result, tt.expected)
		}
	}
}

func TestArtifactInfo_MarshalJSON(t *testing.T) {
	info := dto.ArtifactInfo{
		Name:      "face_20250615_143005.jpg",
		Class:     "face",
		Date:      time.Date(2025, 6, 15, 14, 30, 5, 0, time.UTC),
		TimeOfDay: time.Date(2025, 6, 15, 14, 30, 5, 0, time.UTC),
	}

	data, err := info.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}

	for _, want := range []string{`"date":"15-06-2025"`, `"timeOfDay":"14:30:05"`, `"class":"face"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("Expected %s in %s", want, data)
		}
	}
}

// ========================================
// Artifact Handler Tests
// ========================================

func TestGetArtifactsHandler_FilterAndPaging(t *testing.T) {
	env := setupTestEnv(t)
	base := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)
	env.addArtifact(t, "face", base)
	env.addArtifact(t, "face", base.Add(time.Second))
	env.addArtifact(t, "face", base.Add(2*time.Second))
	env.addArtifact(t, "cat", base)

	h := GetArtifactsHandler(env.cfg, env.logger, env.artifacts, env.detections)
	req := httptest.NewRequest(http.MethodGet, "/api/artifacts?class=face&limit=2&page=2", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var data struct {
		Artifacts []struct {
			Name  string    `json:"name"`
			Class string    `json:"class"`
			Boxes []dto.Box `json:"boxes"`
		} `json:"artifacts"`
		Counts      map[string]int `json:"counts"`
		Length      int            `json:"length"`
		TotalPages  int            `json:"totalPages"`
		CurrentPage int            `json:"currentPage"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&data); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if data.Length != 3 || data.TotalPages != 2 || data.CurrentPage != 2 {
		t.Errorf("Unexpected paging: length=%d pages=%d page=%d", data.Length, data.TotalPages, data.CurrentPage)
	}
	if len(data.Artifacts) != 1 {
		t.Fatalf("Expected 1 artifact on page 2, got %d", len(data.Artifacts))
	}
	if data.Artifacts[0].Name != "face_20250615_143000.jpg" {
		t.Errorf("Expected the oldest face last, got %s", data.Artifacts[0].Name)
	}
	if len(data.Artifacts[0].Boxes) != 1 || data.Artifacts[0].Boxes[0].Width != 50 {
		t.Errorf("Unexpected boxes: %+v", data.Artifacts[0].Boxes)
	}
	if data.Counts["face"] != 3 || data.Counts["cat"] != 1 {
		t.Errorf("Unexpected counts: %v", data.Counts)
	}
}

func TestGetArtifactsHandler_UnknownClass(t *testing.T) {
	env := setupTestEnv(t)

	h := GetArtifactsHandler(env.cfg, env.logger, env.artifacts, env.detections)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/artifacts?class=dog", nil))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestGetArtifactsHandler_LimitAndPageBounds(t *testing.T) {
	env := setupTestEnv(t)
	env.addArtifact(t, "face", time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC))
	h := GetArtifactsHandler(env.cfg, env.logger, env.artifacts, env.detections)

	tests := []struct {
		query    string
		code     int
		limit    int
		returned int
	}{
		{"?limit=9223372036854775807&page=3", http.StatusOK, 100, 0},
		{"?limit=9223372036854775807&page=1", http.StatusOK, 100, 1},
		{"?limit=1000&page=2", http.StatusOK, 100, 0},
		{"?page=9223372036854775807", http.StatusBadRequest, 0, 0},
	}

	for _, tt := range tests {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/artifacts"+tt.query, nil))

		if rr.Code != tt.code {
			t.Errorf("%s: expected status %d, got %d", tt.query, tt.code, rr.Code)
			continue
		}
		if tt.code != http.StatusOK {
			continue
		}

		var data struct {
			Artifacts []json.RawMessage `json:"artifacts"`
			Limit     int               `json:"pageSize"`
		}
		if err := json.NewDecoder(rr.Body).Decode(&data); err != nil {
			t.Fatalf("%s: failed to decode response: %v", tt.query, err)
		}
		if data.Limit != tt.limit || len(data.Artifacts) != tt.returned {
			t.Errorf("%s: limit=%d artifacts=%d, expected limit=%d artifacts=%d",
				tt.query, data.Limit, len(data.Artifacts), tt.limit, tt.returned)
		}
	}
}

func TestViewArtifactHandler(t *testing.T) {
	env := setupTestEnv(t)
	name := env.addArtifact(t, "body", time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC))
	h := ViewArtifactHandler(env.cfg)

	tests := []struct {
		query string
		code  int
	}{
		{"?name=" + name, http.StatusOK},
		{"", http.StatusBadRequest},
		{"?name=../secret.jpg", http.StatusBadRequest},
		{"?name=notes.txt", http.StatusBadRequest},
		{"?name=eye_20250615_143000.jpg", http.StatusNotFound},
	}

	for _, tt := range tests {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/artifacts/view"+tt.query, nil))
		if rr.Code != tt.code {
			t.Errorf("%q: expected status %d, got %d", tt.query, tt.code, rr.Code)
		}
	}
}

func TestDeleteArtifactHandler(t *testing.T) {
	env := setupTestEnv(t)
	name := env.addArtifact(t, "eye", time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC))
	h := DeleteArtifactHandler(env.cfg, env.logger, env.artifacts)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/artifacts/delete?name="+name, nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, rr.Code)
	}

	if _, err := os.Stat(filepath.Join(env.cfg.ArtifactDirectory, name)); !os.IsNotExist(err) {
		t.Error("File should be deleted from disk")
	}
	if a, _ := env.artifacts.GetByFilename(name); a != nil {
		t.Error("Artifact should be deleted from database")
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/artifacts/delete", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/artifacts/delete?name="+name, nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status %d, got %d", http.StatusMethodNotAllowed, rr.Code)
	}
}

// ========================================
// Log Handler Tests
// ========================================

func TestLogsHandlers(t *testing.T) {
	env := setupTestEnv(t)
	env.logger.Info("hello from the tracker")

	rr := httptest.NewRecorder()
	ShowLogsHandler(env.logger, "info.log").ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/logs/info", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "hello from the tracker") {
		t.Errorf("Expected log line in body, got %q", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	ShowLogsHandler(env.logger, "missing.log").ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/logs/missing", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, rr.Code)
	}

	rr = httptest.NewRecorder()
	ClearLogsHandler(env.logger, "warning.log").ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/logs/warning/clear", nil))
	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected status %d, got %d", http.StatusNoContent, rr.Code)
	}
}

// ========================================
// Login Handler Tests
// ========================================

func TestLoginHandler(t *testing.T) {
	env := setupTestEnv(t)
	auth := middleware.NewAuth("secret")
	h := LoginHandler(auth, env.logger)

	form := strings.NewReader("password=wrong")
	req := httptest.NewRequest(http.MethodPost, "/auth/login", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}

	form = strings.NewReader("password=secret")
	req = httptest.NewRequest(http.MethodPost, "/auth/login", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("Expected status %d, got %d", http.StatusNoContent, rr.Code)
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != middleware.CookieName || cookies[0].Value != auth.Token() {
		t.Errorf("Unexpected cookies: %v", cookies)
	}
}
