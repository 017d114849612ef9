package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/shirts/opencv-tracking/internal/model"
)

// ArtifactRepository implements repository.ArtifactRepository for SQLite.
type ArtifactRepository struct {
	db *DB
}

// NewArtifactRepository creates a new SQLite artifact repository.
func NewArtifactRepository(db *DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

// Upsert indexes an artifact. Artifacts written twice within the same second
// share a filename, so the later write replaces the row.
func (r *ArtifactRepository) Upsert(a *model.Artifact) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	var id int64
	err := r.db.Conn().QueryRow(`
		INSERT INTO artifacts (filename, class, timestamp, filepath, filesize)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			class = excluded.class,
			timestamp = excluded.timestamp,
			filepath = excluded.filepath,
			filesize = excluded.filesize
		RETURNING id
	`, a.Filename, a.Class, a.Timestamp, a.FilePath, a.FileSize).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert artifact: %w", err)
	}

	a.ID = id
	return id, nil
}

// GetByFilename retrieves an artifact by its filename.
func (r *ArtifactRepository) GetByFilename(filename string) (*model.Artifact, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var a model.Artifact
	err := r.db.Conn().QueryRow(`
		SELECT id, filename, class, timestamp, filepath, filesize
		FROM artifacts WHERE filename = ?
	`, filename).Scan(&a.ID, &a.Filename, &a.Class, &a.Timestamp, &a.FilePath, &a.FileSize)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}
	return &a, nil
}

// GetAll retrieves artifacts newest first.
func (r *ArtifactRepository) GetAll(filter *model.ArtifactFilter) ([]model.Artifact, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `
		SELECT id, filename, class, timestamp, filepath, filesize
		FROM artifacts
		WHERE 1=1
	`
	args := []interface{}{}

	if filter != nil && filter.Class != "" {
		query += " AND class = ?"
		args = append(args, filter.Class)
	}

	query += " ORDER BY timestamp DESC, id DESC"

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []model.Artifact
	for rows.Next() {
		var a model.Artifact
		if err := rows.Scan(&a.ID, &a.Filename, &a.Class, &a.Timestamp, &a.FilePath, &a.FileSize); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		artifacts = append(artifacts, a)
	}

	return artifacts, rows.Err()
}

// GetTotalCount returns the number of artifacts matching the filter, ignoring paging.
func (r *ArtifactRepository) GetTotalCount(filter *model.ArtifactFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `SELECT COUNT(*) FROM artifacts WHERE 1=1`
	args := []interface{}{}

	if filter != nil && filter.Class != "" {
		query += " AND class = ?"
		args = append(args, filter.Class)
	}

	var count int
	if err := r.db.Conn().QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count artifacts: %w", err)
	}
	return count, nil
}

// CountByClass returns the number of artifacts per detector class.
func (r *ArtifactRepository) CountByClass() (map[string]int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT class, COUNT(*) FROM artifacts GROUP BY class`)
	if err != nil {
		return nil, fmt.Errorf("failed to count artifacts per class: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var class string
		var count int
		if err := rows.Scan(&class, &count); err != nil {
			return nil, fmt.Errorf("failed to scan class count: %w", err)
		}
		counts[class] = count
	}
	return counts, rows.Err()
}

// DeleteByFilename removes an artifact and its detections.
func (r *ArtifactRepository) DeleteByFilename(filename string) error {
	r.db.Lock()
	defer r.db.Unlock()

	var artifactID int64
	err := r.db.Conn().QueryRow(`SELECT id FROM artifacts WHERE filename = ?`, filename).Scan(&artifactID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get artifact id: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM detections WHERE artifact_id = ?`, artifactID); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM artifacts WHERE id = ?`, artifactID); err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}
