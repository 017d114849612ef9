package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shirts/opencv-tracking/internal/model"
	"github.com/shirts/opencv-tracking/internal/repository"
)

// ReindexResult summarizes a Reindex run.
type ReindexResult struct {
	Indexed int
	Pruned  int
	Skipped []string
}

// Reindex upserts every artifact file found in dir. With prune set, rows
// whose file is gone are removed from the index.
func Reindex(dir string, repo repository.ArtifactRepository, prune bool) (*ReindexResult, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrIO, dir, err)
	}

	result := &ReindexResult{}
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".jpg" {
			continue
		}

		class, ts, err := ParseArtifactName(file.Name())
		if err != nil {
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s: %v", file.Name(), err))
			continue
		}

		info, err := file.Info()
		if err != nil {
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s: %v", file.Name(), err))
			continue
		}

		if _, err := repo.Upsert(&model.Artifact{
			Filename:  file.Name(),
			Class:     class,
			Timestamp: ts,
			FilePath:  filepath.Join(dir, file.Name()),
			FileSize:  info.Size(),
		}); err != nil {
			return result, err
		}
		result.Indexed++
	}

	if !prune {
		return result, nil
	}

	indexed, err := repo.GetAll(nil)
	if err != nil {
		return result, err
	}
	for _, a := range indexed {
		if _, err := os.Stat(filepath.Join(dir, a.Filename)); !os.IsNotExist(err) {
			continue
		}
		if err := repo.DeleteByFilename(a.Filename); err != nil {
			return result, err
		}
		result.Pruned++
	}

	return result, nil
}
