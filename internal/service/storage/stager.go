package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shirts/opencv-tracking/internal/service/ai"
)

// Stage writes data to a read-only temp file under the process temp directory
// and copies it to <cacheDir>/<name>, replacing any earlier copy. It returns
// the cache path.
func Stage(cacheDir, name string, data []byte) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("%w: invalid definition name %q", ErrIO, name)
	}

	tempPath, err := writeTemp(name, data)
	if err != nil {
		return "", err
	}
	defer os.Remove(tempPath)

	if !EnsureDirectory(cacheDir) {
		return "", fmt.Errorf("%w: cannot create cache directory %s", ErrIO, cacheDir)
	}

	destination := filepath.Join(cacheDir, name)
	if err := removeIfExists(destination); err != nil {
		return "", fmt.Errorf("%w: failed to remove stale %s: %v", ErrIO, destination, err)
	}
	if err := copyFile(tempPath, destination); err != nil {
		return "", err
	}

	return destination, nil
}

// StageAll stages the definition of every class, in class order. The result
// maps class names to cache paths.
func StageAll(cacheDir string, classes []ai.Class, load func(name string) ([]byte, error)) (map[string]string, error) {
	staged := make(map[string]string, len(classes))
	for _, class := range classes {
		data, err := load(class.Definition)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrIO, class.Name, err)
		}
		path, err := Stage(cacheDir, class.Definition, data)
		if err != nil {
			return nil, fmt.Errorf("staging %s: %w", class.Name, err)
		}
		staged[class.Name] = path
	}
	return staged, nil
}

func writeTemp(name string, data []byte) (string, error) {
	temp, err := os.CreateTemp("", name+".*")
	if err != nil {
		return "", fmt.Errorf("%w: failed to create temp file: %v", ErrIO, err)
	}
	path := temp.Name()

	fail := func(step string, err error) (string, error) {
		temp.Close()
		os.Remove(path)
		return "", fmt.Errorf("%w: failed to %s %s: %v", ErrIO, step, path, err)
	}

	if _, err := temp.Write(data); err != nil {
		return fail("write", err)
	}
	if err := temp.Sync(); err != nil {
		return fail("flush", err)
	}
	if err := temp.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("%w: failed to close %s: %v", ErrIO, path, err)
	}
	if err := os.Chmod(path, 0444); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("%w: failed to mark %s read-only: %v", ErrIO, path, err)
	}

	return path, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: failed to open %s: %v", ErrIO, src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0444)
	if err != nil {
		return fmt.Errorf("%w: failed to create %s: %v", ErrIO, dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("%w: failed to copy to %s: %v", ErrIO, dst, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return fmt.Errorf("%w: failed to flush %s: %v", ErrIO, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: failed to close %s: %v", ErrIO, dst, err)
	}
	return nil
}
