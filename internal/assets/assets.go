// Package assets bundles the Haar cascade definitions into the binary.
package assets

//go:generate sh ../../scripts/fetch-cascades.sh haarcascades

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
)

//go:embed haarcascades
var cascades embed.FS

const dir = "haarcascades"

// systemDirs are the haarcascades directories of common OpenCV installs.
var systemDirs = []string{
	"/usr/local/share/opencv4/haarcascades",
	"/usr/share/opencv4/haarcascades",
	"/opt/homebrew/share/opencv4/haarcascades",
	"/usr/share/opencv/haarcascades",
}

// Definition returns the bundled definition named name. A definition that was
// not embedded at build time is read from OPENCV_HAARCASCADES or the OpenCV
// install instead.
func Definition(name string) ([]byte, error) {
	dirs := systemDirs
	if env := os.Getenv("OPENCV_HAARCASCADES"); env != "" {
		dirs = append([]string{env}, dirs...)
	}
	return lookup(cascades, dirs, name)
}

func lookup(bundle fs.FS, dirs []string, name string) ([]byte, error) {
	data, err := definitionFrom(bundle, name)
	if err == nil || !errors.Is(err, fs.ErrNotExist) {
		return data, err
	}
	for _, d := range dirs {
		if fromDir, dirErr := readDefinition(os.DirFS(d), name); dirErr == nil {
			return fromDir, nil
		}
	}
	return nil, err
}

// Names lists the bundled cascade files.
func Names() ([]string, error) {
	matches, err := fs.Glob(cascades, path.Join(dir, "*.xml"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, path.Base(m))
	}
	return names, nil
}

func definitionFrom(fsys fs.FS, name string) ([]byte, error) {
	if name == "" || path.Base(name) != name {
		return nil, fmt.Errorf("invalid definition name %q", name)
	}
	data, err := readDefinition(fsys, path.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("definition %s is not bundled (run go generate ./internal/assets): %w", name, err)
	}
	return data, nil
}

func readDefinition(fsys fs.FS, file string) ([]byte, error) {
	data, err := fs.ReadFile(fsys, file)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("definition %s is empty", path.Base(file))
	}
	return data, nil
}
