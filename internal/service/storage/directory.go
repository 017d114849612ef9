package storage

import (
	"errors"
	"os"
)

var (
	// ErrIO wraps filesystem failures while staging or writing artifacts.
	ErrIO = errors.New("io failure")
	// ErrEncode wraps failures to encode a frame as an image.
	ErrEncode = errors.New("encode failure")
)

// EnsureDirectory makes sure path exists as a directory, creating missing
// parents. It reports whether the directory is usable; creation errors are
// not returned.
func EnsureDirectory(path string) bool {
	if directoryExists(path) {
		return true
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return false
	}
	return directoryExists(path)
}

func directoryExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// removeIfExists deletes path when present.
func removeIfExists(path string) error {
	if _, err := os.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return os.Remove(path)
}
