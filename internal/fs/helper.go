package fs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/substantialcattle5/redup/internal/constants"
	"github.com/substantialcattle5/redup/internal/manifest"
)

// EnsureDirectory ensures a directory exists, creating it if necessary
func EnsureDirectory(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, constants.StandardDirPerms)
	} else if err != nil {
		return err
	}
	return nil
}

func VerifyFileAndReturnFileInfo(filePath string) (os.FileInfo, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file does not exist: %s", filePath)
		}
		return nil, fmt.Errorf("error accessing file: %w", err)
	}

	// Verify it's a regular file, not a directory or device
	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", filePath)
	}
	return fileInfo, nil
}

// VerifyFileAndReturnFile opens a regular file for reading.
func VerifyFileAndReturnFile(filePath string) (*os.File, os.FileInfo, error) {
	fileInfo, err := VerifyFileAndReturnFileInfo(filePath)
	if err != nil {
		return nil, nil, err
	}
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsPermission(err) {
			return nil, nil, fmt.Errorf("permission denied: %s", filePath)
		}
		return nil, nil, fmt.Errorf("error opening file: %w", err)
	}
	return file, fileInfo, nil
}

// OutputExists reports whether something already occupies an output path.
// Directories are rejected outright.
func OutputExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("error accessing %s: %w", path, err)
	}
	if info.IsDir() {
		return true, fmt.Errorf("%s is a directory", path)
	}
	return true, nil
}

// SameFile reports whether a and b name the same existing file.
func SameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

// IndexPath returns explicit when set, otherwise the sidecar next to reduced.
func IndexPath(reduced, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return manifest.SidecarPath(reduced)
}

// OutputDir returns the absolute directory that will hold path.
func OutputDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Dir(abs), nil
}
