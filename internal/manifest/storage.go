package manifest

import (
	"bufio"
	"fmt"
	"os"

	"github.com/substantialcattle5/redup/internal/constants"
)

// SidecarPath returns the default index file location for a reduced file.
func SidecarPath(reducedPath string) string {
	return reducedPath + constants.IndexFileExtension
}

// WriteTo encodes m into an already open file and syncs it.
func WriteTo(file *os.File, m *Manifest, compressionType string) error {
	w := bufio.NewWriter(file)
	if err := Encode(w, m, compressionType); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush index file: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync index file: %w", err)
	}
	return nil
}

// ReadFile loads the manifest stored at path.
func ReadFile(path string) (*Manifest, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open index file: %w", err)
	}
	defer file.Close()

	return Decode(bufio.NewReader(file))
}
