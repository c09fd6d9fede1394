// Package integrity compares whole streams by digest. It is the acceptance
// check after reconstruction and never drives chunk-level decisions.
package integrity

import (
	"fmt"
	"io"
	"os"

	"github.com/substantialcattle5/redup/internal/digest"
)

// WholeDigest fingerprints the entire content of r.
func WholeDigest(fn *digest.Func, r io.Reader) (digest.Digest, error) {
	d, _, err := fn.SumReader(r)
	if err != nil {
		return "", err
	}
	return d, nil
}

// Same reports whether a and b have identical whole-stream digests.
func Same(fn *digest.Func, a, b io.Reader) (bool, error) {
	da, err := WholeDigest(fn, a)
	if err != nil {
		return false, fmt.Errorf("failed to digest first stream: %w", err)
	}
	db, err := WholeDigest(fn, b)
	if err != nil {
		return false, fmt.Errorf("failed to digest second stream: %w", err)
	}
	return da == db, nil
}

// FileDigest fingerprints the file at path.
func FileDigest(fn *digest.Func, path string) (digest.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	d, err := WholeDigest(fn, f)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return d, nil
}

// SameFiles reports whether the files at a and b have identical content digests.
func SameFiles(fn *digest.Func, a, b string) (bool, error) {
	da, err := FileDigest(fn, a)
	if err != nil {
		return false, err
	}
	db, err := FileDigest(fn, b)
	if err != nil {
		return false, err
	}
	return da == db, nil
}
