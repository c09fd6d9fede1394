// Package testutil provides common testing utilities for redup
package testutil

import (
	"bytes"
	"crypto/rand"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TempDir creates a temporary directory that is removed when the test ends
func TempDir(t *testing.T, prefix string) string {
	t.Helper()
	dir, err := os.MkdirTemp("", prefix)
	require.NoError(t, err, "create temp dir")

	t.Cleanup(func() {
		if err := os.RemoveAll(dir); err != nil {
			t.Errorf("Failed to clean up temp dir %s: %v", dir, err)
		}
	})
	return dir
}

// WriteFile writes data to dir/filename, creating parent directories.
func WriteFile(t *testing.T, dir, filename string, data []byte) string {
	t.Helper()
	filePath := filepath.Join(dir, filename)
	require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
	require.NoError(t, os.WriteFile(filePath, data, 0o644), "write %s", filePath)
	return filePath
}

// CreateTestFile creates a test file with specified content
func CreateTestFile(t *testing.T, dir, filename, content string) string {
	t.Helper()
	return WriteFile(t, dir, filename, []byte(content))
}

// CreateTestFileWithSize creates a test file with random content of specified size
func CreateTestFileWithSize(t *testing.T, dir, filename string, size int64) string {
	t.Helper()
	filePath := filepath.Join(dir, filename)
	require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))

	file, err := os.Create(filePath)
	require.NoError(t, err)
	defer file.Close()

	written, err := io.CopyN(file, rand.Reader, size)
	require.NoError(t, err)
	require.Equal(t, size, written)
	return filePath
}

// GenerateTestData returns size random bytes.
func GenerateTestData(size int) []byte {
	data := make([]byte, size)
	_, _ = rand.Read(data)
	return data
}

// Block returns a chunk-sized block filled with b.
func Block(b byte, size int) []byte {
	return bytes.Repeat([]byte{b}, size)
}

// RepetitiveData builds a stream by concatenating blocks in the given order,
// e.g. RepetitiveData(a, b, a) for the classic A‖B‖A dedup fixture.
func RepetitiveData(blocks ...[]byte) []byte {
	return bytes.Join(blocks, nil)
}

// ReadFile returns the content of path, failing the test on error.
func ReadFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err, "read %s", path)
	return data
}

// AssertFileExists checks if a file exists and fails the test if it doesn't
func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	require.NoError(t, err, "expected file %s to exist", path)
}

// AssertFileNotExists checks if a file doesn't exist and fails the test if it does
func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err), "expected file %s to not exist", path)
}

// AssertFileSize checks if a file has the expected size
func AssertFileSize(t *testing.T, path string, expectedSize int64) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, expectedSize, info.Size(), "size of %s", path)
}

// AssertNoStagingLeftovers fails if dir holds staged or backup files from
// an unfinished output transaction.
func AssertNoStagingLeftovers(t *testing.T, dir string) {
	t.Helper()
	for _, pattern := range []string{".*.partial", ".*.backup", ".redup-txn"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		require.NoError(t, err)
		require.Empty(t, matches, "leftover files in %s", dir)
	}
}

// CompareBytes compares two byte slices and reports the first difference
func CompareBytes(t *testing.T, expected, actual []byte, context string) {
	t.Helper()

	if len(expected) != len(actual) {
		t.Fatalf("%s: length mismatch - expected %d bytes, got %d bytes",
			context, len(expected), len(actual))
	}
	for i := range expected {
		if expected[i] != actual[i] {
			t.Fatalf("%s: byte mismatch at position %d - expected %02x, got %02x",
				context, i, expected[i], actual[i])
		}
	}
}

// SkipIfShort skips the test if running in short mode
func SkipIfShort(t *testing.T, reason string) {
	t.Helper()
	if testing.Short() {
		t.Skipf("Skipping test in short mode: %s", reason)
	}
}
