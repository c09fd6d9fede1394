package fs

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDirectory(t *testing.T) {
	base := t.TempDir()
	nested := filepath.Join(base, "a", "b", "c")

	require.NoError(t, EnsureDirectory(nested))
	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Idempotent
	require.NoError(t, EnsureDirectory(nested))
}

func TestVerifyFileAndReturnFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.bin")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))

	file, info, err := VerifyFileAndReturnFile(path)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, int64(7), info.Size())

	_, _, err = VerifyFileAndReturnFile(filepath.Join(dir, "missing"))
	assert.ErrorContains(t, err, "file does not exist")

	_, _, err = VerifyFileAndReturnFile(dir)
	assert.ErrorContains(t, err, "is not a regular file")
}

func TestVerifyFileUnreadable(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	path := filepath.Join(t.TempDir(), "locked.bin")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o000))

	_, _, err := VerifyFileAndReturnFile(path)
	assert.ErrorContains(t, err, "permission denied")
}

func TestOutputExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.bin")

	exists, err := OutputExists(path)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, os.WriteFile(path, nil, 0o644))
	exists, err = OutputExists(path)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = OutputExists(dir)
	assert.ErrorContains(t, err, "is a directory")
}

func TestSameFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("x"), 0o644))

	assert.True(t, SameFile(a, filepath.Join(dir, ".", "a")))
	assert.False(t, SameFile(a, b))
	assert.False(t, SameFile(a, filepath.Join(dir, "missing")))
}

func TestIndexPath(t *testing.T) {
	assert.Equal(t, "data.reduced.rdix", IndexPath("data.reduced", ""))
	assert.Equal(t, "custom.idx", IndexPath("data.reduced", "custom.idx"))
}

func TestOutputDir(t *testing.T) {
	dir, err := OutputDir("relative/file.bin")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(dir))
	assert.Equal(t, "relative", filepath.Base(dir))
}
