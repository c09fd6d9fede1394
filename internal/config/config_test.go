package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/substantialcattle5/redup/internal/constants"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "redup.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	size, err := cfg.ChunkSizeBytes()
	require.NoError(t, err)
	assert.Equal(t, constants.DefaultChunkSize, size)
	assert.Equal(t, constants.DefaultHashAlgorithm, cfg.Chunking.HashAlgorithm)
	assert.Equal(t, constants.DefaultIndexCompression, cfg.Index.Compression)
	assert.False(t, cfg.Deduplication.VerifyCollisions)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
chunking:
  chunk_size: 4KB
  hash_algorithm: blake3
deduplication:
  verify_collisions: true
index:
  compression: gzip
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	size, err := cfg.ChunkSizeBytes()
	require.NoError(t, err)
	assert.Equal(t, 4096, size)
	assert.Equal(t, "blake3", cfg.Chunking.HashAlgorithm)
	assert.True(t, cfg.Deduplication.VerifyCollisions)
	assert.Equal(t, "gzip", cfg.Index.Compression)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	path := writeConfig(t, "chunking:\n  hash_algorithm: sha512\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sha512", cfg.Chunking.HashAlgorithm)
	assert.Equal(t, Default().Chunking.ChunkSize, cfg.Chunking.ChunkSize)
	assert.Equal(t, constants.DefaultIndexCompression, cfg.Index.Compression)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"malformed yaml", "chunking: [", "error parsing configuration"},
		{"zero chunk size", "chunking:\n  chunk_size: \"0\"\n", "chunk size must be positive"},
		{"bad chunk size", "chunking:\n  chunk_size: lots\n", "invalid size format"},
		{"huge chunk size", "chunking:\n  chunk_size: 1GB\n", "exceeds maximum"},
		{"unknown hash", "chunking:\n  hash_algorithm: crc32\n", "unsupported hash algorithm"},
		{"unknown compression", "index:\n  compression: brotli\n", "unsupported compression algorithm"},
		{"bad log level", "log:\n  level: loud\n", "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolve(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, used, err := Resolve("")
	require.NoError(t, err)
	assert.Empty(t, used)
	assert.Equal(t, Default(), cfg)

	homeConfig := filepath.Join(home, constants.DefaultConfigFileName)
	require.NoError(t, os.WriteFile(homeConfig, []byte("chunking:\n  chunk_size: 2KB\n"), 0o600))

	cfg, used, err = Resolve("")
	require.NoError(t, err)
	assert.Equal(t, homeConfig, used)
	assert.Equal(t, "2KB", cfg.Chunking.ChunkSize)

	explicit := writeConfig(t, "chunking:\n  chunk_size: 512\n")
	cfg, used, err = Resolve(explicit)
	require.NoError(t, err)
	assert.Equal(t, explicit, used)
	assert.Equal(t, "512", cfg.Chunking.ChunkSize)
}

func TestSaveRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Chunking.ChunkSize = "8KB"
	cfg.Chunking.HashAlgorithm = "sha1"
	cfg.Deduplication.VerifyCollisions = true

	path := filepath.Join(t.TempDir(), "nested", "redup.yaml")
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(constants.SecureFilePerms), info.Mode().Perm())
}

func TestSaveRejectsInvalid(t *testing.T) {
	cfg := Default()
	cfg.Chunking.HashAlgorithm = "rot13"
	path := filepath.Join(t.TempDir(), "redup.yaml")

	assert.Error(t, Save(path, cfg))
	assert.NoFileExists(t, path)
}
