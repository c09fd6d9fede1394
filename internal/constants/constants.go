package constants

// Chunking defaults
const (
	DefaultChunkSize = 1024 // bytes
	MaxChunkSize     = 64 * 1024 * 1024
)

// Hash algorithms
const (
	HashAlgorithmMD5    = "md5"
	HashAlgorithmSHA1   = "sha1"
	HashAlgorithmSHA256 = "sha256"
	HashAlgorithmSHA512 = "sha512"
	HashAlgorithmBLAKE3 = "blake3"

	DefaultHashAlgorithm = HashAlgorithmSHA256
)

// Compression types for the index file body
const (
	CompressionTypeNone = "none"
	CompressionTypeGzip = "gzip"
	CompressionTypeZstd = "zstd"
	CompressionTypeLZ4  = "lz4"

	DefaultIndexCompression = CompressionTypeZstd

	MaxDecompressionSize = 1 << 30 // 1 GiB
)

// Index file layout
const (
	IndexMagic         = "RDIX"
	IndexFormatVersion = 1
	IndexFileExtension = ".rdix"
)

// Configuration
const (
	DefaultConfigFileName = ".redup.yaml"
	DefaultLogLevel       = "warn"
)

// File permissions
const (
	SecureDirPerms    = 0o700 // Owner read/write/execute only
	SecureFilePerms   = 0o600 // Owner read/write only
	StandardDirPerms  = 0o755 // Standard directory permissions
	StandardFilePerms = 0o644 // Standard file permissions
)

// Display
const (
	HashDisplayLength = 12 // Length of hex digest to display in logs
)
