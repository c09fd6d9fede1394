// Package compression compresses and decompresses index file bodies.
package compression

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/substantialcattle5/redup/internal/constants"
)

// Codes identify the compression algorithm in the index file header.
const (
	CodeNone byte = 0
	CodeGzip byte = 1
	CodeZstd byte = 2
	CodeLZ4  byte = 3
)

// Algorithms lists the supported compression algorithm names.
func Algorithms() []string {
	return []string{
		constants.CompressionTypeNone,
		constants.CompressionTypeGzip,
		constants.CompressionTypeZstd,
		constants.CompressionTypeLZ4,
	}
}

// Code maps an algorithm name to its header code.
func Code(algorithm string) (byte, error) {
	switch algorithm {
	case constants.CompressionTypeNone, "":
		return CodeNone, nil
	case constants.CompressionTypeGzip:
		return CodeGzip, nil
	case constants.CompressionTypeZstd:
		return CodeZstd, nil
	case constants.CompressionTypeLZ4:
		return CodeLZ4, nil
	default:
		return 0, fmt.Errorf("unsupported compression algorithm: %s", algorithm)
	}
}

// FromCode maps a header code back to its algorithm name.
func FromCode(code byte) (string, error) {
	switch code {
	case CodeNone:
		return constants.CompressionTypeNone, nil
	case CodeGzip:
		return constants.CompressionTypeGzip, nil
	case CodeZstd:
		return constants.CompressionTypeZstd, nil
	case CodeLZ4:
		return constants.CompressionTypeLZ4, nil
	default:
		return "", fmt.Errorf("unknown compression code: %d", code)
	}
}

// CompressData compresses data according to the specified compression algorithm
func CompressData(data []byte, algorithm string) ([]byte, error) {
	switch algorithm {
	case constants.CompressionTypeNone, "":
		return data, nil
	case constants.CompressionTypeGzip:
		var buf bytes.Buffer
		writer := gzip.NewWriter(&buf)
		if _, err := writer.Write(data); err != nil {
			return nil, fmt.Errorf("failed to write gzip data: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("failed to close gzip writer: %w", err)
		}
		return buf.Bytes(), nil
	case constants.CompressionTypeZstd:
		encoder, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		defer encoder.Close()
		return encoder.EncodeAll(data, nil), nil
	case constants.CompressionTypeLZ4:
		var buf bytes.Buffer
		writer := lz4.NewWriter(&buf)
		if _, err := writer.Write(data); err != nil {
			return nil, fmt.Errorf("failed to write lz4 data: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("failed to close lz4 writer: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", algorithm)
	}
}

// DecompressData decompresses data according to the specified compression algorithm
func DecompressData(data []byte, algorithm string) ([]byte, error) {
	switch algorithm {
	case constants.CompressionTypeNone, "":
		return data, nil
	case constants.CompressionTypeGzip:
		reader, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer reader.Close()
		return readLimited(reader, "gzip")
	case constants.CompressionTypeZstd:
		decoder, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(constants.MaxDecompressionSize))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		defer decoder.Close()

		decompressed, err := decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress zstd data: %w", err)
		}
		return decompressed, nil
	case constants.CompressionTypeLZ4:
		return readLimited(lz4.NewReader(bytes.NewReader(data)), "lz4")
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", algorithm)
	}
}

// readLimited drains r, refusing output larger than MaxDecompressionSize.
func readLimited(r io.Reader, algorithm string) ([]byte, error) {
	var buf bytes.Buffer
	n, err := io.CopyN(&buf, r, constants.MaxDecompressionSize+1)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decompress %s data: %w", algorithm, err)
	}
	if n > constants.MaxDecompressionSize {
		return nil, fmt.Errorf("decompressed data exceeds maximum size limit (%d bytes) - potential decompression bomb", constants.MaxDecompressionSize)
	}
	return buf.Bytes(), nil
}
