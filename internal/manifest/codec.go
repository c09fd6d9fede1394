package manifest

import (
	"bytes"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/substantialcattle5/redup/internal/compression"
	"github.com/substantialcattle5/redup/internal/constants"
)

const headerSize = len(constants.IndexMagic) + 2

// encMode uses Core Deterministic Encoding so the same manifest always
// produces identical bytes.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("manifest: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		MaxArrayElements: 1 << 27,
	}.DecMode()
	if err != nil {
		panic("manifest: CBOR decoder initialization failed: " + err.Error())
	}
}

// Encode writes m to w, compressing the body with the named algorithm.
func Encode(w io.Writer, m *Manifest, compressionType string) error {
	code, err := compression.Code(compressionType)
	if err != nil {
		return err
	}
	body, err := encMode.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	body, err = compression.CompressData(body, compressionType)
	if err != nil {
		return fmt.Errorf("failed to compress index: %w", err)
	}

	header := make([]byte, 0, headerSize)
	header = append(header, constants.IndexMagic...)
	header = append(header, byte(m.Version), code)
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write index header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("failed to write index body: %w", err)
	}
	return nil
}

// Decode reads a manifest from r. It returns the compression algorithm the
// body was stored with alongside the validated manifest.
func Decode(r io.Reader) (*Manifest, string, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, "", fmt.Errorf("%w: short header: %w", ErrCorruptIndex, err)
	}
	if !bytes.Equal(header[:len(constants.IndexMagic)], []byte(constants.IndexMagic)) {
		return nil, "", fmt.Errorf("%w: bad magic %q", ErrCorruptIndex, header[:len(constants.IndexMagic)])
	}
	version := int(header[len(constants.IndexMagic)])
	if version != constants.IndexFormatVersion {
		return nil, "", fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	compressionType, err := compression.FromCode(header[len(constants.IndexMagic)+1])
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrCorruptIndex, err)
	}

	body, err := io.ReadAll(io.LimitReader(r, constants.MaxDecompressionSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read index body: %w", err)
	}
	if len(body) > constants.MaxDecompressionSize {
		return nil, "", fmt.Errorf("%w: body exceeds %d bytes", ErrCorruptIndex, constants.MaxDecompressionSize)
	}
	body, err = compression.DecompressData(body, compressionType)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrCorruptIndex, err)
	}

	var m Manifest
	if err := decMode.Unmarshal(body, &m); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrCorruptIndex, err)
	}
	if m.Version != version {
		return nil, "", fmt.Errorf("%w: header version %d, body version %d", ErrCorruptIndex, version, m.Version)
	}
	if err := m.Validate(); err != nil {
		return nil, "", err
	}
	return &m, compressionType, nil
}
