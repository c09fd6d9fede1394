// Package manifest persists a dedup session's chunk index so a reduced
// stream can be reconstructed later, possibly by another process.
//
// An index file starts with a fixed header (magic, format version and
// compression code) followed by a CBOR-encoded Manifest, optionally
// compressed.
package manifest

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/substantialcattle5/redup/internal/chunk"
	"github.com/substantialcattle5/redup/internal/constants"
	"github.com/substantialcattle5/redup/internal/deduplication"
	"github.com/substantialcattle5/redup/internal/digest"
)

var (
	ErrCorruptIndex       = errors.New("corrupt index file")
	ErrUnsupportedVersion = errors.New("unsupported index file version")
)

// Manifest is the persisted form of a chunk index plus the metadata needed
// to reconstruct and verify the original stream.
type Manifest struct {
	Version        int           `cbor:"version"`
	SessionID      string        `cbor:"session_id"`
	CreatedAt      int64         `cbor:"created_at"`
	Algorithm      string        `cbor:"algorithm"`
	ChunkSize      int           `cbor:"chunk_size"`
	OriginalSize   int64         `cbor:"original_size"`
	OriginalDigest []byte        `cbor:"original_digest"`
	ReducedSize    int64         `cbor:"reduced_size"`
	Entries        []EntryRecord `cbor:"entries"`
}

// EntryRecord is one distinct chunk. Entries appear in first-occurrence
// order, which is also their order in the reduced stream.
type EntryRecord struct {
	Digest    []byte  `cbor:"digest"`
	Length    int     `cbor:"length"`
	Positions []int64 `cbor:"positions"`
}

// FromResult builds a manifest for a completed dedup session.
func FromResult(res *deduplication.Result) (*Manifest, error) {
	if res == nil || res.Index == nil {
		return nil, errors.New("dedup result has no index")
	}
	idx := res.Index
	if !idx.Sealed() {
		return nil, errors.New("index is still being built")
	}

	entries := idx.Entries()
	records := make([]EntryRecord, len(entries))
	for i, e := range entries {
		records[i] = EntryRecord{
			Digest:    e.Digest.Bytes(),
			Length:    e.Length,
			Positions: e.Positions,
		}
	}

	return &Manifest{
		Version:        constants.IndexFormatVersion,
		SessionID:      uuid.NewString(),
		CreatedAt:      time.Now().UTC().Unix(),
		Algorithm:      idx.Algorithm(),
		ChunkSize:      idx.ChunkSize(),
		OriginalSize:   idx.OriginalSize(),
		OriginalDigest: res.OriginalDigest.Bytes(),
		ReducedSize:    idx.ReducedSize(),
		Entries:        records,
	}, nil
}

// Created returns the session creation time.
func (m *Manifest) Created() time.Time {
	return time.Unix(m.CreatedAt, 0).UTC()
}

// Digest returns the whole-stream digest of the original input.
func (m *Manifest) Digest() digest.Digest {
	return digest.FromBytes(m.OriginalDigest)
}

// Index rebuilds a sealed chunk index from the manifest, checking it against
// the recorded sizes.
func (m *Manifest) Index() (*deduplication.ChunkIndex, error) {
	entries := make([]deduplication.Entry, len(m.Entries))
	for i, r := range m.Entries {
		entries[i] = deduplication.Entry{
			Digest:    digest.FromBytes(r.Digest),
			Length:    r.Length,
			Positions: r.Positions,
		}
	}

	idx, err := deduplication.RestoreIndex(m.ChunkSize, m.Algorithm, entries)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptIndex, err)
	}
	if idx.OriginalSize() != m.OriginalSize {
		return nil, fmt.Errorf("%w: entries cover %d bytes, header says %d", ErrCorruptIndex, idx.OriginalSize(), m.OriginalSize)
	}
	if want := chunk.CountChunks(m.OriginalSize, m.ChunkSize); idx.ChunkCount() != want {
		return nil, fmt.Errorf("%w: entries cover %d chunks, %d bytes need %d", ErrCorruptIndex, idx.ChunkCount(), m.OriginalSize, want)
	}
	if idx.ReducedSize() != m.ReducedSize {
		return nil, fmt.Errorf("%w: entries hold %d reduced bytes, header says %d", ErrCorruptIndex, idx.ReducedSize(), m.ReducedSize)
	}
	return idx, nil
}

// Validate checks the manifest fields that do not depend on the entries.
func (m *Manifest) Validate() error {
	if m.Version != constants.IndexFormatVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, m.Version)
	}
	if _, err := uuid.Parse(m.SessionID); err != nil {
		return fmt.Errorf("%w: invalid session id: %w", ErrCorruptIndex, err)
	}
	if m.Algorithm == "" {
		return fmt.Errorf("%w: missing hash algorithm", ErrCorruptIndex)
	}
	fn, err := digest.New(m.Algorithm)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptIndex, err)
	}
	if m.ChunkSize <= 0 || m.ChunkSize > constants.MaxChunkSize {
		return fmt.Errorf("%w: invalid chunk size %d", ErrCorruptIndex, m.ChunkSize)
	}
	if len(m.OriginalDigest) != fn.Size() {
		return fmt.Errorf("%w: original digest is %d bytes, %s needs %d", ErrCorruptIndex, len(m.OriginalDigest), m.Algorithm, fn.Size())
	}
	for i, r := range m.Entries {
		if len(r.Digest) != fn.Size() {
			return fmt.Errorf("%w: entry %d digest is %d bytes, %s needs %d", ErrCorruptIndex, i, len(r.Digest), m.Algorithm, fn.Size())
		}
	}
	return nil
}
