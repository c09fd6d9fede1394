package deduplication

import (
	"fmt"
	"slices"

	"github.com/substantialcattle5/redup/internal/digest"
)

// ChunkIndex maps chunk digests to the ordered positions they occupied in
// the original stream. It is owned by one dedup/redup session and is not
// safe for concurrent mutation; a sealed index may be read concurrently.
type ChunkIndex struct {
	chunkSize int
	algorithm string

	entries map[digest.Digest]*Entry
	order   []*Entry // first-occurrence order

	next         int64 // next expected position
	originalSize int64
	reducedSize  int64
	tailSeen     bool
	sealed       bool
}

// NewChunkIndex creates an empty index for chunks of chunkSize bytes
// fingerprinted with algorithm.
func NewChunkIndex(chunkSize int, algorithm string) (*ChunkIndex, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got: %d", chunkSize)
	}
	if _, err := digest.CreateHasher(algorithm); err != nil {
		return nil, err
	}
	return &ChunkIndex{
		chunkSize: chunkSize,
		algorithm: algorithm,
		entries:   make(map[digest.Digest]*Entry),
	}, nil
}

// Observe records that the chunk at pos has digest d and true length length.
// It reports true when d has not been seen before, meaning the chunk bytes
// must be written to the reduced stream.
func (idx *ChunkIndex) Observe(d digest.Digest, pos int64, length int) (bool, error) {
	if idx.sealed {
		return false, ErrIndexSealed
	}
	if pos != idx.next {
		return false, fmt.Errorf("%w: got position %d, expected %d", ErrPositionOutOfOrder, pos, idx.next)
	}
	if idx.tailSeen {
		return false, fmt.Errorf("%w: position %d follows a short final chunk", ErrPositionOutOfOrder, pos)
	}
	if length <= 0 || length > idx.chunkSize {
		return false, fmt.Errorf("chunk %d has invalid length %d for chunk size %d", pos, length, idx.chunkSize)
	}

	if entry, exists := idx.entries[d]; exists {
		// Equal digests over different lengths cannot be equal content.
		if entry.Length != length {
			return false, &CollisionError{Digest: d, Position: pos, FirstPosition: entry.FirstPosition()}
		}
		entry.Positions = append(entry.Positions, pos)
		idx.advance(length)
		return false, nil
	}

	entry := &Entry{Digest: d, Length: length, Positions: []int64{pos}}
	idx.entries[d] = entry
	idx.order = append(idx.order, entry)
	idx.reducedSize += int64(length)
	idx.advance(length)
	return true, nil
}

func (idx *ChunkIndex) advance(length int) {
	idx.next++
	idx.originalSize += int64(length)
	if length < idx.chunkSize {
		idx.tailSeen = true
	}
}

// Lookup returns the ordered positions recorded for d.
func (idx *ChunkIndex) Lookup(d digest.Digest) ([]int64, bool) {
	entry, exists := idx.entries[d]
	if !exists {
		return nil, false
	}
	return slices.Clone(entry.Positions), true
}

// Entry returns a copy of the entry recorded for d.
func (idx *ChunkIndex) Entry(d digest.Digest) (Entry, bool) {
	entry, exists := idx.entries[d]
	if !exists {
		return Entry{}, false
	}
	return copyEntry(entry), true
}

// Entries returns copies of all entries in first-occurrence order, which is
// also the order of chunks in the reduced stream.
func (idx *ChunkIndex) Entries() []Entry {
	out := make([]Entry, len(idx.order))
	for i, e := range idx.order {
		out[i] = copyEntry(e)
	}
	return out
}

func copyEntry(e *Entry) Entry {
	return Entry{Digest: e.Digest, Length: e.Length, Positions: slices.Clone(e.Positions)}
}

// Seal freezes the index. Further calls to Observe fail with ErrIndexSealed.
func (idx *ChunkIndex) Seal() { idx.sealed = true }

// Sealed reports whether the index has been sealed.
func (idx *ChunkIndex) Sealed() bool { return idx.sealed }

// ChunkSize returns the chunk size the index was built with.
func (idx *ChunkIndex) ChunkSize() int { return idx.chunkSize }

// Algorithm returns the digest algorithm the index was built with.
func (idx *ChunkIndex) Algorithm() string { return idx.algorithm }

// Len returns the number of distinct digests.
func (idx *ChunkIndex) Len() int { return len(idx.order) }

// ChunkCount returns the number of positions recorded across all entries.
func (idx *ChunkIndex) ChunkCount() int64 { return idx.next }

// OriginalSize returns the byte length of the original stream.
func (idx *ChunkIndex) OriginalSize() int64 { return idx.originalSize }

// ReducedSize returns the byte length of the reduced stream.
func (idx *ChunkIndex) ReducedSize() int64 { return idx.reducedSize }

// Stats returns statistics about the index
func (idx *ChunkIndex) Stats() Stats {
	return Stats{
		TotalChunks:     idx.next,
		DistinctChunks:  len(idx.order),
		DuplicateChunks: idx.next - int64(len(idx.order)),
		OriginalSize:    idx.originalSize,
		ReducedSize:     idx.reducedSize,
		SavedSpace:      idx.originalSize - idx.reducedSize,
	}
}

// RestoreIndex rebuilds a sealed index from entries listed in first-occurrence
// order, as produced by Entries. The entries must describe every position
// 0..N-1 exactly once, and only the chunk at N-1 may be short.
func RestoreIndex(chunkSize int, algorithm string, entries []Entry) (*ChunkIndex, error) {
	idx, err := NewChunkIndex(chunkSize, algorithm)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, e := range entries {
		total += int64(len(e.Positions))
	}

	owner := make([]int, total)
	for i := range owner {
		owner[i] = -1
	}

	lastFirst := int64(-1)
	for i, e := range entries {
		if e.Digest == "" {
			return nil, fmt.Errorf("%w: entry %d has an empty digest", ErrInvalidIndex, i)
		}
		if _, dup := idx.entries[e.Digest]; dup {
			return nil, fmt.Errorf("%w: digest %s listed twice", ErrInvalidIndex, e.Digest.Short())
		}
		if e.Length <= 0 || e.Length > chunkSize {
			return nil, fmt.Errorf("%w: entry %d has invalid length %d", ErrInvalidIndex, i, e.Length)
		}
		if len(e.Positions) == 0 {
			return nil, fmt.Errorf("%w: entry %d has no positions", ErrInvalidIndex, i)
		}
		if e.Positions[0] <= lastFirst {
			return nil, fmt.Errorf("%w: entry %d is not in first-occurrence order", ErrInvalidIndex, i)
		}
		lastFirst = e.Positions[0]

		prev := int64(-1)
		for _, pos := range e.Positions {
			if pos < 0 || pos >= total {
				return nil, fmt.Errorf("%w: position %d out of range [0, %d)", ErrInvalidIndex, pos, total)
			}
			if pos <= prev {
				return nil, fmt.Errorf("%w: positions of entry %d are not ascending", ErrInvalidIndex, i)
			}
			if owner[pos] != -1 {
				return nil, fmt.Errorf("%w: position %d claimed by entries %d and %d", ErrInvalidIndex, pos, owner[pos], i)
			}
			owner[pos] = i
			prev = pos
		}
		if e.Length < chunkSize && (len(e.Positions) != 1 || e.Positions[0] != total-1) {
			return nil, fmt.Errorf("%w: short entry %d is not the final chunk", ErrInvalidIndex, i)
		}

		entry := &Entry{Digest: e.Digest, Length: e.Length, Positions: slices.Clone(e.Positions)}
		idx.entries[e.Digest] = entry
		idx.order = append(idx.order, entry)
		idx.reducedSize += int64(e.Length)
		idx.originalSize += int64(e.Length) * int64(len(e.Positions))
	}

	idx.next = total
	idx.Seal()
	return idx, nil
}
