package deduplication

import "github.com/substantialcattle5/redup/internal/digest"

// Stats summarizes one deduplication session.
type Stats struct {
	TotalChunks     int64 `json:"total_chunks" yaml:"total_chunks"`
	DistinctChunks  int   `json:"distinct_chunks" yaml:"distinct_chunks"`
	DuplicateChunks int64 `json:"duplicate_chunks" yaml:"duplicate_chunks"`
	OriginalSize    int64 `json:"original_size" yaml:"original_size"`
	ReducedSize     int64 `json:"reduced_size" yaml:"reduced_size"`
	SavedSpace      int64 `json:"saved_space" yaml:"saved_space"`
}

// Ratio returns the share of the original size that deduplication removed, in percent.
func (s Stats) Ratio() float64 {
	if s.OriginalSize == 0 {
		return 0
	}
	return float64(s.SavedSpace) / float64(s.OriginalSize) * 100
}

// Entry is one distinct chunk of the original stream.
type Entry struct {
	Digest digest.Digest
	// Length is the true length of the chunk. Only the final chunk of a
	// stream can be shorter than the chunk size.
	Length int
	// Positions lists every original position holding this content, in
	// the order they were observed.
	Positions []int64
}

// FirstPosition returns the position at which the chunk first appeared.
func (e Entry) FirstPosition() int64 {
	if len(e.Positions) == 0 {
		return -1
	}
	return e.Positions[0]
}
