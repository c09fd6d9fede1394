package deduplication

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/substantialcattle5/redup/internal/digest"
)

func TestChunkIndexObserve(t *testing.T) {
	idx, err := NewChunkIndex(4, "sha256")
	require.NoError(t, err)

	a, b := digest.Digest("A"), digest.Digest("B")

	isNew, err := idx.Observe(a, 0, 4)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = idx.Observe(b, 1, 4)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = idx.Observe(a, 2, 4)
	require.NoError(t, err)
	assert.False(t, isNew)

	positions, ok := idx.Lookup(a)
	require.True(t, ok)
	assert.Equal(t, []int64{0, 2}, positions)

	positions, ok = idx.Lookup(b)
	require.True(t, ok)
	assert.Equal(t, []int64{1}, positions)

	_, ok = idx.Lookup(digest.Digest("C"))
	assert.False(t, ok)

	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, int64(3), idx.ChunkCount())
	assert.Equal(t, int64(12), idx.OriginalSize())
	assert.Equal(t, int64(8), idx.ReducedSize())

	entries := idx.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, a, entries[0].Digest)
	assert.Equal(t, b, entries[1].Digest)
}

func TestChunkIndexLookupReturnsCopy(t *testing.T) {
	idx, err := NewChunkIndex(4, "sha256")
	require.NoError(t, err)
	_, err = idx.Observe("A", 0, 4)
	require.NoError(t, err)

	positions, _ := idx.Lookup("A")
	positions[0] = 99

	again, _ := idx.Lookup("A")
	assert.Equal(t, []int64{0}, again)
}

func TestChunkIndexPositionOrder(t *testing.T) {
	idx, err := NewChunkIndex(4, "sha256")
	require.NoError(t, err)

	_, err = idx.Observe("A", 1, 4)
	assert.ErrorIs(t, err, ErrPositionOutOfOrder)

	_, err = idx.Observe("A", 0, 4)
	require.NoError(t, err)
	_, err = idx.Observe("A", 0, 4)
	assert.ErrorIs(t, err, ErrPositionOutOfOrder)
}

func TestChunkIndexNothingAfterShortChunk(t *testing.T) {
	idx, err := NewChunkIndex(4, "sha256")
	require.NoError(t, err)

	_, err = idx.Observe("T", 0, 2)
	require.NoError(t, err)
	_, err = idx.Observe("A", 1, 4)
	assert.ErrorIs(t, err, ErrPositionOutOfOrder)
}

func TestChunkIndexInvalidLength(t *testing.T) {
	idx, err := NewChunkIndex(4, "sha256")
	require.NoError(t, err)

	_, err = idx.Observe("A", 0, 0)
	assert.Error(t, err)
	_, err = idx.Observe("A", 0, 5)
	assert.Error(t, err)
}

func TestChunkIndexLengthCollision(t *testing.T) {
	idx, err := NewChunkIndex(4, "sha256")
	require.NoError(t, err)

	_, err = idx.Observe("A", 0, 4)
	require.NoError(t, err)
	_, err = idx.Observe("A", 1, 3)
	require.ErrorIs(t, err, ErrDigestCollision)

	var collision *CollisionError
	require.ErrorAs(t, err, &collision)
	assert.Equal(t, int64(1), collision.Position)
	assert.Equal(t, int64(0), collision.FirstPosition)
}

func TestChunkIndexSeal(t *testing.T) {
	idx, err := NewChunkIndex(4, "sha256")
	require.NoError(t, err)
	idx.Seal()
	assert.True(t, idx.Sealed())

	_, err = idx.Observe("A", 0, 4)
	assert.ErrorIs(t, err, ErrIndexSealed)
}

func TestNewChunkIndexValidation(t *testing.T) {
	_, err := NewChunkIndex(0, "sha256")
	assert.Error(t, err)
	_, err = NewChunkIndex(1024, "rot13")
	assert.ErrorContains(t, err, "unsupported hash algorithm")
}

func TestChunkIndexStats(t *testing.T) {
	idx, err := NewChunkIndex(4, "sha256")
	require.NoError(t, err)
	for i, d := range []digest.Digest{"A", "B", "A", "A"} {
		_, err := idx.Observe(d, int64(i), 4)
		require.NoError(t, err)
	}
	_, err = idx.Observe("T", 4, 1)
	require.NoError(t, err)

	stats := idx.Stats()
	assert.Equal(t, int64(5), stats.TotalChunks)
	assert.Equal(t, 3, stats.DistinctChunks)
	assert.Equal(t, int64(2), stats.DuplicateChunks)
	assert.Equal(t, int64(17), stats.OriginalSize)
	assert.Equal(t, int64(9), stats.ReducedSize)
	assert.Equal(t, int64(8), stats.SavedSpace)
	assert.InDelta(t, 47.06, stats.Ratio(), 0.01)
	assert.Zero(t, Stats{}.Ratio())
}

func TestRestoreIndex(t *testing.T) {
	entries := []Entry{
		{Digest: "A", Length: 4, Positions: []int64{0, 2}},
		{Digest: "B", Length: 4, Positions: []int64{1}},
		{Digest: "T", Length: 1, Positions: []int64{3}},
	}
	idx, err := RestoreIndex(4, "sha256", entries)
	require.NoError(t, err)

	assert.True(t, idx.Sealed())
	assert.Equal(t, int64(4), idx.ChunkCount())
	assert.Equal(t, int64(13), idx.OriginalSize())
	assert.Equal(t, int64(9), idx.ReducedSize())
	assert.Equal(t, entries, idx.Entries())

	empty, err := RestoreIndex(4, "sha256", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
	assert.Zero(t, empty.OriginalSize())
}

func TestRestoreIndexRejectsBrokenInvariants(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
	}{
		{"duplicate position", []Entry{
			{Digest: "A", Length: 4, Positions: []int64{0, 1}},
			{Digest: "B", Length: 4, Positions: []int64{1}},
		}},
		{"gap in positions", []Entry{
			{Digest: "A", Length: 4, Positions: []int64{0, 2}},
		}},
		{"duplicate digest", []Entry{
			{Digest: "A", Length: 4, Positions: []int64{0}},
			{Digest: "A", Length: 4, Positions: []int64{1}},
		}},
		{"short chunk not last", []Entry{
			{Digest: "T", Length: 2, Positions: []int64{0}},
			{Digest: "A", Length: 4, Positions: []int64{1}},
		}},
		{"not first-occurrence order", []Entry{
			{Digest: "B", Length: 4, Positions: []int64{1}},
			{Digest: "A", Length: 4, Positions: []int64{0}},
		}},
		{"descending positions", []Entry{
			{Digest: "A", Length: 4, Positions: []int64{0, 2}},
			{Digest: "B", Length: 4, Positions: []int64{3, 1}},
		}},
		{"empty positions", []Entry{
			{Digest: "A", Length: 4, Positions: nil},
		}},
		{"oversized length", []Entry{
			{Digest: "A", Length: 5, Positions: []int64{0}},
		}},
		{"empty digest", []Entry{
			{Digest: "", Length: 4, Positions: []int64{0}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RestoreIndex(4, "sha256", tt.entries)
			assert.ErrorIs(t, err, ErrInvalidIndex)
		})
	}
}
