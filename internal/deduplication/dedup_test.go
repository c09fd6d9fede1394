package deduplication

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/substantialcattle5/redup/internal/digest"
)

func randomBytes(seed int64, n int) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(b)
	return b
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestDedupScenario(t *testing.T) {
	a := randomBytes(1, 1024)
	b := randomBytes(2, 1024)
	f := concat(a, b, a)

	var reduced bytes.Buffer
	res, err := Dedup(bytes.NewReader(f), &reduced)
	require.NoError(t, err)

	fn := digest.MustNew("sha256")
	assert.Equal(t, concat(a, b), reduced.Bytes())
	assert.Equal(t, fn.Sum(f), res.OriginalDigest)

	positions, ok := res.Index.Lookup(fn.Sum(a))
	require.True(t, ok)
	assert.Equal(t, []int64{0, 2}, positions)

	positions, ok = res.Index.Lookup(fn.Sum(b))
	require.True(t, ok)
	assert.Equal(t, []int64{1}, positions)
	assert.Equal(t, 2, res.Index.Len())

	out := NewWriteAtBuffer(nil)
	require.NoError(t, Redup(bytes.NewReader(reduced.Bytes()), res.Index, res.OriginalDigest, out))
	assert.Equal(t, f, out.Bytes())
}

func TestDedupSizeReduction(t *testing.T) {
	t.Run("repeated chunk shrinks the stream", func(t *testing.T) {
		f := concat(randomBytes(3, 1024), randomBytes(4, 1024), randomBytes(3, 1024), randomBytes(5, 300))
		var reduced bytes.Buffer
		res, err := Dedup(bytes.NewReader(f), &reduced)
		require.NoError(t, err)
		assert.Less(t, reduced.Len(), len(f))
		assert.Equal(t, int64(reduced.Len()), res.Index.ReducedSize())
		assert.Equal(t, int64(1024), res.Stats().SavedSpace)
	})

	t.Run("distinct chunks keep the length", func(t *testing.T) {
		f := randomBytes(6, 5000)
		var reduced bytes.Buffer
		res, err := Dedup(bytes.NewReader(f), &reduced)
		require.NoError(t, err)
		assert.Equal(t, f, reduced.Bytes())
		assert.Zero(t, res.Stats().DuplicateChunks)
	})
}

func TestDedupShortTailIsolation(t *testing.T) {
	a := randomBytes(7, 1024)
	// The tail repeats the beginning of the previous window; hashing a
	// reused buffer would make it look like a copy of a.
	f := concat(a, a[:10])

	var reduced bytes.Buffer
	res, err := Dedup(bytes.NewReader(f), &reduced)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Index.Len())
	assert.Equal(t, f, reduced.Bytes())

	padded := concat(f, make([]byte, 1014))
	var reducedPadded bytes.Buffer
	resPadded, err := Dedup(bytes.NewReader(padded), &reducedPadded)
	require.NoError(t, err)

	assert.NotEqual(t, res.OriginalDigest, resPadded.OriginalDigest)
	tail := res.Index.Entries()[1]
	paddedTail := resPadded.Index.Entries()[1]
	assert.Equal(t, 10, tail.Length)
	assert.Equal(t, 1024, paddedTail.Length)
	assert.NotEqual(t, tail.Digest, paddedTail.Digest)
}

func TestDedupIndexInvariants(t *testing.T) {
	f := concat(randomBytes(8, 512), randomBytes(8, 512), randomBytes(9, 512), randomBytes(8, 512), randomBytes(10, 100))
	var reduced bytes.Buffer
	d, err := NewDeduplicator(Options{ChunkSize: 512, Algorithm: "blake3"})
	require.NoError(t, err)
	res, err := d.Dedup(bytes.NewReader(f), &reduced)
	require.NoError(t, err)

	seen := make(map[int64]bool)
	var total int
	for _, e := range res.Index.Entries() {
		for _, pos := range e.Positions {
			assert.False(t, seen[pos], "position %d under two digests", pos)
			seen[pos] = true
		}
		total += len(e.Positions)
	}
	assert.Equal(t, 5, total)
	assert.Equal(t, int64(5), res.Index.ChunkCount())
	assert.True(t, res.Index.Sealed())

	_, err = res.Index.Observe("late", 5, 1)
	assert.ErrorIs(t, err, ErrIndexSealed)
}

func TestDedupReadFailure(t *testing.T) {
	boom := errors.New("input vanished")
	_, err := Dedup(iotest.ErrReader(boom), &bytes.Buffer{})
	require.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, boom)

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "read input stream", ioErr.Op)
}

type failingWriter struct{ err error }

func (w failingWriter) Write([]byte) (int, error) { return 0, w.err }

func TestDedupWriteFailure(t *testing.T) {
	boom := errors.New("disk full")
	_, err := Dedup(strings.NewReader("some content"), failingWriter{err: boom})
	require.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, boom)
}

func TestDedupVerifyCollisions(t *testing.T) {
	constant := func([]byte) digest.Digest { return "same" }
	f := concat(randomBytes(11, 64), randomBytes(12, 64))

	t.Run("detected when enabled", func(t *testing.T) {
		d, err := NewDeduplicator(Options{ChunkSize: 64, VerifyCollisions: true})
		require.NoError(t, err)
		d.sum = constant

		_, err = d.Dedup(bytes.NewReader(f), &bytes.Buffer{})
		require.ErrorIs(t, err, ErrDigestCollision)

		var collision *CollisionError
		require.ErrorAs(t, err, &collision)
		assert.Equal(t, int64(1), collision.Position)
		assert.Equal(t, int64(0), collision.FirstPosition)
	})

	t.Run("coalesced when disabled", func(t *testing.T) {
		d, err := NewDeduplicator(Options{ChunkSize: 64})
		require.NoError(t, err)
		d.sum = constant

		var reduced bytes.Buffer
		res, err := d.Dedup(bytes.NewReader(f), &reduced)
		require.NoError(t, err)
		assert.Equal(t, 64, reduced.Len())
		assert.Equal(t, 1, res.Index.Len())
	})

	t.Run("true duplicates pass", func(t *testing.T) {
		d, err := NewDeduplicator(Options{ChunkSize: 64, VerifyCollisions: true})
		require.NoError(t, err)
		a := randomBytes(13, 64)
		res, err := d.Dedup(bytes.NewReader(concat(a, a, a)), &bytes.Buffer{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), res.Stats().DuplicateChunks)
	})
}

func TestNewDeduplicatorOptions(t *testing.T) {
	d, err := NewDeduplicator(Options{})
	require.NoError(t, err)
	assert.Equal(t, 1024, d.Options().ChunkSize)
	assert.Equal(t, "sha256", d.Options().Algorithm)

	_, err = NewDeduplicator(Options{ChunkSize: -1})
	assert.Error(t, err)
	_, err = NewDeduplicator(Options{Algorithm: "crc"})
	assert.Error(t, err)
}

type recordingProgress struct{ lines []string }

func (r *recordingProgress) PrintVerbose(format string, args ...interface{}) {
	r.lines = append(r.lines, fmt.Sprintf(format, args...))
}

func TestDedupReportsProgress(t *testing.T) {
	a := randomBytes(14, 16)
	d, err := NewDeduplicator(Options{ChunkSize: 16})
	require.NoError(t, err)
	pm := &recordingProgress{}
	d.SetProgressManager(pm)

	_, err = d.Dedup(bytes.NewReader(concat(a, a)), &bytes.Buffer{})
	require.NoError(t, err)
	require.Len(t, pm.lines, 2)
	assert.NotContains(t, pm.lines[0], "[deduplicated]")
	assert.Contains(t, pm.lines[1], "[deduplicated]")
}

func TestConcurrentSessionsAreIndependent(t *testing.T) {
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			chunkA := randomBytes(seed, 256)
			f := concat(chunkA, randomBytes(seed+100, 256), chunkA, randomBytes(seed+200, 77))

			var reduced bytes.Buffer
			d, err := NewDeduplicator(Options{ChunkSize: 256})
			if err != nil {
				errs <- err
				return
			}
			res, err := d.Dedup(bytes.NewReader(f), &reduced)
			if err != nil {
				errs <- err
				return
			}
			out := NewWriteAtBuffer(nil)
			if err := Redup(&reduced, res.Index, res.OriginalDigest, out); err != nil {
				errs <- err
				return
			}
			if !bytes.Equal(f, out.Bytes()) {
				errs <- fmt.Errorf("session %d: reconstruction differs", seed)
			}
		}(int64(i * 1000))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
