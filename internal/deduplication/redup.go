package deduplication

import (
	"errors"
	"fmt"
	"io"

	"github.com/substantialcattle5/redup/internal/chunk"
	"github.com/substantialcattle5/redup/internal/digest"
	"github.com/substantialcattle5/redup/internal/integrity"
)

// Sink is a reconstruction target. Chunks are written at absolute offsets,
// then the whole content is read back for the integrity check.
type Sink interface {
	io.WriterAt
	io.ReaderAt
}

// truncater is implemented by sinks that can be pre-sized, such as *os.File.
type truncater interface {
	Truncate(size int64) error
}

// Reconstructor rebuilds an original stream from its reduced stream and index.
type Reconstructor struct {
	fn          *digest.Func
	progressMgr ProgressManager
}

// NewReconstructor returns a Reconstructor using the named digest algorithm.
// It must match the algorithm the index was built with.
func NewReconstructor(algorithm string) (*Reconstructor, error) {
	fn, err := digest.New(algorithm)
	if err != nil {
		return nil, err
	}
	return &Reconstructor{fn: fn}, nil
}

// SetProgressManager sets the progress manager for verbose output
func (r *Reconstructor) SetProgressManager(pm ProgressManager) {
	r.progressMgr = pm
}

// Redup writes every chunk of reduced to each original position recorded in
// idx, then checks the whole output against original. A nil error means the
// first idx.OriginalSize() bytes of out are identical to the original stream.
func (r *Reconstructor) Redup(reduced io.Reader, idx *ChunkIndex, original digest.Digest, out Sink) error {
	if idx == nil {
		return errors.New("chunk index is required")
	}
	if idx.Algorithm() != r.fn.Algorithm() {
		return fmt.Errorf("%w: index uses %s, reconstructor uses %s", ErrAlgorithmMismatch, idx.Algorithm(), r.fn.Algorithm())
	}

	if t, ok := out.(truncater); ok {
		if err := t.Truncate(idx.OriginalSize()); err != nil {
			return &IOError{Op: "size output", Err: err}
		}
	}

	chunker, err := chunk.NewChunker(reduced, idx.ChunkSize())
	if err != nil {
		return err
	}

	size := int64(idx.ChunkSize())
	err = chunker.ForEach(func(ch chunk.Chunk) error {
		sum := r.fn.Sum(ch.Data)
		entry, ok := idx.entries[sum]
		if !ok || ch.Position >= int64(idx.Len()) {
			return &UnknownChunkError{Ordinal: ch.Position, Digest: sum}
		}

		for _, pos := range entry.Positions {
			if _, err := out.WriteAt(ch.Data, pos*size); err != nil {
				return &IOError{Op: fmt.Sprintf("write output at chunk %d", pos), Err: err}
			}
		}

		log.Tracef("reduced chunk %d fp=%s positions=%v", ch.Position, sum.Short(), entry.Positions)
		if r.progressMgr != nil {
			r.progressMgr.PrintVerbose("  └─ chunk %s restored to %d position(s)\n", sum.Short(), len(entry.Positions))
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUnknownChunk) || errors.Is(err, ErrIO) {
			return err
		}
		return &IOError{Op: "read reduced stream", Err: err}
	}

	actual, err := integrity.WholeDigest(r.fn, io.NewSectionReader(out, 0, idx.OriginalSize()))
	if err != nil {
		return &IOError{Op: "read back output", Err: err}
	}
	if actual != original {
		return &IntegrityError{Expected: original, Actual: actual}
	}

	log.Debugf("redup verified: %d bytes, digest %s", idx.OriginalSize(), actual.Short())
	return nil
}

// Redup reconstructs with a Reconstructor matching the index's algorithm.
func Redup(reduced io.Reader, idx *ChunkIndex, original digest.Digest, out Sink) error {
	if idx == nil {
		return errors.New("chunk index is required")
	}
	r, err := NewReconstructor(idx.Algorithm())
	if err != nil {
		return err
	}
	return r.Redup(reduced, idx, original, out)
}
