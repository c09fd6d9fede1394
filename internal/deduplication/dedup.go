package deduplication

import (
	"bytes"
	"fmt"
	"io"

	"github.com/substantialcattle5/redup/internal/chunk"
	"github.com/substantialcattle5/redup/internal/constants"
	"github.com/substantialcattle5/redup/internal/digest"
	"github.com/substantialcattle5/redup/internal/logger"
)

var log = logger.GetLogger("deduplication")

// ProgressManager is an interface for progress reporting
type ProgressManager interface {
	PrintVerbose(format string, args ...interface{})
}

// Options configures a dedup session.
type Options struct {
	ChunkSize int
	Algorithm string
	// VerifyCollisions keeps one copy of every distinct chunk and compares
	// each duplicate against it byte for byte.
	VerifyCollisions bool
}

// DefaultOptions returns 1 KiB chunks hashed with the default algorithm.
func DefaultOptions() Options {
	return Options{
		ChunkSize: constants.DefaultChunkSize,
		Algorithm: constants.DefaultHashAlgorithm,
	}
}

// Result pairs the index built by a dedup session with the digest of the
// original stream. Both are required to reconstruct that stream.
type Result struct {
	Index          *ChunkIndex
	OriginalDigest digest.Digest
}

// Stats returns the statistics of the session's index.
func (r *Result) Stats() Stats { return r.Index.Stats() }

// Deduplicator splits an input stream into fixed-size chunks and writes only
// the first occurrence of each distinct chunk to a reduced stream.
type Deduplicator struct {
	opts        Options
	fn          *digest.Func
	sum         func([]byte) digest.Digest
	progressMgr ProgressManager
}

// NewDeduplicator validates opts and returns a Deduplicator.
func NewDeduplicator(opts Options) (*Deduplicator, error) {
	if opts.ChunkSize == 0 {
		opts.ChunkSize = constants.DefaultChunkSize
	}
	if opts.ChunkSize < 0 || opts.ChunkSize > constants.MaxChunkSize {
		return nil, fmt.Errorf("chunk size must be between 1 and %d, got: %d", constants.MaxChunkSize, opts.ChunkSize)
	}
	fn, err := digest.New(opts.Algorithm)
	if err != nil {
		return nil, err
	}
	opts.Algorithm = fn.Algorithm()
	return &Deduplicator{opts: opts, fn: fn, sum: fn.Sum}, nil
}

// SetProgressManager sets the progress manager for verbose output
func (d *Deduplicator) SetProgressManager(pm ProgressManager) {
	d.progressMgr = pm
}

// Options returns the effective session options.
func (d *Deduplicator) Options() Options { return d.opts }

// Dedup consumes input once. Every first-seen chunk is appended to reduced
// with its exact length; repeated chunks are only recorded in the index.
// On error the partial index and reduced output must be discarded.
func (d *Deduplicator) Dedup(input io.Reader, reduced io.Writer) (*Result, error) {
	idx, err := NewChunkIndex(d.opts.ChunkSize, d.opts.Algorithm)
	if err != nil {
		return nil, err
	}

	whole := d.fn.NewHash()
	chunker, err := chunk.NewChunker(io.TeeReader(input, whole), d.opts.ChunkSize)
	if err != nil {
		return nil, err
	}

	var refs map[digest.Digest][]byte
	if d.opts.VerifyCollisions {
		refs = make(map[digest.Digest][]byte)
	}

	for {
		ch, err := chunker.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &IOError{Op: "read input stream", Err: err}
		}

		sum := d.sum(ch.Data)
		isNew, err := idx.Observe(sum, ch.Position, ch.Len())
		if err != nil {
			return nil, err
		}

		if refs != nil {
			if isNew {
				refs[sum] = bytes.Clone(ch.Data)
			} else if !bytes.Equal(refs[sum], ch.Data) {
				entry, _ := idx.Entry(sum)
				return nil, &CollisionError{Digest: sum, Position: ch.Position, FirstPosition: entry.FirstPosition()}
			}
		}

		if isNew {
			if _, err := reduced.Write(ch.Data); err != nil {
				return nil, &IOError{Op: "write reduced stream", Err: err}
			}
		}

		log.Tracef("chunk %d off=%d len=%d fp=%s new=%v", ch.Position, ch.Offset(d.opts.ChunkSize), ch.Len(), sum.Short(), isNew)
		if d.progressMgr != nil {
			d.progressMgr.PrintVerbose("%s", chunk.FormatChunkInfoString(ch.Position, ch.Len(), sum.Short(), !isNew))
		}
	}

	idx.Seal()
	res := &Result{Index: idx, OriginalDigest: digest.Digest(whole.Sum(nil))}
	stats := idx.Stats()
	log.Debugf("dedup done: chunks=%d distinct=%d original=%d reduced=%d",
		stats.TotalChunks, stats.DistinctChunks, stats.OriginalSize, stats.ReducedSize)
	return res, nil
}

// Dedup runs a session with DefaultOptions.
func Dedup(input io.Reader, reduced io.Writer) (*Result, error) {
	d, err := NewDeduplicator(DefaultOptions())
	if err != nil {
		return nil, err
	}
	return d.Dedup(input, reduced)
}
