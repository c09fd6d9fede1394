package deduplication

import (
	"errors"
	"fmt"

	"github.com/substantialcattle5/redup/internal/digest"
)

var (
	// ErrIO marks a failure to read a source or write a sink.
	ErrIO = errors.New("i/o failure")
	// ErrUnknownChunk means a reduced-stream chunk is absent from the index.
	ErrUnknownChunk = errors.New("unknown chunk")
	// ErrIntegrityMismatch means the reconstructed stream digest differs from the original.
	ErrIntegrityMismatch = errors.New("integrity mismatch")
	// ErrDigestCollision means two different chunks produced the same digest.
	ErrDigestCollision = errors.New("digest collision")
	// ErrIndexSealed is returned when observing into a completed index.
	ErrIndexSealed = errors.New("chunk index is sealed")
	// ErrPositionOutOfOrder is returned when positions are not observed sequentially.
	ErrPositionOutOfOrder = errors.New("chunk position out of order")
	// ErrInvalidIndex is returned when restored entries violate index invariants.
	ErrInvalidIndex = errors.New("invalid chunk index")
	// ErrAlgorithmMismatch means an index was built with a different digest algorithm.
	ErrAlgorithmMismatch = errors.New("digest algorithm mismatch")
)

// IOError wraps a read or write failure on a stream.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// UnknownChunkError reports the reduced-stream chunk whose digest is not indexed.
type UnknownChunkError struct {
	Ordinal int64
	Digest  digest.Digest
}

func (e *UnknownChunkError) Error() string {
	return fmt.Sprintf("unknown chunk %d in reduced stream (digest %s)", e.Ordinal, e.Digest.Short())
}

func (e *UnknownChunkError) Is(target error) bool { return target == ErrUnknownChunk }

// IntegrityError reports the expected and actual whole-stream digests.
type IntegrityError struct {
	Expected digest.Digest
	Actual   digest.Digest
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity mismatch: expected %s, got %s", e.Expected.Hex(), e.Actual.Hex())
}

func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrityMismatch }

// CollisionError reports a chunk whose digest matches earlier, different content.
type CollisionError struct {
	Digest        digest.Digest
	Position      int64
	FirstPosition int64
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("digest collision: chunk %d and chunk %d share digest %s but differ in content",
		e.Position, e.FirstPosition, e.Digest.Short())
}

func (e *CollisionError) Is(target error) bool { return target == ErrDigestCollision }
