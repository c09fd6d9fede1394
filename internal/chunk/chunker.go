package chunk

import (
	"errors"
	"fmt"
	"io"

	"github.com/substantialcattle5/redup/internal/constants"
)

// Chunk is one window of a stream.
type Chunk struct {
	// Position is the zero-based ordinal of the chunk in its stream.
	Position int64
	// Data holds exactly the bytes read for this chunk. It aliases the
	// Chunker's buffer and is only valid until the next call to Next.
	Data []byte
}

// Len returns the true length of the chunk.
func (c Chunk) Len() int { return len(c.Data) }

// Offset returns the byte offset of the chunk for the given chunk size.
func (c Chunk) Offset(chunkSize int) int64 { return c.Position * int64(chunkSize) }

// Chunker splits a stream into fixed-size chunks. Every chunk but the last
// is exactly Size bytes; the last holds whatever remained.
type Chunker struct {
	r    io.Reader
	size int
	buf  []byte
	pos  int64
	done bool
}

// NewChunker returns a Chunker reading r in windows of size bytes.
func NewChunker(r io.Reader, size int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got: %d", size)
	}
	if size > constants.MaxChunkSize {
		return nil, fmt.Errorf("chunk size %d exceeds maximum %d", size, constants.MaxChunkSize)
	}
	return &Chunker{r: r, size: size, buf: make([]byte, size)}, nil
}

// Size returns the configured chunk size.
func (c *Chunker) Size() int { return c.size }

// Next returns the next chunk, or io.EOF once the stream is exhausted.
// Read errors other than end of stream are returned unchanged.
func (c *Chunker) Next() (Chunk, error) {
	if c.done {
		return Chunk{}, io.EOF
	}

	n, err := io.ReadFull(c.r, c.buf)
	switch {
	case err == io.EOF: // clean end of stream, no bytes read
		c.done = true
		return Chunk{}, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF): // final short chunk
		c.done = true
	case err != nil:
		return Chunk{}, err
	}

	ch := Chunk{Position: c.pos, Data: c.buf[:n]}
	c.pos++
	return ch, nil
}

// Count returns the number of chunks produced so far.
func (c *Chunker) Count() int64 { return c.pos }

// ForEach drives the chunker to completion, calling fn for every chunk in
// position order. It stops at the first error from the stream or from fn.
func (c *Chunker) ForEach(fn func(Chunk) error) error {
	for {
		ch, err := c.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(ch); err != nil {
			return err
		}
	}
}

// CountChunks returns how many chunks a stream of length bytes splits into.
func CountChunks(length int64, size int) int64 {
	if length <= 0 {
		return 0
	}
	return (length + int64(size) - 1) / int64(size)
}
