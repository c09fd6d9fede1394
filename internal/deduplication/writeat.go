package deduplication

import (
	"errors"
	"io"
)

// WriteAtBuffer is an in-memory Sink that grows to fit writes at any offset.
// Gaps are zero-filled.
type WriteAtBuffer struct {
	buf []byte
}

// NewWriteAtBuffer returns a buffer initialised with a copy of b.
func NewWriteAtBuffer(b []byte) *WriteAtBuffer {
	return &WriteAtBuffer{buf: append([]byte(nil), b...)}
}

// WriteAt implements io.WriterAt.
func (b *WriteAtBuffer) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("negative offset")
	}
	end := off + int64(len(p))
	if end > int64(len(b.buf)) {
		if end > int64(cap(b.buf)) {
			grown := make([]byte, end, end+end/4)
			copy(grown, b.buf)
			b.buf = grown
		} else {
			old := len(b.buf)
			b.buf = b.buf[:end]
			clear(b.buf[old:end])
		}
	}
	return copy(b.buf[off:], p), nil
}

// ReadAt implements io.ReaderAt.
func (b *WriteAtBuffer) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("negative offset")
	}
	if off >= int64(len(b.buf)) {
		return 0, io.EOF
	}
	n := copy(p, b.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Truncate resizes the buffer, zero-filling when it grows.
func (b *WriteAtBuffer) Truncate(size int64) error {
	if size < 0 {
		return errors.New("negative size")
	}
	if size <= int64(len(b.buf)) {
		b.buf = b.buf[:size]
		return nil
	}
	grown := make([]byte, size)
	copy(grown, b.buf)
	b.buf = grown
	return nil
}

// Bytes returns the buffer contents. The slice aliases the buffer.
func (b *WriteAtBuffer) Bytes() []byte { return b.buf }

// Len returns the current length.
func (b *WriteAtBuffer) Len() int { return len(b.buf) }
