package virtfs

import (
	"errors"
	"io"
)

var errNegativeOffset = errors.New("virtfs: read at negative offset")

// A Buffer is an immutable region of bytes shared by all the files decoded
// from one archive. Files reference spans of the buffer instead of holding
// copies, so a tree with thousands of files still costs a single allocation
// for the archive content.
type Buffer struct {
	data []byte
}

// NewBuffer copies data into a new buffer.
func NewBuffer(data []byte) *Buffer {
	return newBuffer(append([]byte(nil), data...))
}

// newBuffer wraps data without copying; the caller passes ownership.
func newBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Len returns the number of bytes held by the buffer.
func (b *Buffer) Len() int { return len(b.data) }

// ReadAt reads from the buffer at the given offset, implementing io.ReaderAt.
func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errNegativeOffset
	}
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// slice returns a view of the buffer with capacity clamped to the span, so
// appending to the result cannot reach into neighboring content.
func (b *Buffer) slice(off, size int64) []byte {
	return b.data[off : off+size : off+size]
}
