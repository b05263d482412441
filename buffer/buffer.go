package buffer

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned when a read reaches past the available bytes.
// Callers are expected to check Available first; seeing this error means the
// caller skipped that check.
var ErrOutOfRange = errors.New("read beyond available data")

// minGrowth is the smallest allocation made when the buffer first grows.
const minGrowth = 4096

// Buffer is a growable byte store indexed by absolute document offset.
// It is not safe for concurrent use; the loader confines it to its run loop.
type Buffer struct {
	data      []byte
	available int64 // contiguous valid bytes from offset 0
	streamed  int64 // bytes delivered by the sequential stream
}

// New creates a Buffer with room for capacityHint bytes.
func New(capacityHint int) *Buffer {
	if capacityHint < 0 {
		capacityHint = 0
	}
	return &Buffer{
		data: make([]byte, 0, capacityHint),
	}
}

// Available returns the number of contiguous bytes readable from offset 0.
func (b *Buffer) Available() int64 {
	return b.available
}

// Streamed returns the number of bytes received from the sequential stream.
// It is never larger than Available.
func (b *Buffer) Streamed() int64 {
	return b.streamed
}

// Cap returns the allocated capacity in bytes.
func (b *Buffer) Cap() int {
	return cap(b.data)
}

// EnsureCapacity grows the storage to hold at least n bytes. Growth at least
// doubles the current capacity so a monotone series of appends copies each
// byte a bounded number of times.
func (b *Buffer) EnsureCapacity(n int64) {
	if n <= int64(cap(b.data)) {
		return
	}

	newCap := int64(cap(b.data)) * 2
	if newCap < minGrowth {
		newCap = minGrowth
	}
	if newCap < n {
		newCap = n
	}

	grown := make([]byte, len(b.data), newCap)
	copy(grown, b.data)
	b.data = grown
}

// Append adds bytes from the sequential stream. The stream always writes at
// Streamed(); any prefix of p already made available by Splice is skipped.
func (b *Buffer) Append(p []byte) {
	if len(p) == 0 {
		return
	}

	start := b.streamed
	b.streamed += int64(len(p))

	if b.streamed <= b.available {
		// Already present from a range fetch.
		return
	}

	skip := b.available - start
	b.write(p[skip:])
}

// Splice adds bytes fetched for the range starting at offset. Data is accepted
// only when it touches the available prefix; bytes already present are
// skipped. It returns how many bytes became newly available.
func (b *Buffer) Splice(offset int64, p []byte) int {
	if offset < 0 || offset > b.available {
		return 0
	}

	end := offset + int64(len(p))
	if end <= b.available {
		return 0
	}

	skip := b.available - offset
	return b.write(p[skip:])
}

// write appends p at the available boundary.
func (b *Buffer) write(p []byte) int {
	b.EnsureCapacity(b.available + int64(len(p)))
	b.data = append(b.data, p...)
	b.available += int64(len(p))
	return len(p)
}

// Covers reports whether [offset, offset+count) lies within the available bytes.
func (b *Buffer) Covers(offset int64, count int) bool {
	return offset >= 0 && count >= 0 && offset <= b.available-int64(count)
}

// Read returns a view of [offset, offset+count). The range must lie within
// Available(); the view is valid until the next Append or Splice.
func (b *Buffer) Read(offset int64, count int) ([]byte, error) {
	if !b.Covers(offset, count) {
		return nil, fmt.Errorf("%w: %d bytes at %d with %d available",
			ErrOutOfRange, count, offset, b.available)
	}
	return b.data[offset : offset+int64(count) : offset+int64(count)], nil
}

// ReadAvailable returns the best available prefix of [offset, offset+count),
// which may be empty.
func (b *Buffer) ReadAvailable(offset int64, count int) []byte {
	if offset < 0 || count <= 0 || offset >= b.available {
		return nil
	}

	end := b.available
	if int64(count) < end-offset {
		end = offset + int64(count)
	}
	return b.data[offset:end:end]
}

// Bytes returns a view of every available byte.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.available:b.available]
}
