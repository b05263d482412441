package loader

import (
	"context"
	"fmt"
	"io"
	"math"
	"runtime"

	"github.com/tsawler/rangeload/fetch"
)

// ReadBytesBlocking returns the bytes at [offset, offset+count), parking the
// calling goroutine until they are available. The result may be shorter than
// count, or nil, when the document ends early, the bytes could not be loaded,
// or the loader was torn down.
//
// It must not be called on the run loop; there it logs an error and returns
// nil instead of deadlocking.
func (l *Loader) ReadBytesBlocking(offset int64, count int) []byte {
	if count <= 0 || offset < 0 || offset > math.MaxInt64-int64(count) {
		return nil
	}
	if l.loop.IsCurrent() {
		log.Errorf("ReadBytesBlocking of %d bytes at %d called on the run loop", count, offset)
		return nil
	}
	if data, ok := l.readFrozen(offset, count); ok {
		return data
	}
	return l.readRanges([]fetch.ByteRange{{Offset: offset, Count: count}})[0]
}

// ReadRangesBlocking reads several ranges with one wait. Results are in the
// order of ranges.
func (l *Loader) ReadRangesBlocking(ranges []fetch.ByteRange) [][]byte {
	if len(ranges) == 0 {
		return nil
	}
	if l.loop.IsCurrent() {
		log.Errorf("ReadRangesBlocking of %d ranges called on the run loop", len(ranges))
		return make([][]byte, len(ranges))
	}
	if l.frozen.Load() != nil {
		out := make([][]byte, len(ranges))
		for i, r := range ranges {
			out[i], _ = l.readFrozen(r.Offset, r.Count)
		}
		return out
	}
	return l.readRanges(ranges)
}

// readRanges posts the requests to the run loop and waits for all of them.
func (l *Loader) readRanges(ranges []fetch.ByteRange) [][]byte {
	l.stats.waiting.Add(1)
	defer l.stats.waiting.Add(-1)

	out := make([][]byte, len(ranges))
	done := make(chan struct{})
	remaining := len(ranges)

	posted := l.loop.Dispatch(func() {
		for i, r := range ranges {
			l.RequestBytes(r.Offset, r.Count, func(data []byte) {
				if len(data) > 0 {
					out[i] = append([]byte(nil), data...)
				}
				remaining--
				if remaining == 0 {
					close(done)
				}
			})
		}
	})
	if !posted {
		return make([][]byte, len(ranges))
	}

	select {
	case <-done:
		return out
	case <-l.done:
		return make([][]byte, len(ranges))
	}
}

// readFrozen serves a read from the finished document.
func (l *Loader) readFrozen(offset int64, count int) ([]byte, bool) {
	p := l.frozen.Load()
	if p == nil {
		return nil, false
	}
	data := *p
	if offset < 0 || count <= 0 || offset >= int64(len(data)) {
		return nil, true
	}
	end := offset + min(int64(count), int64(len(data))-offset)
	return append([]byte(nil), data[offset:end]...), true
}

// Source is the parser's view of the document.
type Source interface {
	io.ReaderAt

	// Size returns the document length, or -1 when unknown.
	Size() int64

	// NotifyNonIncrementalSentinel tells the loader the document cannot be
	// parsed incrementally.
	NotifyNonIncrementalSentinel()
}

// Parser is driven on the parser goroutine.
type Parser interface {
	Parse(ctx context.Context, src Source) error
}

// ParserFunc adapts a function to Parser.
type ParserFunc func(ctx context.Context, src Source) error

// Parse calls f.
func (f ParserFunc) Parse(ctx context.Context, src Source) error {
	return f(ctx, src)
}

// Source returns the parser view of the loader.
func (l *Loader) Source() Source {
	return loaderSource{l: l}
}

type loaderSource struct {
	l *Loader
}

// ReadAt implements io.ReaderAt by blocking on the loader.
func (s loaderSource) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 {
		return 0, fmt.Errorf("read at %d: %w", off, fetch.ErrInvalidRange)
	}
	n := copy(p, s.l.ReadBytesBlocking(off, len(p)))
	if n == len(p) {
		return n, nil
	}
	if s.l.isTornDown() {
		return n, ErrTornDown
	}
	return n, io.EOF
}

func (s loaderSource) Size() int64 {
	return s.l.Size()
}

func (s loaderSource) NotifyNonIncrementalSentinel() {
	s.l.loop.Dispatch(s.l.NotifyNonIncrementalSentinel)
}

// ParserThread is a running parser.
type ParserThread struct {
	done chan struct{}
	err  error
}

// StartParser runs p on a dedicated goroutine locked to its OS thread. A
// panic in the parser is recovered and reported by Wait.
func (l *Loader) StartParser(ctx context.Context, p Parser) *ParserThread {
	t := &ParserThread{done: make(chan struct{})}
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(t.done)
		defer func() {
			if r := recover(); r != nil {
				t.err = fmt.Errorf("parser panicked: %v", r)
			}
		}()
		t.err = p.Parse(ctx, l.Source())
	}()
	return t
}

// Done is closed when the parser returns.
func (t *ParserThread) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the parser returns and reports its error.
func (t *ParserThread) Wait() error {
	<-t.done
	return t.err
}
