package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("rangeload.fetch")

// Transfer errors
var (
	// ErrRangeNotSatisfiable indicates the server rejected a range (HTTP 416).
	ErrRangeNotSatisfiable = errors.New("range not satisfiable")

	// ErrUnexpectedStatus indicates a response status the source cannot use.
	ErrUnexpectedStatus = errors.New("unexpected response status")

	// ErrInvalidRange indicates a negative offset or a non-positive count.
	ErrInvalidRange = errors.New("invalid byte range")
)

// DefaultChunkSize is the read size used for both kinds of transfer.
const DefaultChunkSize = 64 * 1024

// Dispatcher runs functions on the loader's run loop. Dispatch returns false
// when the loop no longer accepts work.
type Dispatcher interface {
	Dispatch(fn func()) bool
}

// Handle identifies one in-flight range fetch. Handles are compared by
// identity, so implementations must be pointer types.
type Handle interface {
	// Cancel stops the transfer. No callback for this handle runs after
	// Cancel returns.
	Cancel()

	// Range returns the window being fetched.
	Range() (offset int64, count int)
}

// RangeSink receives the results of a range fetch on the run loop.
type RangeSink interface {
	OnRangeData(h Handle, p []byte)
	OnRangeFinished(h Handle)
	OnRangeFailed(h Handle, err error)
}

// StreamSink receives the sequential stream on the run loop.
type StreamSink interface {
	OnSequentialData(p []byte)
	OnSequentialFinished()
	OnSequentialFailed(err error)
}

// RangeFetcher starts out-of-band range fetches.
type RangeFetcher interface {
	StartRangeFetch(offset int64, count int, sink RangeSink) (Handle, error)
}

// Streamer runs the sequential download. Stream blocks until the transfer
// ends or ctx is cancelled.
type Streamer interface {
	Stream(ctx context.Context, sink StreamSink) error
}

// Source is a document origin that can do both.
type Source interface {
	RangeFetcher
	Streamer
	Metadata(ctx context.Context) (Metadata, error)
}

// Metadata describes a document before it is downloaded.
type Metadata struct {
	Length       int64 // -1 when unknown
	AcceptRanges bool
	ContentType  string
}

// ByteRange represents a not-yet-fetched window of a document.
type ByteRange struct {
	Offset int64
	Count  int
}

// End returns the offset one past the last byte.
func (r ByteRange) End() int64 {
	return r.Offset + int64(r.Count)
}

// String formats the range as a half-open interval.
func (r ByteRange) String() string {
	return fmt.Sprintf("[%d, %d)", r.Offset, r.End())
}

// HeaderValue returns the HTTP Range header value for r.
func (r ByteRange) HeaderValue() string {
	return fmt.Sprintf("bytes=%d-%d", r.Offset, r.End()-1)
}

func validateRange(offset int64, count int) error {
	if offset < 0 || count <= 0 {
		return fmt.Errorf("%w: offset %d count %d", ErrInvalidRange, offset, count)
	}
	return nil
}

// fetchHandle is the Handle used by the sources in this package.
type fetchHandle struct {
	window   ByteRange
	cancel   context.CancelFunc
	canceled atomic.Bool
}

func newFetchHandle(offset int64, count int, cancel context.CancelFunc) *fetchHandle {
	return &fetchHandle{
		window: ByteRange{Offset: offset, Count: count},
		cancel: cancel,
	}
}

func (h *fetchHandle) Cancel() {
	if h.canceled.CompareAndSwap(false, true) {
		h.cancel()
	}
}

func (h *fetchHandle) Range() (int64, int) {
	return h.window.Offset, h.window.Count
}

// deliver posts fn to the run loop unless the handle was cancelled by the
// time it runs there.
func (h *fetchHandle) deliver(d Dispatcher, fn func()) {
	d.Dispatch(func() {
		if h.canceled.Load() {
			return
		}
		fn()
	})
}

// rangeReporter posts range fetch events for one handle.
type rangeReporter struct {
	handle *fetchHandle
	sink   RangeSink
	d      Dispatcher
}

func (r rangeReporter) data(p []byte) {
	chunk := append([]byte(nil), p...)
	r.handle.deliver(r.d, func() { r.sink.OnRangeData(r.handle, chunk) })
}

func (r rangeReporter) finished() {
	r.handle.deliver(r.d, func() { r.sink.OnRangeFinished(r.handle) })
}

func (r rangeReporter) failed(err error) {
	r.handle.deliver(r.d, func() { r.sink.OnRangeFailed(r.handle, err) })
}

// streamReporter posts sequential stream events.
type streamReporter struct {
	sink StreamSink
	d    Dispatcher
}

func (r streamReporter) data(p []byte) {
	chunk := append([]byte(nil), p...)
	r.d.Dispatch(func() { r.sink.OnSequentialData(chunk) })
}

func (r streamReporter) finished() {
	r.d.Dispatch(r.sink.OnSequentialFinished)
}

func (r streamReporter) failed(err error) {
	r.d.Dispatch(func() { r.sink.OnSequentialFailed(err) })
}
