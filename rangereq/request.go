package rangereq

import (
	"fmt"

	"github.com/tsawler/rangeload/fetch"
)

// Identifier names a request. Identifiers are assigned in increasing order
// starting at 1.
type Identifier uint64

// Continuation receives the bytes for a completed request. The slice is only
// valid for the duration of the call and may be shorter than requested, or
// empty, when the data does not exist or could not be obtained.
type Continuation func(data []byte)

// ViewFunc returns the bytes to hand an observer waiting on
// [offset, offset+count). It may return fewer bytes than asked for.
type ViewFunc func(offset int64, count int) []byte

// observer is one continuation waiting on a sub-window of a request.
type observer struct {
	offset int64
	count  int
	cont   Continuation
}

// Request is a single outstanding byte-range request.
type Request struct {
	id     Identifier
	offset int64
	count  int

	handle      fetch.Handle
	fetchOffset int64
	fetchCount  int
	accumulated []byte

	observers []observer
	completed bool
}

// newRequest creates a request with its first observer.
func newRequest(id Identifier, offset int64, count int, cont Continuation) *Request {
	r := &Request{
		id:     id,
		offset: offset,
		count:  count,
	}
	r.Attach(offset, count, cont)
	return r
}

// ID returns the request identifier.
func (r *Request) ID() Identifier { return r.id }

// Offset returns the first requested byte.
func (r *Request) Offset() int64 { return r.offset }

// Count returns the requested length.
func (r *Request) Count() int { return r.count }

// End returns the offset one past the last requested byte.
func (r *Request) End() int64 { return r.offset + int64(r.count) }

// String describes the request for logs.
func (r *Request) String() string {
	s := fmt.Sprintf("request %d [%d, %d)", r.id, r.offset, r.End())
	if r.handle != nil {
		s += fmt.Sprintf(" fetching [%d, %d) have %d", r.fetchOffset, r.FetchEnd(), len(r.accumulated))
	}
	return s
}

// Contains reports whether [offset, offset+count) lies inside the request.
func (r *Request) Contains(offset int64, count int) bool {
	return offset >= r.offset && count >= 0 && int64(count) <= r.End()-offset
}

// Attach adds an observer for [offset, offset+count), which must lie inside
// the request. Observers are invoked in attachment order.
func (r *Request) Attach(offset int64, count int, cont Continuation) {
	if cont == nil {
		cont = func([]byte) {}
	}
	r.observers = append(r.observers, observer{offset: offset, count: count, cont: cont})
}

// Observers returns the number of attached observers.
func (r *Request) Observers() int {
	return len(r.observers)
}

// SetFetch records the fetch serving [offset, offset+count) of this request.
func (r *Request) SetFetch(h fetch.Handle, offset int64, count int) {
	r.handle = h
	r.fetchOffset = offset
	r.fetchCount = count
	r.accumulated = r.accumulated[:0]
}

// Fetch returns the fetch handle, or nil when none is in flight.
func (r *Request) Fetch() fetch.Handle { return r.handle }

// FetchOffset returns the offset of the fetched window.
func (r *Request) FetchOffset() int64 { return r.fetchOffset }

// FetchEnd returns the offset one past the fetched window.
func (r *Request) FetchEnd() int64 { return r.fetchOffset + int64(r.fetchCount) }

// ReleaseFetch gives up ownership of the fetch handle and returns it.
// The accumulated bytes are kept.
func (r *Request) ReleaseFetch() fetch.Handle {
	h := r.handle
	r.handle = nil
	return h
}

// Accumulate appends bytes delivered by the fetch. Bytes past the fetched
// window are dropped. It returns the number of bytes kept.
func (r *Request) Accumulate(p []byte) int {
	room := r.fetchCount - len(r.accumulated)
	if room <= 0 {
		return 0
	}
	if len(p) > room {
		p = p[:room]
	}
	r.accumulated = append(r.accumulated, p...)
	return len(p)
}

// Accumulated returns the fetched bytes received so far. They start at
// FetchOffset.
func (r *Request) Accumulated() []byte { return r.accumulated }

// AccumulatedEnd returns the offset one past the last accumulated byte.
func (r *Request) AccumulatedEnd() int64 {
	return r.fetchOffset + int64(len(r.accumulated))
}

// IsComplete reports whether the request has been satisfied.
func (r *Request) IsComplete() bool { return r.completed }

// Complete invokes every observer once with the bytes view returns for its
// window. It reports false, doing nothing, when the request already completed.
// A nil view completes every observer with no data.
func (r *Request) Complete(view ViewFunc) bool {
	if r.completed {
		return false
	}
	r.completed = true

	observers := r.observers
	r.observers = nil
	r.accumulated = nil

	for _, o := range observers {
		var data []byte
		if view != nil {
			data = view(o.offset, o.count)
		}
		o.cont(data)
	}
	return true
}
