package loader

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/tliron/commonlog"

	"github.com/tsawler/rangeload/buffer"
	"github.com/tsawler/rangeload/fetch"
	"github.com/tsawler/rangeload/rangereq"
	"github.com/tsawler/rangeload/runloop"
)

var log = commonlog.GetLogger("rangeload.loader")

// Loader serves byte ranges of a document that is still arriving.
//
// Methods other than ReadBytesBlocking, ReadRangesBlocking, StartParser,
// Stats, Close and Mode must be called on the run loop. The fetch.RangeSink and
// fetch.StreamSink methods are called there by the fetch package.
type Loader struct {
	loop    *runloop.RunLoop
	fetcher fetch.RangeFetcher
	cfg     Config
	host    weak.Pointer[HostLink]

	buf      *buffer.Buffer
	requests *rangereq.Registry
	mode     *ModeController

	// failed is set once no more data can arrive: the stream failed or the
	// loader was torn down. Later requests resolve empty at once.
	failed   bool
	tornDown bool

	// size is the known document length, or -1.
	size atomic.Int64

	// frozen holds the whole document once the stream finished. It is never
	// written again and may be read from any goroutine.
	frozen atomic.Pointer[[]byte]

	done     chan struct{}
	doneOnce sync.Once

	stats counters
}

// New creates a loader on loop. fetcher may be nil when the origin cannot
// serve ranges; requests then wait for the sequential stream.
func New(loop *runloop.RunLoop, fetcher fetch.RangeFetcher, cfg Config) *Loader {
	l := &Loader{
		loop:     loop,
		fetcher:  fetcher,
		cfg:      cfg,
		buf:      buffer.New(cfg.capacityHint()),
		requests: rangereq.NewRegistry(),
		mode:     NewModeController(),
		done:     make(chan struct{}),
	}
	if cfg.ExpectedLength > 0 {
		l.size.Store(cfg.ExpectedLength)
	} else {
		l.size.Store(-1)
	}
	return l
}

// Loop returns the run loop the loader lives on.
func (l *Loader) Loop() *runloop.RunLoop {
	return l.loop
}

// Mode returns the mode controller. Safe from any goroutine.
func (l *Loader) Mode() *ModeController {
	return l.mode
}

// IsComplete reports whether the loader reached Complete.
func (l *Loader) IsComplete() bool {
	return l.mode.IsComplete()
}

// Size returns the known document length, or -1. Safe from any goroutine.
func (l *Loader) Size() int64 {
	return l.size.Load()
}

// Available returns the length of the contiguous prefix held in the buffer.
func (l *Loader) Available() int64 {
	return l.buf.Available()
}

// Snapshot returns a copy of every available byte.
func (l *Loader) Snapshot() []byte {
	return append([]byte(nil), l.buf.Bytes()...)
}

// Done is closed when the loader is torn down.
func (l *Loader) Done() <-chan struct{} {
	return l.done
}

// RequestBytes asks for [offset, offset+count). cont runs exactly once on the
// run loop, either before RequestBytes returns (the bytes are already here, or
// can never arrive) or later when a fetch or the stream covers the range. The
// data passed to cont may be shorter than count, or empty, when the document
// ends early or the bytes could not be loaded.
func (l *Loader) RequestBytes(offset int64, count int, cont rangereq.Continuation) {
	if cont == nil {
		return
	}
	if offset < 0 || count <= 0 || offset > math.MaxInt64-int64(count) || l.failed {
		cont(nil)
		return
	}

	if l.buf.Covers(offset, count) {
		data, _ := l.buf.Read(offset, count)
		l.stats.completed.Add(1)
		cont(data)
		return
	}

	if !l.mode.IsIncremental() {
		// Complete, or draining on the way there: the buffer is all there is.
		l.stats.completed.Add(1)
		cont(l.buf.ReadAvailable(offset, count))
		return
	}

	if size := l.size.Load(); size >= 0 && offset >= size {
		l.stats.completed.Add(1)
		cont(nil)
		return
	}

	if r, ok := l.requests.FindContaining(offset, count); ok {
		log.Debugf("coalescing [%d, %d) into %s", offset, offset+int64(count), r)
		r.Attach(offset, count, cont)
		l.stats.coalesced.Add(1)
		return
	}

	r := l.requests.Create(offset, count, cont)
	l.stats.pending.Store(int64(l.requests.Len()))
	if l.satisfy(r) {
		return
	}
	l.startFetch(r)
}

// startFetch issues a range fetch for the part of r the buffer lacks.
func (l *Loader) startFetch(r *rangereq.Request) {
	if l.fetcher == nil {
		log.Debugf("%s waits for the stream", r)
		return
	}

	offset := l.fetchStart(r)
	end := l.clip(r.End())
	if minFetch := int64(l.cfg.MinimumFetchSize); end-offset < minFetch {
		end = l.clip(offset + minFetch)
	}
	if end <= offset {
		return
	}
	count := int(end - offset)

	h, err := l.fetcher.StartRangeFetch(offset, count, l)
	if err != nil {
		log.Warningf("%s: %s: %s", r, ErrRangeUnavailable, err)
		return
	}
	l.stats.fetchesIssued.Add(1)
	if h == nil {
		// The fetcher reports the handle later through FetchDidStart.
		r.SetFetch(nil, offset, count)
		return
	}
	r.SetFetch(h, offset, count)
	l.requests.BindFetch(r.ID(), h)
	log.Debugf("%s: fetch started", r)
}

// fetchStart returns where a fetch for r begins: past the available prefix
// and past any pending fetch that starts within the prefix and overlaps r.
// Those fetches are spliced into the buffer when they land, so r only needs
// the bytes after them.
func (l *Loader) fetchStart(r *rangereq.Request) int64 {
	available := l.buf.Available()
	offset := max(r.Offset(), available)
	for moved := true; moved; {
		moved = false
		for _, o := range l.requests.Pending() {
			if o == r || o.Fetch() == nil || o.FetchOffset() > available {
				continue
			}
			// A request releases its fetch once its own window is in.
			end := min(o.FetchEnd(), o.End())
			if o.FetchOffset() <= offset && offset < end {
				offset = end
				moved = true
			}
		}
	}
	return offset
}

// FetchDidStart binds a handle to request id for fetchers that start
// asynchronously. A handle for a request that no longer exists is cancelled.
func (l *Loader) FetchDidStart(id rangereq.Identifier, h fetch.Handle) {
	if h == nil {
		return
	}
	r, ok := l.requests.Get(id)
	if !ok || l.tornDown || !l.mode.IsIncremental() {
		h.Cancel()
		return
	}
	if old := r.Fetch(); old != nil && old != h {
		l.requests.CancelAndForgetFetch(old)
	}
	offset, count := h.Range()
	r.SetFetch(h, offset, count)
	l.requests.BindFetch(id, h)
}

// clip limits end to the known document length.
func (l *Loader) clip(end int64) int64 {
	if size := l.size.Load(); size >= 0 && end > size {
		return size
	}
	return end
}

// satisfy completes r if the buffer, together with the bytes its fetch has
// delivered, covers it. It reports whether r completed.
func (l *Loader) satisfy(r *rangereq.Request) bool {
	if r.IsComplete() {
		return true
	}
	end := l.clip(r.End())

	if l.buf.Available() >= end {
		l.finish(r, false, l.view)
		return true
	}

	fetched := r.Accumulated()
	if len(fetched) == 0 || r.AccumulatedEnd() < end {
		return false
	}
	if r.FetchOffset() > max(r.Offset(), l.buf.Available()) {
		return false
	}

	view := l.fetchedView(r.FetchOffset(), fetched)
	spliced := l.splice(r)
	l.finish(r, true, view)
	if spliced {
		l.satisfyPending()
	}
	return true
}

// splice moves the bytes fetched for r into the buffer when they touch the
// available prefix. It reports whether the buffer grew.
func (l *Loader) splice(r *rangereq.Request) bool {
	if len(r.Accumulated()) == 0 || r.FetchOffset() > l.buf.Available() {
		return false
	}
	if l.buf.Splice(r.FetchOffset(), r.Accumulated()) == 0 {
		return false
	}
	l.publishProgress()
	return true
}

// fetchedView serves observers from whichever of the buffer and the fetched
// bytes, which start at start, holds more of their window.
func (l *Loader) fetchedView(start int64, fetched []byte) rangereq.ViewFunc {
	return func(offset int64, count int) []byte {
		buffered := l.buf.ReadAvailable(offset, count)
		if len(buffered) == count || len(fetched) == 0 || offset < start {
			return buffered
		}
		lo := offset - start
		if lo >= int64(len(fetched)) {
			return buffered
		}
		hi := min(lo+int64(count), int64(len(fetched)))
		if hi-lo <= int64(len(buffered)) {
			return buffered
		}
		return fetched[lo:hi:hi]
	}
}

// finish unregisters r and delivers its data through view.
func (l *Loader) finish(r *rangereq.Request, network bool, view rangereq.ViewFunc) {
	l.requests.Remove(r.ID())
	l.stats.pending.Store(int64(l.requests.Len()))
	if h := r.ReleaseFetch(); h != nil {
		if !network && l.cfg.CancelRedundantFetches {
			log.Debugf("%s covered by the stream, cancelling fetch", r)
			h.Cancel()
		}
		l.requests.ForgetFetch(h)
	}

	if r.Complete(view) {
		l.stats.completed.Add(1)
		if network {
			l.stats.completedNetwork.Add(1)
		}
	}
}

// resolve completes r early through view; a nil view resolves it empty.
func (l *Loader) resolve(r *rangereq.Request, view rangereq.ViewFunc) {
	l.requests.Remove(r.ID())
	if h := r.ReleaseFetch(); h != nil {
		l.requests.CancelAndForgetFetch(h)
	}
	if r.Complete(view) {
		l.stats.completed.Add(1)
	}
}

// resolveAll force-resolves every pending request with the best bytes
// available, or with nothing when empty is set.
func (l *Loader) resolveAll(empty bool) {
	for _, r := range l.requests.Pending() {
		var view rangereq.ViewFunc
		if !empty {
			view = l.fetchedView(r.FetchOffset(), r.Accumulated())
			l.splice(r)
		}
		l.resolve(r, view)
	}
	l.stats.pending.Store(int64(l.requests.Len()))
}

// satisfyPending completes every pending request the buffer now covers.
func (l *Loader) satisfyPending() {
	if l.requests.Len() == 0 {
		return
	}
	for _, r := range l.requests.Pending() {
		l.satisfy(r)
	}
}

func (l *Loader) view(offset int64, count int) []byte {
	return l.buf.ReadAvailable(offset, count)
}

// OnRangeData accumulates fetched bytes for the request that owns h.
func (l *Loader) OnRangeData(h fetch.Handle, p []byte) {
	r, ok := l.requests.RequestForFetch(h)
	if !ok {
		l.stats.discarded.Add(int64(len(p)))
		return
	}
	r.Accumulate(p)
	l.satisfy(r)
}

// OnRangeFinished handles the end of a range fetch. A fetch that ended short
// of its window means the document ends there; the request resolves with what
// exists.
func (l *Loader) OnRangeFinished(h fetch.Handle) {
	r, ok := l.requests.RequestForFetch(h)
	if !ok {
		return
	}
	if l.satisfy(r) {
		return
	}

	log.Infof("%s: fetch ended short, resolving with what arrived", r)
	view := l.fetchedView(r.FetchOffset(), r.Accumulated())
	spliced := l.splice(r)
	r.ReleaseFetch()
	l.requests.ForgetFetch(h)
	l.resolve(r, view)
	l.stats.pending.Store(int64(l.requests.Len()))
	if spliced {
		l.satisfyPending()
	}
}

// OnRangeFailed handles a failed range fetch. The request stays pending so
// the sequential stream can still satisfy it.
func (l *Loader) OnRangeFailed(h fetch.Handle, err error) {
	r, ok := l.requests.RequestForFetch(h)
	if !ok {
		return
	}
	r.ReleaseFetch()
	l.requests.ForgetFetch(h)
	log.Warningf("%s: %s: %s", r, ErrRangeUnavailable, err)

	if !l.mode.IsIncremental() || l.failed {
		l.resolve(r, nil)
		l.stats.pending.Store(int64(l.requests.Len()))
	}
}

// Clear tears the loader down: fetches are cancelled, pending requests
// resolve empty, and any goroutine parked in ReadBytesBlocking is released.
// Later calls do nothing.
func (l *Loader) Clear() {
	if l.tornDown {
		return
	}
	l.tornDown = true
	l.failed = true
	log.Info("tearing down")

	began := l.mode.Begin(ReasonTornDown)
	for _, r := range l.requests.Clear() {
		if h := r.ReleaseFetch(); h != nil {
			h.Cancel()
		}
		if r.Complete(nil) {
			l.stats.completed.Add(1)
		}
	}
	l.stats.pending.Store(0)
	if began {
		l.mode.Finish()
	}
	l.closeDone()
	if began {
		l.notifyHost(ReasonTornDown)
	}
}

// Close tears the loader down from any goroutine. When the loop no longer
// runs, Clear runs on the caller.
func (l *Loader) Close() {
	if l.loop.IsCurrent() {
		l.Clear()
		return
	}
	if !l.loop.Dispatch(l.Clear) {
		l.Clear()
	}
}

func (l *Loader) closeDone() {
	l.doneOnce.Do(func() { close(l.done) })
}

func (l *Loader) isTornDown() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// String describes the loader for logs.
func (l *Loader) String() string {
	return fmt.Sprintf("loader %s available=%d streamed=%d pending=%d",
		l.mode.State(), l.buf.Available(), l.buf.Streamed(), l.requests.Len())
}
