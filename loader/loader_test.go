package loader

import (
	"bytes"
	"errors"
	"math"
	"runtime"
	"testing"

	"github.com/tsawler/rangeload/fetch"
	"github.com/tsawler/rangeload/rangereq"
	"github.com/tsawler/rangeload/runloop"
)

type fakeHandle struct {
	offset   int64
	count    int
	canceled bool
}

func (h *fakeHandle) Cancel()             { h.canceled = true }
func (h *fakeHandle) Range() (int64, int) { return h.offset, h.count }

type fakeFetcher struct {
	fetches []*fakeHandle
	err     error
	async   bool
}

func (f *fakeFetcher) StartRangeFetch(offset int64, count int, _ fetch.RangeSink) (fetch.Handle, error) {
	if f.err != nil {
		return nil, f.err
	}
	h := &fakeHandle{offset: offset, count: count}
	f.fetches = append(f.fetches, h)
	if f.async {
		return nil, nil
	}
	return h, nil
}

func (f *fakeFetcher) last() *fakeHandle {
	if len(f.fetches) == 0 {
		return nil
	}
	return f.fetches[len(f.fetches)-1]
}

type result struct {
	calls int
	data  []byte
}

func (r *result) cont() rangereq.Continuation {
	return func(p []byte) {
		r.calls++
		r.data = append([]byte(nil), p...)
	}
}

type recordingHost struct {
	reasons []TransitionReason
}

func (h *recordingHost) LoaderDidTransition(reason TransitionReason) {
	h.reasons = append(h.reasons, reason)
}

func makeDoc(n int) []byte {
	doc := make([]byte, n)
	for i := range doc {
		doc[i] = byte(i % 251)
	}
	return doc
}

func newTestLoader(cfg Config) (*Loader, *fakeFetcher) {
	f := &fakeFetcher{}
	return New(runloop.New(), f, cfg), f
}

func TestRequestBytesServedFromBuffer(t *testing.T) {
	doc := makeDoc(1000)
	l, f := newTestLoader(DefaultConfig())
	l.OnSequentialData(doc[:200])

	var r result
	l.RequestBytes(10, 20, r.cont())

	if r.calls != 1 {
		t.Fatalf("calls = %d, want 1", r.calls)
	}
	if !bytes.Equal(r.data, doc[10:30]) {
		t.Errorf("data = %v, want %v", r.data, doc[10:30])
	}
	if len(f.fetches) != 0 {
		t.Errorf("fetches = %d, want 0", len(f.fetches))
	}
}

func TestRequestBytesInvalidArguments(t *testing.T) {
	tests := []struct {
		name   string
		offset int64
		count  int
	}{
		{"zero count", 10, 0},
		{"negative count", 10, -1},
		{"negative offset", -1, 10},
		{"end overflows", math.MaxInt64 - 2, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, f := newTestLoader(DefaultConfig())
			var r result
			l.RequestBytes(tt.offset, tt.count, r.cont())
			if r.calls != 1 || len(r.data) != 0 {
				t.Errorf("calls = %d, len = %d; want one empty call", r.calls, len(r.data))
			}
			if len(f.fetches) != 0 {
				t.Errorf("fetches = %d, want 0", len(f.fetches))
			}
		})
	}
}

func TestRequestBytesFetchesMissingTail(t *testing.T) {
	doc := makeDoc(1000)
	l, f := newTestLoader(DefaultConfig())
	l.OnSequentialData(doc[:100])

	var r result
	l.RequestBytes(50, 80, r.cont())

	if r.calls != 0 {
		t.Fatalf("request completed early")
	}
	h := f.last()
	if h == nil {
		t.Fatal("no fetch issued")
	}
	if h.offset != 100 || h.count != 30 {
		t.Errorf("fetch = [%d, %d), want [100, 130)", h.offset, h.offset+int64(h.count))
	}

	// The stream overtakes the fetch.
	l.OnSequentialData(doc[100:150])

	if r.calls != 1 {
		t.Fatalf("calls = %d, want 1", r.calls)
	}
	if !bytes.Equal(r.data, doc[50:130]) {
		t.Errorf("data mismatch")
	}
	if !h.canceled {
		t.Error("redundant fetch was not cancelled")
	}

	// A late delivery for the cancelled fetch is discarded.
	l.OnRangeData(h, doc[100:130])
	l.OnRangeFinished(h)
	if r.calls != 1 {
		t.Errorf("calls = %d after late delivery, want 1", r.calls)
	}
	s := l.Stats()
	if s.DiscardedFetchBytes != 30 {
		t.Errorf("DiscardedFetchBytes = %d, want 30", s.DiscardedFetchBytes)
	}
	if s.CompletedNetworkRangeRequests != 0 {
		t.Errorf("CompletedNetworkRangeRequests = %d, want 0", s.CompletedNetworkRangeRequests)
	}
}

func TestRangeFetchWins(t *testing.T) {
	doc := makeDoc(1000)
	l, f := newTestLoader(DefaultConfig())
	l.OnSequentialData(doc[:100])

	var r result
	l.RequestBytes(50, 80, r.cont())
	h := f.last()

	l.OnRangeData(h, doc[100:115])
	if r.calls != 0 {
		t.Fatal("completed on partial fetch data")
	}
	l.OnRangeData(h, doc[115:130])

	if r.calls != 1 || !bytes.Equal(r.data, doc[50:130]) {
		t.Fatalf("calls = %d, data ok = %v", r.calls, bytes.Equal(r.data, doc[50:130]))
	}
	if l.Available() != 130 {
		t.Errorf("Available = %d, want 130", l.Available())
	}
	if h.canceled {
		t.Error("winning fetch was cancelled")
	}

	// The stream catches up without disturbing anything.
	l.OnSequentialData(doc[100:150])
	l.OnRangeFinished(h)
	if r.calls != 1 {
		t.Errorf("calls = %d, want 1", r.calls)
	}
	if l.Available() != 150 {
		t.Errorf("Available = %d, want 150", l.Available())
	}
	if got := l.Stats().CompletedNetworkRangeRequests; got != 1 {
		t.Errorf("CompletedNetworkRangeRequests = %d, want 1", got)
	}
	if !bytes.Equal(l.Snapshot(), doc[:150]) {
		t.Error("buffer contents corrupted")
	}
}

func TestRequestBytesCoalesces(t *testing.T) {
	doc := makeDoc(1000)
	l, f := newTestLoader(DefaultConfig())

	var order []int
	var first, second []byte
	l.RequestBytes(200, 100, func(p []byte) {
		order = append(order, 1)
		first = append([]byte(nil), p...)
	})
	l.RequestBytes(220, 50, func(p []byte) {
		order = append(order, 2)
		second = append([]byte(nil), p...)
	})

	if len(f.fetches) != 1 {
		t.Fatalf("fetches = %d, want 1", len(f.fetches))
	}
	h := f.last()
	if h.offset != 200 || h.count != 100 {
		t.Errorf("fetch = [%d, %d), want [200, 300)", h.offset, h.offset+int64(h.count))
	}

	l.OnRangeData(h, doc[200:300])

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("order = %v, want [1 2]", order)
	}
	if !bytes.Equal(first, doc[200:300]) {
		t.Error("first observer got wrong bytes")
	}
	if !bytes.Equal(second, doc[220:270]) {
		t.Error("second observer got wrong bytes")
	}
	if got := l.Stats().CoalescedRequests; got != 1 {
		t.Errorf("CoalescedRequests = %d, want 1", got)
	}
	if l.Available() != 0 {
		t.Errorf("Available = %d; bytes past a gap must not enter the buffer", l.Available())
	}
}

func TestPartialOverlapStartsSecondRequest(t *testing.T) {
	l, f := newTestLoader(DefaultConfig())

	var a, b result
	l.RequestBytes(200, 100, a.cont())
	l.RequestBytes(250, 100, b.cont())

	if len(f.fetches) != 2 {
		t.Errorf("fetches = %d, want 2", len(f.fetches))
	}
	if l.requests.Len() != 2 {
		t.Errorf("pending = %d, want 2", l.requests.Len())
	}
}

func TestPartialOverlapFetchesOnlyTheGap(t *testing.T) {
	doc := makeDoc(1000)

	for _, order := range []string{"first fetch lands first", "second fetch lands first"} {
		t.Run(order, func(t *testing.T) {
			l, f := newTestLoader(DefaultConfig())
			l.OnSequentialData(doc[:100])

			var a, b result
			l.RequestBytes(100, 100, a.cont())
			l.RequestBytes(150, 100, b.cont())

			if len(f.fetches) != 2 {
				t.Fatalf("fetches = %d, want 2", len(f.fetches))
			}
			if h := f.fetches[1]; h.offset != 200 || h.count != 50 {
				t.Fatalf("second fetch = [%d, +%d), want [200, +50)", h.offset, h.count)
			}

			if order == "first fetch lands first" {
				l.OnRangeData(f.fetches[0], doc[100:200])
				l.OnRangeData(f.fetches[1], doc[200:250])
			} else {
				l.OnRangeData(f.fetches[1], doc[200:250])
				if b.calls != 0 {
					t.Fatal("b completed before the bytes before its fetch arrived")
				}
				l.OnRangeData(f.fetches[0], doc[100:200])
			}

			if a.calls != 1 || !bytes.Equal(a.data, doc[100:200]) {
				t.Errorf("a: calls = %d len = %d", a.calls, len(a.data))
			}
			if b.calls != 1 || !bytes.Equal(b.data, doc[150:250]) {
				t.Errorf("b: calls = %d len = %d", b.calls, len(b.data))
			}
			if l.Available() != 250 {
				t.Errorf("Available = %d, want 250", l.Available())
			}
		})
	}
}

func TestOverlapInsidePendingFetchWaitsForIt(t *testing.T) {
	doc := makeDoc(1000)
	cfg := DefaultConfig()
	cfg.MinimumFetchSize = 200
	l, f := newTestLoader(cfg)
	l.OnSequentialData(doc[:100])

	var a, b result
	l.RequestBytes(100, 150, a.cont())
	l.RequestBytes(120, 140, b.cont())

	// a's fetch brings [100, 300) but is released once a's window is in, so
	// b still fetches from 250.
	if len(f.fetches) != 2 || f.fetches[1].offset != 250 {
		t.Fatalf("fetches = %d, want the second starting at 250", len(f.fetches))
	}

	l.OnRangeData(f.fetches[0], doc[100:300])
	if a.calls != 1 {
		t.Fatalf("a calls = %d", a.calls)
	}
	if b.calls != 1 || !bytes.Equal(b.data, doc[120:260]) {
		t.Errorf("b: calls = %d len = %d", b.calls, len(b.data))
	}
}

func TestExpectedLengthDoesNotPreallocate(t *testing.T) {
	doc := makeDoc(1000)
	cfg := DefaultConfig()
	cfg.ExpectedLength = 1 << 50
	l, _ := newTestLoader(cfg)

	if got := l.buf.Cap(); got > maxCapacityHint {
		t.Errorf("buffer capacity = %d, want at most %d", got, maxCapacityHint)
	}
	if l.Size() != 1<<50 {
		t.Errorf("Size = %d", l.Size())
	}

	l.OnSequentialData(doc)
	var r result
	l.RequestBytes(900, 100, r.cont())
	if r.calls != 1 || !bytes.Equal(r.data, doc[900:]) {
		t.Errorf("calls = %d len = %d", r.calls, len(r.data))
	}
}

func TestNestedRequestFromContinuation(t *testing.T) {
	doc := makeDoc(1000)
	l, _ := newTestLoader(DefaultConfig())

	var inner result
	outerCalls := 0
	l.RequestBytes(0, 10, func([]byte) {
		outerCalls++
		l.RequestBytes(5, 10, inner.cont())
	})
	l.OnSequentialData(doc[:20])

	if outerCalls != 1 || inner.calls != 1 {
		t.Fatalf("outer = %d, inner = %d; want 1, 1", outerCalls, inner.calls)
	}
	if !bytes.Equal(inner.data, doc[5:15]) {
		t.Error("inner data mismatch")
	}
}

func TestNoFetchAfterFinished(t *testing.T) {
	doc := makeDoc(1000)
	l, f := newTestLoader(DefaultConfig())
	host := &recordingHost{}
	link := NewHostLink(host)
	l.SetHost(link)

	l.OnSequentialData(doc)
	l.OnSequentialFinished()

	if !l.IsComplete() || l.Mode().Reason() != ReasonFinished {
		t.Fatalf("mode = %s/%s, want Complete/Finished", l.Mode().State(), l.Mode().Reason())
	}

	var r result
	l.RequestBytes(990, 50, r.cont())
	if r.calls != 1 || !bytes.Equal(r.data, doc[990:]) {
		t.Errorf("got %d bytes in %d calls, want the last 10 once", len(r.data), r.calls)
	}
	var past result
	l.RequestBytes(2000, 10, past.cont())
	if past.calls != 1 || len(past.data) != 0 {
		t.Errorf("read past end: calls = %d len = %d", past.calls, len(past.data))
	}
	if len(f.fetches) != 0 {
		t.Errorf("fetches = %d, want 0", len(f.fetches))
	}
	if l.Size() != 1000 {
		t.Errorf("Size = %d, want 1000", l.Size())
	}
	if len(host.reasons) != 1 || host.reasons[0] != ReasonFinished {
		t.Errorf("host saw %v", host.reasons)
	}
	runtime.KeepAlive(link)
}

func TestFinishResolvesPendingTruncated(t *testing.T) {
	doc := makeDoc(1000)
	l, f := newTestLoader(DefaultConfig())
	l.OnSequentialData(doc[:100])

	var r result
	l.RequestBytes(90, 50, r.cont())
	h := f.last()

	l.OnSequentialData(doc[100:120])
	l.OnSequentialFinished()

	if r.calls != 1 {
		t.Fatalf("calls = %d, want 1", r.calls)
	}
	if !bytes.Equal(r.data, doc[90:120]) {
		t.Errorf("data len = %d, want 30", len(r.data))
	}
	if !h.canceled {
		t.Error("fetch not cancelled")
	}
	if l.requests.Len() != 0 || l.requests.FetchCount() != 0 {
		t.Errorf("registry not empty: %d requests, %d fetches", l.requests.Len(), l.requests.FetchCount())
	}
}

func TestSentinelForcesComplete(t *testing.T) {
	doc := makeDoc(1000)
	l, f := newTestLoader(DefaultConfig())
	host := &recordingHost{}
	link := NewHostLink(host)
	l.SetHost(link)
	l.OnSequentialData(doc[:100])

	var far, near result
	l.RequestBytes(500, 10, far.cont())
	l.RequestBytes(80, 40, near.cont())
	fetches := len(f.fetches)

	l.NotifyNonIncrementalSentinel()

	if !l.IsComplete() || l.Mode().Reason() != ReasonSentinel {
		t.Fatalf("mode = %s/%s", l.Mode().State(), l.Mode().Reason())
	}
	if far.calls != 1 || len(far.data) != 0 {
		t.Errorf("far: calls = %d len = %d, want one empty call", far.calls, len(far.data))
	}
	if near.calls != 1 || !bytes.Equal(near.data, doc[80:100]) {
		t.Errorf("near: calls = %d len = %d, want best available prefix", near.calls, len(near.data))
	}
	for _, h := range f.fetches {
		if !h.canceled {
			t.Errorf("fetch [%d, +%d) not cancelled", h.offset, h.count)
		}
	}

	// Repeated notification is ignored.
	l.NotifyNonIncrementalSentinel()
	if len(host.reasons) != 1 || host.reasons[0] != ReasonSentinel {
		t.Errorf("host saw %v", host.reasons)
	}

	// The stream keeps filling the buffer; nothing is fetched anymore.
	l.OnSequentialData(doc[100:300])
	var later result
	l.RequestBytes(250, 100, later.cont())
	if later.calls != 1 || !bytes.Equal(later.data, doc[250:300]) {
		t.Errorf("later: calls = %d len = %d", later.calls, len(later.data))
	}
	if len(f.fetches) != fetches {
		t.Errorf("fetches grew from %d to %d", fetches, len(f.fetches))
	}

	// A later finish still freezes the document but does not re-transition.
	l.OnSequentialData(doc[300:])
	l.OnSequentialFinished()
	if l.Mode().Reason() != ReasonSentinel {
		t.Errorf("reason changed to %s", l.Mode().Reason())
	}
	if len(host.reasons) != 1 {
		t.Errorf("host notified %d times", len(host.reasons))
	}
	if data, ok := l.readFrozen(0, 1000); !ok || !bytes.Equal(data, doc) {
		t.Error("document not frozen after finish")
	}
	runtime.KeepAlive(link)
}

func TestStreamFailureResolvesEmpty(t *testing.T) {
	doc := makeDoc(1000)
	l, _ := newTestLoader(DefaultConfig())
	l.OnSequentialData(doc[:100])

	var r result
	l.RequestBytes(90, 50, r.cont())
	l.OnSequentialFailed(errors.New("connection reset"))

	if r.calls != 1 || len(r.data) != 0 {
		t.Errorf("pending: calls = %d len = %d, want one empty call", r.calls, len(r.data))
	}
	if l.Mode().Reason() != ReasonFailed || !errors.Is(l.Mode().Reason().Err(), ErrStreamFailed) {
		t.Errorf("reason = %s", l.Mode().Reason())
	}

	// Everything afterward fails at once, even bytes already buffered.
	var after result
	l.RequestBytes(0, 10, after.cont())
	if after.calls != 1 || len(after.data) != 0 {
		t.Errorf("after: calls = %d len = %d, want one empty call", after.calls, len(after.data))
	}
}

func TestRangeFailureWaitsForStream(t *testing.T) {
	doc := makeDoc(1000)
	l, f := newTestLoader(DefaultConfig())

	var r result
	l.RequestBytes(100, 50, r.cont())
	h := f.last()
	l.OnRangeFailed(h, errors.New("503"))

	if r.calls != 0 {
		t.Fatal("request resolved on fetch failure while the stream is live")
	}
	if l.requests.FetchCount() != 0 {
		t.Error("failed fetch still bound")
	}

	l.OnSequentialData(doc[:200])
	if r.calls != 1 || !bytes.Equal(r.data, doc[100:150]) {
		t.Errorf("calls = %d len = %d", r.calls, len(r.data))
	}
}

func TestStartFetchErrorWaitsForStream(t *testing.T) {
	doc := makeDoc(1000)
	l, f := newTestLoader(DefaultConfig())
	f.err = errors.New("no ranges")

	var r result
	l.RequestBytes(0, 10, r.cont())
	if r.calls != 0 {
		t.Fatal("completed without data")
	}
	l.OnSequentialData(doc[:10])
	if r.calls != 1 {
		t.Errorf("calls = %d, want 1", r.calls)
	}
}

func TestShortRangeResponseResolvesTruncated(t *testing.T) {
	doc := makeDoc(130)
	l, f := newTestLoader(DefaultConfig())
	l.OnSequentialData(doc[:100])

	var r result
	l.RequestBytes(100, 100, r.cont())
	h := f.last()
	l.OnRangeData(h, doc[100:130])
	l.OnRangeFinished(h)

	if r.calls != 1 || !bytes.Equal(r.data, doc[100:130]) {
		t.Errorf("calls = %d len = %d, want 30 bytes once", r.calls, len(r.data))
	}
	if l.Available() != 130 {
		t.Errorf("Available = %d, want 130", l.Available())
	}
}

func TestExpectedLengthClipsRequests(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExpectedLength = 1000
	l, f := newTestLoader(cfg)

	var r result
	l.RequestBytes(980, 100, r.cont())
	h := f.last()
	if h == nil || h.offset != 980 || h.count != 20 {
		t.Fatalf("fetch = %+v, want [980, 1000)", h)
	}

	var past result
	l.RequestBytes(1000, 10, past.cont())
	if past.calls != 1 || len(past.data) != 0 {
		t.Errorf("past end: calls = %d len = %d", past.calls, len(past.data))
	}

	doc := makeDoc(1000)
	l.OnRangeData(h, doc[980:])
	if r.calls != 1 || !bytes.Equal(r.data, doc[980:]) {
		t.Errorf("calls = %d len = %d, want the last 20 bytes", r.calls, len(r.data))
	}
}

func TestMinimumFetchSize(t *testing.T) {
	doc := makeDoc(1000)
	cfg := DefaultConfig()
	cfg.MinimumFetchSize = 64
	l, f := newTestLoader(cfg)
	l.OnSequentialData(doc[:10])

	var r result
	l.RequestBytes(10, 4, r.cont())
	h := f.last()
	if h.offset != 10 || h.count != 64 {
		t.Fatalf("fetch = [%d, +%d), want [10, +64)", h.offset, h.count)
	}

	l.OnRangeData(h, doc[10:74])
	if r.calls != 1 || !bytes.Equal(r.data, doc[10:14]) {
		t.Errorf("calls = %d len = %d", r.calls, len(r.data))
	}
	if l.Available() != 74 {
		t.Errorf("Available = %d, want 74", l.Available())
	}
}

func TestSplicedFetchSatisfiesOtherRequests(t *testing.T) {
	doc := makeDoc(1000)
	l, f := newTestLoader(DefaultConfig())

	var a, b result
	l.RequestBytes(300, 10, a.cont())
	l.RequestBytes(0, 400, b.cont())
	if len(f.fetches) != 2 {
		t.Fatalf("fetches = %d, want 2", len(f.fetches))
	}

	// The second, wider fetch lands first and covers both.
	l.OnRangeData(f.fetches[1], doc[:400])
	if a.calls != 1 || b.calls != 1 {
		t.Fatalf("a = %d, b = %d calls", a.calls, b.calls)
	}
	if !bytes.Equal(a.data, doc[300:310]) {
		t.Error("a data mismatch")
	}
	if !f.fetches[0].canceled {
		t.Error("first fetch not cancelled")
	}
}

func TestFetchDidStartBindsLateHandle(t *testing.T) {
	doc := makeDoc(1000)
	l, f := newTestLoader(DefaultConfig())
	f.async = true

	var r result
	l.RequestBytes(0, 50, r.cont())
	pending := l.requests.Pending()
	if len(pending) != 1 {
		t.Fatalf("pending = %d", len(pending))
	}
	h := f.last()
	l.FetchDidStart(pending[0].ID(), h)

	l.OnRangeData(h, doc[:50])
	if r.calls != 1 || !bytes.Equal(r.data, doc[:50]) {
		t.Errorf("calls = %d len = %d", r.calls, len(r.data))
	}

	stray := &fakeHandle{offset: 0, count: 10}
	l.FetchDidStart(rangereq.Identifier(99), stray)
	if !stray.canceled {
		t.Error("handle for unknown request not cancelled")
	}
}

func TestNilFetcherWaitsForStream(t *testing.T) {
	doc := makeDoc(1000)
	l := New(runloop.New(), nil, DefaultConfig())

	var r result
	l.RequestBytes(100, 10, r.cont())
	if r.calls != 0 {
		t.Fatal("completed without data")
	}
	l.OnSequentialData(doc[:50])
	l.OnSequentialData(doc[50:110])
	if r.calls != 1 || !bytes.Equal(r.data, doc[100:110]) {
		t.Errorf("calls = %d len = %d", r.calls, len(r.data))
	}
}

func TestClearTearsDown(t *testing.T) {
	doc := makeDoc(1000)
	l, f := newTestLoader(DefaultConfig())
	host := &recordingHost{}
	link := NewHostLink(host)
	l.SetHost(link)
	l.OnSequentialData(doc[:100])

	var r result
	l.RequestBytes(500, 10, r.cont())
	h := f.last()

	l.Clear()

	if r.calls != 1 || len(r.data) != 0 {
		t.Errorf("calls = %d len = %d, want one empty call", r.calls, len(r.data))
	}
	if !h.canceled {
		t.Error("fetch not cancelled")
	}
	select {
	case <-l.Done():
	default:
		t.Error("Done not closed")
	}
	if l.Mode().Reason() != ReasonTornDown {
		t.Errorf("reason = %s", l.Mode().Reason())
	}

	var after result
	l.RequestBytes(0, 10, after.cont())
	if after.calls != 1 || len(after.data) != 0 {
		t.Errorf("after clear: calls = %d len = %d", after.calls, len(after.data))
	}

	// Callbacks racing teardown are ignored.
	l.OnSequentialData(doc[100:200])
	l.OnRangeData(h, doc[500:510])
	l.OnSequentialFinished()
	l.Clear()

	if len(host.reasons) != 1 || host.reasons[0] != ReasonTornDown {
		t.Errorf("host saw %v", host.reasons)
	}
	runtime.KeepAlive(link)
}

func TestClearAfterCompleteKeepsReason(t *testing.T) {
	doc := makeDoc(100)
	l, _ := newTestLoader(DefaultConfig())
	l.OnSequentialData(doc)
	l.OnSequentialFinished()
	l.Clear()

	if l.Mode().Reason() != ReasonFinished {
		t.Errorf("reason = %s, want Finished", l.Mode().Reason())
	}
}

func TestDetachedHostIsNotNotified(t *testing.T) {
	l, _ := newTestLoader(DefaultConfig())
	host := &recordingHost{}
	link := NewHostLink(host)
	l.SetHost(link)
	link.Detach()

	l.OnSequentialFinished()
	if len(host.reasons) != 0 {
		t.Errorf("detached host saw %v", host.reasons)
	}
}

func TestNoHost(t *testing.T) {
	l, _ := newTestLoader(DefaultConfig())
	l.SetHost(nil)
	l.NotifyNonIncrementalSentinel()
	if !l.IsComplete() {
		t.Error("not complete")
	}
}
