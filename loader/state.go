package loader

import (
	"io"
	"sync/atomic"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Stats is a point-in-time view of loader activity.
type Stats struct {
	Mode   State
	Reason TransitionReason

	Available int64
	Streamed  int64
	Size      int64

	PendingRequests               int64
	ThreadsWaiting                int64
	CompletedRangeRequests        int64
	CompletedNetworkRangeRequests int64
	FetchesIssued                 int64
	CoalescedRequests             int64
	DiscardedFetchBytes           int64
}

type counters struct {
	available        atomic.Int64
	streamed         atomic.Int64
	pending          atomic.Int64
	waiting          atomic.Int64
	completed        atomic.Int64
	completedNetwork atomic.Int64
	fetchesIssued    atomic.Int64
	coalesced        atomic.Int64
	discarded        atomic.Int64
}

// publishProgress mirrors buffer progress for Stats.
func (l *Loader) publishProgress() {
	l.stats.available.Store(l.buf.Available())
	l.stats.streamed.Store(l.buf.Streamed())
}

// Stats returns current counters. Safe from any goroutine.
func (l *Loader) Stats() Stats {
	return Stats{
		Mode:                          l.mode.State(),
		Reason:                        l.mode.Reason(),
		Available:                     l.stats.available.Load(),
		Streamed:                      l.stats.streamed.Load(),
		Size:                          l.size.Load(),
		PendingRequests:               l.stats.pending.Load(),
		ThreadsWaiting:                l.stats.waiting.Load(),
		CompletedRangeRequests:        l.stats.completed.Load(),
		CompletedNetworkRangeRequests: l.stats.completedNetwork.Load(),
		FetchesIssued:                 l.stats.fetchesIssued.Load(),
		CoalescedRequests:             l.stats.coalesced.Load(),
		DiscardedFetchBytes:           l.stats.discarded.Load(),
	}
}

// LogState writes a human-readable dump of the loader, including each pending
// request. Call on the run loop.
func (l *Loader) LogState(w io.Writer) {
	p := message.NewPrinter(language.English)
	s := l.Stats()

	p.Fprintf(w, "mode: %s", s.Mode)
	if s.Reason != ReasonNone {
		p.Fprintf(w, " (%s)", s.Reason)
	}
	p.Fprintln(w)
	if s.Size >= 0 {
		p.Fprintf(w, "size: %d bytes\n", s.Size)
	} else {
		p.Fprintln(w, "size: unknown")
	}
	p.Fprintf(w, "available: %d bytes\n", l.buf.Available())
	p.Fprintf(w, "streamed: %d bytes\n", l.buf.Streamed())
	p.Fprintf(w, "threads waiting: %d\n", s.ThreadsWaiting)
	p.Fprintf(w, "completed range requests: %d\n", s.CompletedRangeRequests)
	p.Fprintf(w, "completed network range requests: %d\n", s.CompletedNetworkRangeRequests)
	p.Fprintf(w, "fetches issued: %d\n", s.FetchesIssued)
	p.Fprintf(w, "coalesced requests: %d\n", s.CoalescedRequests)
	p.Fprintf(w, "discarded fetch bytes: %d\n", s.DiscardedFetchBytes)

	pending := l.requests.Pending()
	p.Fprintf(w, "pending requests: %d\n", len(pending))
	for _, r := range pending {
		p.Fprintf(w, "  %s (%d observers)\n", r, r.Observers())
	}
}
