package rangeload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tsawler/rangeload/loader"
	"github.com/tsawler/rangeload/reader"
)

// ErrUnsupportedFormat is returned by Info when the downloaded document is
// not a PDF.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Session describes one document load. Each configuration method returns a
// new Session, so a configured Session can be shared and reused; every
// terminal operation starts a fresh download.
type Session struct {
	// Source (exactly one is set)
	url  string
	path string

	// Configuration
	options Options

	// Accumulated error (fail-fast)
	err error
}

// clone creates a copy of the Session with a copy of its options.
func (s *Session) clone() *Session {
	return &Session{
		url:     s.url,
		path:    s.path,
		options: s.options.clone(),
		err:     s.err,
	}
}

// fail records err unless an earlier error is already pending.
func (s *Session) fail(err error) *Session {
	if s.err == nil {
		s.err = err
	}
	return s
}

// Name returns the URL or path the session loads.
func (s *Session) Name() string {
	if s.url != "" {
		return s.url
	}
	return s.path
}

// ChunkSize sets the size of the pieces the download is delivered in.
//
// Example:
//
//	info, _, err := rangeload.FromURL(url).ChunkSize(16 * 1024).Info(ctx)
func (s *Session) ChunkSize(n int) *Session {
	next := s.clone()
	if n <= 0 {
		return next.fail(fmt.Errorf("chunk size must be positive, got %d", n))
	}
	next.options.chunkSize = n
	return next
}

// MinimumFetchSize widens small range fetches to at least n bytes. Zero
// fetches exactly the bytes the parser asks for.
func (s *Session) MinimumFetchSize(n int) *Session {
	next := s.clone()
	if n < 0 {
		return next.fail(fmt.Errorf("minimum fetch size must not be negative, got %d", n))
	}
	next.options.minimumFetchSize = n
	return next
}

// CancelRedundantFetches controls whether a range fetch is cancelled once
// the sequential download overtakes it. It is on by default.
func (s *Session) CancelRedundantFetches(cancel bool) *Session {
	next := s.clone()
	next.options.cancelRedundant = cancel
	return next
}

// StreamOnly disables range requests; every read waits for the sequential
// download.
func (s *Session) StreamOnly() *Session {
	next := s.clone()
	next.options.rangeRequests = false
	return next
}

// InitialCapacity sizes the download buffer when the server does not
// announce a length.
func (s *Session) InitialCapacity(n int) *Session {
	next := s.clone()
	next.options.initialCapacity = n
	return next
}

// UserAgent sets the User-Agent header of HTTP requests.
func (s *Session) UserAgent(ua string) *Session {
	next := s.clone()
	next.options.userAgent = ua
	return next
}

// Timeout bounds each HTTP request. Zero means no limit.
func (s *Session) Timeout(d time.Duration) *Session {
	next := s.clone()
	next.options.timeout = d
	return next
}

// HTTPClient sets the client used for HTTP requests. By default an
// HTTP/2-enabled client is built.
func (s *Session) HTTPClient(c *http.Client) *Session {
	next := s.clone()
	next.options.client = c
	return next
}

// SimulateNetwork delays a file session: chunkDelay between sequential
// chunks, latency before each range fetch answers. It has no effect on URL
// sessions.
func (s *Session) SimulateNetwork(chunkDelay, latency time.Duration) *Session {
	next := s.clone()
	next.options.chunkDelay = chunkDelay
	next.options.fetchLatency = latency
	return next
}

// LogStateTo dumps the loader state to w when a terminal operation ends,
// before the loader is torn down.
//
// Example:
//
//	info, _, err := rangeload.FromURL(url).LogStateTo(os.Stderr).Info(ctx)
func (s *Session) LogStateTo(w io.Writer) *Session {
	next := s.clone()
	next.options.state = w
	return next
}

// Info describes the document. For a linearized PDF it reads only what it
// needs through range requests and stops the download once done; anything
// else is downloaded in full first. The loader statistics are returned even
// when err is non-nil.
//
// Example:
//
//	info, stats, err := rangeload.FromURL(url).Info(ctx)
func (s *Session) Info(ctx context.Context) (*reader.Info, loader.Stats, error) {
	out, err := s.run(ctx, describe)
	return out.info, out.stats, err
}

// Bytes downloads the whole document through the loader.
//
// Example:
//
//	data, err := rangeload.FromURL(url).Bytes(ctx)
func (s *Session) Bytes(ctx context.Context) ([]byte, error) {
	out, err := s.run(ctx, download)
	return out.data, err
}

// BytesWithStats is Bytes that also returns the loader statistics.
func (s *Session) BytesWithStats(ctx context.Context) ([]byte, loader.Stats, error) {
	out, err := s.run(ctx, download)
	return out.data, out.stats, err
}
