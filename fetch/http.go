package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/http2"
)

const tracerName = "github.com/tsawler/rangeload/fetch"

// HTTPConfig configures an HTTPSource. Zero values select defaults.
type HTTPConfig struct {
	Client    *http.Client // nil builds an HTTP/2-enabled client
	ChunkSize int
	UserAgent string
	Timeout   time.Duration // per request; 0 means none
}

// HTTPSource fetches a document over HTTP using Range requests.
type HTTPSource struct {
	url        string
	client     *http.Client
	dispatcher Dispatcher
	chunkSize  int
	userAgent  string
	timeout    time.Duration
	tracer     trace.Tracer
	base       context.Context
}

var _ Source = (*HTTPSource)(nil)

// NewHTTPSource creates a source for rawURL whose callbacks are posted to d.
func NewHTTPSource(rawURL string, d Dispatcher, cfg HTTPConfig) (*HTTPSource, error) {
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return nil, fmt.Errorf("unsupported URL %q: expected http or https", rawURL)
	}
	if d == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	client := cfg.Client
	if client == nil {
		client = newHTTP2Client()
	}

	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return &HTTPSource{
		url:        rawURL,
		client:     client,
		dispatcher: d,
		chunkSize:  chunkSize,
		userAgent:  cfg.UserAgent,
		timeout:    cfg.Timeout,
		tracer:     otel.Tracer(tracerName),
		base:       context.Background(),
	}, nil
}

// newHTTP2Client returns a client whose transport negotiates HTTP/2.
func newHTTP2Client() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if err := http2.ConfigureTransport(transport); err != nil {
		log.Debugf("http2 not configured: %v", err)
	}
	return &http.Client{Transport: transport}
}

// URL returns the document URL.
func (s *HTTPSource) URL() string {
	return s.url
}

func (s *HTTPSource) newRequest(ctx context.Context, method string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	return req, nil
}

func (s *HTTPSource) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

// Metadata issues a HEAD request for the document length and range support.
// Servers that reject HEAD are asked for the first byte instead.
func (s *HTTPSource) Metadata(ctx context.Context) (Metadata, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	req, err := s.newRequest(ctx, http.MethodHead)
	if err != nil {
		return Metadata{}, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Metadata{}, fmt.Errorf("fetch metadata: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return Metadata{
			Length:       resp.ContentLength,
			AcceptRanges: strings.Contains(resp.Header.Get("Accept-Ranges"), "bytes"),
			ContentType:  resp.Header.Get("Content-Type"),
		}, nil
	}

	return s.metadataFromRange(ctx)
}

// metadataFromRange learns the document length from a one-byte range request.
func (s *HTTPSource) metadataFromRange(ctx context.Context) (Metadata, error) {
	req, err := s.newRequest(ctx, http.MethodGet)
	if err != nil {
		return Metadata{}, err
	}
	req.Header.Set("Range", ByteRange{Offset: 0, Count: 1}.HeaderValue())

	resp, err := s.client.Do(req)
	if err != nil {
		return Metadata{}, fmt.Errorf("fetch metadata: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPartialContent:
		return Metadata{
			Length:       totalFromContentRange(resp.Header.Get("Content-Range")),
			AcceptRanges: true,
			ContentType:  resp.Header.Get("Content-Type"),
		}, nil
	case http.StatusOK:
		return Metadata{
			Length:      resp.ContentLength,
			ContentType: resp.Header.Get("Content-Type"),
		}, nil
	default:
		return Metadata{}, fmt.Errorf("fetch metadata: %w: HTTP %d for %s", ErrUnexpectedStatus, resp.StatusCode, s.url)
	}
}

// totalFromContentRange parses the complete length from "bytes 0-0/1234".
func totalFromContentRange(v string) int64 {
	idx := strings.LastIndex(v, "/")
	if idx == -1 {
		return -1
	}
	total, err := strconv.ParseInt(strings.TrimSpace(v[idx+1:]), 10, 64)
	if err != nil {
		return -1
	}
	return total
}

// StartRangeFetch begins fetching [offset, offset+count) in the background.
func (s *HTTPSource) StartRangeFetch(offset int64, count int, sink RangeSink) (Handle, error) {
	if err := validateRange(offset, count); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(s.base)
	h := newFetchHandle(offset, count, cancel)
	report := rangeReporter{handle: h, sink: sink, d: s.dispatcher}

	go func() {
		defer cancel()
		err := s.fetchRange(ctx, h.window, report.data)
		switch {
		case err == nil:
			report.finished()
		case h.canceled.Load():
			log.Debugf("range fetch %s canceled", h.window)
		default:
			log.Warningf("range fetch %s failed: %v", h.window, err)
			report.failed(err)
		}
	}()

	return h, nil
}

func (s *HTTPSource) fetchRange(ctx context.Context, window ByteRange, emit func([]byte)) (err error) {
	ctx, span := s.tracer.Start(ctx, "fetch.range",
		trace.WithAttributes(
			attribute.String("http.url", s.url),
			attribute.Int64("range.offset", window.Offset),
			attribute.Int("range.count", window.Count),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	req, err := s.newRequest(ctx, http.MethodGet)
	if err != nil {
		return err
	}
	req.Header.Set("Range", window.HeaderValue())

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("range request: %w", err)
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	switch resp.StatusCode {
	case http.StatusPartialContent:
	case http.StatusOK:
		// The server ignored Range and sent the whole document.
		if _, err := io.CopyN(io.Discard, resp.Body, window.Offset); err != nil {
			return fmt.Errorf("skip to range start: %w", err)
		}
	case http.StatusRequestedRangeNotSatisfiable:
		return fmt.Errorf("%w: %s", ErrRangeNotSatisfiable, window)
	default:
		return fmt.Errorf("%w: HTTP %d for %s", ErrUnexpectedStatus, resp.StatusCode, window)
	}

	n, err := s.copyChunks(io.LimitReader(body, int64(window.Count)), emit)
	span.SetAttributes(attribute.Int64("range.received", n))
	return err
}

// Stream downloads the whole document in order, posting chunks to sink.
func (s *HTTPSource) Stream(ctx context.Context, sink StreamSink) (err error) {
	report := streamReporter{sink: sink, d: s.dispatcher}

	ctx, span := s.tracer.Start(ctx, "fetch.stream",
		trace.WithAttributes(attribute.String("http.url", s.url)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			report.failed(err)
		} else {
			report.finished()
		}
		span.End()
	}()

	req, err := s.newRequest(ctx, http.MethodGet)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("stream request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d for %s", ErrUnexpectedStatus, resp.StatusCode, s.url)
	}

	n, err := s.copyChunks(resp.Body, report.data)
	span.SetAttributes(attribute.Int64("stream.received", n))
	if err != nil {
		return fmt.Errorf("stream body: %w", err)
	}
	return nil
}

// copyChunks reads r in chunkSize pieces and hands each to emit.
func (s *HTTPSource) copyChunks(r io.Reader, emit func([]byte)) (int64, error) {
	buf := make([]byte, s.chunkSize)
	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			emit(buf[:n])
			total += int64(n)
		}
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}
