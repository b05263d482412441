package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func serveDoc(doc []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "doc.pdf", time.Time{}, bytes.NewReader(doc))
	}
}

func newTestSource(t *testing.T, h http.Handler) *HTTPSource {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	src, err := NewHTTPSource(srv.URL+"/doc.pdf", &inlineDispatcher{}, HTTPConfig{
		Client:    srv.Client(),
		ChunkSize: 64,
		UserAgent: "rangeload-test",
	})
	if err != nil {
		t.Fatalf("NewHTTPSource: %v", err)
	}
	return src
}

func TestNewHTTPSourceValidation(t *testing.T) {
	tests := []struct {
		name string
		url  string
		d    Dispatcher
	}{
		{"ftp scheme", "ftp://example.com/doc.pdf", &inlineDispatcher{}},
		{"bare path", "/tmp/doc.pdf", &inlineDispatcher{}},
		{"no dispatcher", "https://example.com/doc.pdf", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewHTTPSource(tt.url, tt.d, HTTPConfig{}); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestHTTPSourceMetadata(t *testing.T) {
	doc := makeDoc(1000)
	src := newTestSource(t, serveDoc(doc))

	md, err := src.Metadata(context.Background())
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if md.Length != 1000 {
		t.Errorf("Length = %d, want 1000", md.Length)
	}
	if !md.AcceptRanges {
		t.Error("AcceptRanges = false")
	}
	if md.ContentType != "application/pdf" {
		t.Errorf("ContentType = %q", md.ContentType)
	}
}

func TestHTTPSourceMetadataWithoutHead(t *testing.T) {
	doc := makeDoc(1000)
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		serveDoc(doc)(w, r)
	}))

	md, err := src.Metadata(context.Background())
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if md.Length != 1000 || !md.AcceptRanges {
		t.Errorf("Metadata = %+v, want length 1000 with ranges", md)
	}
}

func TestHTTPSourceRangeFetch(t *testing.T) {
	doc := makeDoc(1000)
	agents := make(chan string, 1)
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case agents <- r.Header.Get("User-Agent"):
		default:
		}
		serveDoc(doc)(w, r)
	}))

	rec := newRecorder()
	h, err := src.StartRangeFetch(100, 150, rec)
	if err != nil {
		t.Fatalf("StartRangeFetch: %v", err)
	}
	rec.wait(t)

	if !rec.finished {
		t.Fatalf("fetch failed: %v", rec.err)
	}
	if !bytes.Equal(rec.data, doc[100:250]) {
		t.Errorf("got %d bytes, want doc[100:250]", len(rec.data))
	}
	for _, got := range rec.handles {
		if got != h {
			t.Fatal("callback carried a different handle")
		}
	}
	if len(rec.handles) < 2 {
		t.Errorf("got %d data callbacks, want the body split into chunks", len(rec.handles))
	}
	if got := <-agents; got != "rangeload-test" {
		t.Errorf("User-Agent = %q", got)
	}
}

func TestHTTPSourceRangeIgnored(t *testing.T) {
	doc := makeDoc(1000)
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(doc)
	}))

	rec := newRecorder()
	if _, err := src.StartRangeFetch(300, 40, rec); err != nil {
		t.Fatalf("StartRangeFetch: %v", err)
	}
	rec.wait(t)

	if !rec.finished || !bytes.Equal(rec.data, doc[300:340]) {
		t.Errorf("finished = %v, got %d bytes", rec.finished, len(rec.data))
	}
}

func TestHTTPSourceRangeNotSatisfiable(t *testing.T) {
	src := newTestSource(t, serveDoc(makeDoc(1000)))

	rec := newRecorder()
	if _, err := src.StartRangeFetch(5000, 10, rec); err != nil {
		t.Fatalf("StartRangeFetch: %v", err)
	}
	rec.wait(t)

	if !errors.Is(rec.err, ErrRangeNotSatisfiable) {
		t.Errorf("err = %v, want ErrRangeNotSatisfiable", rec.err)
	}
}

func TestHTTPSourceRangeInvalid(t *testing.T) {
	src := newTestSource(t, serveDoc(makeDoc(10)))
	if _, err := src.StartRangeFetch(0, 0, newRecorder()); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("err = %v, want ErrInvalidRange", err)
	}
}

func TestHTTPSourceRangeCancel(t *testing.T) {
	arrived := make(chan struct{})
	released := make(chan struct{})
	src := newTestSource(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(arrived)
		<-r.Context().Done()
		close(released)
	}))

	rec := newRecorder()
	h, err := src.StartRangeFetch(0, 10, rec)
	if err != nil {
		t.Fatalf("StartRangeFetch: %v", err)
	}
	<-arrived
	h.Cancel()

	select {
	case <-released:
	case <-time.After(5 * time.Second):
		t.Fatal("cancel did not abort the request")
	}
	time.Sleep(50 * time.Millisecond)
	if n := rec.eventCount(); n != 0 {
		t.Errorf("got %d callbacks after cancel, want 0", n)
	}
}

func TestHTTPSourceStream(t *testing.T) {
	doc := makeDoc(5000)
	src := newTestSource(t, serveDoc(doc))

	rec := newRecorder()
	if err := src.Stream(context.Background(), rec); err != nil {
		t.Fatalf("Stream: %v", err)
	}
	rec.wait(t)

	if !rec.finished || !bytes.Equal(rec.data, doc) {
		t.Errorf("finished = %v, got %d bytes", rec.finished, len(rec.data))
	}
}

func TestHTTPSourceStreamStatus(t *testing.T) {
	src := newTestSource(t, http.NotFoundHandler())

	rec := newRecorder()
	err := src.Stream(context.Background(), rec)
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("Stream err = %v, want ErrUnexpectedStatus", err)
	}
	rec.wait(t)
	if !errors.Is(rec.err, ErrUnexpectedStatus) {
		t.Errorf("sink err = %v", rec.err)
	}
}

func TestTotalFromContentRange(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"bytes 0-0/1234", 1234},
		{"bytes 10-19/20", 20},
		{"bytes 0-0/*", -1},
		{"", -1},
		{"garbage", -1},
	}

	for _, tt := range tests {
		if got := totalFromContentRange(tt.in); got != tt.want {
			t.Errorf("totalFromContentRange(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
