// Package rangeload opens PDF documents that are still downloading.
//
// A Session streams the document from start to end while the parser reads
// whatever parts it needs through byte-range requests, so a linearized PDF
// can be described long before the download finishes.
//
// Basic usage:
//
//	info, stats, err := rangeload.FromURL("https://example.com/report.pdf").Info(ctx)
//	if err != nil {
//	    // handle error
//	}
//	fmt.Println(info.Pages, "pages,", stats.FetchesIssued, "range fetches")
//
// With options:
//
//	info, _, err := rangeload.FromURL(url).
//	    ChunkSize(32 * 1024).
//	    MinimumFetchSize(16 * 1024).
//	    UserAgent("indexer/1.0").
//	    Info(ctx)
//
// Documents that cannot be parsed incrementally (not linearized, unknown
// length, or not a PDF at all) are downloaded in full and then parsed from
// memory. The lower-level loader, fetch and reader packages are available for
// custom hosts.
package rangeload

import (
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("rangeload")

// FromURL returns a Session for an http or https URL.
//
// Example:
//
//	info, stats, err := rangeload.FromURL("https://example.com/a.pdf").Info(ctx)
func FromURL(url string) *Session {
	return &Session{
		url:     url,
		options: defaultOptions(),
	}
}

// FromFile returns a Session that serves a local file through the same
// machinery as a download. SimulateNetwork slows it down to resemble one.
//
// Example:
//
//	info, _, err := rangeload.FromFile("a.pdf").SimulateNetwork(time.Millisecond, 20*time.Millisecond).Info(ctx)
func FromFile(path string) *Session {
	return &Session{
		path:    path,
		options: defaultOptions(),
	}
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	data := rangeload.Must(rangeload.FromFile("a.pdf").Bytes(ctx))
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
