package reader

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tsawler/rangeload/format"
)

// ErrUnknownSize is returned by Inspect when the document length is unknown,
// since the cross-reference data sits at the end of the file.
var ErrUnknownSize = errors.New("document length unknown")

// Source is a document that may still be downloading. Size returns -1 while
// the length is unknown. NotifyNonIncrementalSentinel tells the source that
// random access will not help and the parser now waits for the full file.
type Source interface {
	io.ReaderAt
	Size() int64
	NotifyNonIncrementalSentinel()
}

// Inspect reads just enough of src to describe it: the header, the
// linearization dictionary, the cross-reference data, the catalog and the
// page tree root. Documents that cannot be parsed incrementally (other
// formats, unknown length, not linearized) trigger the sentinel on src and
// return an error.
func Inspect(ctx context.Context, src Source) (*Info, error) {
	head, err := readHead(src)
	if err != nil {
		return nil, err
	}

	if f := format.DetectFromMagic(head); !f.SupportsIncremental() {
		log.Infof("%s document cannot be parsed incrementally", f)
		src.NotifyNonIncrementalSentinel()
		return nil, fmt.Errorf("%w: detected %s", ErrNotPDF, f)
	}
	version, _, err := parseHeader(head)
	if err != nil {
		src.NotifyNonIncrementalSentinel()
		return nil, err
	}

	size := src.Size()
	if size < 0 {
		src.NotifyNonIncrementalSentinel()
		return nil, ErrUnknownSize
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := ReadLinearization(src, size); err != nil {
		if errors.Is(err, ErrNotLinearized) {
			log.Infof("%s", err)
			src.NotifyNonIncrementalSentinel()
		}
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := newReader(src, size, version)
	if err != nil {
		return nil, err
	}
	return r.Info()
}
