package reader

import (
	"errors"
	"fmt"
	"io"

	"github.com/tsawler/rangeload/core"
)

// ErrNotLinearized is returned when the first object is not a valid
// linearization dictionary.
var ErrNotLinearized = errors.New("document is not linearized")

// Linearization holds the parameters of a linearized ("fast web view")
// document.
type Linearization struct {
	// Length is /L, the file length the dictionary was written for.
	Length int64
	// Pages is /N.
	Pages int
	// FirstPageEnd is /E, the end of the first page's objects.
	FirstPageEnd int64
	// Object is the number of the linearization dictionary.
	Object int
}

// ReadLinearization parses the first object of src. A document only counts
// as linearized when that object carries /Linearized and its /L equals
// size; an incremental update appended later invalidates it.
func ReadLinearization(src io.ReaderAt, size int64) (*Linearization, error) {
	head, err := readHead(src)
	if err != nil {
		return nil, err
	}
	_, end, err := parseHeader(head)
	if err != nil {
		return nil, err
	}

	off := skipComments(head, end)
	if off >= len(head) {
		return nil, ErrNotLinearized
	}
	ind, err := core.ReadIndirectObjectAt(src, size, int64(off), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: first object: %v", ErrNotLinearized, err)
	}

	d, ok := ind.Object.(core.Dict)
	if !ok || !d.Has("Linearized") {
		return nil, ErrNotLinearized
	}
	l, ok := d.GetInt("L")
	if !ok || int64(l) != size {
		return nil, fmt.Errorf("%w: /L %v does not match length %d", ErrNotLinearized, d.Get("L"), size)
	}

	lin := &Linearization{Length: int64(l), Object: ind.Ref.Number}
	if n, ok := d.GetInt("N"); ok {
		lin.Pages = int(n)
	}
	if e, ok := d.GetInt("E"); ok {
		lin.FirstPageEnd = int64(e)
	}
	return lin, nil
}

// Linearization reads the linearization dictionary of r.
func (r *Reader) Linearization() (*Linearization, error) {
	return ReadLinearization(r.src, r.size)
}

// skipComments returns the index of the first byte after i that is neither
// whitespace nor inside a comment line.
func skipComments(data []byte, i int) int {
	for i < len(data) {
		switch c := data[i]; {
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0:
			i++
		default:
			return i
		}
	}
	return i
}
