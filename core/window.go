package core

import (
	"errors"
	"fmt"
	"io"
)

// ErrOutOfRange is returned for offsets outside the file.
var ErrOutOfRange = errors.New("offset out of range")

// initialWindow is the first read size when parsing at an offset. Most
// objects fit; larger ones double the window until they do.
const initialWindow = 4 << 10

// parseAt reads a window of r at offset and hands a parser over it to fn.
// While fn reports ErrTruncated and the window does not yet reach the end
// of the file, the window doubles.
func parseAt(r io.ReaderAt, size, offset int64, fn func(p *Parser) error) error {
	if offset < 0 || offset >= size {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, offset, size)
	}

	for n := int64(initialWindow); ; n *= 2 {
		n = min(n, size-offset)
		buf := make([]byte, n)
		m, err := r.ReadAt(buf, offset)
		if m < len(buf) {
			if err == nil {
				err = io.ErrUnexpectedEOF
			}
			return fmt.Errorf("read %d bytes at %d: %w", n, offset, err)
		}

		final := offset+n >= size
		err = fn(newWindowParser(buf, offset, !final))
		if !errors.Is(err, ErrTruncated) || final {
			return err
		}
	}
}

// ReadIndirectObjectAt parses the indirect object that starts at offset.
// The resolver, which may be nil, supplies indirect stream lengths.
func ReadIndirectObjectAt(r io.ReaderAt, size, offset int64, resolver ReferenceResolver) (*IndirectObject, error) {
	var obj *IndirectObject
	err := parseAt(r, size, offset, func(p *Parser) error {
		p.SetReferenceResolver(resolver)
		var err error
		obj, err = p.ParseIndirectObject()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("object at %d: %w", offset, err)
	}
	return obj, nil
}
