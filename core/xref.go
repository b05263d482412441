package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("rangeload.core")

// ErrXRefNotFound is returned when the file tail carries no startxref.
var ErrXRefNotFound = errors.New("startxref not found")

// EntryType is the kind of a cross-reference entry.
type EntryType int

const (
	EntryFree EntryType = iota
	EntryInUse
	// EntryCompressed objects live inside an object stream.
	EntryCompressed
)

// XRefEntry locates one object. In-use entries carry a file Offset;
// compressed entries carry the object stream number and index.
type XRefEntry struct {
	Type       EntryType
	Offset     int64
	Generation int
	Stream     int
	Index      int
}

// XRefTable maps object numbers to entries. When sections are merged the
// newest entry for an object wins.
type XRefTable struct {
	Entries map[int]XRefEntry
	Trailer Dict
}

func NewXRefTable() *XRefTable {
	return &XRefTable{Entries: make(map[int]XRefEntry), Trailer: Dict{}}
}

func (t *XRefTable) Get(num int) (XRefEntry, bool) {
	e, ok := t.Entries[num]
	return e, ok
}

// Len returns the number of entries, free ones included.
func (t *XRefTable) Len() int { return len(t.Entries) }

// merge adds entries and trailer keys from an older section.
func (t *XRefTable) merge(older *XRefTable) {
	for num, e := range older.Entries {
		if _, ok := t.Entries[num]; !ok {
			t.Entries[num] = e
		}
	}
	for k, v := range older.Trailer {
		if _, ok := t.Trailer[k]; !ok {
			t.Trailer[k] = v
		}
	}
}

// tailSize is how far from the end startxref is searched for.
const tailSize = 1024

// FindStartXRef returns the offset recorded after the last startxref
// keyword in the final bytes of the file.
func FindStartXRef(r io.ReaderAt, size int64) (int64, error) {
	n := min(size, tailSize)
	if n <= 0 {
		return 0, ErrXRefNotFound
	}
	tail := make([]byte, n)
	if m, err := r.ReadAt(tail, size-n); m < len(tail) {
		return 0, fmt.Errorf("read file tail: %w", err)
	}

	i := bytes.LastIndex(tail, []byte("startxref"))
	if i < 0 {
		return 0, ErrXRefNotFound
	}
	tok, err := NewLexer(tail[i+len("startxref"):]).Next()
	if err != nil || tok.Type != TokenInteger {
		return 0, fmt.Errorf("%w: no offset after startxref", ErrXRefNotFound)
	}
	off, err := strconv.ParseInt(string(tok.Value), 10, 64)
	if err != nil || off < 0 || off >= size {
		return 0, fmt.Errorf("%w: startxref offset %q is invalid", ErrXRefNotFound, tok.Value)
	}
	return off, nil
}

// ReadXRef reads the cross-reference section at offset and every older
// section reachable through /XRefStm and /Prev, merging them. A broken
// older section ends the chain with a warning; a broken first section is
// an error.
func ReadXRef(r io.ReaderAt, size, offset int64) (*XRefTable, error) {
	table := NewXRefTable()
	seen := make(map[int64]bool)
	queue := []int64{offset}

	for len(queue) > 0 {
		off := queue[0]
		queue = queue[1:]
		if seen[off] {
			continue
		}
		seen[off] = true

		section, err := ReadXRefSection(r, size, off)
		if err != nil {
			if len(seen) == 1 {
				return nil, err
			}
			log.Warningf("ignoring xref section at %d: %s", off, err)
			break
		}
		table.merge(section)

		var older []int64
		if stm, ok := section.Trailer.GetInt("XRefStm"); ok {
			older = append(older, int64(stm))
		}
		if prev, ok := section.Trailer.GetInt("Prev"); ok {
			older = append(older, int64(prev))
		}
		queue = append(older, queue...)
	}

	// The keys of the newest trailer describe the whole file.
	delete(table.Trailer, "Prev")
	delete(table.Trailer, "XRefStm")
	return table, nil
}

// ReadXRefSection parses a single xref table with its trailer, or a single
// xref stream, at offset.
func ReadXRefSection(r io.ReaderAt, size, offset int64) (*XRefTable, error) {
	var section *XRefTable
	err := parseAt(r, size, offset, func(p *Parser) error {
		tok, err := p.peek(0)
		if err != nil {
			return err
		}
		if tok.isKeyword("xref") {
			p.ahead = p.ahead[1:]
			section, err = p.parseXRefTable()
			return err
		}

		obj, err := p.ParseIndirectObject()
		if err != nil {
			return err
		}
		s, ok := obj.Object.(*Stream)
		if !ok {
			return fmt.Errorf("expected xref table or stream, found %s", obj.Object.Type())
		}
		section, err = xrefFromStream(s)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("xref at %d: %w", offset, err)
	}
	return section, nil
}

// parseXRefTable reads subsections of "start count" followed by count
// "offset generation n|f" entries, then the trailer dictionary.
func (p *Parser) parseXRefTable() (*XRefTable, error) {
	t := NewXRefTable()
	for {
		tok, err := p.next()
		if err != nil {
			return nil, err
		}
		if tok.isKeyword("trailer") {
			break
		}
		countTok, err := p.next()
		if err != nil {
			return nil, err
		}
		if tok.Type != TokenInteger || countTok.Type != TokenInteger {
			return nil, fmt.Errorf("bad xref subsection header at %d", tok.Pos)
		}
		start, _ := strconv.Atoi(string(tok.Value))
		count, _ := strconv.Atoi(string(countTok.Value))

		for i := 0; i < count; i++ {
			entry, err := p.parseXRefEntry()
			if err != nil {
				return nil, err
			}
			if _, ok := t.Entries[start+i]; !ok {
				t.Entries[start+i] = entry
			}
		}
	}

	trailer, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("trailer: %w", err)
	}
	dict, ok := trailer.(Dict)
	if !ok {
		return nil, fmt.Errorf("trailer is %s", trailer.Type())
	}
	t.Trailer = dict
	return t, nil
}

func (p *Parser) parseXRefEntry() (XRefEntry, error) {
	var toks [3]Token
	for i := range toks {
		tok, err := p.next()
		if err != nil {
			return XRefEntry{}, err
		}
		toks[i] = tok
	}
	if toks[0].Type != TokenInteger || toks[1].Type != TokenInteger || toks[2].Type != TokenKeyword {
		return XRefEntry{}, fmt.Errorf("bad xref entry at %d", toks[0].Pos)
	}

	off, _ := strconv.ParseInt(string(toks[0].Value), 10, 64)
	gen, _ := strconv.Atoi(string(toks[1].Value))
	switch string(toks[2].Value) {
	case "n":
		return XRefEntry{Type: EntryInUse, Offset: off, Generation: gen}, nil
	case "f":
		return XRefEntry{Type: EntryFree, Generation: gen}, nil
	}
	return XRefEntry{}, fmt.Errorf("bad xref entry type %q at %d", toks[2].Value, toks[2].Pos)
}

// xrefFromStream decodes the binary rows of a /Type /XRef stream. The
// stream dictionary doubles as the trailer.
func xrefFromStream(s *Stream) (*XRefTable, error) {
	if t, _ := s.Dict.GetName("Type"); t != "XRef" {
		return nil, fmt.Errorf("stream has /Type %q, want XRef", t)
	}
	w, ok := s.Dict.GetArray("W")
	if !ok || len(w) < 3 {
		return nil, errors.New("xref stream without a valid /W")
	}
	var widths [3]int
	for i := range widths {
		n, ok := w.GetInt(i)
		if !ok || n < 0 || n > 8 {
			return nil, fmt.Errorf("xref stream /W[%d] is invalid", i)
		}
		widths[i] = int(n)
	}
	rowLen := widths[0] + widths[1] + widths[2]
	if rowLen == 0 {
		return nil, errors.New("xref stream rows are empty")
	}

	size, _ := s.Dict.GetInt("Size")
	index := Array{Int(0), size}
	if idx, ok := s.Dict.GetArray("Index"); ok {
		index = idx
	}

	data, err := s.Decode()
	if err != nil {
		return nil, fmt.Errorf("xref stream: %w", err)
	}

	t := NewXRefTable()
	t.Trailer = s.Dict
	row := 0
	for i := 0; i+1 < len(index); i += 2 {
		start, _ := index.GetInt(i)
		count, _ := index.GetInt(i + 1)
		for j := 0; j < int(count); j++ {
			if (row+1)*rowLen > len(data) {
				return t, nil
			}
			fields := data[row*rowLen : (row+1)*rowLen]
			row++

			typ := int64(1)
			if widths[0] > 0 {
				typ = field(fields[:widths[0]])
			}
			f2 := field(fields[widths[0] : widths[0]+widths[1]])
			f3 := field(fields[widths[0]+widths[1]:])

			var e XRefEntry
			switch typ {
			case 0:
				e = XRefEntry{Type: EntryFree, Generation: int(f3)}
			case 1:
				e = XRefEntry{Type: EntryInUse, Offset: f2, Generation: int(f3)}
			case 2:
				e = XRefEntry{Type: EntryCompressed, Stream: int(f2), Index: int(f3)}
			default:
				// Unknown types are treated as null references.
				continue
			}
			num := int(start) + j
			if _, ok := t.Entries[num]; !ok {
				t.Entries[num] = e
			}
		}
	}
	return t, nil
}

// field decodes a big-endian unsigned integer.
func field(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}
