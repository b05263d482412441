package reader

import (
	"bytes"

	"github.com/tsawler/rangeload/core"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Info summarizes a document.
type Info struct {
	Version    Version
	Size       int64
	Linearized bool
	Encrypted  bool
	Pages      int
	Objects    int

	Title    string
	Author   string
	Subject  string
	Creator  string
	Producer string
}

// Info collects the page count, linearization state and the text entries
// of the /Info dictionary.
func (r *Reader) Info() (*Info, error) {
	pages, err := r.PageCount()
	if err != nil {
		return nil, err
	}

	info := &Info{
		Version:   r.version,
		Size:      r.size,
		Encrypted: r.xref.Trailer.Has("Encrypt"),
		Pages:     pages,
		Objects:   r.NumObjects(),
	}
	_, err = r.Linearization()
	info.Linearized = err == nil

	d, err := r.GetInfo()
	if err != nil {
		log.Warningf("ignoring /Info: %s", err)
		return info, nil
	}
	if d != nil {
		info.Title = r.text(d, "Title")
		info.Author = r.text(d, "Author")
		info.Subject = r.text(d, "Subject")
		info.Creator = r.text(d, "Creator")
		info.Producer = r.text(d, "Producer")
	}
	return info, nil
}

func (r *Reader) text(d core.Dict, key string) string {
	obj, err := r.Resolve(d.Get(key))
	if err != nil {
		return ""
	}
	s, ok := obj.(core.String)
	if !ok {
		return ""
	}
	return DecodeText(s)
}

var (
	utf16BOM = []byte{0xFE, 0xFF}
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
)

// DecodeText converts a text string to UTF-8. Strings are UTF-16BE when
// they start with a byte order mark, UTF-8 with the PDF 2.0 marker, and
// PDFDocEncoding otherwise, which agrees with Latin-1 for printable text.
func DecodeText(s core.String) string {
	b := []byte(s)
	switch {
	case bytes.HasPrefix(b, utf16BOM):
		out, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(b)
		if err == nil {
			return string(out)
		}
	case bytes.HasPrefix(b, utf8BOM):
		return string(b[len(utf8BOM):])
	}

	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}
