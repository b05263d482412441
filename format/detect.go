// Package format identifies document formats and whether they can be
// parsed before the download completes.
package format

import (
	"archive/zip"
	"bytes"
	"io"
	"mime"
	"path/filepath"
	"strings"
)

type Format int

const (
	Unknown Format = iota
	PDF
	// ZIP is a zip container whose members have not been inspected.
	ZIP
	DOCX
	ODT
	XLSX
	PPTX
	EPUB
	HTML
)

var formats = []struct {
	name, ext, mime string
}{
	Unknown: {"Unknown", "", ""},
	PDF:     {"PDF", ".pdf", "application/pdf"},
	ZIP:     {"ZIP", ".zip", "application/zip"},
	DOCX:    {"DOCX", ".docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	ODT:     {"ODT", ".odt", "application/vnd.oasis.opendocument.text"},
	XLSX:    {"XLSX", ".xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	PPTX:    {"PPTX", ".pptx", "application/vnd.openxmlformats-officedocument.presentationml.presentation"},
	EPUB:    {"EPUB", ".epub", "application/epub+zip"},
	HTML:    {"HTML", ".html", "text/html"},
}

func (f Format) valid() bool { return f >= 0 && int(f) < len(formats) }

func (f Format) String() string {
	if !f.valid() {
		return "Unknown"
	}
	return formats[f].name
}

// Extension returns the usual file extension, or "".
func (f Format) Extension() string {
	if !f.valid() {
		return ""
	}
	return formats[f].ext
}

// SupportsIncremental reports whether a document can be parsed from byte
// ranges while it downloads. Only PDF qualifies: zip containers keep their
// directory at the end and HTML has no random access structure.
func (f Format) SupportsIncremental() bool { return f == PDF }

// Detect guesses the format from a file name.
func Detect(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".htm" {
		return HTML
	}
	for f := PDF; int(f) < len(formats); f++ {
		if formats[f].ext == ext {
			return f
		}
	}
	return Unknown
}

// DetectFromContentType maps a Content-Type header value to a format.
func DetectFromContentType(contentType string) Format {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return Unknown
	}
	if mt == "application/xhtml+xml" {
		return HTML
	}
	for f := PDF; int(f) < len(formats); f++ {
		if formats[f].mime == mt {
			return f
		}
	}
	return Unknown
}

var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte("PK\x03\x04")
)

// DetectFromMagic inspects the first bytes of a document. A zip container
// is reported as ZIP; DetectFromReader tells its flavours apart.
func DetectFromMagic(data []byte) Format {
	// Some producers put junk before the header; readers accept it within
	// the first kilobyte.
	if i := bytes.Index(data[:min(len(data), 1024)], pdfMagic); i >= 0 {
		return PDF
	}
	if bytes.HasPrefix(data, zipMagic) {
		return ZIP
	}
	if looksLikeHTML(data) {
		return HTML
	}
	return Unknown
}

func looksLikeHTML(data []byte) bool {
	head := bytes.ToUpper(bytes.TrimLeft(data[:min(len(data), 512)], " \t\r\n\xef\xbb\xbf"))
	switch {
	case bytes.HasPrefix(head, []byte("<!DOCTYPE HTML")), bytes.HasPrefix(head, []byte("<HTML")):
		return true
	case bytes.HasPrefix(head, []byte("<?XML")):
		return bytes.Contains(head, []byte("<HTML"))
	}
	return false
}

// DetectFromReader inspects a complete document, opening zip containers
// to name the format inside.
func DetectFromReader(r io.ReaderAt, size int64) (Format, error) {
	head := make([]byte, min(size, 1024))
	n, err := r.ReadAt(head, 0)
	if err != nil && err != io.EOF {
		return Unknown, err
	}

	f := DetectFromMagic(head[:n])
	if f != ZIP {
		return f, nil
	}
	return detectZIP(r, size)
}

func detectZIP(r io.ReaderAt, size int64) (Format, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return Unknown, err
	}

	for _, f := range zr.File {
		if f.Name != "mimetype" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			break
		}
		mt, _ := io.ReadAll(io.LimitReader(rc, 256))
		rc.Close()
		switch strings.TrimSpace(string(mt)) {
		case formats[ODT].mime:
			return ODT, nil
		case formats[EPUB].mime:
			return EPUB, nil
		}
	}

	for _, f := range zr.File {
		switch {
		case strings.HasPrefix(f.Name, "word/"):
			return DOCX, nil
		case strings.HasPrefix(f.Name, "xl/"):
			return XLSX, nil
		case strings.HasPrefix(f.Name, "ppt/"):
			return PPTX, nil
		}
	}
	return ZIP, nil
}
