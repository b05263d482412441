package format

import (
	"archive/zip"
	"bytes"
	"testing"
)

func TestFormatString(t *testing.T) {
	tests := []struct {
		format Format
		name   string
		ext    string
	}{
		{PDF, "PDF", ".pdf"},
		{ZIP, "ZIP", ".zip"},
		{DOCX, "DOCX", ".docx"},
		{ODT, "ODT", ".odt"},
		{XLSX, "XLSX", ".xlsx"},
		{PPTX, "PPTX", ".pptx"},
		{EPUB, "EPUB", ".epub"},
		{HTML, "HTML", ".html"},
		{Unknown, "Unknown", ""},
		{Format(99), "Unknown", ""},
		{Format(-1), "Unknown", ""},
	}

	for _, tt := range tests {
		if got := tt.format.String(); got != tt.name {
			t.Errorf("Format(%d).String() = %q, want %q", tt.format, got, tt.name)
		}
		if got := tt.format.Extension(); got != tt.ext {
			t.Errorf("Format(%d).Extension() = %q, want %q", tt.format, got, tt.ext)
		}
	}
}

func TestSupportsIncremental(t *testing.T) {
	for f := Unknown; f <= HTML; f++ {
		if got, want := f.SupportsIncremental(), f == PDF; got != want {
			t.Errorf("%s.SupportsIncremental() = %v", f, got)
		}
	}
}

func TestDetect(t *testing.T) {
	tests := map[string]Format{
		"report.pdf":     PDF,
		"REPORT.PDF":     PDF,
		"letter.docx":    DOCX,
		"sheet.xlsx":     XLSX,
		"deck.pptx":      PPTX,
		"novel.epub":     EPUB,
		"text.odt":       ODT,
		"index.htm":      HTML,
		"index.html":     HTML,
		"archive.tar.gz": Unknown,
		"noext":          Unknown,
	}
	for name, want := range tests {
		if got := Detect(name); got != want {
			t.Errorf("Detect(%q) = %s, want %s", name, got, want)
		}
	}
}

func TestDetectFromContentType(t *testing.T) {
	tests := map[string]Format{
		"application/pdf":            PDF,
		"application/PDF; qs=0.9":    PDF,
		"text/html; charset=utf-8":   HTML,
		"application/xhtml+xml":      HTML,
		"application/zip":            ZIP,
		"application/epub+zip":       EPUB,
		"application/octet-stream":   Unknown,
		"":                           Unknown,
		"not a / media type; ===":    Unknown,
		formats[DOCX].mime + "; v=1": DOCX,
		formats[ODT].mime:            ODT,
	}
	for ct, want := range tests {
		if got := DetectFromContentType(ct); got != want {
			t.Errorf("DetectFromContentType(%q) = %s, want %s", ct, got, want)
		}
	}
}

func TestDetectFromMagic(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Format
	}{
		{"pdf", "%PDF-1.7\n", PDF},
		{"pdf after junk", "\x00\x00garbage\n%PDF-1.4\n", PDF},
		{"zip", "PK\x03\x04rest", ZIP},
		{"doctype", "  <!DOCTYPE html><html>", HTML},
		{"html tag", "<HTML><body>", HTML},
		{"xhtml", "<?xml version=\"1.0\"?>\n<html xmlns=\"x\">", HTML},
		{"plain xml", "<?xml version=\"1.0\"?><feed/>", Unknown},
		{"short", "%P", Unknown},
		{"empty", "", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFromMagic([]byte(tt.data)); got != tt.want {
				t.Errorf("DetectFromMagic() = %s, want %s", got, tt.want)
			}
		})
	}
}

func makeZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	// mimetype goes first, as the container formats require.
	if mt, ok := files["mimetype"]; ok {
		w, _ := zw.Create("mimetype")
		w.Write([]byte(mt))
	}
	for name, body := range files {
		if name == "mimetype" {
			continue
		}
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(body))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDetectFromReader(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  Format
	}{
		{"docx", map[string]string{"[Content_Types].xml": "", "word/document.xml": ""}, DOCX},
		{"xlsx", map[string]string{"xl/workbook.xml": ""}, XLSX},
		{"pptx", map[string]string{"ppt/presentation.xml": ""}, PPTX},
		{"odt", map[string]string{"mimetype": "application/vnd.oasis.opendocument.text", "content.xml": ""}, ODT},
		{"epub", map[string]string{"mimetype": "application/epub+zip", "OEBPS/content.opf": ""}, EPUB},
		{"plain zip", map[string]string{"readme.txt": "hi"}, ZIP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := makeZip(t, tt.files)
			got, err := DetectFromReader(bytes.NewReader(data), int64(len(data)))
			if err != nil {
				t.Fatalf("DetectFromReader: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}

	pdf := []byte("%PDF-1.7\n%%EOF\n")
	if got, err := DetectFromReader(bytes.NewReader(pdf), int64(len(pdf))); err != nil || got != PDF {
		t.Errorf("pdf: got %s, %v", got, err)
	}

	broken := []byte("PK\x03\x04 not really a zip")
	if _, err := DetectFromReader(bytes.NewReader(broken), int64(len(broken))); err == nil {
		t.Error("expected an error for a broken zip")
	}
}
