package reader

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/tsawler/rangeload/core"
	"github.com/tsawler/rangeload/internal/pdftest"
)

// fakeSource is an in-memory Source that counts sentinel notifications.
type fakeSource struct {
	*bytes.Reader
	size     int64
	sentinel int
}

func newFakeSource(doc []byte) *fakeSource {
	return &fakeSource{Reader: bytes.NewReader(doc), size: int64(len(doc))}
}

func (s *fakeSource) Size() int64                   { return s.size }
func (s *fakeSource) NotifyNonIncrementalSentinel() { s.sentinel++ }

func TestReadLinearization(t *testing.T) {
	doc := pdftest.LinearizedDocument(4)
	lin, err := ReadLinearization(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		t.Fatalf("ReadLinearization: %v", err)
	}
	if lin.Length != int64(len(doc)) || lin.Pages != 4 || lin.Object != 100 {
		t.Errorf("Linearization = %+v", lin)
	}
}

func TestReadLinearizationRejects(t *testing.T) {
	updated := append(pdftest.LinearizedDocument(1), "\n% appended update\n"...)

	tests := []struct {
		name string
		doc  []byte
	}{
		{"plain document", pdftest.Document(1)},
		{"length mismatch", updated},
		{"first object not a dict", []byte("%PDF-1.4\n1 0 obj 5 endobj\n")},
		{"no objects", []byte("%PDF-1.4\n%comment only\n")},
		{"garbage", []byte("%PDF-1.4\n<<<<\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadLinearization(bytes.NewReader(tt.doc), int64(len(tt.doc)))
			if !errors.Is(err, ErrNotLinearized) {
				t.Errorf("err = %v, want ErrNotLinearized", err)
			}
		})
	}
}

func TestInspectLinearized(t *testing.T) {
	doc := pdftest.LinearizedDocument(5)
	src := newFakeSource(doc)

	info, err := Inspect(context.Background(), src)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if src.sentinel != 0 {
		t.Errorf("sentinel raised %d times", src.sentinel)
	}
	if !info.Linearized || info.Pages != 5 || info.Size != int64(len(doc)) {
		t.Errorf("Info = %+v", info)
	}
	if info.Title != "Incremental" || info.Producer != "pdftest" {
		t.Errorf("Title/Producer = %q/%q", info.Title, info.Producer)
	}
}

func TestInspectSentinel(t *testing.T) {
	unknown := newFakeSource(pdftest.LinearizedDocument(1))
	unknown.size = -1

	tests := []struct {
		name string
		src  *fakeSource
		want error
	}{
		{"not linearized", newFakeSource(pdftest.Document(2)), ErrNotLinearized},
		{"html", newFakeSource([]byte("<!DOCTYPE html><html></html>")), ErrNotPDF},
		{"zip", newFakeSource([]byte("PK\x03\x04....")), ErrNotPDF},
		{"unknown size", unknown, ErrUnknownSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Inspect(context.Background(), tt.src)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if tt.src.sentinel != 1 {
				t.Errorf("sentinel raised %d times, want 1", tt.src.sentinel)
			}
		})
	}
}

func TestInspectCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := newFakeSource(pdftest.LinearizedDocument(1))
	if _, err := Inspect(ctx, src); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestInfo(t *testing.T) {
	doc := pdftest.New("1.6").
		Object(1, "<< /Type /Catalog /Pages 3 0 R >>").
		Object(2, "<< /Title <FEFF00480069> /Author (Caf\\351) /Subject 5 0 R >>").
		Object(3, "<< /Type /Pages /Kids [] /Count 0 >>").
		Object(5, "(indirect subject)").
		XRefTable("/Root 1 0 R /Info 2 0 R /Encrypt << /Filter /Standard >>")

	info, err := newTestReader(t, doc).Info()
	if err != nil {
		t.Fatalf("Info: %v", err)
	}

	want := Info{
		Version:   Version{1, 6},
		Size:      int64(len(doc)),
		Encrypted: true,
		Objects:   4,
		Title:     "Hi",
		Author:    "Café",
		Subject:   "indirect subject",
	}
	if *info != want {
		t.Errorf("Info = %+v\nwant %+v", *info, want)
	}
}

func TestDecodeText(t *testing.T) {
	tests := []struct {
		in   core.String
		want string
	}{
		{"plain", "plain"},
		{"\xfe\xff\x00A\x00B", "AB"},
		{"\xef\xbb\xbfutf-8 \xc3\xa9", "utf-8 é"},
		{"na\xefve", "naïve"},
	}
	for _, tt := range tests {
		if got := DecodeText(tt.in); got != tt.want {
			t.Errorf("DecodeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
