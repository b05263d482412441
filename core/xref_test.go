package core

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/tsawler/rangeload/internal/pdftest"
)

func TestFindStartXRef(t *testing.T) {
	doc := pdftest.Document(2)
	off, err := FindStartXRef(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		t.Fatalf("FindStartXRef: %v", err)
	}
	if !bytes.HasPrefix(doc[off:], []byte("xref")) {
		t.Errorf("offset %d does not point at xref", off)
	}
}

func TestFindStartXRefErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"no keyword", "%PDF-1.4\n1 0 obj null endobj\n"},
		{"no offset", "%PDF-1.4\nstartxref\n%%EOF"},
		{"offset past end", "%PDF-1.4\nstartxref\n99999\n%%EOF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FindStartXRef(strings.NewReader(tt.doc), int64(len(tt.doc)))
			if !errors.Is(err, ErrXRefNotFound) {
				t.Errorf("err = %v, want ErrXRefNotFound", err)
			}
		})
	}
}

func TestReadXRefTable(t *testing.T) {
	b := pdftest.New("1.4").
		Object(1, "<< /Type /Catalog /Pages 2 0 R >>").
		Object(2, "<< /Type /Pages /Kids [] /Count 0 >>").
		Object(4, "(skipped 3)")
	doc := b.XRefTable("/Root 1 0 R")
	r := bytes.NewReader(doc)

	start, err := FindStartXRef(r, int64(len(doc)))
	if err != nil {
		t.Fatal(err)
	}
	table, err := ReadXRef(r, int64(len(doc)), start)
	if err != nil {
		t.Fatalf("ReadXRef: %v", err)
	}

	if table.Len() != 5 {
		t.Errorf("Len() = %d, want 5", table.Len())
	}
	for _, num := range []int{1, 2, 4} {
		e, ok := table.Get(num)
		if !ok || e.Type != EntryInUse || e.Offset != b.Offset(num) {
			t.Errorf("entry %d = %+v, want offset %d", num, e, b.Offset(num))
		}
	}
	if e, _ := table.Get(3); e.Type != EntryFree {
		t.Errorf("entry 3 = %+v, want free", e)
	}
	if ref, ok := table.Trailer.GetIndirectRef("Root"); !ok || ref.Number != 1 {
		t.Errorf("trailer /Root = %v", table.Trailer["Root"])
	}
}

func TestReadXRefStream(t *testing.T) {
	b := pdftest.New("1.5").
		Object(1, "<< /Type /Catalog /Pages 2 0 R >>").
		Object(2, "<< /Type /Pages /Kids [] /Count 0 >>")
	doc := b.XRefStream(3, "/Root 1 0 R")
	r := bytes.NewReader(doc)

	start, err := FindStartXRef(r, int64(len(doc)))
	if err != nil {
		t.Fatal(err)
	}
	table, err := ReadXRef(r, int64(len(doc)), start)
	if err != nil {
		t.Fatalf("ReadXRef: %v", err)
	}

	for _, num := range []int{1, 2, 3} {
		e, ok := table.Get(num)
		if !ok || e.Type != EntryInUse || e.Offset != b.Offset(num) {
			t.Errorf("entry %d = %+v, want offset %d", num, e, b.Offset(num))
		}
	}
	if _, ok := table.Trailer.GetIndirectRef("Root"); !ok {
		t.Error("trailer has no /Root")
	}
	if typ, _ := table.Trailer.GetName("Type"); typ != "XRef" {
		t.Errorf("trailer /Type = %q", typ)
	}
}

func TestXRefFromStreamCompressedEntries(t *testing.T) {
	rows := []byte{
		1, 0x00, 0x10, 0,
		2, 0x00, 0x05, 3,
		0, 0x00, 0x00, 1,
		7, 0x00, 0x00, 0,
	}
	s := &Stream{
		Dict: Dict{
			"Type":  Name("XRef"),
			"Size":  Int(14),
			"W":     Array{Int(1), Int(2), Int(1)},
			"Index": Array{Int(10), Int(4)},
		},
		Data: rows,
	}

	table, err := xrefFromStream(s)
	if err != nil {
		t.Fatalf("xrefFromStream: %v", err)
	}
	want := map[int]XRefEntry{
		10: {Type: EntryInUse, Offset: 16},
		11: {Type: EntryCompressed, Stream: 5, Index: 3},
		12: {Type: EntryFree, Generation: 1},
	}
	for num, w := range want {
		if got, _ := table.Get(num); got != w {
			t.Errorf("entry %d = %+v, want %+v", num, got, w)
		}
	}
	if _, ok := table.Get(13); ok {
		t.Error("unknown entry type was recorded")
	}
}

func TestReadXRefFollowsPrev(t *testing.T) {
	// An original file plus an incremental update that replaces object 2
	// and frees object 3.
	b := pdftest.New("1.4").
		Object(1, "<< /Type /Catalog >>").
		Object(2, "(old)").
		Object(3, "(gone)")
	first := b.XRefTable("/Root 1 0 R /Info 3 0 R")
	firstXRef := bytes.LastIndex(first, []byte("xref\n0 "))

	var buf bytes.Buffer
	buf.Write(first)
	newTwo := buf.Len()
	buf.WriteString("2 0 obj\n(new)\nendobj\n")
	update := buf.Len()
	fmt.Fprintf(&buf, "xref\n2 2\n%010d 00000 n\r\n0000000000 00001 f\r\n", newTwo)
	fmt.Fprintf(&buf, "trailer\n<< /Size 4 /Root 1 0 R /Prev %d >>\nstartxref\n%d\n%%%%EOF\n", firstXRef, update)
	doc := buf.Bytes()

	r := bytes.NewReader(doc)
	start, err := FindStartXRef(r, int64(len(doc)))
	if err != nil {
		t.Fatal(err)
	}
	if start != int64(update) {
		t.Fatalf("startxref = %d, want %d", start, update)
	}
	table, err := ReadXRef(r, int64(len(doc)), start)
	if err != nil {
		t.Fatalf("ReadXRef: %v", err)
	}

	if e, _ := table.Get(2); e.Offset != int64(newTwo) {
		t.Errorf("object 2 at %d, want the updated copy at %d", e.Offset, newTwo)
	}
	if e, _ := table.Get(3); e.Type != EntryFree {
		t.Errorf("object 3 = %+v, want free", e)
	}
	if e, _ := table.Get(1); e.Offset != b.Offset(1) {
		t.Errorf("object 1 at %d, want %d", e.Offset, b.Offset(1))
	}
	if table.Trailer.Has("Prev") {
		t.Error("merged trailer kept /Prev")
	}
	if !table.Trailer.Has("Info") {
		t.Error("merged trailer lost /Info from the older section")
	}
}

func TestReadXRefBrokenPrev(t *testing.T) {
	doc := pdftest.New("1.4").
		Object(1, "<< /Type /Catalog >>").
		XRefTable("/Root 1 0 R /Prev 9")

	r := bytes.NewReader(doc)
	start, _ := FindStartXRef(r, int64(len(doc)))
	table, err := ReadXRef(r, int64(len(doc)), start)
	if err != nil {
		t.Fatalf("ReadXRef: %v", err)
	}
	if _, ok := table.Get(1); !ok {
		t.Error("entries of the newest section were lost")
	}

	if _, err := ReadXRef(r, int64(len(doc)), 9); err == nil {
		t.Error("expected an error for a bad first section")
	}
}
