// Package pdftest assembles small PDF files for tests.
package pdftest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// Builder writes objects in order and remembers their offsets.
type Builder struct {
	buf        bytes.Buffer
	offsets    map[int]int64
	compressed map[int][2]int // object number -> stream number, index
	linAt      int            // position of the /L placeholder, or -1
}

// New starts a file with the given header version, e.g. "1.7".
func New(version string) *Builder {
	b := &Builder{offsets: make(map[int]int64), compressed: make(map[int][2]int), linAt: -1}
	fmt.Fprintf(&b.buf, "%%PDF-%s\n%%\xe2\xe3\xcf\xd3\n", version)
	return b
}

// Linearized writes the linearization dictionary as object num. Its /L is
// patched with the final file length.
func (b *Builder) Linearized(num, pages int) *Builder {
	b.offsets[num] = int64(b.buf.Len())
	fmt.Fprintf(&b.buf, "%d 0 obj\n<< /Linearized 1 /L ", num)
	b.linAt = b.buf.Len()
	fmt.Fprintf(&b.buf, "%010d /N %d /O 3 /E 0 /T 0 /H [0 0] >>\nendobj\n", 0, pages)
	return b
}

// Object writes "num 0 obj body endobj".
func (b *Builder) Object(num int, body string) *Builder {
	b.offsets[num] = int64(b.buf.Len())
	fmt.Fprintf(&b.buf, "%d 0 obj\n%s\nendobj\n", num, body)
	return b
}

// Stream writes a stream object. dict holds the entries without /Length.
func (b *Builder) Stream(num int, dict string, data []byte) *Builder {
	b.offsets[num] = int64(b.buf.Len())
	fmt.Fprintf(&b.buf, "%d 0 obj\n<< %s /Length %d >>\nstream\n", num, dict, len(data))
	b.buf.Write(data)
	b.buf.WriteString("\nendstream\nendobj\n")
	return b
}

// ObjectStream writes an uncompressed object stream as object num holding
// bodies as objects first, first+1 and so on. Only XRefStream can point at
// them.
func (b *Builder) ObjectStream(num, first int, bodies ...string) *Builder {
	var header, body strings.Builder
	for i, obj := range bodies {
		fmt.Fprintf(&header, "%d %d ", first+i, body.Len())
		body.WriteString(obj)
		body.WriteByte(' ')
		b.compressed[first+i] = [2]int{num, i}
	}
	dict := fmt.Sprintf("/Type /ObjStm /N %d /First %d", len(bodies), header.Len())
	return b.Stream(num, dict, []byte(header.String()+body.String()))
}

// Raw appends bytes verbatim.
func (b *Builder) Raw(s string) *Builder {
	b.buf.WriteString(s)
	return b
}

// Offset returns where object num was written.
func (b *Builder) Offset(num int) int64 { return b.offsets[num] }

// Len returns the number of bytes written so far.
func (b *Builder) Len() int { return b.buf.Len() }

func (b *Builder) size() int {
	n := 0
	for k := range b.offsets {
		n = max(n, k)
	}
	for k := range b.compressed {
		n = max(n, k)
	}
	return n + 1
}

// XRefTable finishes the file with a classic xref table covering every
// object written, a trailer holding extra, and startxref.
func (b *Builder) XRefTable(extra string) []byte {
	start := b.buf.Len()
	n := b.size()
	fmt.Fprintf(&b.buf, "xref\n0 %d\n", n)
	b.buf.WriteString("0000000000 65535 f\r\n")
	for i := 1; i < n; i++ {
		if off, ok := b.offsets[i]; ok {
			fmt.Fprintf(&b.buf, "%010d 00000 n\r\n", off)
		} else {
			b.buf.WriteString("0000000000 00000 f\r\n")
		}
	}
	fmt.Fprintf(&b.buf, "trailer\n<< /Size %d %s >>\nstartxref\n%d\n%%%%EOF\n", n, extra, start)
	return b.finish()
}

// XRefStream finishes the file with an uncompressed xref stream written as
// object num, using /W [1 4 2].
func (b *Builder) XRefStream(num int, extra string) []byte {
	start := int64(b.buf.Len())
	b.offsets[num] = start
	n := b.size()

	var rows bytes.Buffer
	for i := 0; i < n; i++ {
		if c, ok := b.compressed[i]; ok {
			rows.WriteByte(2)
			binary.Write(&rows, binary.BigEndian, uint32(c[0]))
			binary.Write(&rows, binary.BigEndian, uint16(c[1]))
			continue
		}
		off, ok := b.offsets[i]
		if !ok {
			rows.Write([]byte{0, 0, 0, 0, 0, 0xFF, 0xFF})
			continue
		}
		rows.WriteByte(1)
		binary.Write(&rows, binary.BigEndian, uint32(off))
		rows.Write([]byte{0, 0})
	}

	b.Stream(num, fmt.Sprintf("/Type /XRef /Size %d /W [1 4 2] %s", n, extra), rows.Bytes())
	fmt.Fprintf(&b.buf, "startxref\n%d\n%%%%EOF\n", start)
	return b.finish()
}

func (b *Builder) finish() []byte {
	out := bytes.Clone(b.buf.Bytes())
	if b.linAt >= 0 {
		copy(out[b.linAt:], fmt.Sprintf("%010d", len(out)))
	}
	return out
}

// Document returns a minimal valid document with the given page count and
// a classic xref table. The catalog is object 1 and the info dictionary 2.
func Document(pages int) []byte {
	return pageTree(New("1.7"), pages).XRefTable("/Root 1 0 R /Info 2 0 R")
}

// LinearizedDocument is Document with a linearization dictionary first.
func LinearizedDocument(pages int) []byte {
	return pageTree(New("1.7").Linearized(100, pages), pages).XRefTable("/Root 1 0 R /Info 2 0 R")
}

func pageTree(b *Builder, pages int) *Builder {
	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", 10+i)
	}
	b.Object(1, "<< /Type /Catalog /Pages 3 0 R >>")
	b.Object(2, "<< /Title (Incremental) /Producer (pdftest) >>")
	b.Object(3, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	for i := range kids {
		b.Object(10+i, "<< /Type /Page /Parent 3 0 R /MediaBox [0 0 612 792] >>")
	}
	return b
}
