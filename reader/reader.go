package reader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tsawler/rangeload/core"
)

var log = commonlog.GetLogger("rangeload.reader")

var (
	// ErrNotPDF is returned when no %PDF- header is found.
	ErrNotPDF = errors.New("not a PDF file")
	// ErrObjectNotFound is returned for object numbers without an in-use
	// xref entry.
	ErrObjectNotFound = errors.New("object not found")
)

// maxRefDepth bounds chains of references to references.
const maxRefDepth = 32

// Version is the header version of a PDF file.
type Version struct {
	Major int
	Minor int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Reader resolves objects of a PDF file through an io.ReaderAt. It only
// reads the bytes needed for the objects asked for, so it works over a
// source that is still downloading. A Reader is safe for concurrent use.
type Reader struct {
	src     io.ReaderAt
	size    int64
	version Version
	xref    *core.XRefTable
	closer  io.Closer

	mu         sync.Mutex
	cache      map[int]core.Object
	objStreams map[int]*core.ObjectStream
	loading    map[int]bool
}

// NewReader reads the header and cross-reference data of the size byte
// document in src.
func NewReader(src io.ReaderAt, size int64) (*Reader, error) {
	version, err := ReadHeader(src)
	if err != nil {
		return nil, err
	}
	return newReader(src, size, version)
}

func newReader(src io.ReaderAt, size int64, version Version) (*Reader, error) {
	start, err := core.FindStartXRef(src, size)
	if err != nil {
		return nil, err
	}
	xref, err := core.ReadXRef(src, size, start)
	if err != nil {
		return nil, fmt.Errorf("load xref: %w", err)
	}
	log.Debugf("xref at %d with %d entries", start, xref.Len())

	return &Reader{
		src:        src,
		size:       size,
		version:    version,
		xref:       xref,
		cache:      make(map[int]core.Object),
		objStreams: make(map[int]*core.ObjectStream),
		loading:    make(map[int]bool),
	}, nil
}

// Open opens a PDF file on disk. Close releases it.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	r, err := NewReader(f, st.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// headerWindow is how far into the file the header may start.
const headerWindow = 1024

// ReadHeader finds %PDF-x.y within the first kilobyte of src.
func ReadHeader(src io.ReaderAt) (Version, error) {
	head, err := readHead(src)
	if err != nil {
		return Version{}, err
	}
	v, _, err := parseHeader(head)
	return v, err
}

func readHead(src io.ReaderAt) ([]byte, error) {
	head := make([]byte, headerWindow)
	n, err := src.ReadAt(head, 0)
	if n == 0 && err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	return head[:n], nil
}

// parseHeader returns the version and the index just past the header line.
func parseHeader(head []byte) (Version, int, error) {
	i := bytes.Index(head, []byte("%PDF-"))
	if i < 0 {
		return Version{}, 0, ErrNotPDF
	}
	rest := head[i+5:]

	end := bytes.IndexAny(rest, "\r\n")
	if end < 0 {
		end = len(rest)
	}
	major, minor, ok := bytes.Cut(bytes.TrimSpace(rest[:end]), []byte("."))
	if !ok {
		return Version{}, 0, fmt.Errorf("%w: bad version %q", ErrNotPDF, rest[:end])
	}
	v := Version{}
	if v.Major, ok = atoi(major); !ok {
		return Version{}, 0, fmt.Errorf("%w: bad version %q", ErrNotPDF, rest[:end])
	}
	// Trailing junk after the minor digit is common; keep the digits.
	digits := 0
	for digits < len(minor) && minor[digits] >= '0' && minor[digits] <= '9' {
		digits++
	}
	if v.Minor, ok = atoi(minor[:digits]); !ok {
		return Version{}, 0, fmt.Errorf("%w: bad version %q", ErrNotPDF, rest[:end])
	}
	return v, i + 5 + end, nil
}

func atoi(b []byte) (int, bool) {
	n, err := strconv.Atoi(string(b))
	return n, err == nil
}

func (r *Reader) Version() Version { return r.version }

// Size returns the document length in bytes.
func (r *Reader) Size() int64 { return r.size }

func (r *Reader) Trailer() core.Dict { return r.xref.Trailer }

// NumObjects returns the number of in-use and compressed objects.
func (r *Reader) NumObjects() int {
	n := 0
	for _, e := range r.xref.Entries {
		if e.Type != core.EntryFree {
			n++
		}
	}
	return n
}

// GetObject returns object num, loading and caching it on first use.
func (r *Reader) GetObject(num int) (core.Object, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.object(num)
}

// ResolveReference implements core.ReferenceResolver.
func (r *Reader) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return r.GetObject(ref.Number)
}

// Resolve follows obj while it is an indirect reference.
func (r *Reader) Resolve(obj core.Object) (core.Object, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolve(obj)
}

// lockedResolver serves stream lengths while r.mu is already held.
type lockedResolver struct{ r *Reader }

func (l lockedResolver) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return l.r.object(ref.Number)
}

func (r *Reader) resolve(obj core.Object) (core.Object, error) {
	for i := 0; i < maxRefDepth; i++ {
		ref, ok := obj.(core.IndirectRef)
		if !ok {
			return obj, nil
		}
		var err error
		if obj, err = r.object(ref.Number); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("reference chain longer than %d", maxRefDepth)
}

func (r *Reader) object(num int) (core.Object, error) {
	if obj, ok := r.cache[num]; ok {
		return obj, nil
	}
	if r.loading[num] {
		return nil, fmt.Errorf("object %d refers to itself while loading", num)
	}
	r.loading[num] = true
	defer delete(r.loading, num)

	entry, ok := r.xref.Get(num)
	if !ok || entry.Type == core.EntryFree {
		return nil, fmt.Errorf("%w: %d", ErrObjectNotFound, num)
	}

	var obj core.Object
	var err error
	switch entry.Type {
	case core.EntryInUse:
		obj, err = r.readObject(num, entry.Offset)
	case core.EntryCompressed:
		obj, err = r.compressedObject(num, entry)
	}
	if err != nil {
		return nil, err
	}

	r.cache[num] = obj
	return obj, nil
}

func (r *Reader) readObject(num int, offset int64) (core.Object, error) {
	ind, err := core.ReadIndirectObjectAt(r.src, r.size, offset, lockedResolver{r})
	if err != nil {
		return nil, fmt.Errorf("object %d: %w", num, err)
	}
	if ind.Ref.Number != num {
		return nil, fmt.Errorf("object %d: xref points at object %d", num, ind.Ref.Number)
	}
	return ind.Object, nil
}

func (r *Reader) compressedObject(num int, entry core.XRefEntry) (core.Object, error) {
	stm, ok := r.objStreams[entry.Stream]
	if !ok {
		obj, err := r.object(entry.Stream)
		if err != nil {
			return nil, fmt.Errorf("object stream %d: %w", entry.Stream, err)
		}
		s, ok := obj.(*core.Stream)
		if !ok {
			return nil, fmt.Errorf("object stream %d is a %s", entry.Stream, obj.Type())
		}
		if stm, err = core.NewObjectStream(s); err != nil {
			return nil, fmt.Errorf("object stream %d: %w", entry.Stream, err)
		}
		r.objStreams[entry.Stream] = stm
	}

	obj, n, err := stm.Object(entry.Index)
	if err == nil && n == num {
		return obj, nil
	}
	return stm.Lookup(num)
}

// GetCatalog returns the document catalog named by the trailer /Root.
func (r *Reader) GetCatalog() (core.Dict, error) {
	return r.trailerDict("Root")
}

// GetInfo returns the /Info dictionary, or nil when the document has none.
func (r *Reader) GetInfo() (core.Dict, error) {
	if !r.xref.Trailer.Has("Info") {
		return nil, nil
	}
	return r.trailerDict("Info")
}

func (r *Reader) trailerDict(key string) (core.Dict, error) {
	obj, err := r.Resolve(r.xref.Trailer.Get(key))
	if err != nil {
		return nil, fmt.Errorf("trailer /%s: %w", key, err)
	}
	d, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("trailer /%s is not a dictionary", key)
	}
	return d, nil
}

// PageCount returns /Count of the root page tree node, walking /Kids when
// the count is missing.
func (r *Reader) PageCount() (int, error) {
	catalog, err := r.GetCatalog()
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	root, err := r.resolve(catalog.Get("Pages"))
	if err != nil {
		return 0, fmt.Errorf("catalog /Pages: %w", err)
	}
	node, ok := root.(core.Dict)
	if !ok {
		return 0, errors.New("catalog /Pages is not a dictionary")
	}
	return r.countPages(node, 0)
}

func (r *Reader) countPages(node core.Dict, depth int) (int, error) {
	if depth > maxRefDepth {
		return 0, errors.New("page tree too deep")
	}
	if count, err := r.resolve(node.Get("Count")); err == nil {
		if n, ok := count.(core.Int); ok && n >= 0 {
			return int(n), nil
		}
	}
	if t, _ := node.GetName("Type"); t == "Page" {
		return 1, nil
	}

	kids, _ := r.resolve(node.Get("Kids"))
	arr, _ := kids.(core.Array)
	total := 0
	for _, kid := range arr {
		obj, err := r.resolve(kid)
		if err != nil {
			return 0, err
		}
		if d, ok := obj.(core.Dict); ok {
			n, err := r.countPages(d, depth+1)
			if err != nil {
				return 0, err
			}
			total += n
		}
	}
	return total, nil
}
