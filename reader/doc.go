// Package reader resolves the objects of a PDF document through an
// io.ReaderAt and summarizes the document.
//
// A [Reader] reads the header and cross-reference data up front and loads
// other objects on demand, so over a source that is still downloading only
// the byte ranges of the objects actually used are requested:
//
//	r, err := reader.NewReader(src, size)
//	if err != nil {
//	    return err
//	}
//	n, err := r.PageCount()
//
// [Inspect] is the parse an incremental loader runs on its worker thread. It
// checks the document is a linearized PDF before touching the
// cross-reference data at the end of the file, and signals the source when
// the document has to be downloaded in full instead.
package reader
