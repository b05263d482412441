// Package core provides PDF syntax primitives: the object model, a lexer
// and parser over in-memory windows, cross-reference tables and streams,
// object streams and stream decoding.
//
// Nothing here assumes the whole file is in memory. Objects are read
// through an io.ReaderAt in windows that start small and double while the
// object runs past the end of the window, so a reader backed by an
// incremental loader only pulls the byte ranges the parse actually needs:
//
//	start, err := core.FindStartXRef(r, size)
//	xref, err := core.ReadXRef(r, size, start)
//	obj, err := core.ReadIndirectObjectAt(r, size, entry.Offset, resolver)
//
// # Object Types
//
// [Null], [Bool], [Int], [Real], [String], [Name], [Array] and [Dict]
// cover the basic types; [Stream] pairs a dictionary with its data and
// [IndirectRef] points at another object.
package core
