// Package rangereq tracks outstanding byte-range requests for an incremental
// load.
//
// A [Request] describes a window [Offset, Offset+Count) that a reader is
// waiting on. It may own a fetch handle for the part of the window that had to
// be requested out of band, and it accumulates the bytes that fetch delivers.
// Several observers can wait on one request; when the request completes each
// observer is called exactly once, in the order it attached.
//
// A [Registry] maps identifiers to requests in creation order and keeps a
// reverse index from fetch handles to identifiers so a torn down fetch can be
// forgotten without scanning.
//
// Nothing in this package is safe for concurrent use. The loader confines
// requests and the registry to its run loop.
package rangereq
