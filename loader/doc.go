// Package loader lets a parser treat a document that is still downloading as
// a seekable file.
//
// # Execution contexts
//
// A [Loader] lives on a [runloop.RunLoop], which plays the part of the main
// thread. All of its state (the data buffer, the request registry, the mode)
// is touched only by tasks running on that loop. Network callbacks reach it
// through the loop as well.
//
// A parser runs on a dedicated worker goroutine started by
// [Loader.StartParser]. Its reads go through [Loader.ReadBytesBlocking], which
// posts a request to the loop and parks the worker until the bytes arrive. The
// loop never waits on the worker.
//
// # Requests
//
// [Loader.RequestBytes] is the asynchronous entry point. A range already in
// the buffer completes immediately. A range already covered by an outstanding
// request joins that request. Anything else starts a range fetch for the
// missing tail while the sequential stream keeps running; whichever source
// covers the range first completes it.
//
// # Modes
//
// The loader starts incremental. When the sequential stream finishes, fails,
// or the parser reports that the document cannot be read incrementally, it
// moves through Transitioning to Complete. Every request pending at that point
// is resolved with the best bytes available, and no fetch is issued afterward.
package loader
