// Package fetch provides the network side of an incremental load.
//
// Two kinds of transfer feed a loader:
//
//   - the sequential stream, which downloads the whole document in order and
//     reports through a [StreamSink]
//   - range fetches, started with [RangeFetcher.StartRangeFetch], which fetch a
//     single [offset, offset+count) window out of band and report through a
//     [RangeSink]
//
// Every callback is posted through a [Dispatcher] so it runs on the loader's
// run loop, never on the transfer goroutine. After [Handle.Cancel] returns no
// further callbacks are delivered for that handle.
//
// # Sources
//
// [HTTPSource] talks to an HTTP server using Range requests. It enables
// HTTP/2 on its transport and records an OpenTelemetry span for every
// transfer.
//
// [FileSource] serves a local file with optional artificial latency. It is
// useful for exercising a loader without a network.
package fetch
