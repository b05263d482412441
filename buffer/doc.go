// Package buffer provides the growable byte store that backs an incremental
// document load.
//
// A [Buffer] is indexed by absolute document offset. Bytes arrive from two
// places:
//
//   - the sequential stream, via [Buffer.Append], always in document order
//   - range fetches, via [Buffer.Splice], accepted only when they are
//     contiguous with the bytes already available
//
// [Buffer.Available] reports how many contiguous bytes from offset 0 can be
// read without any further network activity. It never decreases.
//
// # Views
//
// [Buffer.Read] and [Buffer.ReadAvailable] return slices that alias the
// internal storage. A later Append or Splice may reallocate that storage, so
// callers must copy out anything they want to keep before yielding control.
package buffer
