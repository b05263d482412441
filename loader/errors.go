package loader

import "errors"

// Load errors. None of these cross to the parser goroutine as a failure; the
// parser sees short or empty reads instead. They are reported through logs,
// Reason.Err and HostClient.
var (
	// ErrRangeUnavailable indicates a range fetch failed and the sequential
	// stream did not cover the gap.
	ErrRangeUnavailable = errors.New("byte range unavailable")

	// ErrStreamFailed indicates the sequential stream ended with an error.
	ErrStreamFailed = errors.New("sequential stream failed")

	// ErrSentinelDetected indicates the document cannot be loaded
	// incrementally. It is an expected condition, not a failure.
	ErrSentinelDetected = errors.New("document is not structured for incremental loading")

	// ErrTornDown indicates the loader was cleared while a read was pending.
	ErrTornDown = errors.New("loader torn down")
)
