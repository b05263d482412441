package loader

// Config holds loader settings.
type Config struct {
	// ExpectedLength is the document length announced by the server, or -1
	// when unknown. Requests are clipped to it.
	ExpectedLength int64

	// InitialCapacity sizes the data buffer when ExpectedLength is unknown.
	InitialCapacity int

	// MinimumFetchSize widens small range fetches so that a parser reading in
	// small steps does not issue one network request per read. Zero fetches
	// exactly the missing bytes.
	MinimumFetchSize int

	// CancelRedundantFetches cancels a range fetch once the sequential stream
	// has covered its request. When false the fetch runs to completion and its
	// result is discarded.
	CancelRedundantFetches bool
}

// DefaultConfig returns the default loader settings.
func DefaultConfig() Config {
	return Config{
		ExpectedLength:         -1,
		InitialCapacity:        256 * 1024,
		MinimumFetchSize:       0,
		CancelRedundantFetches: true,
	}
}

// capacityHint picks the initial buffer size.
func (c Config) capacityHint() int {
	if c.ExpectedLength > 0 {
		// The announced length is not trusted with an allocation; the
		// buffer doubles as bytes arrive.
		return int(min(c.ExpectedLength, maxCapacityHint))
	}
	if c.InitialCapacity > 0 {
		return c.InitialCapacity
	}
	return 0
}

// maxCapacityHint bounds the up-front allocation for an announced length.
const maxCapacityHint = 8 << 20
