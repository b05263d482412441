package rangeload

import (
	"io"
	"net/http"
	"time"

	"github.com/tsawler/rangeload/fetch"
	"github.com/tsawler/rangeload/loader"
)

// Options holds configuration for a Session.
type Options struct {
	// Transfer
	chunkSize int
	userAgent string
	timeout   time.Duration // per HTTP request
	client    *http.Client

	// Loader
	minimumFetchSize int
	cancelRedundant  bool
	rangeRequests    bool // false streams only, even when the origin serves ranges
	initialCapacity  int

	// File sources only
	chunkDelay   time.Duration
	fetchLatency time.Duration

	// Diagnostics
	state io.Writer
}

// defaultOptions returns the default session options.
func defaultOptions() Options {
	cfg := loader.DefaultConfig()
	return Options{
		chunkSize:        fetch.DefaultChunkSize,
		minimumFetchSize: cfg.MinimumFetchSize,
		cancelRedundant:  cfg.CancelRedundantFetches,
		rangeRequests:    true,
		initialCapacity:  cfg.InitialCapacity,
	}
}

// clone creates a copy of Options. The HTTP client and state writer are
// shared, not copied.
func (o Options) clone() Options {
	return Options{
		chunkSize:        o.chunkSize,
		userAgent:        o.userAgent,
		timeout:          o.timeout,
		client:           o.client,
		minimumFetchSize: o.minimumFetchSize,
		cancelRedundant:  o.cancelRedundant,
		rangeRequests:    o.rangeRequests,
		initialCapacity:  o.initialCapacity,
		chunkDelay:       o.chunkDelay,
		fetchLatency:     o.fetchLatency,
		state:            o.state,
	}
}

// loaderConfig builds the loader settings for a document of the given
// length (-1 when unknown).
func (o Options) loaderConfig(length int64) loader.Config {
	cfg := loader.DefaultConfig()
	cfg.ExpectedLength = length
	cfg.InitialCapacity = o.initialCapacity
	cfg.MinimumFetchSize = o.minimumFetchSize
	cfg.CancelRedundantFetches = o.cancelRedundant
	return cfg
}

func (o Options) httpConfig() fetch.HTTPConfig {
	return fetch.HTTPConfig{
		Client:    o.client,
		ChunkSize: o.chunkSize,
		UserAgent: o.userAgent,
		Timeout:   o.timeout,
	}
}

func (o Options) fileConfig() fetch.FileConfig {
	return fetch.FileConfig{
		ChunkSize:    o.chunkSize,
		ChunkDelay:   o.chunkDelay,
		FetchLatency: o.fetchLatency,
	}
}
