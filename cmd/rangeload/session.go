package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tsawler/rangeload"
	"github.com/tsawler/rangeload/fetch"
)

// Environment variables that override the flag defaults.
const (
	envChunkSize = "RANGELOAD_CHUNK_SIZE"
	envMinFetch  = "RANGELOAD_MIN_FETCH"
	envUserAgent = "RANGELOAD_USER_AGENT"

	defaultUserAgent = "rangeload/1.0"
)

// sessionFlags are the loader settings shared by every command.
type sessionFlags struct {
	chunkSize    int
	minFetch     int
	userAgent    string
	timeout      time.Duration
	streamOnly   bool
	keepFetches  bool
	state        bool
	chunkDelay   time.Duration
	fetchLatency time.Duration
}

func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ignoring %s=%q: %v\n", name, v, err)
		return def
	}
	return n
}

func envString(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntVar(&f.chunkSize, "chunk-size", envInt(envChunkSize, fetch.DefaultChunkSize), "bytes per delivered chunk (env "+envChunkSize+")")
	flags.IntVar(&f.minFetch, "min-fetch", envInt(envMinFetch, 0), "minimum range fetch size in bytes (env "+envMinFetch+")")
	flags.StringVar(&f.userAgent, "user-agent", envString(envUserAgent, defaultUserAgent), "HTTP User-Agent (env "+envUserAgent+")")
	flags.DurationVar(&f.timeout, "timeout", 0, "limit for each HTTP request (0 means none)")
	flags.BoolVar(&f.streamOnly, "stream-only", false, "never issue range requests")
	flags.BoolVar(&f.keepFetches, "keep-redundant-fetches", false, "let range fetches finish after the stream overtakes them")
	flags.BoolVar(&f.state, "state", false, "dump the loader state to stderr when done")
	flags.DurationVar(&f.chunkDelay, "chunk-delay", 0, "local files: pause between streamed chunks")
	flags.DurationVar(&f.fetchLatency, "fetch-latency", 0, "local files: delay before a range fetch answers")
}

// session builds a Session for target, a URL or a local path.
func (f *sessionFlags) session(target string) *rangeload.Session {
	var s *rangeload.Session
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		s = rangeload.FromURL(target)
	} else {
		s = rangeload.FromFile(target).SimulateNetwork(f.chunkDelay, f.fetchLatency)
	}

	s = s.ChunkSize(f.chunkSize).
		MinimumFetchSize(f.minFetch).
		UserAgent(f.userAgent).
		Timeout(f.timeout).
		CancelRedundantFetches(!f.keepFetches)
	if f.streamOnly {
		s = s.StreamOnly()
	}
	if f.state {
		s = s.LogStateTo(os.Stderr)
	}
	return s
}
