package rangeload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/tsawler/rangeload/fetch"
	"github.com/tsawler/rangeload/format"
	"github.com/tsawler/rangeload/loader"
	"github.com/tsawler/rangeload/reader"
	"github.com/tsawler/rangeload/runloop"
	"golang.org/x/sync/errgroup"
)

// outcome collects what a terminal operation produced.
type outcome struct {
	info  *reader.Info
	data  []byte
	stats loader.Stats
}

// task is the work a terminal operation does once the loader is running.
type task func(ctx context.Context, j *job, out *outcome) error

// job is one running load: the run loop, the loader on it, and the
// sequential download feeding it.
type job struct {
	name   string
	loop   *runloop.RunLoop
	loader *loader.Loader
	host   *host

	streamDone chan struct{}
	streamErr  error // set before streamDone is closed
}

// host receives the loader's transition to Complete.
type host struct {
	name   string
	reason loader.TransitionReason
	done   chan struct{}
}

func newHost(name string) *host {
	return &host{name: name, done: make(chan struct{})}
}

// LoaderDidTransition implements loader.HostClient. The loader calls it at
// most once.
func (h *host) LoaderDidTransition(reason loader.TransitionReason) {
	log.Infof("%s: loader complete (%s)", h.name, reason)
	h.reason = reason
	close(h.done)
}

// open creates the fetch source for the session, posting its callbacks to
// loop. The returned func releases it.
func (s *Session) open(loop *runloop.RunLoop) (fetch.Source, func(), error) {
	if s.url != "" {
		src, err := fetch.NewHTTPSource(s.url, loop, s.options.httpConfig())
		if err != nil {
			return nil, nil, err
		}
		return src, func() {}, nil
	}
	if s.path == "" {
		return nil, nil, errors.New("no document specified")
	}

	src, err := fetch.OpenFile(s.path, loop, s.options.fileConfig())
	if err != nil {
		return nil, nil, err
	}
	return src, func() { src.Close() }, nil
}

// run wires a loader to the session's source and runs t. The run loop, the
// sequential download and t share one errgroup; when t returns the loader is
// torn down, the download is stopped and the loop drains.
func (s *Session) run(ctx context.Context, t task) (outcome, error) {
	var out outcome
	if s.err != nil {
		return out, s.err
	}

	loop := runloop.New()
	src, release, err := s.open(loop)
	if err != nil {
		return out, err
	}
	defer release()

	md, err := src.Metadata(ctx)
	if err != nil {
		return out, fmt.Errorf("metadata for %s: %w", s.Name(), err)
	}
	log.Infof("%s: length %d, ranges %t, type %q", s.Name(), md.Length, md.AcceptRanges, md.ContentType)

	var fetcher fetch.RangeFetcher
	if md.AcceptRanges && s.options.rangeRequests {
		fetcher = src
	}
	l := loader.New(loop, fetcher, s.options.loaderConfig(md.Length))

	h := newHost(s.Name())
	link := loader.NewHostLink(h)
	defer runtime.KeepAlive(link)
	loop.Dispatch(func() { l.SetHost(link) })

	if f := format.DetectFromContentType(md.ContentType); f != format.Unknown && !f.SupportsIncremental() {
		log.Infof("%s is served as %s", s.Name(), f)
		loop.Dispatch(l.NotifyNonIncrementalSentinel)
	}

	j := &job{
		name:       s.Name(),
		loop:       loop,
		loader:     l,
		host:       h,
		streamDone: make(chan struct{}),
	}

	g, gctx := errgroup.WithContext(ctx)
	streamCtx, stopStream := context.WithCancel(gctx)
	defer stopStream()

	g.Go(func() error {
		if err := loop.Run(context.Background()); !errors.Is(err, runloop.ErrStopped) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		err := src.Stream(streamCtx, l)
		j.streamErr = err
		close(j.streamDone)
		if err != nil && streamCtx.Err() == nil {
			return fmt.Errorf("download %s: %w", s.Name(), err)
		}
		return nil
	})

	g.Go(func() error {
		defer func() {
			out.stats = j.shutdown(stopStream, s.options.state)
		}()
		return t(gctx, j, &out)
	})

	err = g.Wait()
	return out, err
}

// shutdown dumps the loader state if asked to, tears the loader down and
// stops the download and the loop. It returns the final statistics.
func (j *job) shutdown(stopStream context.CancelFunc, state io.Writer) loader.Stats {
	if state != nil {
		if err := j.loop.DispatchAndWait(func() { j.loader.LogState(state) }); err != nil {
			log.Warningf("%s: state dump: %s", j.name, err)
		}
	}
	stats := j.loader.Stats()

	j.loader.Close()
	stopStream()
	j.loop.Stop()
	return stats
}

// transitioned waits for the loader to reach Complete.
func (j *job) transitioned(ctx context.Context) (loader.TransitionReason, error) {
	select {
	case <-j.host.done:
		return j.host.reason, nil
	case <-ctx.Done():
		return loader.ReasonNone, ctx.Err()
	}
}

// complete waits for the sequential download to end and returns the whole
// document.
func (j *job) complete(ctx context.Context) ([]byte, error) {
	select {
	case <-j.streamDone:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if j.streamErr != nil {
		return nil, fmt.Errorf("%w: %w", loader.ErrStreamFailed, j.streamErr)
	}

	// The finish callback is queued on the loop before Stream returns.
	var data []byte
	if err := j.loop.DispatchAndWait(func() { data = j.loader.Snapshot() }); err != nil {
		return nil, err
	}
	return data, nil
}

// describe inspects the document incrementally and falls back to parsing the
// complete download when the incremental parse gives up.
func describe(ctx context.Context, j *job, out *outcome) error {
	var info *reader.Info
	pt := j.loader.StartParser(ctx, loader.ParserFunc(func(ctx context.Context, src loader.Source) error {
		var err error
		info, err = reader.Inspect(ctx, src)
		return err
	}))

	select {
	case <-pt.Done():
	case <-ctx.Done():
		// Tearing down releases a parser parked on a read.
		j.loader.Close()
		pt.Wait()
		return ctx.Err()
	}

	err := pt.Wait()
	if err == nil {
		out.info = info
		return nil
	}
	log.Infof("%s: incremental parse stopped: %s", j.name, err)

	reason, werr := j.transitioned(ctx)
	if werr != nil {
		return werr
	}
	if reason != loader.ReasonSentinel && reason != loader.ReasonFinished {
		return fmt.Errorf("%w: %w", reason.Err(), err)
	}

	data, err := j.complete(ctx)
	if err != nil {
		return err
	}
	out.info, err = parseComplete(data)
	return err
}

// parseComplete describes a fully downloaded document.
func parseComplete(data []byte) (*reader.Info, error) {
	src := bytes.NewReader(data)
	size := int64(len(data))

	f, err := format.DetectFromReader(src, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}
	if f != format.PDF {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}

	r, err := reader.NewReader(src, size)
	if err != nil {
		return nil, err
	}
	return r.Info()
}

// download waits for the whole document.
func download(ctx context.Context, j *job, out *outcome) error {
	data, err := j.complete(ctx)
	if err != nil {
		return err
	}
	out.data = data
	return nil
}
