package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// FileConfig configures a FileSource.
type FileConfig struct {
	ChunkSize    int
	ChunkDelay   time.Duration // pause between sequential chunks
	FetchLatency time.Duration // delay before a range fetch returns data
}

// FileSource serves a local file as if it were arriving over the network.
type FileSource struct {
	file       *os.File
	size       int64
	dispatcher Dispatcher
	cfg        FileConfig
}

var _ Source = (*FileSource)(nil)

// OpenFile opens path as a FileSource whose callbacks are posted to d.
func OpenFile(path string, d Dispatcher, cfg FileConfig) (*FileSource, error) {
	if d == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}

	return &FileSource{
		file:       file,
		size:       info.Size(),
		dispatcher: d,
		cfg:        cfg,
	}, nil
}

// Close closes the underlying file.
func (s *FileSource) Close() error {
	return s.file.Close()
}

// Size returns the file size.
func (s *FileSource) Size() int64 {
	return s.size
}

// Metadata reports the file size. Files always support ranges.
func (s *FileSource) Metadata(ctx context.Context) (Metadata, error) {
	return Metadata{Length: s.size, AcceptRanges: true}, nil
}

// StartRangeFetch reads [offset, offset+count) after the configured latency.
func (s *FileSource) StartRangeFetch(offset int64, count int, sink RangeSink) (Handle, error) {
	if err := validateRange(offset, count); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := newFetchHandle(offset, count, cancel)
	report := rangeReporter{handle: h, sink: sink, d: s.dispatcher}

	go func() {
		defer cancel()
		if !sleep(ctx, s.cfg.FetchLatency) {
			return
		}

		section := io.NewSectionReader(s.file, offset, int64(count))
		buf := make([]byte, s.cfg.ChunkSize)
		for {
			n, err := section.Read(buf)
			if n > 0 {
				report.data(buf[:n])
			}
			if err == io.EOF {
				report.finished()
				return
			}
			if err != nil {
				report.failed(fmt.Errorf("read range %s: %w", h.window, err))
				return
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	return h, nil
}

// Stream delivers the file in order, pausing ChunkDelay between chunks.
func (s *FileSource) Stream(ctx context.Context, sink StreamSink) error {
	report := streamReporter{sink: sink, d: s.dispatcher}
	section := io.NewSectionReader(s.file, 0, s.size)
	buf := make([]byte, s.cfg.ChunkSize)

	for {
		n, err := section.Read(buf)
		if n > 0 {
			report.data(buf[:n])
		}
		if err == io.EOF {
			report.finished()
			return nil
		}
		if err != nil {
			err = fmt.Errorf("stream file: %w", err)
			report.failed(err)
			return err
		}
		if !sleep(ctx, s.cfg.ChunkDelay) {
			report.failed(ctx.Err())
			return ctx.Err()
		}
	}
}

// sleep waits for d or until ctx is done, reporting whether the full delay elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
