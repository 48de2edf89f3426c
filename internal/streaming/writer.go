package streaming

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"sync"
	"time"

	"media-converter/internal/filesystem"
	"media-converter/internal/logging"
)

// Sentinel errors for streaming operations.
var (
	// ErrWriteTimeout indicates that a single write took longer than the
	// configured timeout, usually because the client reads too slowly.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates that the client disconnected before the stream completed.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamCanceled indicates that the writer was closed before the stream completed.
	ErrStreamCanceled = errors.New("stream canceled")
)

// Config controls how an artifact is written to a client.
type Config struct {
	// WriteTimeout bounds each chunk write.
	WriteTimeout time.Duration
	// ChunkSize splits large writes so cancellation is noticed between chunks
	// (0 = write as received).
	ChunkSize int
}

// DefaultConfig returns the settings used for converted video downloads.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 30 * time.Second,
		ChunkSize:    256 * 1024,
	}
}

// TimeoutWriter wraps an http.ResponseWriter so that a stalled client cannot
// hold a conversion's output open forever.
type TimeoutWriter struct {
	w       http.ResponseWriter
	ctx     context.Context
	cancel  context.CancelFunc
	config  Config
	flusher http.Flusher

	mu      sync.Mutex
	written int64
	closed  bool
}

// NewTimeoutWriter creates a writer bound to ctx, normally the request context.
func NewTimeoutWriter(ctx context.Context, w http.ResponseWriter, config Config) *TimeoutWriter {
	writerCtx, cancel := context.WithCancel(ctx)
	tw := &TimeoutWriter{
		w:      w,
		ctx:    writerCtx,
		cancel: cancel,
		config: config,
	}
	if flusher, ok := w.(http.Flusher); ok {
		tw.flusher = flusher
	}
	return tw
}

// Write implements io.Writer.
func (tw *TimeoutWriter) Write(p []byte) (int, error) {
	tw.mu.Lock()
	closed := tw.closed
	tw.mu.Unlock()
	if closed {
		return 0, ErrStreamCanceled
	}

	size := tw.config.ChunkSize
	if size <= 0 {
		size = len(p)
	}

	total := 0
	for len(p) > 0 {
		if err := tw.ctx.Err(); err != nil {
			return total, tw.contextError()
		}

		n := min(size, len(p))
		written, err := tw.writeChunk(p[:n])
		total += written
		if err != nil {
			return total, err
		}
		p = p[n:]

		if tw.flusher != nil {
			tw.flusher.Flush()
		}
	}
	return total, nil
}

func (tw *TimeoutWriter) writeChunk(p []byte) (int, error) {
	if tw.config.WriteTimeout <= 0 {
		n, err := tw.w.Write(p)
		tw.record(n)
		return n, err
	}

	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := tw.w.Write(p)
		done <- result{n, err}
	}()

	timer := time.NewTimer(tw.config.WriteTimeout)
	defer timer.Stop()

	select {
	case res := <-done:
		tw.record(res.n)
		return res.n, res.err
	case <-timer.C:
		tw.cancel()
		return 0, ErrWriteTimeout
	case <-tw.ctx.Done():
		return 0, tw.contextError()
	}
}

func (tw *TimeoutWriter) record(n int) {
	tw.mu.Lock()
	tw.written += int64(n)
	tw.mu.Unlock()
}

func (tw *TimeoutWriter) contextError() error {
	tw.mu.Lock()
	closed := tw.closed
	tw.mu.Unlock()
	if closed {
		return ErrStreamCanceled
	}
	return ErrClientGone
}

// Close stops the writer. Further writes fail with ErrStreamCanceled.
func (tw *TimeoutWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.closed {
		return nil
	}
	tw.closed = true
	tw.cancel()
	return nil
}

// Written returns the number of bytes delivered so far.
func (tw *TimeoutWriter) Written() int64 {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.written
}

// File describes a local file to send as a download.
type File struct {
	Path        string
	Name        string
	ContentType string
}

// ServeFile writes the file as an attachment with a Content-Length, reading
// it through the NFS-aware open helper. Headers already set on w (such as
// job metadata) are kept. It returns the number of bytes sent.
func ServeFile(ctx context.Context, w http.ResponseWriter, f File, config Config) (int64, error) {
	file, err := filesystem.OpenWithRetry(f.Path, filesystem.DefaultRetryConfig())
	if err != nil {
		return 0, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close artifact %s: %v", f.Path, err)
		}
	}()

	info, err := file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat artifact: %w", err)
	}

	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": f.Name}))
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	tw := NewTimeoutWriter(ctx, w, config)
	defer func() {
		if err := tw.Close(); err != nil {
			logging.Warn("Failed to close timeout writer: %v", err)
		}
	}()

	start := time.Now()
	_, err = io.Copy(tw, file)
	logging.Debug("Stream completed: %d of %d bytes in %v", tw.Written(), info.Size(), time.Since(start))

	return tw.Written(), err
}
