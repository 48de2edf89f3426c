package delivery

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"media-converter/internal/filesystem"
	"media-converter/internal/logging"
)

// DirectorySink copies artifacts into a persistent output directory as
// "<jobID>.<ext>". The copy is written to a temporary name and renamed, so a
// reader never sees a partial file.
type DirectorySink struct {
	Dir string
}

// NewDirectorySink creates a sink for dir, creating it if necessary.
func NewDirectorySink(dir string) (*DirectorySink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return &DirectorySink{Dir: dir}, nil
}

// Name implements Sink.
func (s *DirectorySink) Name() string {
	return "directory"
}

// Deliver implements Sink.
func (s *DirectorySink) Deliver(ctx context.Context, a Artifact) ([]Receipt, error) {
	dest, err := s.copy(ctx, a)
	record(s.Name(), a.JobID, err)
	if err != nil {
		return nil, err
	}
	logging.ForJob(a.JobID).Info("Stored output at %s", dest)
	return []Receipt{{Sink: s.Name(), Location: dest}}, nil
}

func (s *DirectorySink) copy(ctx context.Context, a Artifact) (string, error) {
	src, err := filesystem.OpenWithRetry(a.Path, filesystem.DefaultRetryConfig())
	if err != nil {
		return "", fmt.Errorf("failed to open artifact: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(s.Dir, ".partial-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		// No-op once renamed.
		_ = os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, &contextReader{ctx: ctx, r: src}); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to copy artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close copy: %w", err)
	}

	dest := filepath.Join(s.Dir, a.JobID+filepath.Ext(a.Name))
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("failed to move artifact into place: %w", err)
	}
	return dest, nil
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
