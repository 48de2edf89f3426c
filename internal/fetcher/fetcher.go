package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"media-converter/internal/logging"
	"media-converter/internal/metrics"

	"golang.org/x/sync/errgroup"
)

// DefaultTimeout is the wall-clock budget for a single fetch.
const DefaultTimeout = 30 * time.Second

var (
	// ErrTimeout is returned when a fetch does not finish within its deadline.
	ErrTimeout = errors.New("fetch deadline exceeded")
	// ErrUnsupportedScheme is returned for URLs that are not http or https.
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
	// ErrTooLarge is returned when the body exceeds the configured byte cap.
	ErrTooLarge = errors.New("remote file exceeds size limit")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Fetcher retrieves a remote resource into a local file and returns the
// number of bytes written.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, dest string) (int64, error)
}

// HTTPFetcher downloads over plain HTTP(S) GET with no authentication.
type HTTPFetcher struct {
	// Client performs the request. Its own Timeout is not used; the deadline
	// comes from the fetcher's timeout applied to the request context.
	Client   *http.Client
	timeout  time.Duration
	maxBytes int64
}

// NewHTTPFetcher creates a fetcher. A zero timeout means DefaultTimeout and a
// zero maxBytes disables the body cap.
func NewHTTPFetcher(timeout time.Duration, maxBytes int64) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPFetcher{
		Client:   &http.Client{},
		timeout:  timeout,
		maxBytes: maxBytes,
	}
}

// Timeout returns the per-fetch deadline.
func (f *HTTPFetcher) Timeout() time.Duration {
	return f.timeout
}

// Fetch streams the body at rawURL into dest. The destination may hold a
// partial file when an error is returned; callers own its removal.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL, dest string) (int64, error) {
	start := time.Now()
	n, err := f.fetch(ctx, rawURL, dest)

	metrics.FetchDuration.Observe(time.Since(start).Seconds())
	metrics.FetchBytes.Add(float64(n))
	metrics.FetchesTotal.WithLabelValues(fetchStatus(err)).Inc()

	if err != nil {
		logging.Debug("fetch of %s failed after %v: %v", redact(rawURL), time.Since(start), err)
		return n, err
	}
	logging.Debug("fetched %d bytes from %s in %v", n, redact(rawURL), time.Since(start))
	return n, nil
}

func (f *HTTPFetcher) fetch(ctx context.Context, rawURL, dest string) (int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	fctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "media-converter")

	resp, err := f.Client.Do(req)
	if err != nil {
		return 0, classify(ctx, fctx, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &StatusError{StatusCode: resp.StatusCode}
	}
	if f.maxBytes > 0 && resp.ContentLength > f.maxBytes {
		return 0, fmt.Errorf("%w: content length %d", ErrTooLarge, resp.ContentLength)
	}

	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dest, err)
	}

	var body io.Reader = resp.Body
	if f.maxBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBytes+1)
	}

	n, copyErr := io.Copy(out, body)
	closeErr := out.Close()

	if copyErr != nil {
		return n, classify(ctx, fctx, fmt.Errorf("failed to write body: %w", copyErr))
	}
	if f.maxBytes > 0 && n > f.maxBytes {
		return n, ErrTooLarge
	}
	if closeErr != nil {
		return n, fmt.Errorf("failed to close %s: %w", dest, closeErr)
	}
	return n, nil
}

// classify turns a transfer error into ErrTimeout when the fetch's own
// deadline fired while the caller's context was still live.
func classify(parent, fctx context.Context, err error) error {
	if parent.Err() == nil && errors.Is(fctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	if parent.Err() != nil {
		return fmt.Errorf("%w: %v", parent.Err(), err)
	}
	return err
}

func fetchStatus(err error) string {
	var statusErr *StatusError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.As(err, &statusErr):
		return "http_error"
	default:
		return "error"
	}
}

// redact drops the query string and credentials from a URL before logging.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	u.User = nil
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// Target is one input to fetch.
type Target struct {
	URL  string
	Dest string
}

// FetchAll fetches every target concurrently and waits for all of them. The
// first failure cancels the remaining transfers and is returned; their
// results are discarded. On success the byte counts are returned in target
// order.
func FetchAll(ctx context.Context, f Fetcher, targets []Target) ([]int64, error) {
	sizes := make([]int64, len(targets))
	g, gctx := errgroup.WithContext(ctx)

	for i, target := range targets {
		g.Go(func() error {
			n, err := f.Fetch(gctx, target.URL, target.Dest)
			if err != nil {
				return err
			}
			sizes[i] = n
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sizes, nil
}
