package filesystem

import (
	"errors"
	"os"
	"syscall"
	"time"

	"media-converter/internal/logging"
)

// RetryConfig bounds the retries of one filesystem operation.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// VolumeResolver overrides the package default for metric labels.
	VolumeResolver *VolumeResolver
}

// DefaultRetryConfig is used for the work and output directories, either of
// which may be an NFS mount.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

func (c *RetryConfig) resolveVolume(path string) string {
	if c.VolumeResolver != nil {
		return c.VolumeResolver.Resolve(path)
	}
	return defaultResolver.Resolve(path)
}

// delay returns the backoff before retry n (0-based).
func (c *RetryConfig) delay(n int) time.Duration {
	d := c.InitialBackoff
	for i := 0; i < n && d < c.MaxBackoff; i++ {
		d *= 2
	}
	return min(d, c.MaxBackoff)
}

func isNFSStaleError(err error) bool {
	var errno syscall.Errno
	return errors.As(err, &errno) && errno == syscall.ESTALE
}

// withRetry calls fn until it returns anything but ESTALE or MaxRetries
// retries have been spent.
func withRetry[T any](op, path string, config RetryConfig, fn func() (T, error)) (T, error) {
	start := time.Now()
	volume := config.resolveVolume(path)
	obs := observe()
	if obs != nil {
		defer func() { obs.ObserveDuration(op, volume, time.Since(start).Seconds()) }()
	}

	for attempt := 0; ; attempt++ {
		result, err := fn()
		if !isNFSStaleError(err) {
			if err == nil && attempt > 0 {
				logging.Info("NFS %s of %s recovered after %d retries", op, path, attempt)
			}
			return result, err
		}

		if obs != nil {
			obs.ObserveStaleError(op, volume)
		}
		if attempt == config.MaxRetries {
			logging.Warn("NFS %s of %s still stale after %d retries: %v", op, path, attempt, err)
			if obs != nil {
				obs.ObserveRetryFailure(op, volume)
			}
			return result, err
		}

		if obs != nil {
			obs.ObserveRetryAttempt(op, volume)
		}
		wait := config.delay(attempt)
		logging.Debug("NFS %s of %s: stale file handle, retry %d/%d in %v", op, path, attempt+1, config.MaxRetries, wait)
		time.Sleep(wait)
	}
}

// StatWithRetry is os.Stat retried on stale NFS handles.
func StatWithRetry(path string, config RetryConfig) (os.FileInfo, error) {
	return withRetry("stat", path, config, func() (os.FileInfo, error) {
		return os.Stat(path)
	})
}

// OpenWithRetry is os.Open retried on stale NFS handles.
func OpenWithRetry(path string, config RetryConfig) (*os.File, error) {
	return withRetry("open", path, config, func() (*os.File, error) {
		return os.Open(path)
	})
}

// RemoveWithRetry is os.Remove retried on stale NFS handles. A path that does
// not exist yields removed=false and a nil error.
func RemoveWithRetry(path string, config RetryConfig) (removed bool, err error) {
	return withRetry("remove", path, config, func() (bool, error) {
		err := os.Remove(path)
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return err == nil, err
	})
}
