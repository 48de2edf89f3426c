package ledger

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"media-converter/internal/filesystem"
	"media-converter/internal/logging"
	"media-converter/internal/metrics"
)

// Role tags what a temporary path holds.
type Role string

const (
	// RoleInput is the downloaded source video.
	RoleInput Role = "input"
	// RoleAudio is the downloaded audio track of a mux job.
	RoleAudio Role = "audio"
	// RoleOutput is the transcoder's output artifact.
	RoleOutput Role = "output"
)

// maxReserveAttempts bounds the search for an unused name. Ten thousand
// suffixes per millisecond make exhaustion practically impossible.
const maxReserveAttempts = 16

// ErrReleased is returned by Reserve after ReleaseAll has run.
var ErrReleased = errors.New("ledger already released")

// Ledger records every temporary path of one conversion job and removes them
// all when the job ends. It is safe for concurrent use.
type Ledger struct {
	dir      string
	mu       sync.Mutex
	paths    []string
	released bool

	now   func() time.Time
	randN func(n int) int
	retry filesystem.RetryConfig
}

// New creates a ledger whose paths live directly inside dir.
func New(dir string) *Ledger {
	return &Ledger{
		dir:   dir,
		now:   time.Now,
		randN: rand.IntN,
		retry: filesystem.DefaultRetryConfig(),
	}
}

// Dir returns the working directory the ledger reserves paths in.
func (l *Ledger) Dir() string {
	return l.dir
}

// Reserve returns a fresh path of the form {role}_{unixMillis}_{0-9999}.{ext}
// and records it for release. The file itself is not created.
func (l *Ledger) Reserve(role Role, ext string) (string, error) {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return "", fmt.Errorf("reserve %s: empty extension", role)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.released {
		return "", ErrReleased
	}

	for attempt := 0; attempt < maxReserveAttempts; attempt++ {
		name := fmt.Sprintf("%s_%d_%d.%s", role, l.now().UnixMilli(), l.randN(10000), ext)
		path := filepath.Join(l.dir, name)

		if l.recorded(path) {
			continue
		}
		if _, err := os.Lstat(path); err == nil {
			continue
		}

		l.paths = append(l.paths, path)
		metrics.LedgerPathsReserved.WithLabelValues(string(role)).Inc()
		logging.Debug("Reserved %s path %s", role, path)
		return path, nil
	}

	return "", fmt.Errorf("reserve %s: no unused name after %d attempts", role, maxReserveAttempts)
}

func (l *Ledger) recorded(path string) bool {
	for _, p := range l.paths {
		if p == path {
			return true
		}
	}
	return false
}

// Paths returns a copy of every path reserved so far.
func (l *Ledger) Paths() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, len(l.paths))
	copy(out, l.paths)
	return out
}

// ReleaseAll deletes every reserved path exactly once. Paths that never came
// into existence are skipped silently; any other failure is logged and
// counted but never returned, so cleanup cannot mask a job's real outcome.
// Calling ReleaseAll again is a no-op.
func (l *Ledger) ReleaseAll() {
	l.mu.Lock()
	if l.released {
		l.mu.Unlock()
		return
	}
	l.released = true
	paths := l.paths
	l.mu.Unlock()

	for _, path := range paths {
		removed, err := filesystem.RemoveWithRetry(path, l.retry)
		if err != nil {
			metrics.LedgerReleaseErrors.Inc()
			logging.Warn("Failed to delete temporary file %s: %v", path, err)
			continue
		}
		if removed {
			logging.Debug("Deleted temporary file %s", path)
		}
	}
}

// namePattern matches the names Reserve produces.
var namePattern = regexp.MustCompile(`^(input|audio|output)_\d+_\d{1,4}\.[A-Za-z0-9]+$`)

// Sweep deletes ledger-named files in dir last modified before olderThan ago.
// These are leftovers of a process that died mid-job. Other files are left
// alone. It returns the number of bytes freed.
func Sweep(dir string, olderThan time.Duration) (int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read work directory: %w", err)
	}

	cutoff := time.Now().Add(-olderThan)
	var freedBytes int64

	for _, entry := range entries {
		if entry.IsDir() || !namePattern.MatchString(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logging.Warn("failed to remove stale file %s: %v", path, err)
			continue
		}
		freedBytes += info.Size()
	}

	if freedBytes > 0 {
		logging.Info("Swept stale work files: freed %d bytes", freedBytes)
	}
	return freedBytes, nil
}
