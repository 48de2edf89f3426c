package filesystem

import (
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"
)

type countingObserver struct {
	mu       sync.Mutex
	stale    int
	attempts int
	failures int
	ops      []string
}

func (c *countingObserver) ObserveDuration(operation, volume string, _ float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = append(c.ops, operation+"@"+volume)
}

func (c *countingObserver) ObserveRetryAttempt(_, _ string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts++
}

func (c *countingObserver) ObserveRetryFailure(_, _ string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
}

func (c *countingObserver) ObserveStaleError(_, _ string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stale++
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 500*time.Millisecond {
		t.Errorf("MaxBackoff = %v, want 500ms", config.MaxBackoff)
	}
	if config.VolumeResolver != nil {
		t.Error("VolumeResolver should be nil by default")
	}
}

func TestIsNFSStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"ESTALE error", syscall.ESTALE, true},
		{"wrapped ESTALE", &os.PathError{Op: "stat", Path: "/x", Err: syscall.ESTALE}, true},
		{"ENOENT error", syscall.ENOENT, false},
		{"generic error", os.ErrNotExist, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNFSStaleError(tt.err); got != tt.want {
				t.Errorf("isNFSStaleError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVolumeResolver_Resolve(t *testing.T) {
	vr := NewVolumeResolver(map[string]string{
		"work":   "/tmp/media-converter",
		"output": "/srv/converted",
		"empty":  "",
	})

	tests := []struct {
		path string
		want string
	}{
		{"/tmp/media-converter/input_1_2.mp4", "work"},
		{"/tmp/media-converter", "work"},
		{"/srv/converted/video.mp4", "output"},
		{"/tmp/media-converter-other/file", "unknown"},
		{"/etc/passwd", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := vr.Resolve(tt.path); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestVolumeResolver_LongestPrefixWins(t *testing.T) {
	vr := NewVolumeResolver(map[string]string{
		"outer": "/data",
		"inner": "/data/work",
	})

	if got := vr.Resolve("/data/work/file.mp4"); got != "inner" {
		t.Errorf("Resolve() = %q, want inner", got)
	}
	if got := vr.Resolve("/data/other.mp4"); got != "outer" {
		t.Errorf("Resolve() = %q, want outer", got)
	}
}

func TestVolumeResolver_NilResolver(t *testing.T) {
	var vr *VolumeResolver
	if got := vr.Resolve("/anything"); got != "unknown" {
		t.Errorf("nil resolver Resolve() = %q, want unknown", got)
	}
}

func TestRetryConfig_ResolveVolume(t *testing.T) {
	SetDefaultVolumeResolver(NewVolumeResolver(map[string]string{"work": "/work"}))
	defer SetDefaultVolumeResolver(nil)

	config := DefaultRetryConfig()
	if got := config.resolveVolume("/work/a"); got != "work" {
		t.Errorf("default resolver: got %q, want work", got)
	}

	config.VolumeResolver = NewVolumeResolver(map[string]string{"output": "/work"})
	if got := config.resolveVolume("/work/a"); got != "output" {
		t.Errorf("config resolver: got %q, want output", got)
	}
}

func TestStatWithRetry_Success(t *testing.T) {
	obs := &countingObserver{}
	SetObserver(obs)
	defer SetObserver(nil)

	path := filepath.Join(t.TempDir(), "output.mp4")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := StatWithRetry(path, DefaultRetryConfig())
	if err != nil {
		t.Fatalf("StatWithRetry() error = %v", err)
	}
	if info.Size() != 4 {
		t.Errorf("Size() = %d, want 4", info.Size())
	}
	if len(obs.ops) != 1 || obs.ops[0] != "stat@unknown" {
		t.Errorf("observed ops = %v", obs.ops)
	}
}

func TestStatWithRetry_NotExistFailsFast(t *testing.T) {
	config := DefaultRetryConfig()
	config.InitialBackoff = time.Second

	start := time.Now()
	_, err := StatWithRetry(filepath.Join(t.TempDir(), "missing"), config)
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("non-ESTALE errors should not be retried")
	}
}

func TestOpenWithRetry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.webm")
	if err := os.WriteFile(path, []byte("webm"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := OpenWithRetry(path, DefaultRetryConfig())
	if err != nil {
		t.Fatalf("OpenWithRetry() error = %v", err)
	}
	defer f.Close()

	if _, err := OpenWithRetry(path+".missing", DefaultRetryConfig()); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestRemoveWithRetry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.mp4")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	removed, err := RemoveWithRetry(path, DefaultRetryConfig())
	if err != nil || !removed {
		t.Fatalf("first RemoveWithRetry() = %v, %v; want true, nil", removed, err)
	}

	removed, err = RemoveWithRetry(path, DefaultRetryConfig())
	if err != nil || removed {
		t.Errorf("second RemoveWithRetry() = %v, %v; want false, nil", removed, err)
	}
}

func TestWithRetry_StaleThenSuccess(t *testing.T) {
	obs := &countingObserver{}
	SetObserver(obs)
	defer SetObserver(nil)

	config := RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}

	calls := 0
	got, err := withRetry("stat", "/work/x", config, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, syscall.ESTALE
		}
		return 7, nil
	})
	if err != nil || got != 7 {
		t.Fatalf("withRetry() = %d, %v; want 7, nil", got, err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if obs.stale != 2 || obs.attempts != 2 || obs.failures != 0 {
		t.Errorf("observer counts stale=%d attempts=%d failures=%d", obs.stale, obs.attempts, obs.failures)
	}
}

func TestWithRetry_GivesUp(t *testing.T) {
	obs := &countingObserver{}
	SetObserver(obs)
	defer SetObserver(nil)

	config := RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

	calls := 0
	_, err := withRetry("open", "/work/x", config, func() (string, error) {
		calls++
		return "", syscall.ESTALE
	})
	if err != syscall.ESTALE {
		t.Fatalf("expected ESTALE, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if obs.failures != 1 {
		t.Errorf("failures = %d, want 1", obs.failures)
	}
}

func TestRetryConfig_Delay(t *testing.T) {
	config := DefaultRetryConfig()
	want := []time.Duration{
		50 * time.Millisecond,
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		500 * time.Millisecond,
		500 * time.Millisecond,
	}
	for n, w := range want {
		if got := config.delay(n); got != w {
			t.Errorf("delay(%d) = %v, want %v", n, got, w)
		}
	}
}
