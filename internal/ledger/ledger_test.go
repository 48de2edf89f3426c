package ledger

import (
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"
)

func TestReserveNaming(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)

	path, err := l.Reserve(RoleInput, ".mp4")
	if err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}

	if filepath.Dir(path) != dir {
		t.Errorf("path %s is outside the work directory %s", path, dir)
	}

	pattern := regexp.MustCompile(`^input_\d{13}_\d{1,4}\.mp4$`)
	if !pattern.MatchString(filepath.Base(path)) {
		t.Errorf("unexpected name %q", filepath.Base(path))
	}
}

func TestReserveRejectsEmptyExtension(t *testing.T) {
	l := New(t.TempDir())
	if _, err := l.Reserve(RoleOutput, ""); err == nil {
		t.Error("expected error for empty extension")
	}
}

func TestReserveAvoidsCollisions(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)
	l.now = func() time.Time { return time.UnixMilli(1700000000000) }

	suffixes := []int{42, 42, 42, 7}
	l.randN = func(int) int {
		n := suffixes[0]
		suffixes = suffixes[1:]
		return n
	}

	// A file from another job already holds suffix 42.
	taken := filepath.Join(dir, "output_1700000000000_42.mp4")
	if err := os.WriteFile(taken, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	path, err := l.Reserve(RoleOutput, "mp4")
	if err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	if filepath.Base(path) != "output_1700000000000_7.mp4" {
		t.Errorf("Reserve() = %s, want suffix 7", filepath.Base(path))
	}
}

func TestReserveUniqueUnderConcurrency(t *testing.T) {
	dir := t.TempDir()
	const jobs = 20

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup

	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l := New(dir)
			for _, role := range []Role{RoleInput, RoleAudio, RoleOutput} {
				p, err := l.Reserve(role, "mp4")
				if err != nil {
					t.Errorf("Reserve() error = %v", err)
					return
				}
				mu.Lock()
				if seen[p] {
					t.Errorf("duplicate path %s", p)
				}
				seen[p] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
}

func TestReleaseAllRemovesEverything(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)

	input, _ := l.Reserve(RoleInput, "mp4")
	audio, _ := l.Reserve(RoleAudio, "mp3")
	output, _ := l.Reserve(RoleOutput, "webm")

	// The audio path is never written, as when a job fails early.
	for _, p := range []string{input, output} {
		if err := os.WriteFile(p, []byte("data"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	l.ReleaseAll()

	for _, p := range []string{input, audio, output} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s still exists after ReleaseAll", p)
		}
	}
}

func TestReleaseAllIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)

	p, _ := l.Reserve(RoleOutput, "mp4")
	if err := os.WriteFile(p, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	l.ReleaseAll()

	// A new file at the same path must survive a second release.
	if err := os.WriteFile(p, []byte("other job"), 0o644); err != nil {
		t.Fatal(err)
	}
	l.ReleaseAll()

	if _, err := os.Stat(p); err != nil {
		t.Errorf("second ReleaseAll deleted a path again: %v", err)
	}
}

func TestReserveAfterRelease(t *testing.T) {
	l := New(t.TempDir())
	l.ReleaseAll()

	if _, err := l.Reserve(RoleInput, "mp4"); err != ErrReleased {
		t.Errorf("Reserve() after release error = %v, want ErrReleased", err)
	}
}

func TestReleaseAllLogsButSurvivesErrors(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)

	p, _ := l.Reserve(RoleOutput, "mp4")
	// A non-empty directory at the path makes os.Remove fail.
	if err := os.MkdirAll(filepath.Join(p, "child"), 0o755); err != nil {
		t.Fatal(err)
	}

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("ReleaseAll panicked: %v", r)
		}
	}()
	l.ReleaseAll()
}

func TestPathsReturnsCopy(t *testing.T) {
	l := New(t.TempDir())
	l.Reserve(RoleInput, "mp4")

	paths := l.Paths()
	paths[0] = "mutated"

	if l.Paths()[0] == "mutated" {
		t.Error("Paths() exposed internal slice")
	}
}

func TestSweep(t *testing.T) {
	dir := t.TempDir()

	old := filepath.Join(dir, "output_1700000000000_12.mp4")
	fresh := filepath.Join(dir, "input_1700000000001_13.mp4")
	unrelated := filepath.Join(dir, "keep-me.txt")

	for _, p := range []string{old, fresh, unrelated} {
		if err := os.WriteFile(p, []byte("12345"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(unrelated, past, past); err != nil {
		t.Fatal(err)
	}

	freed, err := Sweep(dir, time.Hour)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if freed != 5 {
		t.Errorf("freed = %d, want 5", freed)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("stale ledger file should be removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh ledger file should be kept")
	}
	if _, err := os.Stat(unrelated); err != nil {
		t.Error("unrelated file should be kept")
	}
}

func TestSweepMissingDir(t *testing.T) {
	freed, err := Sweep(filepath.Join(t.TempDir(), "nope"), time.Hour)
	if err != nil || freed != 0 {
		t.Errorf("Sweep() = %d, %v; want 0, nil", freed, err)
	}
}
