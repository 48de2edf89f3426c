package transcoder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"media-converter/internal/filesystem"
	"media-converter/internal/logging"
	"media-converter/internal/metrics"
	"media-converter/internal/progress"
)

// DefaultBinary is the ffmpeg executable looked up on PATH.
const DefaultBinary = "ffmpeg"

// waitDelay bounds how long Wait keeps the stderr pipe open after the
// process has exited or been killed.
const waitDelay = 5 * time.Second

// ErrEmptyOutput is the cause of a Failure when ffmpeg exited cleanly but
// left no usable output file.
var ErrEmptyOutput = errors.New("transcoder produced no output")

// State is the lifecycle state of one run.
type State int

const (
	StateIdle State = iota
	StateSpawned
	StateRunning
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSpawned:
		return "spawned"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Result describes a successful run.
type Result struct {
	State      State
	OutputSize int64
	Duration   time.Duration
}

// Failure describes a run that did not produce an output. ExitCode is -1
// when the process could not be started or was killed.
type Failure struct {
	ExitCode int
	Err      error
	// Tail holds the last lines ffmpeg wrote to stderr.
	Tail string
}

func (f *Failure) Error() string {
	if f.ExitCode >= 0 && f.Err == nil {
		return fmt.Sprintf("ffmpeg exited with code %d", f.ExitCode)
	}
	if f.ExitCode >= 0 {
		return fmt.Sprintf("ffmpeg exited with code %d: %v", f.ExitCode, f.Err)
	}
	return fmt.Sprintf("ffmpeg failed: %v", f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// run tracks the state machine of a single invocation.
type run struct {
	mu    sync.Mutex
	state State
}

// advance moves to next unless the run has already reached a final state.
func (r *run) advance(next State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return false
	}
	r.state = next
	return true
}

func (r *run) current() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Transcoder spawns and supervises ffmpeg processes.
type Transcoder struct {
	binary    string
	processes map[string]*exec.Cmd
	processMu sync.Mutex
}

// New creates a Transcoder that runs binary, or DefaultBinary if empty.
func New(binary string) *Transcoder {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Transcoder{
		binary:    binary,
		processes: make(map[string]*exec.Cmd),
	}
}

// Binary returns the configured executable.
func (t *Transcoder) Binary() string {
	return t.binary
}

// CheckBinary resolves the ffmpeg executable and returns its full path.
func (t *Transcoder) CheckBinary() (string, error) {
	path, err := exec.LookPath(t.binary)
	if err != nil {
		return "", fmt.Errorf("ffmpeg not found (%s): %w", t.binary, err)
	}
	return path, nil
}

// Run executes one invocation and blocks until the process has exited.
// Progress is reported to obs (which may be nil) at 20% checkpoints from a
// separate goroutine. Run never retries; canceling ctx kills the process.
func (t *Transcoder) Run(ctx context.Context, inv Invocation, obs progress.Observer) (*Result, error) {
	log := logging.ForJob(inv.JobID)
	r := &run{}
	start := time.Now()

	args := BuildArgs(inv)
	log.Debug("ffmpeg %s", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, t.binary, args...)
	cmd.WaitDelay = waitDelay

	pr, pw := io.Pipe()
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		_ = pr.Close()
		r.advance(StateFailed)
		metrics.TranscoderRunsTotal.WithLabelValues(StateFailed.String()).Inc()
		return nil, &Failure{ExitCode: -1, Err: fmt.Errorf("failed to start ffmpeg: %w", err)}
	}
	r.advance(StateSpawned)

	key := processKey(inv)
	t.track(key, cmd)
	defer t.untrack(key)

	metrics.TranscoderProcesses.Inc()
	defer metrics.TranscoderProcesses.Dec()

	tail := newTailBuffer(tailSize)
	checkpoints := progress.NewCheckpoints(20)
	readDone := make(chan struct{})

	r.advance(StateRunning)
	go func() {
		defer close(readDone)
		t.readStderr(pr, inv.JobID, tail, checkpoints, obs)
	}()

	waitErr := cmd.Wait()
	_ = pw.Close()
	<-readDone

	elapsed := time.Since(start)
	metrics.TranscoderRunDuration.Observe(elapsed.Seconds())

	size, err := t.verify(ctx, inv, waitErr, tail)
	if err != nil {
		r.advance(StateFailed)
		metrics.TranscoderRunsTotal.WithLabelValues(StateFailed.String()).Inc()
		log.Debug("ffmpeg failed after %v: %v", elapsed, err)
		return nil, err
	}

	r.advance(StateSucceeded)
	metrics.TranscoderRunsTotal.WithLabelValues(StateSucceeded.String()).Inc()

	if checkpoints.Last() < 100 {
		checkpoints.Next(100)
		notify(obs, inv.JobID, 100)
	}

	log.Debug("ffmpeg finished in %v", elapsed)
	return &Result{State: r.current(), OutputSize: size, Duration: elapsed}, nil
}

// verify classifies the outcome of a finished process and returns the
// output size on success.
func (t *Transcoder) verify(ctx context.Context, inv Invocation, waitErr error, tail *tailBuffer) (int64, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return 0, &Failure{ExitCode: -1, Err: ctxErr, Tail: tail.String()}
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return 0, &Failure{ExitCode: exitErr.ExitCode(), Tail: tail.String()}
		}
		return 0, &Failure{ExitCode: -1, Err: waitErr, Tail: tail.String()}
	}

	info, err := filesystem.StatWithRetry(inv.Output, filesystem.DefaultRetryConfig())
	if err != nil {
		return 0, &Failure{ExitCode: 0, Err: fmt.Errorf("%w: %v", ErrEmptyOutput, err), Tail: tail.String()}
	}
	if info.Size() == 0 {
		return 0, &Failure{ExitCode: 0, Err: ErrEmptyOutput, Tail: tail.String()}
	}
	return info.Size(), nil
}

func (t *Transcoder) readStderr(r io.Reader, jobID string, tail *tailBuffer, checkpoints *progress.Checkpoints, obs progress.Observer) {
	log := logging.ForJob(jobID)
	parser := &progressParser{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(splitByNewlineOrCR)

	for scanner.Scan() {
		line := scanner.Text()
		log.Debug("ffmpeg: %s", line)
		tail.WriteLine(line)

		pct, ok := parser.Parse(line)
		if !ok {
			continue
		}
		if cp, reached := checkpoints.Next(pct); reached {
			notify(obs, jobID, cp)
		}
	}

	// Keep draining so ffmpeg never blocks on a full pipe.
	if err := scanner.Err(); err != nil {
		log.Warn("stopped parsing ffmpeg output: %v", err)
		_, _ = io.Copy(io.Discard, r)
	}
}

func notify(obs progress.Observer, jobID string, pct int) {
	if obs == nil {
		return
	}
	obs.Observe(progress.Event{
		JobID:   jobID,
		Stage:   progress.StageTranscoding,
		Percent: pct,
		Time:    time.Now(),
	})
}

func processKey(inv Invocation) string {
	if inv.JobID != "" {
		return inv.JobID
	}
	return inv.Output
}

func (t *Transcoder) track(key string, cmd *exec.Cmd) {
	t.processMu.Lock()
	t.processes[key] = cmd
	t.processMu.Unlock()
}

func (t *Transcoder) untrack(key string) {
	t.processMu.Lock()
	delete(t.processes, key)
	t.processMu.Unlock()
}

// Active returns the number of running ffmpeg processes.
func (t *Transcoder) Active() int {
	t.processMu.Lock()
	defer t.processMu.Unlock()
	return len(t.processes)
}

// Cleanup stops all active transcoding processes.
func (t *Transcoder) Cleanup() {
	t.processMu.Lock()
	defer t.processMu.Unlock()

	for key, cmd := range t.processes {
		if cmd.Process != nil {
			logging.Info("Killing transcoding process for job %s", key)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill transcoding process for %s: %v", key, err)
			}
		}
	}
}
