package progress

import (
	"sync"
	"time"

	"media-converter/internal/logging"
)

// Stage is the phase a conversion job is in.
type Stage string

const (
	StageQueued      Stage = "queued"
	StageFetching    Stage = "fetching"
	StageTranscoding Stage = "transcoding"
	StageDelivering  Stage = "delivering"
	StageCompleted   Stage = "completed"
	StageFailed      Stage = "failed"
)

// Terminal reports whether no further events follow s.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// Event is one progress notification.
type Event struct {
	JobID   string    `json:"jobId"`
	Stage   Stage     `json:"stage"`
	Percent int       `json:"percent"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

// Observer receives progress events. Implementations must not block for long;
// they are called from the goroutine driving the job.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) {
	f(e)
}

type multi struct {
	observers []Observer
}

func (m *multi) Observe(e Event) {
	for _, o := range m.observers {
		o.Observe(e)
	}
}

// Multi fans an event out to every non-nil observer.
func Multi(observers ...Observer) Observer {
	m := &multi{}
	for _, o := range observers {
		if o != nil {
			m.observers = append(m.observers, o)
		}
	}
	return m
}

// Channel returns an observer that forwards events to ch without blocking.
// Events are dropped while the channel is full.
func Channel(ch chan<- Event) Observer {
	return ObserverFunc(func(e Event) {
		select {
		case ch <- e:
		default:
			logging.Debug("progress channel full, dropped %s event for job %s", e.Stage, e.JobID)
		}
	})
}

// Log returns an observer that writes each event to the info log.
func Log() Observer {
	return ObserverFunc(func(e Event) {
		if e.Stage == StageTranscoding {
			logging.ForJob(e.JobID).Info("Processing: %d%%", e.Percent)
			return
		}
		if e.Message != "" {
			logging.ForJob(e.JobID).Info("Stage %s: %s", e.Stage, e.Message)
			return
		}
		logging.ForJob(e.JobID).Info("Stage %s", e.Stage)
	})
}

// Checkpoints turns a stream of raw percentages into coarse checkpoints, so
// that observers are notified at most once per step.
type Checkpoints struct {
	mu   sync.Mutex
	step int
	last int
}

// NewCheckpoints returns a tracker that reports multiples of step.
func NewCheckpoints(step int) *Checkpoints {
	if step <= 0 {
		step = 20
	}
	return &Checkpoints{step: step}
}

// Next returns the checkpoint reached by percent and true if it is beyond the
// last one reported. Percent values above 100 are treated as 100.
func (c *Checkpoints) Next(percent int) (int, bool) {
	if percent > 100 {
		percent = 100
	}
	reached := percent - percent%c.step

	c.mu.Lock()
	defer c.mu.Unlock()

	if reached <= c.last {
		return c.last, false
	}
	c.last = reached
	return reached, true
}

// Last returns the most recent checkpoint reported.
func (c *Checkpoints) Last() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
