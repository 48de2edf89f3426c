package progress

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"media-converter/internal/logging"

	"github.com/redis/go-redis/v9"
)

// ErrJobNotFound is returned by Get when no state is stored for a job.
var ErrJobNotFound = errors.New("job not found")

const (
	redisWriteTimeout = 2 * time.Second
	redisFlushTimeout = 2 * time.Second
	redisQueueSize    = 256
)

// JobState is the tracked state of a job as stored in Redis.
type JobState struct {
	JobID       string `json:"jobId"`
	Stage       Stage  `json:"stage"`
	Percent     int    `json:"percent"`
	Message     string `json:"message,omitempty"`
	StartedAt   string `json:"startedAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
	CompletedAt string `json:"completedAt,omitempty"`
}

// RedisTracker mirrors job progress into a Redis hash per job, keyed
// "job:<id>", so other processes can poll the state of a running conversion.
//
// Observe only queues the event; a single goroutine writes queued events in
// order. Events that arrive while the queue is full are dropped.
type RedisTracker struct {
	client *redis.Client
	ttl    time.Duration

	queue  chan Event
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewRedisTracker creates a tracker and starts its writer. Every write
// refreshes the key's expiry to ttl so abandoned jobs disappear on their own.
func NewRedisTracker(client *redis.Client, ttl time.Duration) *RedisTracker {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &RedisTracker{
		client: client,
		ttl:    ttl,
		queue:  make(chan Event, redisQueueSize),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	go r.run()
	return r
}

// Ping checks connectivity.
func (r *RedisTracker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func jobKey(id string) string {
	return fmt.Sprintf("job:%s", id)
}

// Observe queues e for writing. It never blocks: losing a progress update
// must never slow down or fail the conversion.
func (r *RedisTracker) Observe(e Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}

	select {
	case r.queue <- e:
	default:
		logging.ForJob(e.JobID).Warn("redis progress queue full, dropped %s event", e.Stage)
	}
}

func (r *RedisTracker) run() {
	defer close(r.done)
	for e := range r.queue {
		if r.ctx.Err() != nil {
			continue
		}
		r.write(e)
	}
}

func (r *RedisTracker) write(e Event) {
	ctx, cancel := context.WithTimeout(r.ctx, redisWriteTimeout)
	defer cancel()

	key := jobKey(e.JobID)
	stamp := e.Time
	if stamp.IsZero() {
		stamp = time.Now()
	}
	now := stamp.UTC().Format(time.RFC3339)

	fields := []interface{}{
		"stage", string(e.Stage),
		"percent", e.Percent,
		"message", e.Message,
		"updated_at", now,
	}
	switch {
	case e.Stage == StageQueued:
		fields = append(fields, "started_at", now)
	case e.Stage.Terminal():
		fields = append(fields, "completed_at", now)
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, fields...)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		logging.ForJob(e.JobID).Warn("failed to record progress in redis: %v", err)
	}
}

// Get returns the stored state of a job.
func (r *RedisTracker) Get(ctx context.Context, id string) (*JobState, error) {
	values, err := r.client.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read job %s: %w", id, err)
	}
	if len(values) == 0 {
		return nil, ErrJobNotFound
	}

	percent, _ := strconv.Atoi(values["percent"])
	return &JobState{
		JobID:       id,
		Stage:       Stage(values["stage"]),
		Percent:     percent,
		Message:     values["message"],
		StartedAt:   values["started_at"],
		UpdatedAt:   values["updated_at"],
		CompletedAt: values["completed_at"],
	}, nil
}

// Close stops accepting events and gives queued ones up to redisFlushTimeout
// to be written. Anything still pending after that is abandoned. The
// underlying client is closed last.
func (r *RedisTracker) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.queue)
		r.mu.Unlock()

		select {
		case <-r.done:
		case <-time.After(redisFlushTimeout):
			logging.Warn("redis progress queue not drained after %v, abandoning %d events", redisFlushTimeout, len(r.queue))
		}
		r.cancel()
		<-r.done

		err = r.client.Close()
	})
	return err
}
