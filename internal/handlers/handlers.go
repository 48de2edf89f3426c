package handlers

import (
	"context"
	"time"

	"media-converter/internal/delivery"
	"media-converter/internal/orchestrator"
	"media-converter/internal/progress"
	"media-converter/internal/startup"
)

// Converter runs one conversion. *orchestrator.Orchestrator implements it.
type Converter interface {
	Convert(ctx context.Context, req orchestrator.Request, sink delivery.Sink) (*orchestrator.Result, error)
}

// JobStore looks up tracked job state. *progress.RedisTracker implements it.
type JobStore interface {
	Get(ctx context.Context, id string) (*progress.JobState, error)
}

// Pinger is implemented by stores whose connectivity is part of health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	converter Converter
	jobs      JobStore
	store     delivery.Sink
	ffmpegOK  bool
	startTime time.Time
}

// New creates the HTTP handlers. jobs and store may be nil when job tracking
// or stored delivery are not configured.
func New(conv Converter, jobs JobStore, store delivery.Sink, config *startup.Config) *Handlers {
	return &Handlers{
		converter: conv,
		jobs:      jobs,
		store:     store,
		ffmpegOK:  config.FFmpegAvailable,
		startTime: time.Now(),
	}
}
