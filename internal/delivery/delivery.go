package delivery

import (
	"context"
	"errors"
	"time"

	"media-converter/internal/logging"
	"media-converter/internal/mediatypes"
	"media-converter/internal/metrics"
)

// Artifact is a finished conversion output waiting to be handed off. Path is
// only valid until the job's temporary files are released, so sinks must
// copy or stream it before Deliver returns.
type Artifact struct {
	JobID       string
	Path        string
	Name        string
	Format      mediatypes.Format
	ContentType string
	Size        int64

	InputSize     int64
	SizeReduction float64
	Elapsed       time.Duration
}

// Receipt records where a sink put an artifact.
type Receipt struct {
	Sink     string `json:"sink"`
	Location string `json:"location,omitempty"`
}

// Sink receives a finished artifact.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, a Artifact) ([]Receipt, error)
}

// OutputName is the download name presented to the user.
func OutputName(format mediatypes.Format) string {
	return "converted_video." + format.Ext()
}

func record(sink, jobID string, err error) {
	status := "success"
	if err != nil {
		status = "error"
		logging.ForJob(jobID).Warn("delivery to %s failed: %v", sink, err)
	}
	metrics.DeliveriesTotal.WithLabelValues(sink, status).Inc()
}

// Multi delivers to every sink in order. All sinks are attempted even if one
// fails; the receipts of the successful ones are returned with the joined
// errors of the others.
type Multi []Sink

// Name implements Sink.
func (m Multi) Name() string {
	return "multi"
}

// Deliver implements Sink.
func (m Multi) Deliver(ctx context.Context, a Artifact) ([]Receipt, error) {
	var receipts []Receipt
	var errs []error
	for _, s := range m {
		r, err := s.Deliver(ctx, a)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		receipts = append(receipts, r...)
	}
	return receipts, errors.Join(errs...)
}

// Discard accepts every artifact and keeps nothing.
type Discard struct{}

// Name implements Sink.
func (Discard) Name() string {
	return "discard"
}

// Deliver implements Sink.
func (Discard) Deliver(context.Context, Artifact) ([]Receipt, error) {
	return nil, nil
}

// ProcessedName is the download name for a video with added audio.
func ProcessedName(format mediatypes.Format) string {
	return "processed_video." + format.Ext()
}
