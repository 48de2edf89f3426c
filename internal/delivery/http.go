package delivery

import (
	"context"
	"net/http"

	"media-converter/internal/streaming"
)

// HTTPSink streams the artifact as the body of an HTTP response.
type HTTPSink struct {
	W      http.ResponseWriter
	Config streaming.Config
	// Prepare, if set, is called with the response headers before anything
	// is written, so the caller can attach job metadata.
	Prepare func(h http.Header, a Artifact)
}

// NewHTTPSink creates a sink writing to w with the default stream settings.
func NewHTTPSink(w http.ResponseWriter) *HTTPSink {
	return &HTTPSink{W: w, Config: streaming.DefaultConfig()}
}

// Name implements Sink.
func (s *HTTPSink) Name() string {
	return "http"
}

// Deliver implements Sink.
func (s *HTTPSink) Deliver(ctx context.Context, a Artifact) ([]Receipt, error) {
	if s.Prepare != nil {
		s.Prepare(s.W.Header(), a)
	}

	_, err := streaming.ServeFile(ctx, s.W, streaming.File{
		Path:        a.Path,
		Name:        a.Name,
		ContentType: a.ContentType,
	}, s.Config)
	record(s.Name(), a.JobID, err)
	if err != nil {
		return nil, err
	}
	return []Receipt{{Sink: s.Name()}}, nil
}
