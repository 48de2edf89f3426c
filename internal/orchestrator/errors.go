package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"media-converter/internal/delivery"
	"media-converter/internal/fetcher"
	"media-converter/internal/transcoder"
)

// Kind classifies a failed conversion.
type Kind string

const (
	// ValidationError means the request was rejected before any I/O.
	ValidationError Kind = "validation_error"
	// RemoteFetchError means an input could not be downloaded.
	RemoteFetchError Kind = "remote_fetch_error"
	// Timeout means a download exceeded its deadline.
	Timeout Kind = "timeout"
	// TranscodeFailure means ffmpeg failed to start or exited unsuccessfully.
	TranscodeFailure Kind = "transcode_failure"
	// InternalError covers everything else, including caller cancellation.
	InternalError Kind = "internal_error"
)

// User-facing messages. Only validation messages carry request details.
const (
	msgFetch     = "Could not download the file. Please check the link and try again."
	msgTimeout   = "The download took too long. Please try again later or with a smaller file."
	msgTranscode = "There was an error converting your video. Please make sure the file is valid and try again."
	msgInternal  = "Something went wrong while processing your video. Please try again later."
)

var kindMessages = map[Kind]string{
	RemoteFetchError: msgFetch,
	Timeout:          msgTimeout,
	TranscodeFailure: msgTranscode,
	InternalError:    msgInternal,
}

// Error is the only error type Convert returns. Message is safe to show to
// the user; Err holds the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	JobID   string
	Err     error
	// Deliveries lists the sinks that did store the artifact when another
	// sink failed.
	Deliveries []delivery.Receipt
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, jobID string, err error) *Error {
	return &Error{Kind: kind, Message: kindMessages[kind], JobID: jobID, Err: err}
}

func invalid(message string) *Error {
	return &Error{Kind: ValidationError, Message: message}
}

// classifyFetch maps a fetch failure to a kind. A canceled caller context
// is internal: the user did not cause it and retrying may succeed.
func classifyFetch(ctx context.Context, err error) Kind {
	var pathErr *fs.PathError
	switch {
	case ctx.Err() != nil:
		return InternalError
	case errors.Is(err, fetcher.ErrTimeout):
		return Timeout
	case errors.As(err, &pathErr):
		return InternalError
	default:
		return RemoteFetchError
	}
}

// classifyTranscode maps a supervisor failure to a kind.
func classifyTranscode(ctx context.Context, err error) Kind {
	var failure *transcoder.Failure
	switch {
	case ctx.Err() != nil:
		return InternalError
	case errors.As(err, &failure):
		return TranscodeFailure
	default:
		return InternalError
	}
}
