package orchestrator

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"media-converter/internal/delivery"
	"media-converter/internal/fetcher"
	"media-converter/internal/filesystem"
	"media-converter/internal/ledger"
	"media-converter/internal/logging"
	"media-converter/internal/mediatypes"
	"media-converter/internal/metrics"
	"media-converter/internal/profile"
	"media-converter/internal/progress"
	"media-converter/internal/transcoder"

	"github.com/google/uuid"
)

// InputRef points at a remote input and carries its declared size and
// extension.
type InputRef struct {
	URL  string `json:"url"`
	Size int64  `json:"size"`
	Ext  string `json:"ext"`
}

// Request is one conversion. When Audio is set the job muxes the video of
// Input with the audio of Audio; Quality, Resolution and FrameRate are then
// ignored. Empty option fields take their defaults (medium, original,
// original).
type Request struct {
	Input      InputRef
	Audio      *InputRef
	Format     string
	Quality    string
	Resolution string
	FrameRate  string

	// Observer optionally receives this job's progress in addition to the
	// orchestrator's own observer.
	Observer progress.Observer
}

// Ledger is the part of *ledger.Ledger the orchestrator uses.
type Ledger interface {
	Reserve(role ledger.Role, ext string) (string, error)
	ReleaseAll()
}

// LedgerFactory creates the ledger for one job.
type LedgerFactory func() Ledger

// Runner executes one transcoder invocation.
type Runner interface {
	Run(ctx context.Context, inv transcoder.Invocation, obs progress.Observer) (*transcoder.Result, error)
}

// Limiter bounds concurrent transcoder runs.
type Limiter interface {
	Acquire(ctx context.Context) (func(), error)
}

// Options wires an Orchestrator. Fetcher, Runner and either WorkDir or
// NewLedger are required.
type Options struct {
	Fetcher   fetcher.Fetcher
	Runner    Runner
	WorkDir   string
	NewLedger LedgerFactory
	Limiter   Limiter
	Observer  progress.Observer
	// TranscodeTimeout bounds a single ffmpeg run (0 = no limit).
	TranscodeTimeout time.Duration
}

// Orchestrator runs conversions end to end.
type Orchestrator struct {
	fetcher          fetcher.Fetcher
	runner           Runner
	newLedger        LedgerFactory
	limiter          Limiter
	observer         progress.Observer
	transcodeTimeout time.Duration
	newID            func() string
}

// New creates an Orchestrator from opts.
func New(opts Options) *Orchestrator {
	newLedger := opts.NewLedger
	if newLedger == nil {
		dir := opts.WorkDir
		newLedger = func() Ledger { return ledger.New(dir) }
	}
	return &Orchestrator{
		fetcher:          opts.Fetcher,
		runner:           opts.Runner,
		newLedger:        newLedger,
		limiter:          opts.Limiter,
		observer:         opts.Observer,
		transcodeTimeout: opts.TranscodeTimeout,
		newID:            uuid.NewString,
	}
}

// job is the state of one Convert call.
type job struct {
	id     string
	req    Request
	params params
	start  time.Time
	obs    progress.Observer
	log    *logging.JobLogger
}

func (j *job) emit(stage progress.Stage, pct int, message string) {
	if j.obs == nil {
		return
	}
	j.obs.Observe(progress.Event{
		JobID:   j.id,
		Stage:   stage,
		Percent: pct,
		Message: message,
		Time:    time.Now(),
	})
}

// Convert validates req, fetches its inputs, runs ffmpeg and hands the
// output to sink (which may be nil). Every temporary file is removed before
// Convert returns, whatever the outcome, so sink must consume the artifact
// during Deliver. A non-nil error is always a *Error.
func (o *Orchestrator) Convert(ctx context.Context, req Request, sink delivery.Sink) (result *Result, err error) {
	metrics.ConversionsInProgress.Inc()
	defer metrics.ConversionsInProgress.Dec()

	j := &job{req: req, start: time.Now()}

	defer func() {
		if r := recover(); r != nil {
			logging.Error("panic in conversion %s: %v\n%s", j.id, r, debug.Stack())
			result, err = nil, newError(InternalError, j.id, fmt.Errorf("panic: %v", r))
		}
		o.finish(j, result, err)
	}()

	p, verr := validate(req)
	if verr != nil {
		return nil, verr
	}
	j.params = p
	j.id = o.newID()
	j.log = logging.ForJob(j.id)
	j.obs = progress.Multi(o.observer, req.Observer)
	j.emit(progress.StageQueued, 0, "")

	l := o.newLedger()
	defer l.ReleaseAll()

	if sink == nil {
		sink = delivery.Discard{}
	}

	res, cerr := o.run(ctx, j, l, sink)
	if cerr != nil {
		return nil, cerr
	}
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, j *job, l Ledger, sink delivery.Sink) (*Result, *Error) {
	p := j.params
	mux := j.req.Audio != nil

	inputPath, err := l.Reserve(ledger.RoleInput, p.inputExt)
	if err != nil {
		return nil, newError(InternalError, j.id, err)
	}
	targets := []fetcher.Target{{URL: j.req.Input.URL, Dest: inputPath}}

	var audioPath string
	if mux {
		if audioPath, err = l.Reserve(ledger.RoleAudio, p.audioExt); err != nil {
			return nil, newError(InternalError, j.id, err)
		}
		targets = append(targets, fetcher.Target{URL: j.req.Audio.URL, Dest: audioPath})
	}

	outputPath, err := l.Reserve(ledger.RoleOutput, p.format.Ext())
	if err != nil {
		return nil, newError(InternalError, j.id, err)
	}

	j.emit(progress.StageFetching, 0, "")
	if _, err := fetcher.FetchAll(ctx, o.fetcher, targets); err != nil {
		return nil, newError(classifyFetch(ctx, err), j.id, err)
	}

	inv := transcoder.Invocation{
		JobID:  j.id,
		Input:  inputPath,
		Audio:  audioPath,
		Output: outputPath,
		Format: p.format,
	}

	var prof *profile.Profile
	if !mux {
		resolved, err := profile.Resolve(profile.Params{
			Format:     p.format,
			Quality:    p.quality,
			Resolution: p.resolution,
			FrameRate:  p.frameRate,
			InputSize:  j.req.Input.Size,
		})
		if err != nil {
			return nil, newError(InternalError, j.id, err)
		}
		inv.Profile = resolved
		prof = &resolved
		j.log.Debug("Resolved profile: %+v", resolved)
	}

	if err := o.transcode(ctx, j, inv); err != nil {
		return nil, err
	}

	info, err := filesystem.StatWithRetry(outputPath, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, newError(InternalError, j.id, fmt.Errorf("failed to stat output: %w", err))
	}

	res := newResult(j, outputPath, info.Size(), prof)

	j.emit(progress.StageDelivering, 100, "")
	receipts, err := sink.Deliver(ctx, res.artifact())
	if err != nil {
		for _, r := range receipts {
			j.log.Warn("Delivery incomplete, output kept by %s at %s", r.Sink, r.Location)
		}
		e := newError(InternalError, j.id, fmt.Errorf("delivery to %s failed: %w", sink.Name(), err))
		e.Deliveries = receipts
		return nil, e
	}
	res.Deliveries = receipts
	return res, nil
}

func (o *Orchestrator) transcode(ctx context.Context, j *job, inv transcoder.Invocation) *Error {
	if o.limiter != nil {
		release, err := o.limiter.Acquire(ctx)
		if err != nil {
			return newError(InternalError, j.id, fmt.Errorf("waiting for a worker slot: %w", err))
		}
		defer release()
	}

	runCtx := ctx
	if o.transcodeTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.transcodeTimeout)
		defer cancel()
	}

	j.emit(progress.StageTranscoding, 0, "")
	if _, err := o.runner.Run(runCtx, inv, j.obs); err != nil {
		return newError(classifyTranscode(ctx, err), j.id, err)
	}
	return nil
}

// finish records the outcome in logs, metrics and progress.
func (o *Orchestrator) finish(j *job, res *Result, err error) {
	if err == nil {
		metrics.ConversionsTotal.WithLabelValues("success").Inc()
		metrics.ConversionDuration.WithLabelValues(string(j.params.format)).Observe(res.Elapsed.Seconds())
		metrics.ConversionSizeReduction.Observe(res.SizeReduction)
		j.emit(progress.StageCompleted, 100, "")
		j.log.Info("Conversion to %s complete: %d -> %d bytes in %v", j.params.format, res.InputSize, res.OutputSize, res.Elapsed)
		return
	}

	e, ok := err.(*Error)
	if !ok {
		e = newError(InternalError, j.id, err)
	}
	metrics.ConversionsTotal.WithLabelValues(string(e.Kind)).Inc()

	if j.log == nil {
		logging.Info("Rejected conversion request: %s", e.Message)
		return
	}
	j.emit(progress.StageFailed, 0, e.Message)
	j.log.Warn("Conversion failed (%s): %v", e.Kind, e.Err)
}

// Validate reports whether req would be accepted, without doing any work.
func Validate(req Request) error {
	if _, err := validate(req); err != nil {
		return err
	}
	return nil
}

// FormatLabels returns the label values used for per-format metrics.
func FormatLabels() []string {
	labels := make([]string, len(mediatypes.Formats))
	for i, f := range mediatypes.Formats {
		labels[i] = string(f)
	}
	return labels
}
