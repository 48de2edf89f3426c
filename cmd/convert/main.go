package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path"
	"sync"
	"syscall"
	"time"

	"media-converter/internal/delivery"
	"media-converter/internal/fetcher"
	"media-converter/internal/mediatypes"
	"media-converter/internal/orchestrator"
	"media-converter/internal/progress"
	"media-converter/internal/transcoder"
	"media-converter/internal/workers"

	"golang.org/x/term"
)

const headTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	size       int64
	ext        string
	format     string
	quality    string
	resolution string
	fps        string
	audio      string
	audioSize  int64
	audioExt   string
	out        string
	ffmpeg     string
	timeout    time.Duration
	verbose    bool
}

func parseFlags(args []string, stderr io.Writer) (*options, string, error) {
	var o options
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Int64Var(&o.size, "size", -1, "declared input size in bytes (default: probed with HEAD)")
	fs.StringVar(&o.ext, "ext", "", "input extension (default: from the URL path)")
	fs.StringVar(&o.format, "format", "mp4", "output format")
	fs.StringVar(&o.quality, "quality", "medium", "quality: high, medium, low, ultralow")
	fs.StringVar(&o.resolution, "resolution", "original", "output height or original")
	fs.StringVar(&o.fps, "fps", "original", "output frame rate or original")
	fs.StringVar(&o.audio, "audio", "", "URL of an audio track to mux in place of the original audio")
	fs.Int64Var(&o.audioSize, "audio-size", -1, "declared audio size in bytes (default: probed with HEAD)")
	fs.StringVar(&o.audioExt, "audio-ext", "", "audio extension (default: from the URL path)")
	fs.StringVar(&o.out, "out", ".", "directory to write the result to")
	fs.StringVar(&o.ffmpeg, "ffmpeg", transcoder.DefaultBinary, "ffmpeg binary")
	fs.DurationVar(&o.timeout, "timeout", fetcher.DefaultTimeout, "download timeout per input")
	fs.BoolVar(&o.verbose, "v", false, "show service logs")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: convert [flags] <url>")
		fmt.Fprintln(stderr, "")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, "", err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, "", errors.New("exactly one input URL is required")
	}
	return &o, fs.Arg(0), nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, inputURL, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if !o.verbose {
		log.SetOutput(io.Discard)
		defer log.SetOutput(os.Stderr)
	}

	req := orchestrator.Request{
		Input:      inputRef(inputURL, o.size, o.ext),
		Format:     o.format,
		Quality:    o.quality,
		Resolution: o.resolution,
		FrameRate:  o.fps,
	}
	if o.audio != "" {
		audio := inputRef(o.audio, o.audioSize, o.audioExt)
		req.Audio = &audio
	}
	if err := orchestrator.Validate(req); err != nil {
		printError(stderr, err)
		return 1
	}

	sink, err := delivery.NewDirectorySink(o.out)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	workDir, err := os.MkdirTemp("", "convert-")
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to create work directory: %v\n", err)
		return 1
	}
	defer os.RemoveAll(workDir)

	if o.size < 0 {
		req.Input.Size = probeSize(ctx, req.Input.URL)
	}
	if req.Audio != nil && o.audioSize < 0 {
		req.Audio.Size = probeSize(ctx, req.Audio.URL)
	}

	printer := newProgressPrinter(stderr, isTerminal(stderr))
	orch := orchestrator.New(orchestrator.Options{
		Fetcher:  fetcher.NewHTTPFetcher(o.timeout, mediatypes.MaxInputSize),
		Runner:   transcoder.New(o.ffmpeg),
		WorkDir:  workDir,
		Limiter:  workers.NewLimiter(1),
		Observer: printer,
	})

	res, err := orch.Convert(ctx, req, sink)
	printer.finish()
	if err != nil {
		printError(stderr, err)
		return 1
	}

	fmt.Fprintln(stdout, res.Summary())
	for _, r := range res.Deliveries {
		fmt.Fprintf(stdout, "Saved to: %s\n", r.Location)
	}
	return 0
}

func printError(w io.Writer, err error) {
	var convErr *orchestrator.Error
	if errors.As(err, &convErr) {
		fmt.Fprintf(w, "Error: %s\n", convErr.Message)
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// inputRef builds an input reference without touching the network. The
// extension defaults to the one in the URL path; an unknown (negative) size
// is left at 0 until probeSize fills it in.
func inputRef(rawURL string, size int64, ext string) orchestrator.InputRef {
	if ext == "" {
		if u, err := url.Parse(rawURL); err == nil {
			ext = mediatypes.NormalizeExt(path.Ext(u.Path))
		}
	}
	return orchestrator.InputRef{URL: rawURL, Size: max(size, 0), Ext: ext}
}

// probeSize returns the Content-Length reported by a HEAD request, or 0.
func probeSize(ctx context.Context, rawURL string) int64 {
	ctx, cancel := context.WithTimeout(ctx, headTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, http.NoBody)
	if err != nil {
		return 0
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0
	}
	resp.Body.Close()
	if resp.StatusCode/100 != 2 || resp.ContentLength < 0 {
		return 0
	}
	return resp.ContentLength
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// progressPrinter renders job progress. On a terminal it rewrites a single
// line; otherwise it prints one line per change.
type progressPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	tty     bool
	last    string
	pending bool
}

func newProgressPrinter(w io.Writer, tty bool) *progressPrinter {
	return &progressPrinter{w: w, tty: tty}
}

func (p *progressPrinter) Observe(e progress.Event) {
	line := string(e.Stage)
	if e.Stage == progress.StageTranscoding {
		line = fmt.Sprintf("%s %3d%%", e.Stage, e.Percent)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if line == p.last || e.Stage.Terminal() {
		return
	}
	p.last = line

	if p.tty {
		fmt.Fprintf(p.w, "\r%-20s", line)
		p.pending = true
		return
	}
	fmt.Fprintln(p.w, line)
}

// finish ends an open terminal line.
func (p *progressPrinter) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending {
		fmt.Fprintln(p.w)
		p.pending = false
	}
}
