package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Conversion metrics
var (
	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_conversions_total",
			Help: "Total number of conversions by terminal outcome",
		},
		[]string{"outcome"}, // "success" or a failure kind
	)

	ConversionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_conversion_duration_seconds",
			Help:    "End-to-end conversion duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"format"},
	)

	ConversionsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_conversions_in_progress",
			Help: "Number of conversions currently in progress",
		},
	)

	ConversionSizeReduction = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_converter_conversion_size_reduction_percent",
			Help:    "Output size reduction relative to the declared input size",
			Buckets: []float64{-50, -10, 0, 10, 25, 50, 75, 90},
		},
	)
)

// Fetch metrics
var (
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_fetches_total",
			Help: "Total number of remote fetches by status",
		},
		[]string{"status"}, // "success", "http_error", "timeout", "error"
	)

	FetchBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_converter_fetch_bytes_total",
			Help: "Total bytes written to disk by remote fetches",
		},
	)

	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_converter_fetch_duration_seconds",
			Help:    "Remote fetch duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
	)
)

// Transcoder metrics
var (
	TranscoderProcesses = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_transcoder_processes",
			Help: "Number of ffmpeg processes currently running",
		},
	)

	TranscoderRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_transcoder_runs_total",
			Help: "Total number of ffmpeg runs by final state",
		},
		[]string{"state"}, // "succeeded", "failed"
	)

	TranscoderRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_converter_transcoder_run_duration_seconds",
			Help:    "ffmpeg run duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)
)

// Ledger metrics
var (
	LedgerPathsReserved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_ledger_paths_reserved_total",
			Help: "Total number of temporary paths reserved by role",
		},
		[]string{"role"},
	)

	LedgerReleaseErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_converter_ledger_release_errors_total",
			Help: "Total number of temporary paths that could not be deleted",
		},
	)

	WorkDirBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_work_dir_bytes",
			Help: "Bytes currently held in the work directory",
		},
	)

	WorkDirFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_work_dir_files",
			Help: "Number of files currently in the work directory",
		},
	)
)

// Delivery metrics
var (
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_deliveries_total",
			Help: "Total number of artifact deliveries by sink and status",
		},
		[]string{"sink", "status"},
	)
)

// Worker metrics
var (
	WorkerSlotsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_worker_slots_in_use",
			Help: "Number of transcoder worker slots currently held",
		},
	)

	WorkerWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_converter_worker_wait_seconds",
			Help:    "Time a conversion waited for a transcoder worker slot",
			Buckets: []float64{0.001, 0.01, 0.1, 1, 5, 10, 30, 60, 120},
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_memory_usage_ratio",
			Help: "Go heap allocation as a fraction of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_converter_memory_paused",
			Help: "Whether new conversions are held back for memory pressure (1 = paused)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_converter_memory_gc_pauses_total",
			Help: "Number of times admission was paused and a GC forced",
		},
	)
)

// Filesystem metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_filesystem_retry_attempts_total",
			Help: "Total number of filesystem operation retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_converter_filesystem_stale_errors_total",
			Help: "Total number of stale file handle errors seen",
		},
		[]string{"operation", "volume"},
	)

	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_converter_filesystem_operation_duration_seconds",
			Help:    "Duration of filesystem operations including retries",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_converter_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
