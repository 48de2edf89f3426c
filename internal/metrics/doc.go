// Package metrics provides Prometheus instrumentation for the media converter.
//
// All metrics are registered with the default registry through promauto and
// are prefixed with "media_converter_".
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: Counter of requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//
// ## Conversion Metrics
//
//   - ConversionsTotal: Counter by terminal outcome ("success" or a failure kind)
//   - ConversionDuration: Histogram of end-to-end duration by output format
//   - ConversionsInProgress: Gauge of running conversions
//   - ConversionSizeReduction: Histogram of the reported size reduction percentage
//
// ## Fetch, Transcoder and Ledger Metrics
//
//   - FetchesTotal, FetchBytes, FetchDuration: remote download behavior
//   - TranscoderProcesses, TranscoderRunsTotal, TranscoderRunDuration: ffmpeg runs
//   - LedgerPathsReserved, LedgerReleaseErrors: temporary file bookkeeping
//   - WorkDirFiles, WorkDirBytes: sampled by [Collector]; a steady climb means
//     temporary files are leaking
//
// ## Delivery, Worker and Filesystem Metrics
//
//   - DeliveriesTotal: artifact hand-offs by sink and status
//   - WorkerSlotsInUse, WorkerWaitDuration: transcoder concurrency limiting
//   - Filesystem*: stale file handle retries, recorded through
//     [NewFilesystemObserver]
//
// Call [InitializeMetrics] once at startup so every label combination is
// exported from the first scrape.
package metrics
