// Package startup handles configuration loading and the startup and shutdown
// log sections of the converter service.
//
// # Configuration
//
// [LoadConfig] reads an optional .env file and then the environment:
//
//   - WORK_DIR: Directory for temporary inputs and outputs (default: $TMPDIR/media-converter)
//   - OUTPUT_DIR: Directory sink for stored artifacts (default: unset, disabled)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable the metrics server (default: true)
//   - FETCH_TIMEOUT: Deadline for each remote download (default: 30s)
//   - TRANSCODE_TIMEOUT: Deadline for each ffmpeg run (default: 10m)
//   - FFMPEG_PATH: ffmpeg binary name or path (default: ffmpeg)
//   - CONVERT_WORKERS: Concurrent ffmpeg processes (default: GOMAXPROCS)
//   - S3_BUCKET, S3_REGION, S3_PREFIX, S3_ENDPOINT, S3_ACCESS_KEY, S3_SECRET_KEY:
//     Object storage sink, enabled when S3_BUCKET is set; both keys are required
//   - REDIS_ADDR: Redis address for job tracking (default: unset, disabled)
//   - REDIS_JOB_TTL: How long finished job state is kept (default: 24h)
//   - STALE_FILE_AGE: Age after which leftover work files are swept at startup (default: 1h)
//   - LOG_LEVEL, DEBUG: Logging level
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//
// The work directory is required and must be writable. The output directory
// is optional; when it cannot be created, directory delivery is disabled.
//
// # Build Information
//
// Version, Commit and BuildTime are injected via ldflags and exposed through
// [GetBuildInfo].
package startup
