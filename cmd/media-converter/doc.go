// Command media-converter is an HTTP service that converts remote videos
// between container formats with ffmpeg.
//
// A request names a remote input by URL together with its declared size and
// extension. The service downloads the input into a private work directory,
// runs one ffmpeg process with an argument vector derived from the requested
// format, quality, resolution and frame rate, and then either streams the
// result back in the response or stores it in the configured sinks (a local
// directory and/or an S3 bucket). Temporary files are removed before the
// request completes, whatever the outcome.
//
// # Endpoints
//
//	POST /api/convert    convert one video
//	POST /api/addaudio   replace the audio track of a video
//	GET  /api/formats    accepted formats and options
//	GET  /api/jobs/{id}  tracked job progress (requires REDIS_ADDR)
//	GET  /health, /healthz, /livez, /readyz, /version
//	GET  /metrics        on METRICS_PORT
//
// # Shutdown
//
// On SIGINT or SIGTERM the service stops the work directory collector, kills
// running ffmpeg processes, drains both HTTP servers and closes the Redis
// client.
//
// See package startup for the environment variables.
package main
