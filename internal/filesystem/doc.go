/*
Package filesystem provides filesystem operations with automatic retry logic
for NFS stale file handle errors.

The work directory and the output directory of the converter are often
network mounts in container deployments. A stat of a freshly written ffmpeg
output, or the removal of a temporary file, can fail transiently with ESTALE
when the server side has just changed. [StatWithRetry], [OpenWithRetry] and
[RemoveWithRetry] retry only that error, with exponential backoff:

  - MaxRetries: 3 attempts
  - InitialBackoff: 50ms
  - MaxBackoff: 500ms

All other errors are returned immediately.

	info, err := filesystem.StatWithRetry(outputPath, filesystem.DefaultRetryConfig())

Metrics are reported through an [Observer] registered with [SetObserver], and
labeled with the volume name a [VolumeResolver] assigns to the path.
*/
package filesystem
