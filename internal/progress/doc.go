// Package progress carries job progress from the transcoder and orchestrator
// to whoever is interested, without either of them doing user-facing I/O.
//
// Producers emit [Event] values to an [Observer]. [Multi] fans out to several
// observers, [Channel] forwards to a channel for a consumer goroutine, [Log]
// writes to the application log and [RedisTracker] mirrors the latest state
// of each job into a Redis hash with an expiry.
//
// [Checkpoints] reduces a stream of raw percentages to coarse steps (20% by
// default) so that observers are not flooded by every ffmpeg status line.
package progress
