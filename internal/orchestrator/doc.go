// Package orchestrator sequences one conversion from request to artifact.
//
// [Orchestrator.Convert] validates the request without touching the network,
// reserves temporary paths in a per-job ledger, downloads every input
// concurrently, resolves the encoder profile, runs ffmpeg under a worker slot
// and hands the output to a delivery sink. The ledger is released on every
// exit path, panics and cancellation included.
//
// Failures come back as [*Error] with a [Kind] and a message that can be
// shown to users as is.
package orchestrator
