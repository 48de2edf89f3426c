// Package transcoder runs ffmpeg on behalf of a conversion job.
//
// [BuildArgs] turns an [Invocation] into an explicit argument vector; no shell
// is involved at any point. [Transcoder.Run] spawns exactly one process,
// follows its stderr to log it and derive progress, and returns either a
// [Result] or a [*Failure] carrying the exit code and the tail of the output.
//
// Every run moves through idle, spawned and running to succeeded or failed,
// and never leaves a final state. Running processes are tracked so that
// [Transcoder.Cleanup] can kill them at shutdown.
package transcoder
