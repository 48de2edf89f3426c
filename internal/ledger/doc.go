// Package ledger tracks the temporary files of a conversion job and guarantees
// their deletion.
//
// Every job owns one [Ledger]. Paths handed out by [Ledger.Reserve] are unique
// across concurrent jobs sharing the same working directory: the name combines
// the role, the current time in milliseconds and a random suffix, and Reserve
// re-rolls the suffix if that name is already taken. [Ledger.ReleaseAll] runs
// from a deferred call in the orchestrator, so it executes on success, on every
// failure kind and on cancellation alike.
//
// [Sweep] is run once at startup to remove files left behind by a process that
// was killed before its deferred cleanup could run.
package ledger
