// Package fetcher downloads remote inputs to local paths.
//
// [HTTPFetcher] performs a single unauthenticated GET per input and streams
// the body straight to disk, so inputs near the size ceiling are never held
// in memory. Each fetch runs under its own deadline; when that deadline
// fires the transfer is aborted and [ErrTimeout] is returned. Non-2xx
// responses produce a [*StatusError].
//
// [FetchAll] runs several fetches at once (video plus audio for a mux job)
// and returns only after all of them have finished.
package fetcher
