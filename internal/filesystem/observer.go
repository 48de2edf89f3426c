package filesystem

// Observer records filesystem operation metrics. The implementation lives in
// the metrics package, which imports this one.
type Observer interface {
	// ObserveDuration records the total time of an operation including retries.
	// operation is "stat", "open" or "remove"; volume is the resolved label.
	ObserveDuration(operation, volume string, durationSeconds float64)

	ObserveRetryAttempt(operation, volume string)
	ObserveRetryFailure(operation, volume string)
	ObserveStaleError(operation, volume string)
}

// defaultObserver is the package-level observer set at startup.
// If nil, metric recording is silently skipped (safe for tests).
var defaultObserver Observer

// SetObserver sets the package-level metrics observer.
// Call this once at startup after creating the observer implementation.
func SetObserver(o Observer) {
	defaultObserver = o
}

func observe() Observer {
	return defaultObserver
}
