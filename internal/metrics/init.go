package metrics

// Outcome labels for ConversionsTotal. The failure labels match the
// orchestrator's error kinds.
var conversionOutcomes = []string{
	"success",
	"validation_error",
	"remote_fetch_error",
	"timeout",
	"transcode_failure",
	"internal_error",
}

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics(formats []string) {
	for _, outcome := range conversionOutcomes {
		ConversionsTotal.WithLabelValues(outcome)
	}

	for _, format := range formats {
		ConversionDuration.WithLabelValues(format)
	}

	for _, status := range []string{"success", "http_error", "timeout", "error"} {
		FetchesTotal.WithLabelValues(status)
	}

	for _, state := range []string{"succeeded", "failed"} {
		TranscoderRunsTotal.WithLabelValues(state)
	}

	for _, role := range []string{"input", "audio", "output"} {
		LedgerPathsReserved.WithLabelValues(role)
	}

	for _, sink := range []string{"http", "directory", "s3"} {
		DeliveriesTotal.WithLabelValues(sink, "success")
		DeliveriesTotal.WithLabelValues(sink, "error")
	}

	for _, vol := range []string{"work", "output", "unknown"} {
		for _, op := range []string{"stat", "open", "remove"} {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemOperationDuration.WithLabelValues(op, vol)
		}
	}
}
