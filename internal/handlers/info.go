package handlers

import (
	"net/http"

	"media-converter/internal/startup"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "media-converter"

// VersionResponse is the body of GET /version.
type VersionResponse struct {
	Service string `json:"service"`
	startup.BuildInfo
}

// GetVersion returns the application version and build information
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, VersionResponse{Service: serviceName, BuildInfo: startup.GetBuildInfo()})
}

// MetricsHandler serves the default registry. A failing collector drops its
// own series rather than failing the whole scrape.
func (h *Handlers) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorHandling:     promhttp.ContinueOnError,
		EnableOpenMetrics: true,
	})
}
