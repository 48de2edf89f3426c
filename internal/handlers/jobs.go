package handlers

import (
	"errors"
	"net/http"

	"media-converter/internal/logging"
	"media-converter/internal/progress"

	"github.com/gorilla/mux"
)

// GetJob returns the tracked state of a job.
// GET /api/jobs/{id}
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		writeJSONError(w, ErrorResponse{Error: "Job tracking is not enabled."}, http.StatusNotFound)
		return
	}

	id := mux.Vars(r)["id"]
	state, err := h.jobs.Get(r.Context(), id)
	switch {
	case errors.Is(err, progress.ErrJobNotFound):
		writeJSONError(w, ErrorResponse{Error: "Job not found.", JobID: id}, http.StatusNotFound)
		return
	case err != nil:
		logging.Error("Failed to look up job %s: %v", id, err)
		writeJSONError(w, ErrorResponse{Error: "Failed to look up job.", JobID: id}, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, state)
}
