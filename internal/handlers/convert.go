package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"media-converter/internal/delivery"
	"media-converter/internal/logging"
	"media-converter/internal/middleware"
	"media-converter/internal/orchestrator"
)

// maxRequestBody caps the JSON body of a conversion request. The media
// itself is fetched by URL, never uploaded.
const maxRequestBody = 64 << 10

// Delivery modes.
const (
	deliveryStream = "stream"
	deliveryStore  = "store"
)

// Summary headers set on streamed responses.
const (
	headerInputSize     = "X-Conversion-Input-Size"
	headerOutputSize    = "X-Conversion-Output-Size"
	headerSizeReduction = "X-Conversion-Size-Reduction"
	headerElapsed       = "X-Conversion-Elapsed-Ms"
)

type convertRequest struct {
	URL        string `json:"url"`
	Size       int64  `json:"size"`
	Ext        string `json:"ext"`
	Format     string `json:"format"`
	Quality    string `json:"quality"`
	Resolution string `json:"resolution"`
	FrameRate  string `json:"frameRate"`
	Delivery   string `json:"delivery"`
}

type addAudioRequest struct {
	Video    orchestrator.InputRef `json:"video"`
	Audio    orchestrator.InputRef `json:"audio"`
	Format   string                `json:"format"`
	Delivery string                `json:"delivery"`
}

// ConvertResponse is returned for stored deliveries.
type ConvertResponse struct {
	*orchestrator.Result
	Summary string `json:"summary"`
}

// Convert runs a format conversion.
// POST /api/convert
func (h *Handlers) Convert(w http.ResponseWriter, r *http.Request) {
	var body convertRequest
	if !decodeBody(w, r, &body) {
		return
	}

	h.run(w, r, body.Delivery, orchestrator.Request{
		Input:      orchestrator.InputRef{URL: body.URL, Size: body.Size, Ext: body.Ext},
		Format:     body.Format,
		Quality:    body.Quality,
		Resolution: body.Resolution,
		FrameRate:  body.FrameRate,
	})
}

// AddAudio replaces the audio track of a video.
// POST /api/addaudio
func (h *Handlers) AddAudio(w http.ResponseWriter, r *http.Request) {
	var body addAudioRequest
	if !decodeBody(w, r, &body) {
		return
	}

	audio := body.Audio
	h.run(w, r, body.Delivery, orchestrator.Request{
		Input:  body.Video,
		Audio:  &audio,
		Format: body.Format,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		logging.Debug("rejected request body: %v", err)
		writeJSONError(w, ErrorResponse{
			Error: "Invalid request body.",
			Kind:  string(orchestrator.ValidationError),
		}, http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handlers) run(w http.ResponseWriter, r *http.Request, mode string, req orchestrator.Request) {
	switch strings.ToLower(mode) {
	case "", deliveryStream:
		h.stream(w, r, req)
	case deliveryStore:
		if h.store == nil {
			writeJSONError(w, ErrorResponse{
				Error: "Stored delivery is not configured.",
				Kind:  string(orchestrator.ValidationError),
			}, http.StatusBadRequest)
			return
		}
		h.storeResult(w, r, req)
	default:
		writeJSONError(w, ErrorResponse{
			Error: fmt.Sprintf("Invalid delivery %q. Supported: stream, store", mode),
			Kind:  string(orchestrator.ValidationError),
		}, http.StatusBadRequest)
	}
}

// stream sends the artifact as the response body. Once the response has
// started, a later failure can only be logged.
func (h *Handlers) stream(w http.ResponseWriter, r *http.Request, req orchestrator.Request) {
	tw := &trackingWriter{ResponseWriter: w}
	sink := delivery.NewHTTPSink(tw)
	sink.Prepare = func(hdr http.Header, a delivery.Artifact) {
		hdr.Set(middleware.JobIDHeader, a.JobID)
		hdr.Set(headerInputSize, strconv.FormatInt(a.InputSize, 10))
		hdr.Set(headerOutputSize, strconv.FormatInt(a.Size, 10))
		hdr.Set(headerSizeReduction, strconv.FormatFloat(a.SizeReduction, 'f', 1, 64))
		hdr.Set(headerElapsed, strconv.FormatInt(a.Elapsed.Milliseconds(), 10))
	}

	_, err := h.converter.Convert(r.Context(), req, sink)
	if err == nil {
		return
	}
	if tw.started {
		logging.Warn("stream of converted artifact aborted: %v", err)
		return
	}
	for _, k := range []string{headerInputSize, headerOutputSize, headerSizeReduction, headerElapsed,
		"Content-Disposition", "Content-Length", "X-Content-Type-Options"} {
		w.Header().Del(k)
	}
	writeConversionError(w, err)
}

// trackingWriter records whether the response has started.
type trackingWriter struct {
	http.ResponseWriter
	started bool
}

func (t *trackingWriter) WriteHeader(code int) {
	t.started = true
	t.ResponseWriter.WriteHeader(code)
}

func (t *trackingWriter) Write(b []byte) (int, error) {
	t.started = true
	return t.ResponseWriter.Write(b)
}

func (t *trackingWriter) Flush() {
	if f, ok := t.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (t *trackingWriter) Unwrap() http.ResponseWriter {
	return t.ResponseWriter
}

func (h *Handlers) storeResult(w http.ResponseWriter, r *http.Request, req orchestrator.Request) {
	res, err := h.converter.Convert(r.Context(), req, h.store)
	if err != nil {
		writeConversionError(w, err)
		return
	}

	w.Header().Set(middleware.JobIDHeader, res.JobID)
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, ConvertResponse{Result: res, Summary: res.Summary()})
}

// statusForKind maps a failure kind to its HTTP status.
func statusForKind(kind orchestrator.Kind) int {
	switch kind {
	case orchestrator.ValidationError:
		return http.StatusBadRequest
	case orchestrator.RemoteFetchError:
		return http.StatusBadGateway
	case orchestrator.Timeout:
		return http.StatusGatewayTimeout
	case orchestrator.TranscodeFailure:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeConversionError(w http.ResponseWriter, err error) {
	var convErr *orchestrator.Error
	if !errors.As(err, &convErr) {
		logging.Error("unclassified conversion error: %v", err)
		writeJSONError(w, ErrorResponse{
			Error: "Something went wrong while processing your video. Please try again later.",
			Kind:  string(orchestrator.InternalError),
		}, http.StatusInternalServerError)
		return
	}

	if convErr.JobID != "" {
		w.Header().Set(middleware.JobIDHeader, convErr.JobID)
	}
	writeJSONError(w, ErrorResponse{
		Error:      convErr.Message,
		Kind:       string(convErr.Kind),
		JobID:      convErr.JobID,
		Deliveries: convErr.Deliveries,
	}, statusForKind(convErr.Kind))
}
