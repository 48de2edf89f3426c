package handlers

import (
	"net/http"

	"media-converter/internal/mediatypes"
)

// FormatsResponse lists every value a conversion request accepts.
type FormatsResponse struct {
	Formats         []mediatypes.Format     `json:"formats"`
	MuxFormats      []mediatypes.Format     `json:"muxFormats"`
	Qualities       []mediatypes.Quality    `json:"qualities"`
	Resolutions     []mediatypes.Resolution `json:"resolutions"`
	FrameRates      []mediatypes.FrameRate  `json:"frameRates"`
	VideoExtensions []string                `json:"videoExtensions"`
	AudioExtensions []string                `json:"audioExtensions"`
	MaxInputSize    int64                   `json:"maxInputSize"`
}

// GetFormats returns the accepted enumerations.
// GET /api/formats
func (h *Handlers) GetFormats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeJSON(w, FormatsResponse{
		Formats:         mediatypes.Formats,
		MuxFormats:      mediatypes.MuxFormats,
		Qualities:       mediatypes.Qualities,
		Resolutions:     mediatypes.Resolutions,
		FrameRates:      mediatypes.FrameRates,
		VideoExtensions: mediatypes.SortedKeys(mediatypes.VideoExtensions),
		AudioExtensions: mediatypes.SortedKeys(mediatypes.AudioExtensions),
		MaxInputSize:    mediatypes.MaxInputSize,
	})
}
