package orchestrator

import (
	"fmt"
	"strings"

	"media-converter/internal/mediatypes"
)

// params is a validated request.
type params struct {
	format     mediatypes.Format
	quality    mediatypes.Quality
	resolution mediatypes.Resolution
	frameRate  mediatypes.FrameRate
	inputExt   string
	audioExt   string
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

// validate checks req against the supported enumerations and limits. It
// performs no I/O.
func validate(req Request) (params, *Error) {
	if req.Audio != nil {
		return validateMux(req)
	}

	var p params

	format, err := mediatypes.ParseFormat(req.Format)
	if err != nil {
		return p, invalid("Invalid output format. Supported formats: " + joinValues(mediatypes.Formats))
	}
	p.format = format

	if e := checkInput(req.Input); e != nil {
		return p, e
	}
	p.inputExt = mediatypes.NormalizeExt(req.Input.Ext)
	if !mediatypes.IsVideoExt(p.inputExt) {
		return p, invalid("Invalid video format. Supported formats: " + joinValues(mediatypes.Formats))
	}
	if req.Input.Size > mediatypes.MaxInputSize {
		return p, invalid("File must be under 100MB.")
	}

	if p.quality, err = mediatypes.ParseQuality(req.Quality); err != nil {
		return p, invalid("Invalid quality. Supported qualities: " + joinValues(mediatypes.Qualities))
	}
	if p.resolution, err = mediatypes.ParseResolution(req.Resolution); err != nil {
		return p, invalid("Invalid resolution. Supported resolutions: " + joinValues(mediatypes.Resolutions))
	}
	if p.frameRate, err = mediatypes.ParseFrameRate(req.FrameRate); err != nil {
		return p, invalid("Invalid frame rate. Supported frame rates: " + joinValues(mediatypes.FrameRates))
	}
	return p, nil
}

func validateMux(req Request) (params, *Error) {
	var p params

	if e := checkInput(req.Input); e != nil {
		return p, e
	}
	if e := checkInput(*req.Audio); e != nil {
		return p, e
	}
	if req.Input.Size > mediatypes.MaxInputSize || req.Audio.Size > mediatypes.MaxInputSize {
		return p, invalid("Files must be under 100MB each.")
	}

	format := mediatypes.FormatMP4
	if req.Format != "" {
		f, err := mediatypes.ParseFormat(req.Format)
		if err != nil || !f.CanMux() {
			return p, invalid("Invalid output format for adding audio. Supported formats: " + joinValues(mediatypes.MuxFormats))
		}
		format = f
	}
	p.format = format

	p.inputExt = mediatypes.NormalizeExt(req.Input.Ext)
	if !mediatypes.IsVideoExt(p.inputExt) || p.inputExt == string(mediatypes.FormatGIF) {
		return p, invalid("Invalid video format. Supported formats: mp4, mov, webm, avi, mkv")
	}
	p.audioExt = mediatypes.NormalizeExt(req.Audio.Ext)
	if !mediatypes.IsAudioExt(p.audioExt) {
		return p, invalid("Invalid audio format. Supported formats: " + strings.Join(mediatypes.SortedKeys(mediatypes.AudioExtensions), ", "))
	}
	return p, nil
}

func checkInput(in InputRef) *Error {
	if strings.TrimSpace(in.URL) == "" {
		return invalid("A file link is required.")
	}
	if in.Size < 0 {
		return invalid(fmt.Sprintf("Invalid file size: %d.", in.Size))
	}
	return nil
}
