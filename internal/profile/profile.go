package profile

import (
	"fmt"
	"math"

	"media-converter/internal/mediatypes"
)

// Params are the declarative inputs to profile resolution.
type Params struct {
	Format     mediatypes.Format
	Quality    mediatypes.Quality
	Resolution mediatypes.Resolution
	FrameRate  mediatypes.FrameRate
	InputSize  int64
}

// Profile is the concrete encoder parameter set for one conversion.
type Profile struct {
	Codec            string `json:"codec"`
	Preset           string `json:"preset"`
	CRF              int    `json:"crf"`
	AudioBitrateKbps int    `json:"audioBitrateKbps"`
	// Scale is a "W:H" box the output is fitted into, or "" to keep the source size.
	Scale string `json:"scale,omitempty"`
	// FrameRate is the forced output rate, or 0 to keep the source rate.
	FrameRate int `json:"frameRate,omitempty"`
}

const largeInputAudioFactor = 0.7

// crfCeilings caps the rate factor for resolutions where a coarser setting
// would be visibly blocky.
var crfCeilings = map[mediatypes.Resolution]int{
	mediatypes.Resolution1080: 23,
	mediatypes.Resolution720:  26,
	mediatypes.Resolution480:  30,
	mediatypes.Resolution360:  30,
}

// Resolve derives the encoder profile for p. It has no side effects and returns
// a fresh value on every call.
func Resolve(p Params) (Profile, error) {
	codec := p.Format.Codec()
	if codec == "" {
		return Profile{}, fmt.Errorf("unsupported format %q", p.Format)
	}
	tier, ok := p.Quality.Tier()
	if !ok {
		return Profile{}, fmt.Errorf("unsupported quality %q", p.Quality)
	}
	if !p.Resolution.Valid() {
		return Profile{}, fmt.Errorf("unsupported resolution %q", p.Resolution)
	}
	if !p.FrameRate.Valid() {
		return Profile{}, fmt.Errorf("unsupported frame rate %q", p.FrameRate)
	}

	prof := Profile{
		Codec:            codec,
		Preset:           tier.Preset,
		CRF:              tier.CRF,
		AudioBitrateKbps: tier.AudioBitrateKbps,
		Scale:            p.Resolution.Box(),
		FrameRate:        p.FrameRate.Value(),
	}

	prof = adjustForSize(prof, p.InputSize)
	prof = adjustForResolution(prof, p.Resolution)

	return prof, nil
}

func adjustForSize(prof Profile, size int64) Profile {
	if size <= mediatypes.LargeInputThreshold {
		return prof
	}
	prof.CRF += 2
	prof.AudioBitrateKbps = scaleBitrate(prof.AudioBitrateKbps, largeInputAudioFactor)
	return prof
}

func adjustForResolution(prof Profile, res mediatypes.Resolution) Profile {
	switch res {
	case mediatypes.Resolution2160:
		prof.CRF += 2
		prof.AudioBitrateKbps = 192
	case mediatypes.Resolution1440:
		prof.CRF++
	default:
		if ceiling, ok := crfCeilings[res]; ok && prof.CRF > ceiling {
			prof.CRF = ceiling
		}
	}
	return prof
}

// scaleBitrate rounds to the nearest whole kbps.
func scaleBitrate(kbps int, factor float64) int {
	return int(math.Round(float64(kbps) * factor))
}
