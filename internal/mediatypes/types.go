package mediatypes

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	// MiB is one mebibyte.
	MiB int64 = 1024 * 1024

	// MaxInputSize is the largest declared input accepted for conversion.
	MaxInputSize = 100 * MiB

	// LargeInputThreshold is the declared size above which encoding is
	// biased toward smaller, faster output.
	LargeInputThreshold = 50 * MiB
)

// Format is an output container.
type Format string

const (
	// FormatMP4 is an MPEG-4 container.
	FormatMP4 Format = "mp4"
	// FormatMOV is a QuickTime container.
	FormatMOV Format = "mov"
	// FormatWebM is a WebM container.
	FormatWebM Format = "webm"
	// FormatAVI is an AVI container.
	FormatAVI Format = "avi"
	// FormatMKV is a Matroska container.
	FormatMKV Format = "mkv"
	// FormatGIF is an animated GIF.
	FormatGIF Format = "gif"
)

// Formats lists every supported output format in display order.
var Formats = []Format{FormatMP4, FormatMOV, FormatWebM, FormatAVI, FormatMKV, FormatGIF}

// Video codecs used by the format table.
const (
	CodecH264 = "libx264"
	CodecVP9  = "libvpx-vp9"
	CodecGIF  = "gif"
)

// codecs maps each output format to its video encoder.
var codecs = map[Format]string{
	FormatMP4:  CodecH264,
	FormatMOV:  CodecH264,
	FormatWebM: CodecVP9,
	FormatAVI:  CodecH264,
	FormatMKV:  CodecH264,
	FormatGIF:  CodecGIF,
}

// Codec returns the video encoder for f, or "" if f is unsupported.
func (f Format) Codec() string {
	return codecs[f]
}

// Ext returns the output file extension for f (without a dot).
func (f Format) Ext() string {
	return string(f)
}

// Valid reports whether f is a supported output format.
func (f Format) Valid() bool {
	_, ok := codecs[f]
	return ok
}

// MuxFormats are the containers that accept a copied H.264 stream plus AAC audio.
var MuxFormats = []Format{FormatMP4, FormatMOV, FormatMKV}

// CanMux reports whether f can hold a video stream muxed with a separate audio track.
func (f Format) CanMux() bool {
	for _, m := range MuxFormats {
		if m == f {
			return true
		}
	}
	return false
}

// Quality is an encoding quality tier.
type Quality string

const (
	QualityHigh     Quality = "high"
	QualityMedium   Quality = "medium"
	QualityLow      Quality = "low"
	QualityUltraLow Quality = "ultralow"
)

// Qualities lists every quality tier from best to smallest.
var Qualities = []Quality{QualityHigh, QualityMedium, QualityLow, QualityUltraLow}

// Tier is the base encoder setting for a quality level.
type Tier struct {
	CRF              int
	Preset           string
	AudioBitrateKbps int
}

var tiers = map[Quality]Tier{
	QualityHigh:     {CRF: 20, Preset: "slow", AudioBitrateKbps: 192},
	QualityMedium:   {CRF: 23, Preset: "medium", AudioBitrateKbps: 128},
	QualityLow:      {CRF: 26, Preset: "fast", AudioBitrateKbps: 96},
	QualityUltraLow: {CRF: 30, Preset: "veryfast", AudioBitrateKbps: 64},
}

// Tier returns a copy of the base settings for q.
func (q Quality) Tier() (Tier, bool) {
	t, ok := tiers[q]
	return t, ok
}

// Valid reports whether q is a known tier.
func (q Quality) Valid() bool {
	_, ok := tiers[q]
	return ok
}

// Resolution is a target output height, or ResolutionOriginal.
type Resolution string

const (
	ResolutionOriginal Resolution = "original"
	Resolution2160     Resolution = "2160"
	Resolution1440     Resolution = "1440"
	Resolution1080     Resolution = "1080"
	Resolution720      Resolution = "720"
	Resolution480      Resolution = "480"
	Resolution360      Resolution = "360"
)

// Resolutions lists every accepted resolution.
var Resolutions = []Resolution{
	ResolutionOriginal, Resolution2160, Resolution1440, Resolution1080,
	Resolution720, Resolution480, Resolution360,
}

// frameBoxes maps a height to the 16:9 box the output is fitted into.
var frameBoxes = map[Resolution]string{
	Resolution2160: "3840:2160",
	Resolution1440: "2560:1440",
	Resolution1080: "1920:1080",
	Resolution720:  "1280:720",
	Resolution480:  "854:480",
	Resolution360:  "640:360",
}

// Box returns the "W:H" scale box for r, or "" for the original size.
func (r Resolution) Box() string {
	return frameBoxes[r]
}

// Valid reports whether r is an accepted resolution.
func (r Resolution) Valid() bool {
	if r == ResolutionOriginal {
		return true
	}
	_, ok := frameBoxes[r]
	return ok
}

// FrameRate is a forced output frame rate, or FrameRateOriginal.
type FrameRate string

const (
	FrameRateOriginal FrameRate = "original"
	FrameRate24       FrameRate = "24"
	FrameRate30       FrameRate = "30"
	FrameRate60       FrameRate = "60"
)

// FrameRates lists every accepted frame rate.
var FrameRates = []FrameRate{FrameRateOriginal, FrameRate24, FrameRate30, FrameRate60}

// Value returns the numeric rate, or 0 for the original rate.
func (f FrameRate) Value() int {
	if f == FrameRateOriginal {
		return 0
	}
	n, err := strconv.Atoi(string(f))
	if err != nil {
		return 0
	}
	return n
}

// Valid reports whether f is an accepted frame rate.
func (f FrameRate) Valid() bool {
	for _, fr := range FrameRates {
		if fr == f {
			return true
		}
	}
	return false
}

// VideoExtensions are the input container extensions accepted for conversion.
var VideoExtensions = map[string]bool{
	"mp4":  true,
	"mov":  true,
	"webm": true,
	"avi":  true,
	"mkv":  true,
	"gif":  true,
}

// AudioExtensions are the input extensions accepted as a muxed audio track.
var AudioExtensions = map[string]bool{
	"mp3":  true,
	"aac":  true,
	"m4a":  true,
	"wav":  true,
	"ogg":  true,
	"opus": true,
	"flac": true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
	"webm": "video/webm",
	"avi":  "video/x-msvideo",
	"mkv":  "video/x-matroska",
	"gif":  "image/gif",
	"mp3":  "audio/mpeg",
	"aac":  "audio/aac",
	"m4a":  "audio/mp4",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"opus": "audio/opus",
	"flac": "audio/flac",
}

// GetMimeType returns the MIME type for an extension, with or without a leading dot.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[NormalizeExt(ext)]; ok {
		return mime
	}
	return "application/octet-stream"
}

// NormalizeExt lowercases ext and strips a leading dot.
func NormalizeExt(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}

// IsVideoExt reports whether ext is an accepted input video extension.
func IsVideoExt(ext string) bool {
	return VideoExtensions[NormalizeExt(ext)]
}

// IsAudioExt reports whether ext is an accepted audio track extension.
func IsAudioExt(ext string) bool {
	return AudioExtensions[NormalizeExt(ext)]
}

// ParseFormat parses a case-insensitive format name.
func ParseFormat(s string) (Format, error) {
	f := Format(NormalizeExt(s))
	if !f.Valid() {
		return "", fmt.Errorf("unsupported format %q", s)
	}
	return f, nil
}

// ParseQuality parses a quality tier; empty means medium.
func ParseQuality(s string) (Quality, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return QualityMedium, nil
	}
	q := Quality(s)
	if !q.Valid() {
		return "", fmt.Errorf("unsupported quality %q", s)
	}
	return q, nil
}

// ParseResolution parses "1080", "1080p" or "original"; empty means original.
func ParseResolution(s string) (Resolution, error) {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "p")
	if s == "" {
		return ResolutionOriginal, nil
	}
	r := Resolution(s)
	if !r.Valid() {
		return "", fmt.Errorf("unsupported resolution %q", s)
	}
	return r, nil
}

// ParseFrameRate parses "30", "30fps" or "original"; empty means original.
func ParseFrameRate(s string) (FrameRate, error) {
	s = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "fps")
	if s == "" {
		return FrameRateOriginal, nil
	}
	f := FrameRate(s)
	if !f.Valid() {
		return "", fmt.Errorf("unsupported frame rate %q", s)
	}
	return f, nil
}

// SortedKeys returns the keys of an extension set in sorted order, for messages.
func SortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
