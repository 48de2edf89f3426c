package transcoder

import (
	"strconv"

	"media-converter/internal/mediatypes"
	"media-converter/internal/profile"
)

// Invocation describes one ffmpeg run. When Audio is set the run muxes the
// video stream of Input with the audio of Audio instead of re-encoding.
type Invocation struct {
	JobID   string
	Input   string
	Audio   string
	Output  string
	Format  mediatypes.Format
	Profile profile.Profile
}

// IsMux reports whether the invocation combines a video and an audio input.
func (inv Invocation) IsMux() bool {
	return inv.Audio != ""
}

// BuildArgs returns the ffmpeg argument vector for inv. Each flag and each
// value is its own element; nothing is ever passed through a shell.
func BuildArgs(inv Invocation) []string {
	if inv.IsMux() {
		return muxArgs(inv)
	}
	return convertArgs(inv)
}

func convertArgs(inv Invocation) []string {
	p := inv.Profile
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-i", inv.Input,
		"-c:v", p.Codec,
	}

	if p.Codec == mediatypes.CodecH264 && p.Preset != "" {
		args = append(args, "-preset", p.Preset)
	}
	if p.Codec == mediatypes.CodecH264 || p.Codec == mediatypes.CodecVP9 {
		args = append(args, "-crf", strconv.Itoa(p.CRF))
	}

	// VP9 only honors -crf as a constant quality target when the bitrate is 0.
	if p.Codec == mediatypes.CodecVP9 {
		args = append(args, "-b:v", "0")
	}

	if inv.Format == mediatypes.FormatMP4 || inv.Format == mediatypes.FormatMOV {
		args = append(args, "-movflags", "+faststart")
	}

	if inv.Format == mediatypes.FormatGIF {
		args = append(args, "-an")
	} else if p.AudioBitrateKbps > 0 {
		args = append(args, "-b:a", strconv.Itoa(p.AudioBitrateKbps)+"k")
	}

	if p.FrameRate > 0 {
		args = append(args, "-r", strconv.Itoa(p.FrameRate))
	}

	if p.Scale != "" {
		args = append(args, "-vf", scaleFilter(p.Scale, inv.Format))
	}

	return append(args, "-y", inv.Output)
}

// scaleFilter fits the output inside box while keeping the aspect ratio.
// H.264 and VP9 need even dimensions; gif does not.
func scaleFilter(box string, format mediatypes.Format) string {
	filter := "scale=" + box + ":force_original_aspect_ratio=decrease"
	if format != mediatypes.FormatGIF {
		filter += ":force_divisible_by=2"
	}
	return filter
}

func muxArgs(inv Invocation) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-i", inv.Input,
		"-i", inv.Audio,
		"-c:v", "copy",
		"-c:a", "aac",
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-shortest",
		"-movflags", "+faststart",
		"-y", inv.Output,
	}
}
