// Command convert runs a single conversion from the command line and writes
// the result to a local directory.
//
// Usage:
//
//	convert [flags] <url>
//
// The input is downloaded, converted with ffmpeg and saved as
// <out>/<job id>.<format>. The declared size used for the large-input
// adjustment and the size reduction figure is taken from -size, or probed
// with a HEAD request. With -audio the video is muxed with the given audio
// track instead of being re-encoded.
//
// Examples:
//
//	convert -format webm -quality low https://example.com/clip.mov
//	convert -format mkv -audio https://example.com/voice.mp3 https://example.com/clip.mp4
//
// Progress goes to stderr, the summary to stdout. The exit code is 1 when the
// conversion fails and 2 on bad usage.
package main
