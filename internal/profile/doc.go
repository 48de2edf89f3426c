// Package profile turns the declarative options of a conversion (format,
// quality tier, resolution, frame rate and declared input size) into the
// concrete encoder settings passed to ffmpeg.
//
// Resolution starts from the quality tier's base values and then applies two
// adjustments in order:
//
//  1. Inputs over 50 MiB get a rate factor 2 higher and 70% of the audio
//     bitrate, which bounds encode time and output size.
//  2. The target resolution nudges the rate factor: 2160p adds 2 and raises
//     audio to 192k, 1440p adds 1, 1080p and 720p cap it at 23 and 26, and
//     480p and 360p cap it at 30.
//
// [Resolve] is a pure function. It never touches the filesystem and never
// mutates the tier table, so concurrent conversions can share it freely.
package profile
