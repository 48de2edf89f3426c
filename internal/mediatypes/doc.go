// Package mediatypes provides the enumerations that describe a conversion:
// output formats and their codecs, quality tiers, target resolutions, frame
// rates and the accepted input extensions.
//
// This package exists as a dependency-free foundation that can be imported by
// the profile resolver, the orchestrator and the HTTP handlers without creating
// import cycles. It contains primitive types, constants and pure functions.
//
// # Formats
//
// Each [Format] carries a fixed video codec:
//
//	mediatypes.FormatMP4.Codec()  // "libx264"
//	mediatypes.FormatWebM.Codec() // "libvpx-vp9"
//	mediatypes.FormatGIF.Codec()  // "gif"
//
// # Quality Tiers
//
// [Quality.Tier] returns a copy of the base rate factor, encoder preset and
// audio bitrate for the tier. The table itself is never exposed for mutation.
//
// # Parsing
//
// The Parse functions accept user input case-insensitively and fill in the
// defaults of an unset option (medium quality, original resolution and rate):
//
//	q, err := mediatypes.ParseQuality("")      // QualityMedium
//	r, err := mediatypes.ParseResolution("720p") // Resolution720
//
// # MIME Types
//
// Use GetMimeType to get the Content-Type of a converted artifact:
//
//	mimeType := mediatypes.GetMimeType("webm") // "video/webm"
package mediatypes
