// Package handlers provides the HTTP handlers of the converter API.
//
// It includes handlers for:
//   - Format conversion and audio replacement, streamed or stored
//   - Supported format listing
//   - Tracked job lookup
//   - Health, readiness, liveness and version
package handlers
