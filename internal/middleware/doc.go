// Package middleware provides the HTTP middleware of the converter service:
// W3C Extended Log Format access logging and Prometheus request metrics.
package middleware
