// Package tracing is a thin wrapper around OpenTelemetry used for the landing,
// admission and reporting spans.
package tracing
