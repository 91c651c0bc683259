// Package observability provides structured logging and metrics for the
// policy gateway.
//
// This package implements:
//   - zap logger construction from configuration
//   - Prometheus counters and histograms for policy decisions
//   - HTTP request instrumentation and the /metrics handler
package observability
