// Package metrics exports per-activity Prometheus metrics and serves them
// over HTTP.
package metrics
