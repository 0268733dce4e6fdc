// Package prometheus renders goSession engine metrics in the Prometheus text
// exposition format.
//
// [Exporter.Handler] is meant to be mounted on /metrics. Counters are named
// gosession_*_total and the validate-latency histogram is
// gosession_validate_latency_seconds. Nothing is registered globally.
package prometheus
