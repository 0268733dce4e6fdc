// Package otel publishes goSession engine metrics through an OpenTelemetry Meter.
//
// One observable counter is registered per engine counter and one observable
// gauge per latency bucket. A single callback reads the engine snapshot on every
// collection. The caller owns the MeterProvider.
package otel
