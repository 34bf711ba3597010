// Package otel bridges authgate counters into OpenTelemetry observable
// instruments via a pull-based collection callback.
package otel
