// Package instrumentation provides OpenTelemetry metrics and tracing for
// the pipeline.
//
// The provider wires a meter provider and a tracer provider from
// environment-driven configuration and exposes a typed metrics recorder
// for the pipeline's instruments: extraction attempts per provider,
// heuristic fallbacks, calendar sync outcomes and run durations.
package instrumentation
