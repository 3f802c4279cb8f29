// Package app wires the DealPulse server together: configuration,
// logging, OpenTelemetry, the underwriting engine, the optional deal
// store, the job queue, the websocket hub, and the chi router. The
// Application owns startup and graceful shutdown; main defers to Run.
package app
