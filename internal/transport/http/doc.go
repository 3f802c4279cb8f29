// Package http contains the HTTP handlers for the DealPulse API. Handlers
// decode and validate requests, call into the service layer, and render
// JSON responses; failures are rendered as RFC 7807 problem details by the
// shared error handler.
package http
