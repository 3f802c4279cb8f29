// Package services contains the business logic between the HTTP transport
// and the underwriting engine, deal store, job queue, and rent-roll parser.
// Services accept decoded requests, return domain results, and surface
// failures as sentinel or API errors for the transport layer to map.
package services
