// Package api contains API contract definitions for DealPulse.
// Version v1 represents the current stable API version.
package api

import (
	"encoding/json"
)

// Common request parameters

// PaginationRequest represents common pagination parameters
type PaginationRequest struct {
	Page     int `json:"page" query:"page" validate:"omitempty,min=1"`
	PageSize int `json:"page_size" query:"page_size" validate:"omitempty,min=1,max=100"`
}

// Normalize fills defaults for unset pagination fields.
func (p *PaginationRequest) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 25
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

// Offset returns the row offset for the normalized page.
func (p PaginationRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Underwriting API Requests

// UnderwriteRequest runs one deal synchronously. Deal is the engine's
// assumption payload; Name optionally labels the run.
type UnderwriteRequest struct {
	Name string          `json:"name,omitempty" validate:"omitempty,dealname"`
	Deal json.RawMessage `json:"deal" validate:"required"`
}

// Deal API Requests

// DealSaveRequest persists a deal. The payload is the engine's deal input,
// kept raw here and validated by the underwriting service before storage.
type DealSaveRequest struct {
	Name string          `json:"name" validate:"required,dealname"`
	Deal json.RawMessage `json:"deal" validate:"required"`
}

// DealListRequest represents a request to list saved deals
type DealListRequest struct {
	PaginationRequest
}

// Job API Requests

// SensitivityJobRequest enqueues an asynchronous sensitivity sweep. Config
// is optional; the engine's default spreads apply when it is absent.
type SensitivityJobRequest struct {
	Deal   json.RawMessage `json:"deal" validate:"required"`
	Config json.RawMessage `json:"config,omitempty"`
}

// JobListRequest represents a request to list jobs
type JobListRequest struct {
	PaginationRequest
	Status string `json:"status" query:"status" validate:"omitempty,oneof=pending running completed failed cancelled"`
}

// Health API Requests

// HealthCheckRequest represents a health check request
type HealthCheckRequest struct {
	Verbose bool `json:"verbose" query:"verbose"`
}
