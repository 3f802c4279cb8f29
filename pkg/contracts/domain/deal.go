// Package domain contains the shared domain types for DealPulse: persisted
// deals, background jobs, and rent-roll intake.
package domain

import (
	"encoding/json"
	"time"
)

// DealRecord is a persisted deal: the full assumption payload stored as
// JSONB, keyed by UUID.
type DealRecord struct {
	ID        string          `json:"id" db:"id" validate:"required,uuid"`
	Name      string          `json:"name" db:"name" validate:"required,min=1,max=120"`
	Payload   json.RawMessage `json:"payload" db:"payload" validate:"required"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// DealSummary is the listing row: no payload, just identity and freshness.
type DealSummary struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	HasResult bool      `json:"has_result" db:"has_result"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DealResultRecord attaches an underwriting result to its deal.
type DealResultRecord struct {
	DealID    string          `json:"deal_id" db:"deal_id" validate:"required,uuid"`
	Result    json.RawMessage `json:"result" db:"result" validate:"required"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// DealList is a paginated listing.
type DealList struct {
	Deals    []DealSummary `json:"deals"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}
