// Package events contains the event contract for WebSocket communication:
// one envelope, a small set of message types, and the job payloads the hub
// broadcasts.
package events

import (
	"time"

	"dealpulse/pkg/contracts/domain"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Job lifecycle messages, the primary event types
	MessageTypeJobQueued   MessageType = "job:queued"
	MessageTypeJobProgress MessageType = "job:progress"
	MessageTypeJobComplete MessageType = "job:complete"
	MessageTypeJobError    MessageType = "job:error"

	// System messages
	MessageTypeSystemStatus MessageType = "system:status"

	// Connection messages
	MessageTypeConnect    MessageType = "connect"
	MessageTypeDisconnect MessageType = "disconnect"
	MessageTypeError      MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// NewJobMessage wraps a job snapshot in the envelope for broadcast.
func NewJobMessage(msgType MessageType, job *domain.Job) WebSocketMessage {
	return WebSocketMessage{
		BaseMessage: BaseMessage{
			Type:      msgType,
			Timestamp: time.Now().UTC(),
		},
		Data: job,
	}
}

// JobMessageType maps a terminal job status to its message type; running
// jobs report progress.
func JobMessageType(status domain.JobStatus) MessageType {
	switch status {
	case domain.JobStatusPending:
		return MessageTypeJobQueued
	case domain.JobStatusCompleted:
		return MessageTypeJobComplete
	case domain.JobStatusFailed, domain.JobStatusCancelled:
		return MessageTypeJobError
	default:
		return MessageTypeJobProgress
	}
}

// ErrorMessage represents an error message
type ErrorMessage struct {
	BaseMessage
	Data struct {
		Code    string      `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
		Fatal   bool        `json:"fatal"`
	} `json:"data"`
}

// SystemStatusEvent represents a system status event
type SystemStatusEvent struct {
	BaseMessage
	Data struct {
		Status     string            `json:"status"` // healthy|degraded|unhealthy
		Components map[string]string `json:"components"`
		Uptime     string            `json:"uptime"`
		Version    string            `json:"version"`
	} `json:"data"`
}
