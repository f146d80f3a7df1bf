// Package events contains the WebSocket message contracts pushed to
// connected ESGBoard dashboard clients.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Dataset lifecycle messages - the primary event types. A loaded event
	// means the requested source parsed cleanly; a fallback event means the
	// load failed and sample data was substituted.
	MessageTypeDatasetLoaded   MessageType = "dataset:loaded"
	MessageTypeDatasetFallback MessageType = "dataset:fallback"

	// System messages
	MessageTypeSystemStatus MessageType = "system:status"

	// Connection acknowledgement sent to a client on registration
	MessageTypeConnect MessageType = "connect"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`       // Unique message ID
	Type      MessageType `json:"type"`               // Message type
	Timestamp time.Time   `json:"timestamp"`          // Message timestamp
	TraceID   string      `json:"trace_id,omitempty"` // Request trace ID
}

// WebSocketMessage represents a complete WebSocket message
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"` // Message payload
}

// DatasetSnapshot is the payload of dataset lifecycle events. It carries
// enough provenance for a dashboard to refresh its caption and decide whether
// a full re-fetch is needed.
type DatasetSnapshot struct {
	Source      string    `json:"source"`
	Period      string    `json:"period"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Rows        int       `json:"rows"`
	LoadedAt    time.Time `json:"loaded_at"`
	Warnings    []string  `json:"warnings,omitempty"`
}

// SystemStatus is the payload of system:status events
type SystemStatus struct {
	Status  string `json:"status"` // healthy|degraded|unhealthy
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}
