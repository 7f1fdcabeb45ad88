// Package events defines the messages pushed to websocket clients.
package events

import (
	"time"

	"hilirisasi/pkg/contracts/domain"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// MessageTypeDatasetRefreshed is sent after a changed source reloads.
	MessageTypeDatasetRefreshed MessageType = "dataset:refreshed"
	// MessageTypeDatasetError is sent when a changed source fails to load.
	// Clients keep showing the previous data.
	MessageTypeDatasetError MessageType = "dataset:error"

	MessageTypeSystemStatus MessageType = "system:status"
	MessageTypeConnect      MessageType = "connect"
	MessageTypeError        MessageType = "error"
)

// WebSocketMessage is the envelope of every message sent to clients.
type WebSocketMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// DatasetRefreshed describes the table now being served for a dataset.
type DatasetRefreshed struct {
	Dataset     string                 `json:"dataset"`
	Rows        int                    `json:"rows"`
	Fingerprint string                 `json:"fingerprint"`
	LoadedAt    time.Time              `json:"loaded_at"`
	Diagnostics domain.LoadDiagnostics `json:"diagnostics"`
}

// DatasetError reports a failed reload.
type DatasetError struct {
	Dataset string `json:"dataset"`
	Path    string `json:"path"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
	// Stale is true when the previous table is still being served.
	Stale bool `json:"stale"`
}

// ConnectMessage greets a new client.
type ConnectMessage struct {
	ClientID string   `json:"client_id"`
	Version  string   `json:"version"`
	Datasets []string `json:"datasets"`
}

// ErrorMessage represents an error message
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
