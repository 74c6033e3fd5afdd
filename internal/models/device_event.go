package models

import "time"

// Device event types.
const (
	EventConnectivity = "CONNECTIVITY"
	EventCredentials  = "CREDENTIALS"
	EventActuation    = "ACTUATION"
	EventAdvisory     = "ADVISORY"
	EventError        = "ERROR"
)

// DeviceEvent is a single log entry.
type DeviceEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // CONNECTIVITY | CREDENTIALS | ACTUATION | ADVISORY | ERROR
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
