package models

import "time"

// GuardEvent is a single entry in the append-only guard event log.
type GuardEvent struct {
	EventID     string    `json:"event_id"`
	DeviceID    string    `json:"device_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // ARMED | DISARMED | START | STOP | BLOCKED
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
