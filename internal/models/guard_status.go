package models

import "time"

// GuardStatus is the status snapshot a controller publishes after every
// evaluation of its decision procedure.
type GuardStatus struct {
	DeviceID       string     `json:"device_id"`
	DeviceType     string     `json:"device_type"` // heater | cooler
	Armed          bool       `json:"armed"`
	TargetActive   bool       `json:"target_active"`
	Status         string     `json:"status"`                 // e.g. "Active (Running)" or "Idle (Cooldown (12m4s))"
	BlockReason    string     `json:"block_reason,omitempty"` // empty while running
	CooldownActive bool       `json:"cooldown_active"`
	LastRun        *time.Time `json:"last_run,omitempty"`
	RunStartedAt   *time.Time `json:"run_started_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// GuardState is the persisted slice of controller state restored on startup.
type GuardState struct {
	DeviceID  string     `json:"device_id"`
	Armed     bool       `json:"armed"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}
