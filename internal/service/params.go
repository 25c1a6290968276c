package service

import "time"

// OverrideParams carries runtime-adjustable limit overrides. Nil fields are
// left unchanged. Overrides take effect on the next evaluation; they are not
// applied retroactively to an in-flight run.
type OverrideParams struct {
	RunLimitMinutes  *int
	CooldownMinutes  *int
	HeartbeatSeconds *int
}

// LogFilter supports event history filtering by device, time range, and type.
type LogFilter struct {
	DeviceID string    // "" means all devices
	From     time.Time // inclusive; zero means no lower bound
	To       time.Time // inclusive; zero means no upper bound
	Type     string    // "", "ARMED", "DISARMED", "START", "STOP", "BLOCKED"
}
