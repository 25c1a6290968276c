package models

import "time"

// EntityState is the last reported state of an external entity
// (sun position, weather condition, thermostat).
type EntityState struct {
	EntityID   string         `json:"entity_id"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Attr returns a named attribute and whether it was present.
func (s EntityState) Attr(name string) (any, bool) {
	if s.Attributes == nil {
		return nil, false
	}
	v, ok := s.Attributes[name]
	return v, ok
}
