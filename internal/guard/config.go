package guard

import (
	"errors"
	"fmt"
	"time"
)

// Device types. They affect display only, never the decision procedure.
const (
	DeviceTypeHeater = "heater"
	DeviceTypeCooler = "cooler"
)

// Defaults applied when a device config omits a limit.
const (
	DefaultRunLimit  = 10 * time.Minute
	DefaultCooldown  = 40 * time.Minute
	DefaultHeartbeat = 10 * time.Second
)

var errNoTargetEntity = errors.New("target_entity is required")

// Limits are the runtime-adjustable numeric knobs of a controller.
// Zero disables the corresponding behavior.
type Limits struct {
	RunLimit  time.Duration // max continuous run; 0 = unlimited
	Cooldown  time.Duration // quiet period between runs; 0 = disabled
	Heartbeat time.Duration // on-command re-assertion interval; 0 = disabled
}

// Config is the immutable per-device guard configuration.
// Limits are the initial values; they can be overridden at runtime
// through the controller without reconstructing it.
type Config struct {
	DeviceID       string
	Name           string
	DeviceType     string // heater | cooler
	TargetEntity   string // relay/appliance to command; required
	SunEntity      string // optional sun gate
	WeatherEntity  string // optional weather gate
	AllowedWeather []string
	ClimateEntity  string // optional thermostat used for cooldown bypass
	Limits         Limits
}

// Validate checks the config and fills defaults. A guard without a target
// must fail construction rather than run with an undefined target.
func (c *Config) Validate() error {
	if c.TargetEntity == "" {
		return fmt.Errorf("device %q: %w", c.DeviceID, errNoTargetEntity)
	}
	if c.DeviceID == "" {
		return errors.New("device id is required")
	}
	switch c.DeviceType {
	case DeviceTypeHeater, DeviceTypeCooler:
	case "":
		c.DeviceType = DeviceTypeHeater
	default:
		return fmt.Errorf("device %q: unknown device_type %q", c.DeviceID, c.DeviceType)
	}
	if c.Limits.RunLimit < 0 || c.Limits.Cooldown < 0 || c.Limits.Heartbeat < 0 {
		return fmt.Errorf("device %q: limits must not be negative", c.DeviceID)
	}
	if c.Name == "" {
		c.Name = c.DeviceID
	}
	return nil
}

// DependencyEntities returns the configured gate/bypass entities to watch.
func (c *Config) DependencyEntities() []string {
	var ids []string
	for _, id := range []string{c.SunEntity, c.WeatherEntity, c.ClimateEntity} {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
