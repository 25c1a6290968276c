package guard

import (
	"fmt"
	"slices"
	"time"

	"climate_guard/internal/models"
)

// Block reasons surfaced in the status snapshot. These are the only channel
// through which gate failures are communicated to users.
const (
	ReasonDisabled     = "Guard Disabled"
	reasonSunPrefix    = "Sun is "
	reasonWeatherNA    = "Weather unavailable"
	reasonWeatherIs    = "Weather is "
	reasonCooldownTmpl = "Cooldown (%s)"
)

const sunAboveHorizon = "above_horizon"

// StateReader returns the current state of a named external entity.
// The second return value is false when the entity is unavailable.
type StateReader interface {
	State(entityID string) (models.EntityState, bool)
}

// gateInput is the slice of runtime state the gate evaluator reads.
type gateInput struct {
	lastRun        time.Time // zero = never ran
	cooldownBypass bool
}

// checkGates evaluates the sun, weather, and cooldown gates in fixed order.
// The first failing gate wins; an unconfigured gate always passes. Returns
// (true, "") when the target is allowed to run.
//
// The cooldown bypass ticket is only inspected here, never consumed;
// consumption happens when a run actually starts.
func checkGates(cfg *Config, limits Limits, reader StateReader, now time.Time, in gateInput) (bool, string) {
	if cfg.SunEntity != "" {
		// A missing sun entity passes: the sun gate only blocks on a known
		// not-above-horizon state.
		if st, ok := reader.State(cfg.SunEntity); ok && st.State != sunAboveHorizon {
			return false, reasonSunPrefix + st.State
		}
	}

	if cfg.WeatherEntity != "" && len(cfg.AllowedWeather) > 0 {
		st, ok := reader.State(cfg.WeatherEntity)
		if !ok {
			return false, reasonWeatherNA
		}
		if !slices.Contains(cfg.AllowedWeather, st.State) {
			return false, reasonWeatherIs + st.State
		}
	}

	if cooldownActive(limits.Cooldown, in.lastRun, now) && !in.cooldownBypass {
		remaining := in.lastRun.Add(limits.Cooldown).Sub(now).Truncate(time.Second)
		return false, fmt.Sprintf(reasonCooldownTmpl, remaining)
	}

	return true, ""
}

// cooldownActive reports whether the quiet period after the last run is
// still in effect. A zero cooldown or a guard that never ran disables it.
func cooldownActive(cooldown time.Duration, lastRun, now time.Time) bool {
	if cooldown == 0 || lastRun.IsZero() {
		return false
	}
	return now.Sub(lastRun) < cooldown
}
