package guard

import (
	"testing"
	"time"

	"climate_guard/internal/models"
)

// mapReader is a StateReader backed by a plain map.
type mapReader map[string]models.EntityState

func (m mapReader) State(id string) (models.EntityState, bool) {
	st, ok := m[id]
	return st, ok
}

func gateConfig() Config {
	return Config{
		DeviceID:       "dev1",
		DeviceType:     DeviceTypeHeater,
		TargetEntity:   "switch.dev1",
		SunEntity:      "sun.sun",
		WeatherEntity:  "weather.home",
		AllowedWeather: []string{"sunny", "cloudy"},
	}
}

func TestCheckGates_AllPass(t *testing.T) {
	cfg := gateConfig()
	reader := mapReader{
		"sun.sun":      {EntityID: "sun.sun", State: "above_horizon"},
		"weather.home": {EntityID: "weather.home", State: "sunny"},
	}

	ok, reason := checkGates(&cfg, Limits{Cooldown: 40 * time.Minute}, reader, time.Now(), gateInput{})
	if !ok {
		t.Fatalf("expected gates to pass, got blocked: %q", reason)
	}
	if reason != "" {
		t.Errorf("expected empty reason, got %q", reason)
	}
}

func TestCheckGates_SunBlocks(t *testing.T) {
	cfg := gateConfig()
	reader := mapReader{
		"sun.sun":      {EntityID: "sun.sun", State: "below_horizon"},
		"weather.home": {EntityID: "weather.home", State: "sunny"},
	}

	ok, reason := checkGates(&cfg, Limits{}, reader, time.Now(), gateInput{})
	if ok {
		t.Fatal("expected sun gate to block")
	}
	if reason != "Sun is below_horizon" {
		t.Errorf("unexpected reason: %q", reason)
	}
}

func TestCheckGates_SunUnavailablePasses(t *testing.T) {
	cfg := gateConfig()
	// Sun entity never reported; the sun gate must pass.
	reader := mapReader{
		"weather.home": {EntityID: "weather.home", State: "sunny"},
	}

	ok, reason := checkGates(&cfg, Limits{}, reader, time.Now(), gateInput{})
	if !ok {
		t.Fatalf("expected gates to pass with missing sun entity, got %q", reason)
	}
}

func TestCheckGates_WeatherUnavailableBlocks(t *testing.T) {
	cfg := gateConfig()
	reader := mapReader{
		"sun.sun": {EntityID: "sun.sun", State: "above_horizon"},
	}

	ok, reason := checkGates(&cfg, Limits{}, reader, time.Now(), gateInput{})
	if ok {
		t.Fatal("expected weather gate to block on unavailable entity")
	}
	if reason != "Weather unavailable" {
		t.Errorf("unexpected reason: %q", reason)
	}
}

func TestCheckGates_WeatherNotAllowedBlocks(t *testing.T) {
	cfg := gateConfig()
	reader := mapReader{
		"sun.sun":      {EntityID: "sun.sun", State: "above_horizon"},
		"weather.home": {EntityID: "weather.home", State: "rainy"},
	}

	ok, reason := checkGates(&cfg, Limits{}, reader, time.Now(), gateInput{})
	if ok {
		t.Fatal("expected weather gate to block")
	}
	if reason != "Weather is rainy" {
		t.Errorf("unexpected reason: %q", reason)
	}
}

func TestCheckGates_SunWinsOverWeather(t *testing.T) {
	cfg := gateConfig()
	reader := mapReader{
		"sun.sun":      {EntityID: "sun.sun", State: "below_horizon"},
		"weather.home": {EntityID: "weather.home", State: "rainy"},
	}

	_, reason := checkGates(&cfg, Limits{}, reader, time.Now(), gateInput{})
	if reason != "Sun is below_horizon" {
		t.Errorf("sun gate must be checked first, got %q", reason)
	}
}

func TestCheckGates_CooldownBlocksWithRemaining(t *testing.T) {
	cfg := gateConfig()
	reader := mapReader{
		"sun.sun":      {EntityID: "sun.sun", State: "above_horizon"},
		"weather.home": {EntityID: "weather.home", State: "sunny"},
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lastRun := now.Add(-25 * time.Minute)

	ok, reason := checkGates(&cfg, Limits{Cooldown: 40 * time.Minute}, reader, now, gateInput{lastRun: lastRun})
	if ok {
		t.Fatal("expected cooldown gate to block")
	}
	if reason != "Cooldown (15m0s)" {
		t.Errorf("unexpected reason: %q", reason)
	}
}

func TestCheckGates_CooldownExpiredPasses(t *testing.T) {
	cfg := gateConfig()
	reader := mapReader{
		"sun.sun":      {EntityID: "sun.sun", State: "above_horizon"},
		"weather.home": {EntityID: "weather.home", State: "sunny"},
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	ok, reason := checkGates(&cfg, Limits{Cooldown: 40 * time.Minute}, reader, now, gateInput{
		lastRun: now.Add(-40 * time.Minute),
	})
	if !ok {
		t.Fatalf("cooldown elapsed exactly, expected pass, got %q", reason)
	}
}

func TestCheckGates_BypassSkipsCooldown(t *testing.T) {
	cfg := gateConfig()
	reader := mapReader{
		"sun.sun":      {EntityID: "sun.sun", State: "above_horizon"},
		"weather.home": {EntityID: "weather.home", State: "sunny"},
	}
	now := time.Now()

	ok, reason := checkGates(&cfg, Limits{Cooldown: 40 * time.Minute}, reader, now, gateInput{
		lastRun:        now.Add(-time.Minute),
		cooldownBypass: true,
	})
	if !ok {
		t.Fatalf("bypass set, expected pass, got %q", reason)
	}
}

func TestCheckGates_UnconfiguredGatesPass(t *testing.T) {
	cfg := Config{DeviceID: "dev1", TargetEntity: "switch.dev1"}

	ok, reason := checkGates(&cfg, Limits{}, mapReader{}, time.Now(), gateInput{})
	if !ok {
		t.Fatalf("no gates configured, expected pass, got %q", reason)
	}
}

func TestCooldownActive(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		cooldown time.Duration
		lastRun  time.Time
		want     bool
	}{
		{"disabled", 0, now.Add(-time.Minute), false},
		{"never ran", 40 * time.Minute, time.Time{}, false},
		{"within window", 40 * time.Minute, now.Add(-39 * time.Minute), true},
		{"exactly elapsed", 40 * time.Minute, now.Add(-40 * time.Minute), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cooldownActive(tt.cooldown, tt.lastRun, now); got != tt.want {
				t.Errorf("cooldownActive() = %v, want %v", got, tt.want)
			}
		})
	}
}
