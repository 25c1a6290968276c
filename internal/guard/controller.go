package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"climate_guard/internal/logger"
	"climate_guard/internal/models"
)

// Thermostat attribute carrying the target setpoint. A change of this
// attribute on the configured climate entity grants the cooldown bypass.
const attrSetpoint = "temperature"

// CommandBus dispatches on/off commands to a target device.
// TurnOn is awaited; TurnOff is fire-and-forget and never reports failure.
type CommandBus interface {
	TurnOn(ctx context.Context, target string) error
	TurnOff(target string)
}

// Controller owns the armed/disarmed flag and the full run lifecycle of one
// guarded target: gate evaluation, start/stop, cooldown bookkeeping, the
// cooldown bypass ticket, and the heartbeat timer that re-asserts the
// on-command and enforces the run limit.
//
// Every trigger (arm/disarm, dependency change, heartbeat tick) runs the
// decision procedure to completion, snapshot publication included, before
// the next trigger may begin, so no two evaluations ever interleave for the
// same instance and snapshots are always delivered in decision order.
type Controller struct {
	cfg    Config
	clock  Clock
	bus    CommandBus
	reader StateReader
	log    *logger.Logger

	// onUpdate receives a status snapshot after every trigger. It is called
	// outside the state mutex but under the trigger lock; it may read the
	// controller (Status, Limits) but must not re-enter a trigger operation.
	onUpdate func(models.GuardStatus)

	// triggerMu serializes whole triggers, evaluation through publication.
	// Always acquired before mu, never while holding it.
	triggerMu sync.Mutex

	mu              sync.Mutex
	limits          Limits // runtime-overridable copy of cfg.Limits
	armed           bool
	targetActive    bool
	runStartedAt    time.Time // zero = not running
	lastRun         time.Time // zero = never ran
	cooldownBypass  bool
	blockReason     string
	cancelHeartbeat CancelFunc // nil = heartbeat not scheduled
	closed          bool
}

// NewController validates cfg and builds a controller. The target stays off
// until Arm (or Restore with a persisted armed state) is called.
func NewController(cfg Config, clock Clock, bus CommandBus, reader StateReader, log *logger.Logger, onUpdate func(models.GuardStatus)) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("guard config: %w", err)
	}
	return &Controller{
		cfg:      cfg,
		clock:    clock,
		bus:      bus,
		reader:   reader,
		log:      log,
		onUpdate: onUpdate,
		limits:   cfg.Limits,
	}, nil
}

// Config returns a copy of the immutable device configuration.
func (c *Controller) Config() Config { return c.cfg }

// Arm enables the guard and runs the decision procedure. Idempotent.
func (c *Controller) Arm() {
	c.triggerMu.Lock()
	defer c.triggerMu.Unlock()
	c.mu.Lock()
	c.armed = true
	c.evaluate(c.clock.Now())
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// Disarm disables the guard, forcing a stop if the target is running.
// Idempotent. The bypass ticket does not survive disarming.
func (c *Controller) Disarm() {
	c.triggerMu.Lock()
	defer c.triggerMu.Unlock()
	c.mu.Lock()
	c.armed = false
	c.cooldownBypass = false
	c.evaluate(c.clock.Now())
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// Restore seeds the controller with previously persisted state before the
// first evaluation, then evaluates.
func (c *Controller) Restore(armed bool, lastRun *time.Time) {
	c.triggerMu.Lock()
	defer c.triggerMu.Unlock()
	c.mu.Lock()
	c.armed = armed
	if lastRun != nil {
		c.lastRun = lastRun.UTC()
	}
	c.evaluate(c.clock.Now())
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// HandleEntityChange reacts to a watched dependency entity changing state.
// A setpoint change on the climate entity grants the one-shot cooldown
// bypass; every change re-runs the decision procedure regardless.
func (c *Controller) HandleEntityChange(entityID string, oldState, newState *models.EntityState) {
	c.triggerMu.Lock()
	defer c.triggerMu.Unlock()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if entityID == c.cfg.ClimateEntity && c.armed && setpointChanged(oldState, newState) {
		c.log.Infow("setpoint changed, bypassing cooldown", "device", c.cfg.DeviceID, "entity", entityID)
		c.cooldownBypass = true
	}
	c.evaluate(c.clock.Now())
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// SetRunLimit overrides the maximum continuous run duration. Takes effect on
// the next heartbeat tick, never retroactively.
func (c *Controller) SetRunLimit(d time.Duration) error { return c.setLimit(&c.limits.RunLimit, d) }

// SetCooldown overrides the quiet period between runs.
func (c *Controller) SetCooldown(d time.Duration) error { return c.setLimit(&c.limits.Cooldown, d) }

// SetHeartbeat overrides the re-assertion interval. An already scheduled
// heartbeat keeps its period until the timer is next stopped and restarted.
func (c *Controller) SetHeartbeat(d time.Duration) error { return c.setLimit(&c.limits.Heartbeat, d) }

func (c *Controller) setLimit(field *time.Duration, d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("device %q: limit must not be negative", c.cfg.DeviceID)
	}
	c.mu.Lock()
	*field = d
	c.mu.Unlock()
	return nil
}

// Limits returns the effective runtime limits.
func (c *Controller) Limits() Limits {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limits
}

// Status returns the current status snapshot.
func (c *Controller) Status() models.GuardStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close cancels the heartbeat timer and makes all later triggers no-ops.
// It does not command the target; teardown must not flap the hardware.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.stopHeartbeat()
	c.mu.Unlock()
}

// evaluate is the decision procedure. Callers hold c.mu.
func (c *Controller) evaluate(now time.Time) {
	if c.closed {
		return
	}
	if !c.armed {
		if c.targetActive {
			c.stopTarget(now)
		}
		c.blockReason = ReasonDisabled
		return
	}

	allowed, reason := checkGates(&c.cfg, c.limits, c.reader, now, gateInput{
		lastRun:        c.lastRun,
		cooldownBypass: c.cooldownBypass,
	})
	c.blockReason = reason

	if allowed {
		if !c.targetActive {
			c.startTarget(now)
		}
		if c.limits.Heartbeat > 0 {
			c.ensureHeartbeat()
		}
		return
	}

	if c.targetActive {
		c.log.Infow("conditions no longer met, stopping", "device", c.cfg.DeviceID, "reason", reason)
		c.stopTarget(now)
	}
}

// startTarget transitions the target to active: the bypass ticket is consumed
// unconditionally, then one on-command is pulsed. Callers hold c.mu.
func (c *Controller) startTarget(now time.Time) {
	c.log.Infow("starting target", "device", c.cfg.DeviceID, "target", c.cfg.TargetEntity)
	c.cooldownBypass = false
	c.targetActive = true
	c.runStartedAt = now
	c.pulseOn()
	if c.limits.Heartbeat > 0 {
		c.ensureHeartbeat()
	}
}

// stopTarget transitions the target to inactive. Heartbeat cancellation
// always precedes the off-command. Callers hold c.mu.
func (c *Controller) stopTarget(now time.Time) {
	c.log.Infow("stopping target", "device", c.cfg.DeviceID, "target", c.cfg.TargetEntity)
	c.stopHeartbeat()
	c.bus.TurnOff(c.cfg.TargetEntity)
	c.targetActive = false
	c.lastRun = now
	c.runStartedAt = time.Time{}
}

// pulseOn issues one on-command. Failure is logged and swallowed: the
// heartbeat retries, and a failed pulse must not roll back targetActive.
func (c *Controller) pulseOn() {
	if err := c.bus.TurnOn(context.Background(), c.cfg.TargetEntity); err != nil {
		c.log.Warnw("failed to pulse target on", "device", c.cfg.DeviceID, "target", c.cfg.TargetEntity, "err", err)
	}
}

// ensureHeartbeat schedules the heartbeat timer if not already running.
// Callers hold c.mu.
func (c *Controller) ensureHeartbeat() {
	if c.cancelHeartbeat != nil {
		return
	}
	c.log.Debugw("starting heartbeat", "device", c.cfg.DeviceID, "interval", c.limits.Heartbeat)
	c.cancelHeartbeat = c.clock.ScheduleInterval(c.limits.Heartbeat, c.heartbeatTick)
}

// stopHeartbeat cancels the heartbeat timer if scheduled. Callers hold c.mu.
func (c *Controller) stopHeartbeat() {
	if c.cancelHeartbeat == nil {
		return
	}
	c.log.Debugw("stopping heartbeat", "device", c.cfg.DeviceID)
	c.cancelHeartbeat()
	c.cancelHeartbeat = nil
}

// heartbeatTick enforces the run limit, re-asserts the on-command, and
// re-runs the decision procedure to self-heal from missed notifications.
func (c *Controller) heartbeatTick(now time.Time) {
	c.triggerMu.Lock()
	defer c.triggerMu.Unlock()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	if c.targetActive && !c.runStartedAt.IsZero() &&
		c.limits.RunLimit > 0 && now.Sub(c.runStartedAt) > c.limits.RunLimit {
		c.log.Infow("run limit reached, stopping", "device", c.cfg.DeviceID, "limit", c.limits.RunLimit)
		c.stopTarget(now)
		c.blockReason = fmt.Sprintf("Run limit (%s) reached", c.limits.RunLimit)
		snap := c.snapshotLocked()
		c.mu.Unlock()
		// No re-pulse and no re-evaluation this tick; observers still get
		// the stop immediately.
		c.notify(snap)
		return
	}

	if c.targetActive {
		c.pulseOn()
	}
	c.evaluate(now)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// snapshotLocked builds the observable status projection. Callers hold c.mu.
func (c *Controller) snapshotLocked() models.GuardStatus {
	now := c.clock.Now()
	snap := models.GuardStatus{
		DeviceID:       c.cfg.DeviceID,
		DeviceType:     c.cfg.DeviceType,
		Armed:          c.armed,
		TargetActive:   c.targetActive,
		BlockReason:    c.blockReason,
		CooldownActive: cooldownActive(c.limits.Cooldown, c.lastRun, now),
		UpdatedAt:      now,
	}
	if c.targetActive {
		snap.Status = "Active (Running)"
		snap.BlockReason = ""
	} else if c.blockReason != "" {
		snap.Status = "Idle (" + c.blockReason + ")"
	} else {
		snap.Status = "Idle (Off)"
	}
	if !c.lastRun.IsZero() {
		t := c.lastRun
		snap.LastRun = &t
	}
	if !c.runStartedAt.IsZero() {
		t := c.runStartedAt
		snap.RunStartedAt = &t
	}
	return snap
}

func (c *Controller) notify(snap models.GuardStatus) {
	if c.onUpdate != nil {
		c.onUpdate(snap)
	}
}

// setpointChanged reports whether the thermostat setpoint attribute differs
// between the old and new entity states.
func setpointChanged(oldState, newState *models.EntityState) bool {
	if oldState == nil || newState == nil {
		return false
	}
	oldVal, oldOK := oldState.Attr(attrSetpoint)
	newVal, newOK := newState.Attr(attrSetpoint)
	if oldOK != newOK {
		return true
	}
	if !oldOK {
		return false
	}
	// Attribute values come from decoded JSON; compare by rendering to avoid
	// panics on non-comparable types.
	return fmt.Sprint(oldVal) != fmt.Sprint(newVal)
}
