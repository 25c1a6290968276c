package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"climate_guard/internal/guard"
	"climate_guard/internal/logger"
	"climate_guard/internal/models"
	"climate_guard/internal/repository"
)

// Guard event log types.
const (
	EventArmed    = "ARMED"
	EventDisarmed = "DISARMED"
	EventStart    = "START"
	EventStop     = "STOP"
	EventBlocked  = "BLOCKED"
)

var ErrUnknownDevice = errors.New("unknown device")

// GuardService owns one controller per configured device. It restores
// persisted state on construction, wires dependency-entity watches, persists
// every published snapshot, and appends transition events to the log.
type GuardService struct {
	stateRepo repository.GuardStateRepo
	eventRepo repository.EventRepo
	log       *logger.Logger

	mu          sync.RWMutex
	controllers map[string]*guard.Controller
	lastSnaps   map[string]models.GuardStatus
	unsubs      []func()
}

var _ Guard = (*GuardService)(nil)

// NewGuardService constructs and restores all controllers. A device that
// fails validation aborts construction; a failed restore read is logged and
// the device starts disarmed.
func NewGuardService(stateRepo repository.GuardStateRepo, eventRepo repository.EventRepo, deps Deps, devices []guard.Config) (*GuardService, error) {
	s := &GuardService{
		stateRepo:   stateRepo,
		eventRepo:   eventRepo,
		log:         deps.Log,
		controllers: make(map[string]*guard.Controller, len(devices)),
		lastSnaps:   make(map[string]models.GuardStatus, len(devices)),
	}

	for _, cfg := range devices {
		if _, ok := s.controllers[cfg.DeviceID]; ok {
			s.Close()
			return nil, fmt.Errorf("duplicate device id %q", cfg.DeviceID)
		}
		ctrl, err := guard.NewController(cfg, deps.Clock, deps.Bus, deps.Store, deps.Log, s.handleUpdate)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.controllers[cfg.DeviceID] = ctrl

		if ids := cfg.DependencyEntities(); len(ids) > 0 {
			s.unsubs = append(s.unsubs, deps.Store.Watch(ids, ctrl.HandleEntityChange))
		}
	}

	// Restore after all controllers are registered so snapshot persistence
	// from the first evaluations lands in lastSnaps.
	for id, ctrl := range s.controllers {
		persisted, found, err := stateRepo.Load(context.Background(), id)
		if err != nil {
			deps.Log.Errorw("failed to restore guard state, starting disarmed", "device", id, "err", err)
			continue
		}
		if found {
			ctrl.Restore(persisted.Armed, persisted.LastRun)
		}
	}

	// Devices without a persisted snapshot still need a baseline, or their
	// first real transition would have nothing to diff against and go
	// unlogged.
	s.mu.Lock()
	for id, ctrl := range s.controllers {
		if _, ok := s.lastSnaps[id]; !ok {
			s.lastSnaps[id] = ctrl.Status()
		}
	}
	s.mu.Unlock()

	return s, nil
}

// Close tears down every controller and removes all entity watches.
func (s *GuardService) Close() {
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	controllers := s.controllers
	s.controllers = map[string]*guard.Controller{}
	s.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	for _, ctrl := range controllers {
		ctrl.Close()
	}
}

// Arm enables the guard for a device. Idempotent.
func (s *GuardService) Arm(_ context.Context, deviceID string) error {
	ctrl, err := s.controller(deviceID)
	if err != nil {
		return err
	}
	ctrl.Arm()
	return nil
}

// Disarm disables the guard for a device, forcing a stop. Idempotent.
func (s *GuardService) Disarm(_ context.Context, deviceID string) error {
	ctrl, err := s.controller(deviceID)
	if err != nil {
		return err
	}
	ctrl.Disarm()
	return nil
}

// SetLimits applies runtime limit overrides. Nil fields are left unchanged.
func (s *GuardService) SetLimits(_ context.Context, deviceID string, p OverrideParams) error {
	ctrl, err := s.controller(deviceID)
	if err != nil {
		return err
	}
	if p.RunLimitMinutes != nil {
		if err := ctrl.SetRunLimit(time.Duration(*p.RunLimitMinutes) * time.Minute); err != nil {
			return err
		}
	}
	if p.CooldownMinutes != nil {
		if err := ctrl.SetCooldown(time.Duration(*p.CooldownMinutes) * time.Minute); err != nil {
			return err
		}
	}
	if p.HeartbeatSeconds != nil {
		if err := ctrl.SetHeartbeat(time.Duration(*p.HeartbeatSeconds) * time.Second); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot returns the current status of one device.
func (s *GuardService) Snapshot(deviceID string) (models.GuardStatus, bool) {
	ctrl, err := s.controller(deviceID)
	if err != nil {
		return models.GuardStatus{}, false
	}
	return ctrl.Status(), true
}

// Snapshots returns the current status of every device.
func (s *GuardService) Snapshots() []models.GuardStatus {
	s.mu.RLock()
	controllers := make([]*guard.Controller, 0, len(s.controllers))
	for _, ctrl := range s.controllers {
		controllers = append(controllers, ctrl)
	}
	s.mu.RUnlock()

	out := make([]models.GuardStatus, 0, len(controllers))
	for _, ctrl := range controllers {
		out = append(out, ctrl.Status())
	}
	return out
}

func (s *GuardService) controller(deviceID string) (*guard.Controller, error) {
	s.mu.RLock()
	ctrl, ok := s.controllers[deviceID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, deviceID)
	}
	return ctrl, nil
}

// handleUpdate runs after every decision-procedure evaluation: it persists
// the restorable state slice and appends transition events to the log.
// Invoked outside the controller mutex.
func (s *GuardService) handleUpdate(snap models.GuardStatus) {
	ctx := context.Background()

	if err := s.stateRepo.Save(ctx, models.GuardState{
		DeviceID:  snap.DeviceID,
		Armed:     snap.Armed,
		LastRun:   snap.LastRun,
		UpdatedAt: snap.UpdatedAt,
	}); err != nil {
		s.log.Errorw("failed to persist guard state", "device", snap.DeviceID, "err", err)
	}

	s.mu.Lock()
	prev, hadPrev := s.lastSnaps[snap.DeviceID]
	s.lastSnaps[snap.DeviceID] = snap
	s.mu.Unlock()

	if !hadPrev {
		return
	}
	for _, e := range transitionEvents(prev, snap) {
		if err := s.eventRepo.Append(ctx, e); err != nil {
			s.log.Errorw("failed to append guard event", "device", snap.DeviceID, "type", e.Type, "err", err)
		}
	}
}

// transitionEvents derives log entries from two consecutive snapshots.
func transitionEvents(prev, cur models.GuardStatus) []models.GuardEvent {
	var out []models.GuardEvent
	at := cur.UpdatedAt

	if prev.Armed != cur.Armed {
		typ, desc := EventArmed, "Guard armed"
		if !cur.Armed {
			typ, desc = EventDisarmed, "Guard disarmed"
		}
		out = append(out, models.GuardEvent{DeviceID: cur.DeviceID, OccurredAt: at, Type: typ, Description: desc})
	}

	if prev.TargetActive != cur.TargetActive {
		if cur.TargetActive {
			out = append(out, models.GuardEvent{
				DeviceID: cur.DeviceID, OccurredAt: at,
				Type: EventStart, Description: "Target started",
			})
		} else {
			out = append(out, models.GuardEvent{
				DeviceID: cur.DeviceID, OccurredAt: at,
				Type: EventStop, Description: "Target stopped",
				Metadata: map[string]any{"reason": cur.BlockReason},
			})
		}
		return out
	}

	// Reason changes while idle and armed (e.g. weather closed the gate
	// before a run ever started).
	if cur.Armed && !cur.TargetActive && cur.BlockReason != "" && cur.BlockReason != prev.BlockReason {
		out = append(out, models.GuardEvent{
			DeviceID: cur.DeviceID, OccurredAt: at,
			Type: EventBlocked, Description: cur.BlockReason,
		})
	}
	return out
}
