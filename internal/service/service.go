package service

import (
	"context"

	"climate_guard/internal/entities"
	"climate_guard/internal/guard"
	"climate_guard/internal/logger"
	"climate_guard/internal/models"
	"climate_guard/internal/repository"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Guard exposes control operations on a configured device: arm/disarm and
// runtime limit overrides.
type Guard interface {
	Arm(ctx context.Context, deviceID string) error
	Disarm(ctx context.Context, deviceID string) error
	SetLimits(ctx context.Context, deviceID string, p OverrideParams) error
}

// Monitoring exposes the read-only status projection.
type Monitoring interface {
	Status(ctx context.Context, deviceID string) (models.GuardStatus, error)
	List(ctx context.Context) ([]models.GuardStatus, error)
}

// EventLog exposes the append-only guard event log with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.GuardEvent, error)
}

// Service aggregates all sub-services.
type Service struct {
	Guard
	Monitoring
	EventLog
	Authorization

	guards *GuardService
}

// Deps are the external collaborators the guard controllers consume.
type Deps struct {
	Clock guard.Clock
	Bus   guard.CommandBus
	Store *entities.Store
	Log   *logger.Logger

	// AuthSigningKey signs API tokens (config: auth.signing_key).
	AuthSigningKey string
}

// NewService wires the repository layer and controller dependencies into
// concrete services, constructing one guard controller per device config.
// A device whose config fails validation aborts construction.
func NewService(repos *repository.Repository, deps Deps, devices []guard.Config) (*Service, error) {
	guards, err := NewGuardService(repos.GuardState, repos.Events, deps, devices)
	if err != nil {
		return nil, err
	}
	return &Service{
		Guard:         guards,
		Monitoring:    NewMonitoringService(guards),
		EventLog:      NewEventLogService(repos.Events),
		Authorization: NewAuthService(repos.Auth, deps.AuthSigningKey),
		guards:        guards,
	}, nil
}

// Close tears down all guard controllers: heartbeat timers cancelled,
// entity watches removed.
func (s *Service) Close() {
	if s.guards != nil {
		s.guards.Close()
	}
}
