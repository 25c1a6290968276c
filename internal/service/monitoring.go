package service

import (
	"context"
	"fmt"

	"climate_guard/internal/models"
)

// StatusSource yields current guard snapshots. Implemented by GuardService.
type StatusSource interface {
	Snapshot(deviceID string) (models.GuardStatus, bool)
	Snapshots() []models.GuardStatus
}

// MonitoringService is the read-only projection over controller state.
type MonitoringService struct {
	source StatusSource
}

var _ Monitoring = (*MonitoringService)(nil)

func NewMonitoringService(source StatusSource) *MonitoringService {
	return &MonitoringService{source: source}
}

// Status returns the latest snapshot for one device.
func (s *MonitoringService) Status(_ context.Context, deviceID string) (models.GuardStatus, error) {
	snap, ok := s.source.Snapshot(deviceID)
	if !ok {
		return models.GuardStatus{}, fmt.Errorf("%w: %q", ErrUnknownDevice, deviceID)
	}
	return snap, nil
}

// List returns snapshots for all configured devices.
func (s *MonitoringService) List(_ context.Context) ([]models.GuardStatus, error) {
	return s.source.Snapshots(), nil
}
