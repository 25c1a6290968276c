package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"climate_guard/internal/models"
	"climate_guard/internal/repository"
)

type EventLogService struct {
	eventRepo repository.EventRepo
}

var _ EventLog = (*EventLogService)(nil)

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

var errInvalidTimeRange = errors.New("invalid time range: From must be <= To")

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeAndValidateFilter prepares query parameters and validates the time range.
func normalizeAndValidateFilter(f LogFilter) (LogFilter, error) {
	f.From = normalizeToUTC(f.From)
	f.To = normalizeToUTC(f.To)

	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return LogFilter{}, errInvalidTimeRange
	}

	f.Type = strings.TrimSpace(strings.ToUpper(f.Type))
	f.DeviceID = strings.TrimSpace(f.DeviceID)
	return f, nil
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.GuardEvent, error) {
	f, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, f.DeviceID, f.From, f.To, f.Type)
}
