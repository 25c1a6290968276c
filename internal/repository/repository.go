package repository

import (
	"context"
	"database/sql"
	"time"

	"climate_guard/internal/models"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

// GuardStateRepo persists the restorable slice of controller state
// (armed flag, last run timestamp) per device.
type GuardStateRepo interface {
	Save(ctx context.Context, s models.GuardState) error
	Load(ctx context.Context, deviceID string) (models.GuardState, bool, error)
}

// EventRepo is the append-only guard event log.
type EventRepo interface {
	Append(ctx context.Context, e models.GuardEvent) error
	List(ctx context.Context, deviceID string, from, to time.Time, typ string) ([]models.GuardEvent, error)
}

type Repository struct {
	GuardState GuardStateRepo
	Events     EventRepo
	Auth       Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		GuardState: NewGuardStateSQLite(db),
		Events:     NewEventSQLite(db),
		Auth:       NewUserRepository(db),
	}
}
