package repository

import (
	"context"
	"database/sql"
	"time"

	"weather_station/internal/models"
)

// RegionSize is the size of the persistent region in bytes.
const RegionSize = 512

// OperatorRepo stores API operators and their roles.
type OperatorRepo interface {
	Create(ctx context.Context, username, hash string) (models.Operator, error)
	GetByUsername(ctx context.Context, username string) (*models.Operator, error)
}

// NVRAM is the fixed-size non-volatile region the credential slots live in.
type NVRAM interface {
	// Load returns a RegionSize image; a region never written reads as zeros.
	Load(ctx context.Context) ([]byte, error)
	// Commit durably replaces the whole region.
	Commit(ctx context.Context, image []byte) error
}

type EventRepo interface {
	Append(ctx context.Context, e models.DeviceEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.DeviceEvent, error)
}

type Repository struct {
	NVRAM     NVRAM
	EventRepo EventRepo
	Operators OperatorRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		NVRAM:     NewNVRAMSQLite(db),
		EventRepo: NewEventSQLite(db),
		Operators: NewOperatorSQLite(db),
	}
}
