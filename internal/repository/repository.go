package repository

import (
	"context"
	"database/sql"

	"enclosure_gateway/internal/models"
)

// LogStore is the append-only, ordered audit log.
type LogStore interface {
	Append(ctx context.Context, e models.LogEntry) error
	ReadAll(ctx context.Context) ([]models.LogEntry, error)
	// Last returns the most recently appended entry, or nil when the log is empty.
	Last(ctx context.Context) (*models.LogEntry, error)
}

// Operators stores the accounts allowed to command the enclosure.
type Operators interface {
	Create(ctx context.Context, username, hash string) (int, error)
	// GetByUsername returns nil, nil when no operator has that name.
	GetByUsername(ctx context.Context, username string) (*models.Operator, error)
}

// Repository groups the persistence dependencies of the service layer.
type Repository struct {
	Log       LogStore
	Operators Operators
	RawTrail  *RawTrail
}

// NewRepository wires the sqlite-backed repositories. A nil log falls back to the
// sqlite log table in the same database.
func NewRepository(db *sql.DB, log LogStore, trail *RawTrail) *Repository {
	if log == nil {
		log = NewLogSQLite(db)
	}
	return &Repository{
		Log:       log,
		Operators: NewOperatorRepository(db),
		RawTrail:  trail,
	}
}
