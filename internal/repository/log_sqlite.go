package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"enclosure_gateway/internal/models"

	"github.com/google/uuid"
)

type LogSQLite struct {
	db *sql.DB
}

func NewLogSQLite(db *sql.DB) *LogSQLite { return &LogSQLite{db: db} }

var _ LogStore = (*LogSQLite)(nil)

const (
	insertLogEntrySQL = `
		INSERT INTO log_entries (id, message, time_text, data, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	selectLogEntriesSQL   = `SELECT message, time_text, data FROM log_entries ORDER BY seq ASC`
	selectLastLogEntrySQL = `SELECT message, time_text, data FROM log_entries ORDER BY seq DESC LIMIT 1`
)

// Append inserts a new entry; rows are ordered by their autoincrement sequence.
func (r *LogSQLite) Append(ctx context.Context, e models.LogEntry) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("marshal log data: %w", err)
	}
	_, err = r.db.ExecContext(ctx, insertLogEntrySQL,
		uuid.NewString(),
		e.Message,
		e.Time,
		string(data),
		time.Now().UTC().Format("2006-01-02 15:04:05"), // SQLite TIMESTAMP format
	)
	if err != nil {
		return fmt.Errorf("insert log entry %q: %w", e.Message, err)
	}
	return nil
}

// ReadAll returns every entry in append order.
func (r *LogSQLite) ReadAll(ctx context.Context) ([]models.LogEntry, error) {
	rows, err := r.db.QueryContext(ctx, selectLogEntriesSQL)
	if err != nil {
		return nil, fmt.Errorf("select log entries: %w", err)
	}
	defer rows.Close()

	out := make([]models.LogEntry, 0, 64)
	for rows.Next() {
		e, err := scanLogEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate log entries: %w", err)
	}
	return out, nil
}

// Last returns the newest entry, or (nil, nil) when the table is empty.
func (r *LogSQLite) Last(ctx context.Context) (*models.LogEntry, error) {
	e, err := scanLogEntry(r.db.QueryRowContext(ctx, selectLastLogEntrySQL))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLogEntry(row rowScanner) (models.LogEntry, error) {
	var (
		e    models.LogEntry
		data string
	)
	if err := row.Scan(&e.Message, &e.Time, &data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.LogEntry{}, err
		}
		return models.LogEntry{}, fmt.Errorf("scan log entry: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &e.Data); err != nil {
		return models.LogEntry{}, fmt.Errorf("decode log data of %q: %w", e.Message, err)
	}
	return e, nil
}
