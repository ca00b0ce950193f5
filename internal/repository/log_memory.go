package repository

import (
	"context"
	"sync"

	"enclosure_gateway/internal/models"
)

// LogMemory is a process-local LogStore used by the replay command and tests.
type LogMemory struct {
	mu      sync.RWMutex
	entries []models.LogEntry
}

var _ LogStore = (*LogMemory)(nil)

func NewLogMemory() *LogMemory { return &LogMemory{} }

func (r *LogMemory) Append(_ context.Context, e models.LogEntry) error {
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
	return nil
}

func (r *LogMemory) ReadAll(_ context.Context) ([]models.LogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.LogEntry, len(r.entries))
	copy(out, r.entries)
	return out, nil
}

func (r *LogMemory) Last(_ context.Context) (*models.LogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.entries) == 0 {
		return nil, nil
	}
	e := r.entries[len(r.entries)-1]
	return &e, nil
}
