package service

import (
	"context"
	"fmt"
	"math"

	"enclosure_gateway/internal/logger"
	"enclosure_gateway/internal/models"
	"enclosure_gateway/internal/repository"
)

// GasTolerance is the band inside which two gas readings count as the same.
const GasTolerance = 500.0

// TimeLayout formats LogEntry.Time in local time.
const TimeLayout = "15:04:05 2/1/2006"

// DedupFilter appends log entries unless they repeat the last persisted one.
// The baseline is the single last entry, cached in memory.
type DedupFilter struct {
	store repository.LogStore
	clock Clock
	last  *models.LogEntry
}

// NewDedupFilter primes the baseline from the store. An unreadable store
// leaves the baseline empty, so the next candidate is always appended.
func NewDedupFilter(ctx context.Context, store repository.LogStore, clock Clock, log *logger.Logger) *DedupFilter {
	f := &DedupFilter{store: store, clock: clock}
	last, err := store.Last(ctx)
	if err != nil {
		log.Warnw("dedup_baseline_unavailable", "err", fmt.Errorf("%w: %w", ErrStoreRead, err))
		return f
	}
	f.last = last
	return f
}

// isDuplicate compares a candidate against the baseline: same message, same
// flame and rain, gas within the tolerance band.
func isDuplicate(last *models.LogEntry, message string, data models.DeviceState) bool {
	if last == nil {
		return false
	}
	return last.Message == message &&
		last.Data.Flame == data.Flame &&
		last.Data.Rain == data.Rain &&
		math.Abs(last.Data.Gas-data.Gas) < GasTolerance
}

// TryAppend persists the candidate unless it duplicates the baseline. It
// returns the entry and whether it was appended. On a store error nothing is
// appended and the baseline is kept.
func (f *DedupFilter) TryAppend(ctx context.Context, message string, data models.DeviceState) (models.LogEntry, bool, error) {
	if isDuplicate(f.last, message, data) {
		return models.LogEntry{}, false, nil
	}
	entry := models.LogEntry{
		Message: message,
		Time:    f.clock.Now().Local().Format(TimeLayout),
		Data:    data,
	}
	if err := f.store.Append(ctx, entry); err != nil {
		return models.LogEntry{}, false, err
	}
	f.last = &entry
	return entry, true, nil
}

// Baseline returns the cached last entry, nil when none.
func (f *DedupFilter) Baseline() *models.LogEntry {
	return f.last
}
