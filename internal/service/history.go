package service

import (
	"context"
	"fmt"

	"enclosure_gateway/internal/logger"
	"enclosure_gateway/internal/models"
	"enclosure_gateway/internal/repository"
)

// HistoryService reads the audit log.
type HistoryService struct {
	store    repository.LogStore
	notifier *Notifier
	log      *logger.Logger
}

func NewHistoryService(store repository.LogStore, notifier *Notifier, log *logger.Logger) *HistoryService {
	return &HistoryService{store: store, notifier: notifier, log: log}
}

// List returns every entry in append order. An unreadable store yields an
// empty list; the failure is only logged.
func (s *HistoryService) List(ctx context.Context) []models.LogEntry {
	entries, err := s.store.ReadAll(ctx)
	if err != nil {
		s.log.Errorw("history_read_failed", "err", fmt.Errorf("%w: %w", ErrStoreRead, err))
		return []models.LogEntry{}
	}
	if entries == nil {
		return []models.LogEntry{}
	}
	return entries
}

// Subscribe streams entries appended from now on.
func (s *HistoryService) Subscribe(buffer int) (<-chan models.LogEntry, func()) {
	return s.notifier.Subscribe(buffer)
}
