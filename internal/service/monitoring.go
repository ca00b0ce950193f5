package service

import (
	"context"

	"enclosure_gateway/internal/models"
)

// MonitoringService exposes the live device state.
type MonitoringService struct {
	core *Core
}

func NewMonitoringService(core *Core) *MonitoringService {
	return &MonitoringService{core: core}
}

// GetState returns the current snapshot. Before any telemetry it is the
// placeholder state.
func (s *MonitoringService) GetState(_ context.Context) models.DeviceState {
	return s.core.Snapshot()
}
