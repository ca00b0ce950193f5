package service

import (
	"context"
	"time"

	"enclosure_gateway/internal/logger"
	"enclosure_gateway/internal/models"
	"enclosure_gateway/internal/repository"
)

type Authorization interface {
	Register(ctx context.Context, username, password string) (int, error)
	SignIn(ctx context.Context, username, password string) (string, error)
	Verify(token string) (int, error)
}

// Commands forwards operator commands to the controller.
type Commands interface {
	Dispatch(ctx context.Context, token string) error
}

// Monitoring exposes the live device state.
type Monitoring interface {
	GetState(ctx context.Context) models.DeviceState
}

// History exposes the append-only audit log and its live feed.
type History interface {
	List(ctx context.Context) []models.LogEntry
	Subscribe(buffer int) (<-chan models.LogEntry, func())
}

// Ingestion runs the telemetry loop until ctx is cancelled or the link drops.
type Ingestion interface {
	Run(ctx context.Context) error
}

type Service struct {
	Commands
	Monitoring
	History
	Ingestion
	Authorization
}

// Deps are the collaborators NewService wires together.
type Deps struct {
	Repos          *repository.Repository
	Source         TelemetrySource
	Transport      CommandTransport
	Sink           TelemetrySink
	Recorder       Recorder
	Clock          Clock
	Logger         *logger.Logger
	CommandTimeout time.Duration
	SigningKey     string
	TokenTTL       time.Duration
}

// NewService builds the core from the log store and hangs every sub-service
// off it, so commands and telemetry share one lock and one action clock.
func NewService(ctx context.Context, d Deps) *Service {
	log := d.Logger
	if log == nil {
		log = logger.Nop()
	}
	notifier := NewNotifier()
	core := NewCore(ctx, d.Repos.Log, log.Named("core"), CoreOptions{
		Clock:    d.Clock,
		Recorder: d.Recorder,
		Notifier: notifier,
	})

	var raw RawRecorder
	if d.Repos.RawTrail != nil {
		raw = d.Repos.RawTrail
	}

	return &Service{
		Commands:   NewCommandService(core, d.Transport, d.CommandTimeout, log.Named("commands")),
		Monitoring: NewMonitoringService(core),
		History:    NewHistoryService(d.Repos.Log, notifier, log.Named("history")),
		Ingestion:  NewIngestService(core, d.Source, raw, d.Sink, log.Named("ingest")),
		Authorization: NewOperatorAuth(d.Repos.Operators, OperatorAuthOptions{
			SigningKey: d.SigningKey,
			TokenTTL:   d.TokenTTL,
			Clock:      d.Clock,
		}, log.Named("auth")),
	}
}
