package service

import (
	"context"
	"errors"

	"enclosure_gateway/internal/logger"
	"enclosure_gateway/internal/models"
)

// TelemetrySource yields raw controller lines. The channel closes when the
// link is lost.
type TelemetrySource interface {
	Lines(ctx context.Context) <-chan string
}

// RawRecorder keeps every received line, parseable or not.
type RawRecorder interface {
	Record(line string) error
}

// TelemetrySink receives the reconciled state after each accepted update.
type TelemetrySink interface {
	WriteReading(state models.DeviceState)
}

// IngestService is the single consumer of the telemetry channel.
type IngestService struct {
	core   *Core
	source TelemetrySource
	raw    RawRecorder
	sink   TelemetrySink
	log    *logger.Logger
}

func NewIngestService(core *Core, source TelemetrySource, raw RawRecorder, sink TelemetrySink, log *logger.Logger) *IngestService {
	return &IngestService{core: core, source: source, raw: raw, sink: sink, log: log}
}

// Run consumes lines until ctx is done or the source closes. Malformed lines
// are logged and skipped.
func (s *IngestService) Run(ctx context.Context) error {
	lines := s.source.Lines(ctx)
	s.log.Infow("ingest_started")
	for {
		select {
		case <-ctx.Done():
			s.log.Infow("ingest_stopped", "reason", ctx.Err())
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.log.Errorw("ingest_stopped", "err", ErrTelemetryClosed)
				return ErrTelemetryClosed
			}
			s.handle(ctx, line)
		}
	}
}

func (s *IngestService) handle(ctx context.Context, line string) {
	if s.raw != nil {
		if err := s.raw.Record(line); err != nil {
			s.log.Warnw("raw_trail_write_failed", "err", err)
		}
	}

	if _, err := s.core.ApplyTelemetry(ctx, line); err != nil {
		if errors.Is(err, ErrParse) {
			s.log.Warnw("telemetry_dropped", "line", line, "err", err)
			return
		}
		s.log.Errorw("telemetry_apply_failed", "err", err)
		return
	}

	if s.sink != nil {
		s.sink.WriteReading(s.core.Snapshot())
	}
}
