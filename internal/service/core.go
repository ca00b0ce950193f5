package service

import (
	"context"
	"sync"

	"enclosure_gateway/internal/logger"
	"enclosure_gateway/internal/models"
	"enclosure_gateway/internal/repository"
)

// Reasons reported to Recorder.CandidateSuppressed.
const (
	SuppressedDuplicate = "duplicate"
	SuppressedDebounce  = "debounce"
)

// Recorder receives counters about the core's decisions.
type Recorder interface {
	TelemetryReceived()
	TelemetryDropped()
	EntryAppended(kind string)
	CandidateSuppressed(reason string)
	CommandDispatched(token, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) TelemetryReceived()               {}
func (nopRecorder) TelemetryDropped()                {}
func (nopRecorder) EntryAppended(string)             {}
func (nopRecorder) CandidateSuppressed(string)       {}
func (nopRecorder) CommandDispatched(string, string) {}

// Core owns the device state, the action clock and the dedup baseline. A
// single mutex spans every sequence from state mutation to log append, so the
// telemetry loop and command requests never interleave inside one.
type Core struct {
	mu         sync.Mutex
	reconciler *Reconciler
	guard      *DebounceGuard
	dedup      *DedupFilter

	log      *logger.Logger
	recorder Recorder
	notifier *Notifier
}

// CoreOptions are the optional collaborators of NewCore.
type CoreOptions struct {
	Clock    Clock
	Recorder Recorder
	Notifier *Notifier
	Initial  *models.DeviceState
}

func NewCore(ctx context.Context, store repository.LogStore, log *logger.Logger, opts CoreOptions) *Core {
	if opts.Clock == nil {
		opts.Clock = SystemClock
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.Notifier == nil {
		opts.Notifier = NewNotifier()
	}
	initial := models.InitialDeviceState()
	if opts.Initial != nil {
		initial = *opts.Initial
	}
	return &Core{
		reconciler: NewReconciler(initial),
		guard:      NewDebounceGuard(opts.Clock, ActionCooldown),
		dedup:      NewDedupFilter(ctx, store, opts.Clock, log),
		log:        log,
		recorder:   opts.Recorder,
		notifier:   opts.Notifier,
	}
}

// Snapshot returns the current device state.
func (c *Core) Snapshot() models.DeviceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconciler.Snapshot()
}

// Notifier exposes the live feed of appended entries.
func (c *Core) Notifier() *Notifier {
	return c.notifier
}

// ApplyTelemetry parses one line and runs merge, evaluation, debounce and
// dedup for it. It returns the entries that were appended. A parse failure
// leaves the state untouched.
func (c *Core) ApplyTelemetry(ctx context.Context, line string) ([]models.LogEntry, error) {
	c.recorder.TelemetryReceived()

	u, err := ParseTelemetry(line)
	if err != nil {
		c.recorder.TelemetryDropped()
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prevDoor, prevCanopy := c.reconciler.Merge(u)
	data := c.reconciler.Snapshot()

	var appended []models.LogEntry
	for _, cand := range Evaluate(u, prevDoor, prevCanopy) {
		if !c.guard.Allow(cand.Transition) {
			c.recorder.CandidateSuppressed(SuppressedDebounce)
			c.log.Infow("transition_debounced", "message", cand.Message)
			continue
		}
		if e, ok := c.appendLocked(ctx, cand.Kind, cand.Message, data); ok {
			appended = append(appended, e)
		}
	}
	return appended, nil
}

// commitCommand applies a command the transport already accepted: optimistic
// state update, "Executed" entry, then the action clock. Runs under the lock.
func (c *Core) commitCommand(ctx context.Context, cmd Command) (models.LogEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reconciler.Merge(cmd.update())
	e, ok := c.appendLocked(ctx, KindExecuted, executedPrefix+cmd.Label, c.reconciler.Snapshot())
	c.guard.Stamp()
	return e, ok
}

// appendLocked routes a candidate through the dedup filter. Store failures are
// logged and swallowed; ingestion must keep running.
func (c *Core) appendLocked(ctx context.Context, kind, message string, data models.DeviceState) (models.LogEntry, bool) {
	e, ok, err := c.dedup.TryAppend(ctx, message, data)
	if err != nil {
		c.log.Errorw("log_entry_append_failed", "err", err, "message", message)
		return models.LogEntry{}, false
	}
	if !ok {
		c.recorder.CandidateSuppressed(SuppressedDuplicate)
		c.log.Debugw("log_entry_duplicate", "message", message)
		return models.LogEntry{}, false
	}
	c.recorder.EntryAppended(kind)
	c.log.Infow("log_entry_appended", "message", message, "time", e.Time)
	c.notifier.publish(e)
	return e, true
}
