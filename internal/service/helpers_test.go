package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"enclosure_gateway/internal/models"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 5, 14, 7, 9, 0, time.Local)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var errStoreDown = errors.New("store down")

// brokenStore fails every operation.
type brokenStore struct{}

func (brokenStore) Append(context.Context, models.LogEntry) error      { return errStoreDown }
func (brokenStore) ReadAll(context.Context) ([]models.LogEntry, error) { return nil, errStoreDown }
func (brokenStore) Last(context.Context) (*models.LogEntry, error)     { return nil, errStoreDown }

// fakeTransport records sent tokens and returns err when set.
type fakeTransport struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (t *fakeTransport) Send(_ context.Context, token string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.sent = append(t.sent, token)
	return nil
}

// chanSource serves a fixed channel of lines.
type chanSource struct {
	ch chan string
}

func (s chanSource) Lines(context.Context) <-chan string { return s.ch }

type captureRaw struct {
	mu    sync.Mutex
	lines []string
}

func (r *captureRaw) Record(line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
	return nil
}

type captureSink struct {
	mu     sync.Mutex
	states []models.DeviceState
}

func (s *captureSink) WriteReading(st models.DeviceState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, st)
}

// countingRecorder tallies Recorder calls.
type countingRecorder struct {
	mu         sync.Mutex
	received   int
	dropped    int
	appended   []string
	suppressed map[string]int
	dispatched map[string]string
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{suppressed: map[string]int{}, dispatched: map[string]string{}}
}

func (r *countingRecorder) TelemetryReceived() { r.mu.Lock(); r.received++; r.mu.Unlock() }
func (r *countingRecorder) TelemetryDropped()  { r.mu.Lock(); r.dropped++; r.mu.Unlock() }
func (r *countingRecorder) EntryAppended(kind string) {
	r.mu.Lock()
	r.appended = append(r.appended, kind)
	r.mu.Unlock()
}
func (r *countingRecorder) CandidateSuppressed(reason string) {
	r.mu.Lock()
	r.suppressed[reason]++
	r.mu.Unlock()
}
func (r *countingRecorder) CommandDispatched(token, outcome string) {
	r.mu.Lock()
	r.dispatched[token] = outcome
	r.mu.Unlock()
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func messages(entries []models.LogEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Message)
	}
	return out
}
