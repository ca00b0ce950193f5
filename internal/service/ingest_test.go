package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"enclosure_gateway/internal/logger"
	"enclosure_gateway/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestService_ProcessesUntilClosed(t *testing.T) {
	store := repository.NewLogMemory()
	c := newTestCore(t, store, newFakeClock())
	raw := &captureRaw{}
	sink := &captureSink{}

	lines := make(chan string, 4)
	lines <- `{"flame":"none","rain":"none","gas":100}`
	lines <- "#garbage"
	lines <- `{"door":"open"}`
	lines <- "{\"rain\":\"present\"}\r"
	close(lines)

	svc := NewIngestService(c, chanSource{ch: lines}, raw, sink, logger.Nop())
	err := svc.Run(context.Background())
	require.ErrorIs(t, err, ErrTelemetryClosed)

	assert.Len(t, raw.lines, 4, "every line is kept, parseable or not")
	assert.Equal(t, "#garbage", raw.lines[1])
	assert.Len(t, sink.states, 3)
	assert.Equal(t, []string{"Door state: open", "Rain detected"}, messages(readAll(t, store)))
	assert.Equal(t, "present", c.Snapshot().Rain)
}

func TestIngestService_StopsOnCancel(t *testing.T) {
	c := newTestCore(t, repository.NewLogMemory(), newFakeClock())
	svc := NewIngestService(c, chanSource{ch: make(chan string)}, nil, nil, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("ingest did not stop")
	}
}

func TestService_ConcurrentCommandsAndTelemetry(t *testing.T) {
	store := repository.NewLogMemory()
	c := newTestCore(t, store, SystemClock)
	cmds := NewCommandService(c, &fakeTransport{}, time.Second, logger.Nop())
	ctx := context.Background()

	var wg sync.WaitGroup
	tokens := []string{CmdOpenDoor, CmdCloseDoor, CmdOpenCanopy, CmdCloseCanopy}
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, cmds.Dispatch(ctx, tokens[i%len(tokens)]))
		}(i)
		go func(i int) {
			defer wg.Done()
			_, err := c.ApplyTelemetry(ctx, `{"gas":450,"door":"transitioning"}`)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	entries := readAll(t, store)
	require.NotEmpty(t, entries)
	for i := 1; i < len(entries); i++ {
		assert.False(t, isDuplicate(&entries[i-1], entries[i].Message, entries[i].Data),
			"adjacent entries %d and %d are duplicates", i-1, i)
	}
}
