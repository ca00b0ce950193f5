// Package controller connects the gateway to the enclosure controller. Every
// link delivers telemetry as text lines and accepts command tokens.
package controller

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"enclosure_gateway/internal/config"
	"enclosure_gateway/internal/logger"
)

var (
	ErrLinkClosed   = errors.New("controller link closed")
	ErrNotConnected = errors.New("controller not connected")
)

// lineBuffer is the capacity of every link's telemetry channel.
const lineBuffer = 64

// Link is a bidirectional line channel to the controller.
type Link interface {
	// Lines returns the telemetry channel. It is closed when the link is lost
	// or closed; repeated calls return the same channel.
	Lines(ctx context.Context) <-chan string
	// Send writes one command token.
	Send(ctx context.Context, token string) error
	Close() error
}

// Open builds the link selected by cfg.Kind.
func Open(ctx context.Context, cfg config.ControllerConfig, log *logger.Logger) (Link, error) {
	switch cfg.Kind {
	case config.LinkSerial:
		return OpenSerial(cfg.Serial, log.Named("serial"))
	case config.LinkMQTT:
		return ConnectMQTT(ctx, cfg.MQTT, log.Named("mqtt"))
	case config.LinkSimulator:
		return NewSimulator(cfg.Simulator, log.Named("simulator")), nil
	default:
		return nil, fmt.Errorf("unknown controller kind %q", cfg.Kind)
	}
}

// maxLineBytes bounds a telemetry line. Longer lines are discarded up to the
// next newline.
const maxLineBytes = 64 * 1024

// scanLines splits r on newlines, strips a trailing \r and skips blank lines.
// It closes out when r is exhausted or ctx is done.
func scanLines(ctx context.Context, r io.Reader, out chan<- string, log *logger.Logger) {
	defer close(out)
	br := bufio.NewReaderSize(r, maxLineBytes)
	oversized := false
	for {
		chunk, err := br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			if !oversized {
				log.Warnw("telemetry_line_oversized", "limit_bytes", maxLineBytes)
			}
			oversized = true
			continue
		}
		if oversized {
			// chunk is the tail of the discarded line
			oversized = false
		} else if line := strings.TrimRight(string(chunk), "\r\n"); strings.TrimSpace(line) != "" {
			select {
			case out <- line:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				log.Errorw("telemetry_read_failed", "err", err)
			}
			return
		}
	}
}
