package controller

import (
	"context"
	"fmt"
	"io"
	"sync"

	"enclosure_gateway/internal/config"
	"enclosure_gateway/internal/logger"

	"go.bug.st/serial"
)

const defaultBaudRate = 9600

// StreamLink speaks the line protocol over any byte stream, a serial port in
// production.
type StreamLink struct {
	rw  io.ReadWriteCloser
	log *logger.Logger

	writeMu sync.Mutex

	once  sync.Once
	lines chan string

	closeOnce sync.Once
	closed    chan struct{}
}

// OpenSerial opens the controller's serial port, 8N1.
func OpenSerial(cfg config.SerialConfig, log *logger.Logger) (*StreamLink, error) {
	baud := cfg.BaudRate
	if baud <= 0 {
		baud = defaultBaudRate
	}
	port, err := serial.Open(cfg.Port, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", cfg.Port, err)
	}
	log.Infow("serial_port_opened", "port", cfg.Port, "baud_rate", baud)
	return NewStreamLink(port, log), nil
}

func NewStreamLink(rw io.ReadWriteCloser, log *logger.Logger) *StreamLink {
	return &StreamLink{
		rw:     rw,
		log:    log,
		lines:  make(chan string, lineBuffer),
		closed: make(chan struct{}),
	}
}

// Lines starts the reader on first call.
func (l *StreamLink) Lines(ctx context.Context) <-chan string {
	l.once.Do(func() {
		go scanLines(ctx, l.rw, l.lines, l.log)
	})
	return l.lines
}

// Send writes token followed by a newline. A write still pending when ctx
// expires keeps running in the background and its result is dropped.
func (l *StreamLink) Send(ctx context.Context, token string) error {
	select {
	case <-l.closed:
		return ErrLinkClosed
	default:
	}

	done := make(chan error, 1)
	go func() {
		l.writeMu.Lock()
		defer l.writeMu.Unlock()
		_, err := io.WriteString(l.rw, token+"\n")
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("write command %q: %w", token, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("write command %q: %w", token, ctx.Err())
	}
}

func (l *StreamLink) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.closed)
		err = l.rw.Close()
	})
	return err
}
