package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"enclosure_gateway/internal/config"
	"enclosure_gateway/internal/logger"
	"enclosure_gateway/internal/models"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const (
	influxPingTimeout     = 5 * time.Second
	millisecondsPerSecond = 1000
	measurement           = "enclosure_reading"
)

var ErrInfluxUnavailable = errors.New("influxdb unavailable")

// pointWriter is the part of api.WriteAPI the sink uses.
type pointWriter interface {
	WritePoint(point *write.Point)
	Flush()
}

// InfluxSink forwards every reconciled reading as a point. Writes are batched
// and non-blocking.
type InfluxSink struct {
	client influxdb2.Client
	writer pointWriter
	now    func() time.Time
}

// ConnectInflux creates the client, pings the server and starts draining write
// errors into the log.
func ConnectInflux(ctx context.Context, cfg config.InfluxConfig, log *logger.Logger) (*InfluxSink, error) {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	flush := cfg.FlushInterval
	if flush <= 0 {
		flush = 10
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batchSize)).
			SetFlushInterval(uint(flush)*millisecondsPerSecond))

	pingCtx, cancel := context.WithTimeout(ctx, influxPingTimeout)
	defer cancel()
	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrInfluxUnavailable, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrInfluxUnavailable)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	go func() {
		for err := range writeAPI.Errors() {
			log.Warnw("influx_write_failed", "err", err)
		}
	}()

	log.Infow("influx_connected", "url", cfg.URL, "bucket", cfg.Bucket)
	return &InfluxSink{client: client, writer: writeAPI, now: time.Now}, nil
}

// readingPoint maps a state snapshot to a point. Door and canopy are tags so
// readings can be grouped by enclosure position.
func readingPoint(st models.DeviceState, ts time.Time) *write.Point {
	return write.NewPoint(
		measurement,
		map[string]string{
			"door":   st.Door,
			"canopy": st.Canopy,
		},
		map[string]interface{}{
			"gas":   st.Gas,
			"flame": st.Flame == models.FlameDetected,
			"rain":  st.Rain == models.RainPresent,
		},
		ts,
	)
}

// WriteReading implements service.TelemetrySink.
func (s *InfluxSink) WriteReading(st models.DeviceState) {
	s.writer.WritePoint(readingPoint(st, s.now()))
}

// Close flushes pending points and closes the client.
func (s *InfluxSink) Close() {
	s.writer.Flush()
	if s.client != nil {
		s.client.Close()
	}
}
