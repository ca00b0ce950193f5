package controller

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"enclosure_gateway/internal/config"
	"enclosure_gateway/internal/logger"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	mqttConnectTimeout    = 10 * time.Second
	mqttKeepAlive         = 60 * time.Second
	mqttMaxReconnect      = 30 * time.Second
	mqttDisconnectQuiesce = 250 // milliseconds
)

// mqttClient is the part of pahomqtt.Client the link uses.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Subscribe(topic string, qos byte, callback pahomqtt.MessageHandler) pahomqtt.Token
	Disconnect(quiesce uint)
	IsConnectionOpen() bool
}

// MQTTLink reaches a controller bridged onto an MQTT broker. Telemetry payloads
// may carry several newline-separated lines.
type MQTTLink struct {
	client mqttClient
	cfg    config.MQTTConfig
	log    *logger.Logger

	mu     sync.Mutex
	lines  chan string
	closed bool
}

func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetMaxReconnectInterval(mqttMaxReconnect)
	opts.SetConnectTimeout(mqttConnectTimeout)
	opts.SetKeepAlive(mqttKeepAlive)
	return opts
}

// ConnectMQTT connects to the broker and subscribes to the telemetry topic.
// The subscription is restored by paho on every reconnect.
func ConnectMQTT(ctx context.Context, cfg config.MQTTConfig, log *logger.Logger) (*MQTTLink, error) {
	l := &MQTTLink{cfg: cfg, log: log, lines: make(chan string, lineBuffer)}

	opts := buildClientOptions(cfg)
	opts.SetOnConnectHandler(func(c pahomqtt.Client) {
		log.Infow("mqtt_connected", "broker", cfg.Broker)
		if err := l.subscribe(c); err != nil {
			log.Errorw("mqtt_subscribe_failed", "topic", cfg.TelemetryTopic, "err", err)
		}
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		log.Warnw("mqtt_connection_lost", "err", err)
	})

	client := pahomqtt.NewClient(opts)
	l.client = client

	token := client.Connect()
	if err := waitToken(ctx, token, mqttConnectTimeout); err != nil {
		return nil, fmt.Errorf("connect mqtt %s: %w", cfg.Broker, err)
	}
	return l, nil
}

func (l *MQTTLink) subscribe(c mqttClient) error {
	token := c.Subscribe(l.cfg.TelemetryTopic, byte(l.cfg.QoS), l.wrapHandler())
	return waitToken(context.Background(), token, mqttConnectTimeout)
}

// wrapHandler splits payloads into lines and recovers from panics. A full
// buffer drops the line; paho callbacks must not block.
func (l *MQTTLink) wrapHandler() pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				l.log.Errorw("mqtt_handler_panic", "topic", msg.Topic(), "panic", r)
			}
		}()

		l.mu.Lock()
		defer l.mu.Unlock()
		if l.closed {
			return
		}
		for _, line := range strings.Split(string(msg.Payload()), "\n") {
			line = strings.TrimRight(line, "\r")
			if strings.TrimSpace(line) == "" {
				continue
			}
			select {
			case l.lines <- line:
			default:
				l.log.Warnw("telemetry_line_dropped", "topic", msg.Topic(), "reason", "buffer_full")
			}
		}
	}
}

func (l *MQTTLink) Lines(_ context.Context) <-chan string {
	return l.lines
}

// Send publishes token on the command topic and waits for the broker ack.
func (l *MQTTLink) Send(ctx context.Context, token string) error {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return ErrLinkClosed
	}
	if !l.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	t := l.client.Publish(l.cfg.CommandTopic, byte(l.cfg.QoS), false, token)
	if err := waitToken(ctx, t, 0); err != nil {
		return fmt.Errorf("publish command %q: %w", token, err)
	}
	return nil
}

func (l *MQTTLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.client.Disconnect(mqttDisconnectQuiesce)
	close(l.lines)
	return nil
}

// waitToken waits for a paho token, bounded by ctx and, when positive, timeout.
func waitToken(ctx context.Context, t pahomqtt.Token, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	select {
	case <-t.Done():
		return t.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
