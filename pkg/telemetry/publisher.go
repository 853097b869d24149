// Package telemetry publishes rover telemetry to an MQTT broker.
//
// Messages are published to <topic>/<client id>/<message type>. State
// messages are retained so a dashboard that subscribes late sees which
// tasks are running.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/teslashibe/go-rover/pkg/protocol"
)

// Publisher receives telemetry. It satisfies rover.Reporter.
type Publisher interface {
	Report(msg *protocol.Message)
	Close() error
}

// Nop discards telemetry.
type Nop struct{}

// Report does nothing.
func (Nop) Report(*protocol.Message) {}

// Close does nothing.
func (Nop) Close() error { return nil }

// New returns an MQTT publisher, or Nop when no broker is configured.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Publisher, error) {
	if !cfg.Enabled() {
		return Nop{}, nil
	}
	return NewMQTT(ctx, cfg, logger)
}

// client is the part of mqtt.Client the publisher uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Stats counts publish outcomes.
type Stats struct {
	Published uint64 `json:"published"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
}

// MQTTPublisher queues telemetry and publishes it from one goroutine so
// Report never blocks the control tasks.
type MQTTPublisher struct {
	cfg    Config
	id     string
	client client
	logger *slog.Logger

	queue chan *protocol.Message
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once

	published atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// NewMQTT connects to cfg.Broker. If the broker is unreachable within
// ConnectTimeout the client keeps retrying in the background and
// messages queue until it connects.
func NewMQTT(ctx context.Context, cfg Config, logger *slog.Logger) (*MQTTPublisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "mqtt")
	id := cfg.clientID()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(id)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(cfg.RetryInterval)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetOrderMatters(false)
	opts.OnConnect = func(mqtt.Client) {
		logger.Info("connected to broker", "broker", cfg.Broker, "client_id", id)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn("broker connection lost", "error", err)
	}

	c := mqtt.NewClient(opts)
	token := c.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return nil, fmt.Errorf("telemetry: connect %s: %w", cfg.Broker, err)
		}
	case <-time.After(cfg.ConnectTimeout):
		logger.Warn("broker not reachable yet, retrying in background", "broker", cfg.Broker)
	case <-ctx.Done():
		c.Disconnect(0)
		return nil, ctx.Err()
	}

	return newPublisher(cfg, id, c, logger), nil
}

func newPublisher(cfg Config, id string, c client, logger *slog.Logger) *MQTTPublisher {
	p := &MQTTPublisher{
		cfg:    cfg,
		id:     id,
		client: c,
		logger: logger,
		queue:  make(chan *protocol.Message, cfg.QueueSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go p.pump()
	return p
}

// ClientID returns the MQTT client ID.
func (p *MQTTPublisher) ClientID() string {
	return p.id
}

// Topic returns the topic a message type is published to.
func (p *MQTTPublisher) Topic(t protocol.MessageType) string {
	return fmt.Sprintf("%s/%s/%s", p.cfg.Topic, p.id, t)
}

// Report queues msg. When the queue is full the message is dropped.
func (p *MQTTPublisher) Report(msg *protocol.Message) {
	select {
	case <-p.quit:
		return
	default:
	}
	select {
	case p.queue <- msg:
	default:
		p.dropped.Add(1)
	}
}

func (p *MQTTPublisher) pump() {
	defer close(p.done)
	for {
		select {
		case <-p.quit:
			return
		case msg := <-p.queue:
			p.publish(msg)
		}
	}
}

func (p *MQTTPublisher) publish(msg *protocol.Message) {
	payload, err := msg.Bytes()
	if err != nil {
		p.failed.Add(1)
		p.logger.Debug("encode telemetry", "type", msg.Type, "error", err)
		return
	}

	retained := msg.Type == protocol.TypeState
	token := p.client.Publish(p.Topic(msg.Type), p.cfg.QoS, retained, payload)
	if !token.WaitTimeout(p.cfg.PublishTimeout) {
		p.failed.Add(1)
		p.logger.Debug("publish timed out", "type", msg.Type)
		return
	}
	if err := token.Error(); err != nil {
		p.failed.Add(1)
		p.logger.Debug("publish failed", "type", msg.Type, "error", err)
		return
	}
	p.published.Add(1)
}

// Stats returns publish counters.
func (p *MQTTPublisher) Stats() Stats {
	return Stats{
		Published: p.published.Load(),
		Failed:    p.failed.Load(),
		Dropped:   p.dropped.Load(),
	}
}

// Close stops publishing and disconnects. Queued messages are discarded.
func (p *MQTTPublisher) Close() error {
	p.once.Do(func() {
		close(p.quit)
		<-p.done
		p.client.Disconnect(250)
	})
	return nil
}
