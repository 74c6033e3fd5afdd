// Package telemetry publishes device snapshots to an MQTT broker.
package telemetry

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"weather_station/internal/config"
	"weather_station/internal/logger"
	"weather_station/internal/models"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
)

const (
	keepAliveSec   = 30
	publishTimeout = time.Second
	connectTimeout = 10 * time.Second
)

var ErrNotStarted = errors.New("mqtt publisher not started")

// Publisher sends each snapshot, retained, to <prefix>/<client_id>/state
// and keeps <prefix>/<client_id>/availability at online/offline.
type Publisher struct {
	cfg config.MQTTConfig
	log *logger.Logger
	cm  *autopaho.ConnectionManager
}

func New(cfg config.MQTTConfig, log *logger.Logger) *Publisher {
	return &Publisher{cfg: cfg, log: logger.OrNop(log)}
}

func (p *Publisher) baseTopic() string {
	return strings.TrimSuffix(p.cfg.TopicPrefix, "/") + "/" + p.cfg.ClientID
}

// StateTopic is where snapshots go.
func (p *Publisher) StateTopic() string { return p.baseTopic() + "/state" }

// AvailabilityTopic carries the birth and will messages.
func (p *Publisher) AvailabilityTopic() string { return p.baseTopic() + "/availability" }

// Start opens the broker connection. autopaho keeps reconnecting in the
// background, so an unreachable broker is logged, not returned.
func (p *Publisher) Start(ctx context.Context) error {
	brokerURL, err := url.Parse(p.cfg.Broker)
	if err != nil {
		return fmt.Errorf("parse mqtt broker URL: %w", err)
	}

	availTopic := p.AvailabilityTopic()
	pahoCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerURL},
		KeepAlive:       keepAliveSec,
		ConnectUsername: p.cfg.Username,
		ConnectPassword: []byte(p.cfg.Password),
		WillMessage: &paho.WillMessage{
			Topic:   availTopic,
			Payload: []byte("offline"),
			QoS:     1,
			Retain:  true,
		},
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			p.log.Infow("mqtt_connected", "broker", p.cfg.Broker)
			p.publishAvailability(ctx, cm, "online")
		},
		OnConnectError: func(err error) {
			p.log.Warnw("mqtt_connect_error", "err", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: p.cfg.ClientID,
		},
	}
	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	p.cm = cm

	connCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := cm.AwaitConnection(connCtx); err != nil {
		p.log.Warnw("mqtt_initial_connection_pending", "err", err)
	}
	return nil
}

// Publish sends snap. It waits at most publishTimeout.
func (p *Publisher) Publish(ctx context.Context, snap models.DeviceSnapshot) error {
	if p.cm == nil {
		return ErrNotStarted
	}
	payload, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if _, err := p.cm.Publish(pubCtx, &paho.Publish{
		Topic:   p.StateTopic(),
		Payload: payload,
		QoS:     0,
		Retain:  true,
	}); err != nil {
		return fmt.Errorf("publish %s: %w", p.StateTopic(), err)
	}
	return nil
}

// Stop marks the node offline and disconnects.
func (p *Publisher) Stop(ctx context.Context) error {
	if p.cm == nil {
		return nil
	}
	p.publishAvailability(ctx, p.cm, "offline")
	return p.cm.Disconnect(ctx)
}

func (p *Publisher) publishAvailability(ctx context.Context, cm *autopaho.ConnectionManager, status string) {
	if _, err := cm.Publish(ctx, &paho.Publish{
		Topic:   p.AvailabilityTopic(),
		Payload: []byte(status),
		QoS:     1,
		Retain:  true,
	}); err != nil {
		p.log.Warnw("mqtt_availability_failed", "status", status, "err", err)
	}
}

// EncodeSnapshot is the wire form of a snapshot.
func EncodeSnapshot(snap models.DeviceSnapshot) ([]byte, error) {
	b, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}
