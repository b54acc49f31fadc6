package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/contaluz/contaluz/pkg/log"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"
	"github.com/levenlabs/go-lflag"
)

const mqttTimeout = 5 * time.Second

// mqttClient is the subset of mqtt.Client used here.
type mqttClient interface {
	Connect() mqtt.Token
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes notifications to a broker topic that a household display or
// phone bridge subscribes to.
type MQTT struct {
	broker   string
	topic    string
	clientID string
	client   mqttClient

	mu         sync.Mutex
	permission Permission
}

var _ Notifier = (*MQTT)(nil)

// mqttMessage is the payload published for each notification.
type mqttMessage struct {
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	SentAt time.Time `json:"sentAt"`
}

// configuredMQTT registers the MQTT flags.
func configuredMQTT() *MQTT {
	broker := lflag.String("mqtt-broker", "tcp://localhost:1883", "MQTT broker to publish notifications to")
	topic := lflag.String("mqtt-topic", "contaluz/alerts", "MQTT topic for notifications")
	clientID := lflag.String("mqtt-client-id", "contaluz", "MQTT client id")

	m := &MQTT{permission: PermissionDefault}

	lflag.Do(func() {
		m.broker = *broker
		m.topic = *topic
		m.clientID = *clientID
	})

	return m
}

// NewMQTT creates an MQTT notifier from an existing client.
func NewMQTT(client mqttClient, topic string) *MQTT {
	return &MQTT{
		client:     client,
		topic:      topic,
		permission: PermissionDefault,
	}
}

// Validate checks if the notifier is properly configured.
func (m *MQTT) Validate() error {
	if m.broker == "" {
		return fmt.Errorf("mqtt-broker is required")
	}
	if m.topic == "" {
		return fmt.Errorf("mqtt-topic is required")
	}
	return nil
}

// Init creates the client. The connection is made when permission is
// requested.
func (m *MQTT) Init() {
	opts := mqtt.NewClientOptions().
		AddBroker(m.broker).
		SetClientID(m.clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttTimeout)
	m.client = mqtt.NewClient(opts)
}

// Permission implements Notifier.
func (m *MQTT) Permission(ctx context.Context) Permission {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return PermissionUnsupported
	}
	return m.permission
}

// RequestPermission connects to the broker. A refused authorization is a
// denial; an unreachable broker leaves the decision open.
func (m *MQTT) RequestPermission(ctx context.Context) Permission {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return PermissionUnsupported
	}
	if m.permission != PermissionDefault {
		return m.permission
	}

	if !m.client.IsConnected() {
		token := m.client.Connect()
		if !token.WaitTimeout(mqttTimeout) {
			log.Ctx(ctx).WarnContext(ctx, "mqtt connect timed out", slog.String("broker", m.broker))
			return m.permission
		}
		if err := token.Error(); err != nil {
			if errors.Is(err, packets.ErrorRefusedNotAuthorised) || errors.Is(err, packets.ErrorRefusedBadUsernameOrPassword) {
				m.permission = PermissionDenied
			}
			log.Ctx(ctx).WarnContext(ctx, "mqtt connect failed", slog.String("broker", m.broker), slog.Any("error", err))
			return m.permission
		}
	}
	m.permission = PermissionGranted
	return m.permission
}

// Dispatch implements Notifier.
func (m *MQTT) Dispatch(ctx context.Context, title, body string) error {
	if m.Permission(ctx) != PermissionGranted {
		return ErrNotGranted
	}
	payload, err := json.Marshal(mqttMessage{
		Title:  title,
		Body:   body,
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	token := m.client.Publish(m.topic, 1, false, payload)
	if !token.WaitTimeout(mqttTimeout) {
		return fmt.Errorf("timed out publishing to %s", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", m.topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() error {
	if m.client != nil && m.client.IsConnected() {
		m.client.Disconnect(250)
	}
	return nil
}
