package mqttbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/schooltrack/fleet-tracking/internal/models"
	"github.com/schooltrack/fleet-tracking/internal/tracking"
)

// Ingestor accepts position reports; satisfied by *tracking.Service.
type Ingestor interface {
	Record(ctx context.Context, vehicleID string, report tracking.Report) (*models.Telemetry, error)
}

// Bridge subscribes to device telemetry published over MQTT and feeds it
// through the same ingest path as the HTTP endpoint. Topics follow
// fleet/<vehicleID>/telemetry; the payload is the same JSON report body.
type Bridge struct {
	client mqtt.Client
	ingest Ingestor
	topic  string
	qos    byte
}

// New creates a bridge for the given broker. Start must be called to
// connect and subscribe.
func New(broker, clientID, topic string, qos byte, ingest Ingestor) *Bridge {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(10 * time.Second)
	return &Bridge{
		client: mqtt.NewClient(opts),
		ingest: ingest,
		topic:  topic,
		qos:    qos,
	}
}

// Start connects to the broker and subscribes to the telemetry topic.
func (b *Bridge) Start() error {
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connecting to mqtt broker: %w", token.Error())
	}
	if token := b.client.Subscribe(b.topic, b.qos, b.handleMessage); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribing to %s: %w", b.topic, token.Error())
	}
	log.WithField("topic", b.topic).Info("MQTT telemetry bridge started")
	return nil
}

// Stop disconnects from the broker.
func (b *Bridge) Stop() {
	b.client.Disconnect(250)
}

func (b *Bridge) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	vehicleID, ok := vehicleIDFromTopic(msg.Topic())
	if !ok {
		log.WithField("topic", msg.Topic()).Warn("Ignoring telemetry on unexpected topic")
		return
	}

	var report tracking.Report
	if err := json.Unmarshal(msg.Payload(), &report); err != nil {
		log.WithError(err).WithField("vehicle_id", vehicleID).Warn("Dropping malformed MQTT telemetry")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := b.ingest.Record(ctx, vehicleID, report); err != nil {
		// The device keeps reporting; the next message retries naturally.
		log.WithError(err).WithField("vehicle_id", vehicleID).Warn("MQTT telemetry rejected")
	}
}

// vehicleIDFromTopic extracts the vehicle ID from fleet/<id>/telemetry.
func vehicleIDFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[2] != "telemetry" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
