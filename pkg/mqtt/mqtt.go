// Package mqtt publishes acquisition results to a broker. Publishing is
// fire-and-forget through a buffered channel so the acquisition path never
// stalls on a slow or absent broker.
package mqtt

import (
	"encoding/json"
	"fmt"

	mqttlib "github.com/eclipse/paho.mqtt.golang"
	"github.com/womat/debug"
)

// quiesce is the specified number of milliseconds to wait for existing work
// to be completed on disconnect.
const quiesce = 250

// queueLen bounds the number of unsent messages kept while the broker is
// unreachable; beyond it new messages are dropped.
const queueLen = 16

// Handler is the connection to the mqtt broker.
type Handler struct {
	client mqttlib.Client
	// C queues outgoing messages; Service drains it.
	C chan Message
}

// Message contains the properties of one mqtt message.
type Message struct {
	Topic    string
	Payload  []byte
	Qos      byte
	Retained bool
}

// New generates a new mqtt broker client.
func New() *Handler {
	return &Handler{
		C: make(chan Message, queueLen),
	}
}

// Connect connects to the mqtt broker. If no broker is defined, publishing
// becomes a no-op.
func (m *Handler) Connect(broker string) error {
	if broker == "" {
		return nil
	}

	opts := mqttlib.NewClientOptions().AddBroker(broker).SetAutoReconnect(true)
	m.client = mqttlib.NewClient(opts)

	t := m.client.Connect()
	<-t.Done()
	return t.Error()
}

// Disconnect ends the connection to the broker.
func (m *Handler) Disconnect() error {
	if m.client == nil {
		return nil
	}
	m.client.Disconnect(quiesce)
	return nil
}

// Publish queues a JSON encoding of v on the given topic. The message is
// dropped with a log entry when the queue is full.
func (m *Handler) Publish(topic string, retained bool, v interface{}) error {
	if m.client == nil || topic == "" {
		return nil
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("mqtt: could not encode message for %q: %w", topic, err)
	}

	select {
	case m.C <- Message{Topic: topic, Payload: payload, Retained: retained}:
	default:
		debug.WarningLog.Printf("mqtt queue full, dropping message for %q", topic)
	}
	return nil
}

// Service drains the message channel and sends to the broker. It returns
// when the channel is closed; run it in its own goroutine.
func (m *Handler) Service() {
	for msg := range m.C {
		if m.client == nil || msg.Topic == "" {
			continue
		}

		if !m.client.IsConnected() {
			debug.DebugLog.Print("mqtt broker isn't connected, reconnecting")
			t := m.client.Connect()
			<-t.Done()
			if err := t.Error(); err != nil {
				debug.ErrorLog.Printf("can't reconnect to mqtt broker: %v", err)
				continue
			}
		}

		debug.TraceLog.Printf("publishing %d bytes to topic %v", len(msg.Payload), msg.Topic)
		t := m.client.Publish(msg.Topic, msg.Qos, msg.Retained, msg.Payload)

		// the asynchronous nature of this library makes it easy to forget
		// to check for errors, so log them from a goroutine.
		go func(topic string, t mqttlib.Token) {
			<-t.Done()
			if err := t.Error(); err != nil {
				debug.ErrorLog.Printf("publishing topic %v: %v", topic, err)
			}
		}(msg.Topic, t)
	}
}
