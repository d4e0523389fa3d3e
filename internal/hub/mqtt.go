package hub

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// mqttPublisher republishes every hub event to an MQTT broker
// (SPEC_FULL.md §4.9 expansion), one message per event under
// "<topic>/<tag>".
type mqttPublisher struct {
	client mqtt.Client
	topic  string
}

// NewMQTTPublisher dials broker and wires publishing into this
// server's event loop.
func (s *Server) NewMQTTPublisher(broker, clientID, topic string) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("hub: mqtt connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("hub: mqtt connect: %w", token.Error())
	}

	s.mqtt = &mqttPublisher{client: client, topic: topic}
	return nil
}

func (m *mqttPublisher) publish(ev Event) {
	body, err := json.Marshal(eventPayload(ev))
	if err != nil {
		log.Printf("hub: mqtt marshal for tag %s: %v", ev.Tag, err)
		return
	}
	topic := fmt.Sprintf("%s/%s", m.topic, ev.Tag)
	token := m.client.Publish(topic, 0, false, body)
	if token.Wait() && token.Error() != nil {
		log.Printf("hub: mqtt publish to %s: %v", topic, token.Error())
	}
}
