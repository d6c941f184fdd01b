package clients

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// NATSClient publishes backend events (revocations recorded, claims
// issued, rewards submitted) to NATS, optionally through JetStream
type NATSClient struct {
	conn      *nats.Conn
	js        nats.JetStreamContext
	useStream bool
}

// NewNATSClient connects to the NATS server. When enableJetStream is set,
// the events stream is created if missing.
func NewNATSClient(url string, timeout time.Duration, enableJetStream bool, streamName string, subjects []string) (*NATSClient, error) {
	conn, err := nats.Connect(url,
		nats.Timeout(timeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	client := &NATSClient{conn: conn}

	if enableJetStream {
		js, err := conn.JetStream()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to get JetStream context: %w", err)
		}

		if _, err := js.StreamInfo(streamName); err != nil {
			_, err = js.AddStream(&nats.StreamConfig{
				Name:     streamName,
				Subjects: subjects,
				Storage:  nats.FileStorage,
			})
			if err != nil {
				conn.Close()
				return nil, fmt.Errorf("failed to create stream %s: %w", streamName, err)
			}
			logrus.WithField("stream", streamName).Info("✅ Created JetStream stream")
		}

		client.js = js
		client.useStream = true
	}

	return client, nil
}

// Publish marshals the payload as JSON and publishes it on the subject
func (c *NATSClient) Publish(subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	if c.useStream {
		if _, err := c.js.Publish(subject, data); err != nil {
			return fmt.Errorf("failed to publish to %s: %w", subject, err)
		}
		return nil
	}

	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Close drains and closes the connection
func (c *NATSClient) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}
