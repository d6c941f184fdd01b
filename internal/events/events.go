// Package events publishes backend lifecycle events to NATS. Publishing is
// best-effort: a broker outage never fails the originating request.
package events

import (
	"time"

	"go-backend/internal/clients"
	"go-backend/internal/config"

	"github.com/sirupsen/logrus"
)

// RevocationRecordedEvent is emitted when a client reports a completed
// on-chain revocation
type RevocationRecordedEvent struct {
	ChainID     int    `json:"chain_id"`
	Wallet      string `json:"wallet"`
	Token       string `json:"token"`
	Spender     string `json:"spender"`
	FID         uint64 `json:"fid"`
	TxHash      string `json:"tx_hash,omitempty"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	Timestamp   int64  `json:"timestamp"`
}

// ClaimIssuedEvent is emitted after the attester hands out a signature
type ClaimIssuedEvent struct {
	Shape     string `json:"shape"` // "attestation" | "voucher"
	FID       uint64 `json:"fid"`
	Wallet    string `json:"wallet"`
	ChainID   int    `json:"chain_id,omitempty"`
	Nonce     string `json:"nonce,omitempty"`
	Day       uint64 `json:"day,omitempty"`
	AmountWei string `json:"amount_wei,omitempty"`
	Deadline  int64  `json:"deadline"`
	Timestamp int64  `json:"timestamp"`
}

// RewardSubmittedEvent is emitted when the backend relays a claim tx itself
type RewardSubmittedEvent struct {
	ChainID   int    `json:"chain_id"`
	Wallet    string `json:"wallet"`
	FID       uint64 `json:"fid"`
	TxHash    string `json:"tx_hash"`
	Timestamp int64  `json:"timestamp"`
}

// Publisher wraps the NATS client; a nil Publisher or nil client is a
// no-op so the service runs without a broker
type Publisher struct {
	client *clients.NATSClient
	prefix string
}

// NewPublisher builds the publisher from config; returns a no-op publisher
// when NATS is not configured
func NewPublisher() *Publisher {
	if config.AppConfig == nil || config.AppConfig.NATS.URL == "" {
		logrus.Info("NATS not configured, event publishing disabled")
		return &Publisher{}
	}

	prefix := config.AppConfig.NATS.SubjectPrefix
	if prefix == "" {
		prefix = "revoke"
	}

	timeout := time.Duration(config.AppConfig.NATS.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client, err := clients.NewNATSClient(
		config.AppConfig.NATS.URL,
		timeout,
		config.AppConfig.NATS.EnableJetStream,
		"REVOKE_EVENTS",
		[]string{prefix + ".>"},
	)
	if err != nil {
		logrus.WithError(err).Warn("⚠️ NATS unavailable, event publishing disabled")
		return &Publisher{}
	}

	logrus.Info("✅ NATS event publisher initialized")
	return &Publisher{client: client, prefix: prefix}
}

func (p *Publisher) publish(subject string, payload interface{}) {
	if p == nil || p.client == nil {
		return
	}
	if err := p.client.Publish(subject, payload); err != nil {
		logrus.WithError(err).WithField("subject", subject).Warn("⚠️ Failed to publish event")
	}
}

// RevocationRecorded publishes a revocation.recorded event
func (p *Publisher) RevocationRecorded(event RevocationRecordedEvent) {
	event.Timestamp = time.Now().Unix()
	p.publish(p.prefix+".revocation.recorded", event)
}

// ClaimIssued publishes a claim.issued event
func (p *Publisher) ClaimIssued(event ClaimIssuedEvent) {
	event.Timestamp = time.Now().Unix()
	p.publish(p.prefix+".claim.issued", event)
}

// RewardSubmitted publishes a reward.submitted event
func (p *Publisher) RewardSubmitted(event RewardSubmittedEvent) {
	event.Timestamp = time.Now().Unix()
	p.publish(p.prefix+".reward.submitted", event)
}

// Close shuts down the underlying connection
func (p *Publisher) Close() {
	if p != nil && p.client != nil {
		p.client.Close()
	}
}
