// Package events publishes inventory domain events to NATS JetStream.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const (
	streamName = "INVENTORY"

	SubjectSyncCompleted     = "inventory.sync.completed"
	SubjectTransferCompleted = "inventory.transfer.completed"
)

// Publisher emits domain events. A nil Publisher is valid and publishes
// nothing, so callers never need to guard for disabled eventing.
type Publisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *logrus.Entry
}

// NewPublisher connects to NATS and ensures the inventory stream exists.
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	if natsURL == "" {
		return nil, fmt.Errorf("NATS URL is required")
	}
	log := logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	nc, err := nats.Connect(natsURL,
		nats.Name("channel-inventory-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if _, err := js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{"inventory.>"},
	}); err != nil && err != nats.ErrStreamNameAlreadyInUse {
		log.WithError(err).Warn("Failed to ensure inventory stream exists")
	}

	return &Publisher{
		nc:     nc,
		js:     js,
		logger: log.WithField("component", "events"),
	}, nil
}

// Close drains the NATS connection.
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	_ = p.nc.Drain()
}

// SyncCompletedEvent is emitted once per finished sync invocation.
type SyncCompletedEvent struct {
	Channel     string    `json:"channel"`
	VendorID    string    `json:"vendorId"`
	SyncType    string    `json:"syncType"`
	Status      string    `json:"status"`
	ItemsSynced int       `json:"itemsSynced"`
	ItemsFailed int       `json:"itemsFailed"`
	DurationMS  int64     `json:"durationMs"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// TransferCompletedEvent is emitted after an atomic stock transfer commits.
type TransferCompletedEvent struct {
	TransferID      string    `json:"transferId"`
	TransferNumber  string    `json:"transferNumber"`
	FromWarehouseID string    `json:"fromWarehouseId"`
	ToWarehouseID   string    `json:"toWarehouseId"`
	TotalQuantity   int       `json:"totalQuantity"`
	OccurredAt      time.Time `json:"occurredAt"`
}

// PublishSyncCompleted publishes an inventory.sync.completed event.
func (p *Publisher) PublishSyncCompleted(event *SyncCompletedEvent) {
	p.publish(SubjectSyncCompleted, event)
}

// PublishTransferCompleted publishes an inventory.transfer.completed event.
func (p *Publisher) PublishTransferCompleted(event *TransferCompletedEvent) {
	p.publish(SubjectTransferCompleted, event)
}

func (p *Publisher) publish(subject string, event interface{}) {
	if p == nil || p.js == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.WithError(err).WithField("subject", subject).Error("Failed to marshal event")
		return
	}
	if _, err := p.js.Publish(subject, payload); err != nil {
		p.logger.WithError(err).WithField("subject", subject).Error("Failed to publish event")
		return
	}
	p.logger.WithField("subject", subject).Debug("Published event")
}
