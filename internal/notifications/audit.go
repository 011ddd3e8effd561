// Package notifications publishes side-records about handled assistant
// queries. Publishing is strictly fire-and-forget: the query path never
// waits on or fails because of the event bus.
package notifications

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DetailTypeQueryHandled is the EventBridge detail-type of query audit
// records.
const DetailTypeQueryHandled = "assistant.query.handled"

// AuditRecord describes one handled query. It carries no message text, only
// the classification outcome and result shape.
type AuditRecord struct {
	ID         string    `json:"id"`
	CallerID   string    `json:"callerId"`
	Intent     string    `json:"intent"`
	DateQuery  string    `json:"dateQuery"`
	EntryCount int       `json:"entryCount"`
	Degraded   []string  `json:"degraded,omitempty"`
	HandledAt  time.Time `json:"handledAt"`
}

// AuditPublisher emits audit records.
type AuditPublisher interface {
	QueryHandled(ctx context.Context, record AuditRecord)
}

// EventBridgeAuditPublisher publishes audit records to an EventBridge bus.
type EventBridgeAuditPublisher struct {
	client   *eventbridge.Client
	eventBus string
	source   string
	logger   *zap.Logger
}

// NewEventBridgeAuditPublisher creates the publisher. Empty bus and source
// fall back to "default" and "carelink-backend".
func NewEventBridgeAuditPublisher(client *eventbridge.Client, eventBus, source string, logger *zap.Logger) *EventBridgeAuditPublisher {
	if eventBus == "" {
		eventBus = "default"
	}
	if source == "" {
		source = "carelink-backend"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBridgeAuditPublisher{
		client:   client,
		eventBus: eventBus,
		source:   source,
		logger:   logger,
	}
}

// QueryHandled publishes a single audit record. Failures are logged and
// swallowed; an audit gap never degrades the query path.
func (p *EventBridgeAuditPublisher) QueryHandled(ctx context.Context, record AuditRecord) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.HandledAt.IsZero() {
		record.HandledAt = time.Now()
	}

	detail, err := json.Marshal(record)
	if err != nil {
		p.logger.Warn("audit record marshal failed", zap.Error(err))
		return
	}

	output, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{
			{
				EventBusName: aws.String(p.eventBus),
				Source:       aws.String(p.source),
				DetailType:   aws.String(DetailTypeQueryHandled),
				Detail:       aws.String(string(detail)),
				Time:         aws.Time(record.HandledAt),
			},
		},
	})
	if err != nil {
		p.logger.Warn("audit publish failed", zap.String("auditId", record.ID), zap.Error(err))
		return
	}
	if output.FailedEntryCount > 0 {
		p.logger.Warn("audit entry rejected by event bus", zap.String("auditId", record.ID))
	}
}

// NopAuditPublisher drops every record. Used in tests and when no event bus
// is configured.
type NopAuditPublisher struct{}

func (NopAuditPublisher) QueryHandled(context.Context, AuditRecord) {}
