// Package events fans job lifecycle events out to downstream consumers over
// RabbitMQ. Publishing is best-effort: a broker outage never fails the
// client-facing request.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/x402dev/paygate/shared/rabbitmq"
)

// Event kinds
const (
	KindAuthorized = "job.authorized"
	KindVerified   = "job.verified"
	KindExecuted   = "job.executed"
	KindExpired    = "job.expired"
)

// JobEvent is the message published for each lifecycle transition
type JobEvent struct {
	Kind       string    `json:"event"`
	JobID      string    `json:"job_id"`
	JobType    string    `json:"job_type,omitempty"`
	Payer      string    `json:"payer,omitempty"`
	PriceOctas int64     `json:"price_octas,omitempty"`
	TxHash     string    `json:"tx_hash,omitempty"`
	At         time.Time `json:"at"`
}

// Publisher publishes job lifecycle events
type Publisher interface {
	Publish(ctx context.Context, ev JobEvent)
}

// AMQPPublisher publishes events through the RabbitMQ client
type AMQPPublisher struct {
	client *rabbitmq.Client
	logger *slog.Logger
}

// NewAMQPPublisher creates a publisher backed by the given client
func NewAMQPPublisher(client *rabbitmq.Client, logger *slog.Logger) *AMQPPublisher {
	return &AMQPPublisher{
		client: client,
		logger: logger,
	}
}

// Publish marshals and publishes the event, logging failures instead of
// propagating them.
func (p *AMQPPublisher) Publish(ctx context.Context, ev JobEvent) {
	body, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("Failed to marshal job event",
			slog.String("event", ev.Kind),
			slog.String("job_id", ev.JobID),
			slog.Any("error", err),
		)
		return
	}

	if err := p.client.Publish(ctx, body, "application/json"); err != nil {
		p.logger.Error("Failed to publish job event",
			slog.String("event", ev.Kind),
			slog.String("job_id", ev.JobID),
			slog.Any("error", err),
		)
	}
}

// Nop discards all events. Used when no broker is configured and in tests.
type Nop struct{}

// Publish implements Publisher
func (Nop) Publish(context.Context, JobEvent) {}
