package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/findmymua/fmm-backend/pkg/logger"
	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// NoopPublisher satisfies Publisher when no broker is configured (tests,
// local runs without NATS).
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (NoopPublisher) Close() error                                       { return nil }

// Event subjects
const (
	AccountRegistered      = "account.registered"
	PasswordResetRequested = "password.reset.requested"
	PasswordResetCompleted = "password.reset.completed"
	OrderCreated           = "order.created"
)

// Event payloads
type AccountRegisteredEvent struct {
	AccountID    int64     `json:"account_id"`
	Kind         string    `json:"kind"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registered_at"`
}

type PasswordResetRequestedEvent struct {
	AccountID   int64     `json:"account_id"`
	Kind        string    `json:"kind"`
	RequestedAt time.Time `json:"requested_at"`
}

type PasswordResetCompletedEvent struct {
	AccountID   int64     `json:"account_id"`
	Kind        string    `json:"kind"`
	CompletedAt time.Time `json:"completed_at"`
}

type OrderCreatedEvent struct {
	OrderID   int64     `json:"order_id"`
	AccountID int64     `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
}
