package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"productos/internal/models"

	"github.com/google/uuid"
)

// Event types published after a successful write.
const (
	ProductCreated = "product.created"
	ProductUpdated = "product.updated"
	ProductDeleted = "product.deleted"
)

// ProductEvent describes a change to a product.
type ProductEvent struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Product    models.Product `json:"product"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewProductEvent stamps a product change with a fresh id and time.
func NewProductEvent(eventType string, product models.Product) ProductEvent {
	return ProductEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Product:    product,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers product events somewhere outside the process.
type Publisher interface {
	Publish(ctx context.Context, event ProductEvent) error
	Close() error
}

// Sender is the broker-specific half of a Publisher: it moves an encoded
// message to a destination chosen by key.
type Sender interface {
	Send(ctx context.Context, key string, body []byte) error
	Close() error
}

// BrokerPublisher encodes events as JSON and hands them to a Sender,
// keyed by event type.
type BrokerPublisher struct {
	sender Sender
}

// NewBrokerPublisher wraps sender.
func NewBrokerPublisher(sender Sender) *BrokerPublisher {
	return &BrokerPublisher{sender: sender}
}

// Publish encodes and sends event.
func (p *BrokerPublisher) Publish(ctx context.Context, event ProductEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.Type, err)
	}
	if err := p.sender.Send(ctx, event.Type, body); err != nil {
		return fmt.Errorf("failed to send %s event: %w", event.Type, err)
	}
	return nil
}

// Close closes the underlying sender.
func (p *BrokerPublisher) Close() error {
	return p.sender.Close()
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event ProductEvent) error { return nil }
func (NopPublisher) Close() error                                          { return nil }
