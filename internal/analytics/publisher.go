package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/joshdurbin/shortlink/internal/domain"
)

// DefaultSubject is the NATS subject click events are published on
const DefaultSubject = "shortlink.clicks"

// Publisher fans recorded click events out to downstream aggregators.
// Publishing happens after the event is durable and is best effort.
type Publisher interface {
	Publish(ctx context.Context, event *domain.ClickEvent) error
	Close() error
}

// NATSPublisher publishes click events as JSON on a NATS subject
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to the NATS server at url
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}

	conn, err := nats.Connect(url,
		nats.Name("shortlink"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}

	return &NATSPublisher{conn: conn, subject: subject}, nil
}

// Publish sends event on the configured subject
func (p *NATSPublisher) Publish(ctx context.Context, event *domain.ClickEvent) error {
	data, err := Encode(event)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish click event %s: %w", event.ID, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// Encode serializes a click event for publishing
func Encode(event *domain.ClickEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode click event: %w", err)
	}
	return data, nil
}

// NopPublisher drops every event, used when no broker is configured
type NopPublisher struct{}

// Publish does nothing
func (NopPublisher) Publish(ctx context.Context, event *domain.ClickEvent) error {
	return nil
}

// Close does nothing
func (NopPublisher) Close() error {
	return nil
}

var (
	_ Publisher = (*NATSPublisher)(nil)
	_ Publisher = NopPublisher{}
)
