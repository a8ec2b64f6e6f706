// ABOUTME: Publishes activity entries to NATS so other services can follow backend mutations.
// ABOUTME: A no-op publisher stands in when no NATS URL is configured.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/2389-research/neurogems/activity"
	"github.com/nats-io/nats.go"
)

// SubjectPrefix is prepended to the activity action to form the subject.
const SubjectPrefix = "neurogems.activity."

// Subject returns the NATS subject for an action, e.g. "neurogems.activity.add_model".
func Subject(action string) string { return SubjectPrefix + action }

// Publisher is an activity sink that can be closed.
type Publisher interface {
	activity.Sink
	Close() error
}

// NATSPublisher publishes JSON-encoded entries.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string, opts ...nats.Option) (*NATSPublisher, error) {
	defaults := []nats.Option{
		nats.Name("neurogems"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Record(ctx context.Context, e activity.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling entry: %w", err)
	}
	return p.conn.Publish(Subject(e.Action), data)
}

// Flush waits until published entries reach the server.
func (p *NATSPublisher) Flush() error {
	return p.conn.Flush()
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

// NoopPublisher drops every entry.
type NoopPublisher struct{}

func (n *NoopPublisher) Record(ctx context.Context, e activity.Entry) error {
	return nil
}

func (n *NoopPublisher) Close() error {
	return nil
}

// New returns a NATS publisher for url, or a no-op publisher when url is empty.
func New(url string) (Publisher, error) {
	if url == "" {
		return &NoopPublisher{}, nil
	}
	return NewNATSPublisher(url)
}
