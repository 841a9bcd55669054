package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSSink publishes rendered notifications to a NATS subject so other
// tooling can consume discoveries programmatically.
type NATSSink struct {
	conn    *nats.Conn
	subject string
}

func NewNATS(url, subject string) (*NATSSink, error) {
	conn, err := nats.Connect(url,
		nats.Name("subwatch"),
		nats.Timeout(10*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	return &NATSSink{conn: conn, subject: subject}, nil
}

func (n *NATSSink) Name() string { return "nats" }

func (n *NATSSink) Deliver(_ context.Context, message string) error {
	if err := n.conn.Publish(n.subject, []byte(message)); err != nil {
		return fmt.Errorf("publish to %s: %w", n.subject, err)
	}
	if err := n.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("flush nats connection: %w", err)
	}
	return nil
}

// Close drains the connection. Called on shutdown.
func (n *NATSSink) Close() {
	n.conn.Close()
}
