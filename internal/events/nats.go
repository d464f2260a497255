package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const subjectPrefix = "procurement."

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher mirrors bus events to NATS subjects procurement.<topic>.
type NATSPublisher struct {
	pub    publisher
	conn   *nats.Conn
	logger *zap.Logger
}

func ConnectNATS(url string, logger *zap.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("procurement-api"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSPublisher{pub: nc, conn: nc, logger: logger}, nil
}

func Subject(t Topic) string {
	return subjectPrefix + string(t)
}

// Handle publishes e as JSON. Failures are logged and never returned, so a
// broker outage cannot fail the operation that raised the event.
func (p *NATSPublisher) Handle(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		p.logger.Warn("skipping event mirror", zap.String("topic", string(e.Topic)), zap.Error(err))
		return nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		p.logger.Error("failed to encode event", zap.String("topic", string(e.Topic)), zap.Error(err))
		return nil
	}
	if err := p.pub.Publish(Subject(e.Topic), data); err != nil {
		p.logger.Warn("failed to mirror event to NATS", zap.String("topic", string(e.Topic)), zap.Error(err))
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("failed to drain NATS connection", zap.Error(err))
		p.conn.Close()
	}
}
