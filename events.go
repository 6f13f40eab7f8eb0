package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"wood-empire/session"
)

const eventSubjectPrefix = "woodempire.events."

func eventSubject(slot string) string {
	return eventSubjectPrefix + slot
}

// EventPublisher forwards applied transitions to NATS, one subject per save slot.
type EventPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func connectEvents(url string, logger *slog.Logger) (*EventPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name(serviceName),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats at %s: %w", url, err)
	}
	logger.Info("publishing game events", "url", conn.ConnectedUrl())
	return &EventPublisher{conn: conn, logger: logger}, nil
}

// Transitioned publishes ev. Publish only queues the message; failures are logged and dropped.
func (p *EventPublisher) Transitioned(ctx context.Context, ev session.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.ErrorContext(ctx, "error encoding game event", "slot", ev.Slot, "error", err)
		return
	}
	if err := p.conn.Publish(eventSubject(ev.Slot), data); err != nil {
		p.logger.ErrorContext(ctx, "error publishing game event", "slot", ev.Slot, "error", err)
	}
}

// Close flushes queued events and closes the connection.
func (p *EventPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
