// Package mirror republishes every board update to a NATS subject so that
// other processes (displays, timing tools) can follow the race without a
// WebSocket connection.
package mirror

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "lapboard.state"

// Config holds the NATS connection settings.
type Config struct {
	URL           string
	Subject       string
	MaxReconnects int
	ReconnectWait time.Duration
}

// Publisher sends encoded state updates to one NATS subject.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// Connect dials NATS. Publishing is asynchronous; the connection buffers
// while reconnecting.
func Connect(cfg Config) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("mirror: nats url is empty")
	}
	subject := cfg.Subject
	if subject == "" {
		subject = DefaultSubject
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = -1
	}

	opts := []nats.Option{
		nats.Name("lapboard"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("mirror: nats disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("mirror: nats reconnected", "url", nc.ConnectedUrl())
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("mirror: connect to nats: %w", err)
	}
	return &Publisher{nc: nc, subject: subject}, nil
}

// Subject returns the subject updates are published on.
func (p *Publisher) Subject() string { return p.subject }

// Publish sends one encoded update.
func (p *Publisher) Publish(data []byte) error {
	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("mirror: publish %s: %w", p.subject, err)
	}
	return nil
}

// Close flushes buffered updates and closes the connection.
func (p *Publisher) Close() error {
	return p.nc.Drain()
}
