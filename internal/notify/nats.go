package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/postbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/postbuilder/internal/logfields"
)

// NATSPublisher publishes events on <subject>.document and <subject>.build.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to url. The connection retries on its own after
// the first successful connect.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("postbuilder"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNetwork, "failed to connect to NATS").
			WithContext("url", url).Retryable().Build()
	}
	slog.Info("NATS publisher connected", logfields.URL(url), slog.String("subject", subject))
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

// DocumentSubject is the subject per-post events are published on.
func (p *NATSPublisher) DocumentSubject() string { return p.subject + ".document" }

// BuildSubject is the subject build summaries are published on.
func (p *NATSPublisher) BuildSubject() string { return p.subject + ".build" }

func (p *NATSPublisher) PublishDocument(_ context.Context, ev DocumentEvent) error {
	return p.publish(p.DocumentSubject(), ev)
}

// PublishBuild flushes so the summary is on the wire before the build returns.
func (p *NATSPublisher) PublishBuild(ctx context.Context, ev BuildEvent) error {
	if err := p.publish(p.BuildSubject(), ev); err != nil {
		return err
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "failed to flush NATS connection").Build()
	}
	return nil
}

func (p *NATSPublisher) publish(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal event").Build()
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "failed to publish event").
			WithContext("subject", subject).Retryable().Build()
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
