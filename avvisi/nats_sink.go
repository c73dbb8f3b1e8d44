package avvisi

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/taldoflemis/trattoria/pacchetto/telemetry"
)

// MsgPublisher is satisfied by *nats.Conn.
type MsgPublisher interface {
	PublishMsg(msg *nats.Msg) error
}

type natsEvent struct {
	Event string `json:"event"`
	Notification
}

// NATSSink publishes every shown and dismissed notification on
// <prefix>.<level>.
type NATSSink struct {
	pub    MsgPublisher
	prefix string
}

var _ Sink = (*NATSSink)(nil)

func NewNATSSink(pub MsgPublisher, prefix string) *NATSSink {
	if prefix == "" {
		prefix = "storefront.notifications"
	}
	return &NATSSink{pub: pub, prefix: prefix}
}

func (s *NATSSink) Show(ctx context.Context, n Notification) error {
	return s.publish(ctx, "shown", n)
}

func (s *NATSSink) Dismiss(ctx context.Context, n Notification) error {
	return s.publish(ctx, "dismissed", n)
}

func (s *NATSSink) Subject(level Level) string {
	return s.prefix + "." + string(level)
}

func (s *NATSSink) publish(ctx context.Context, event string, n Notification) error {
	subject := s.Subject(n.Level)
	ctx, span := tracer.Start(ctx, "NATSSink.publish", trace.WithAttributes(
		attribute.String("messaging.destination", subject),
		attribute.String("avvisi.event", event),
	))
	defer span.End()

	data, err := json.Marshal(natsEvent{Event: event, Notification: n})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to marshal notification")
		return err
	}

	msg := &nats.Msg{Subject: subject, Data: data}
	telemetry.InjectContextToNatsMsg(ctx, msg)

	if err := s.pub.PublishMsg(msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to publish notification")
		return err
	}
	return nil
}
