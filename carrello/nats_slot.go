package carrello

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// NATSSlot stores the entry under one key of a JetStream KeyValue bucket.
type NATSSlot struct {
	kv  jetstream.KeyValue
	key string
}

var (
	_ Slot   = (*NATSSlot)(nil)
	_ Pinger = (*NATSSlot)(nil)
)

// NewNATSSlot creates the bucket when missing. Only the latest revision of
// the cart is kept.
func NewNATSSlot(ctx context.Context, nc *nats.Conn, bucket, key string) (*NATSSlot, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create jetstream context", slog.Any("err", err))
		return nil, err
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "storefront cart",
		History:     1,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create key value bucket", slog.String("bucket", bucket), slog.Any("err", err))
		return nil, err
	}

	return newNATSSlot(kv, key), nil
}

func newNATSSlot(kv jetstream.KeyValue, key string) *NATSSlot {
	if key == "" {
		key = DefaultKey
	}
	return &NATSSlot{kv: kv, key: key}
}

func (n *NATSSlot) Get(ctx context.Context) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "NATSSlot.Get", trace.WithAttributes(attribute.String("carrello.key", n.key)))
	defer span.End()

	entry, err := n.kv.Get(ctx, n.key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, ErrSlotEmpty
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get cart entry")
		return nil, fmt.Errorf("getting %q from bucket: %w", n.key, err)
	}
	return entry.Value(), nil
}

func (n *NATSSlot) Put(ctx context.Context, data []byte) error {
	ctx, span := tracer.Start(ctx, "NATSSlot.Put", trace.WithAttributes(attribute.String("carrello.key", n.key)))
	defer span.End()

	if _, err := n.kv.Put(ctx, n.key, data); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to put cart entry")
		return fmt.Errorf("putting %q into bucket: %w", n.key, err)
	}
	return nil
}

func (n *NATSSlot) Ping(ctx context.Context) error {
	_, err := n.kv.Status(ctx)
	return err
}
