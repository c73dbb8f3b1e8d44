package carrello

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("carrello")

var validate = validator.New()

// Store reads and writes the whole cart as one JSON array in its slot.
type Store struct {
	slot Slot
}

func NewStore(slot Slot) *Store {
	return &Store{slot: slot}
}

func (s *Store) Slot() Slot {
	return s.slot
}

// Load never fails: an absent, unreadable or malformed entry yields an empty
// cart.
func (s *Store) Load(ctx context.Context) []LineItem {
	ctx, span := tracer.Start(ctx, "Store.Load")
	defer span.End()

	data, err := s.slot.Get(ctx)
	if errors.Is(err, ErrSlotEmpty) {
		return []LineItem{}
	}
	if err != nil {
		slog.WarnContext(ctx, "failed to read cart, starting empty", slog.Any("err", err))
		return []LineItem{}
	}

	items, err := decodeItems(data)
	if err != nil {
		slog.WarnContext(ctx, "stored cart is malformed, starting empty", slog.Any("err", err))
		return []LineItem{}
	}
	return items
}

// Save overwrites the slot with the full snapshot. Failures are logged only.
func (s *Store) Save(ctx context.Context, items []LineItem) {
	ctx, span := tracer.Start(ctx, "Store.Save")
	defer span.End()

	if items == nil {
		items = []LineItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		slog.WarnContext(ctx, "failed to encode cart", slog.Any("err", err))
		return
	}
	if err := s.slot.Put(ctx, data); err != nil {
		slog.WarnContext(ctx, "failed to persist cart", slog.Any("err", err))
	}
}

func decodeItems(data []byte) ([]LineItem, error) {
	var items []LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(items))
	for i, item := range items {
		if err := validate.Struct(item); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if item.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("item %d: negative price %s", i, item.UnitPrice)
		}
		if _, dup := seen[item.ID]; dup {
			return nil, fmt.Errorf("item %d: duplicate id %d", i, item.ID)
		}
		seen[item.ID] = struct{}{}
	}

	if items == nil {
		items = []LineItem{}
	}
	return items, nil
}
