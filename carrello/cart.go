package carrello

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/taldoflemis/trattoria/avvisi"
)

const (
	MsgItemAdded    = "Item added to cart"
	MsgInvalidPrice = "This dish has an invalid price"
)

var meter = otel.Meter("carrello")

// View receives the cart after every change.
type View interface {
	// ShowCount refreshes the badge with the total quantity.
	ShowCount(ctx context.Context, count int)
	// ShowCart redraws the cart listing.
	ShowCart(ctx context.Context, p Projection)
}

type nopView struct{}

func (nopView) ShowCount(context.Context, int)        {}
func (nopView) ShowCart(context.Context, Projection) {}

// Cart is the single in-memory copy of the cart. Every mutation persists the
// full snapshot before returning.
type Cart struct {
	mu       sync.Mutex
	items    []LineItem
	store    *Store
	view     View
	notifier avvisi.Notifier

	mutations metric.Int64Counter
}

type Option func(*Cart)

func WithView(v View) Option {
	return func(c *Cart) { c.view = v }
}

func WithNotifier(n avvisi.Notifier) Option {
	return func(c *Cart) { c.notifier = n }
}

// Open hydrates the cart from the store and shows the initial count.
func Open(ctx context.Context, store *Store, opts ...Option) (*Cart, error) {
	mutations, err := meter.Int64Counter(
		"carrello.mutations",
		metric.WithDescription("Number of cart mutations"),
		metric.WithUnit("{mutation}"),
	)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create mutations counter", slog.Any("err", err))
		return nil, err
	}

	c := &Cart{
		store:     store,
		view:      nopView{},
		notifier:  avvisi.NopNotifier{},
		mutations: mutations,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.items = store.Load(ctx)
	c.view.ShowCount(ctx, totalQuantity(c.items))
	slog.InfoContext(ctx, "cart opened", slog.Int("lines", len(c.items)))
	return c, nil
}

// AddItem bumps the quantity of id or appends it with quantity 1. A negative
// price is refused and the cart is left untouched.
func (c *Cart) AddItem(ctx context.Context, id int64, name string, price decimal.Decimal, image string) {
	ctx, span := c.start(ctx, "add", itemAttr(id))
	defer span.End()

	if price.IsNegative() {
		slog.WarnContext(ctx, "refusing item with negative price", slog.Int64("item-id", id), slog.String("price", price.String()))
		span.SetStatus(codes.Error, "negative price")
		c.notifier.Notify(ctx, avvisi.LevelError, MsgInvalidPrice)
		return
	}

	c.mu.Lock()
	if idx := c.indexLocked(id); idx >= 0 {
		c.items[idx].Quantity++
	} else {
		c.items = append(c.items, LineItem{
			ID:        id,
			Name:      name,
			UnitPrice: price,
			Image:     image,
			Quantity:  1,
		})
	}
	c.saveLocked(ctx)
	c.mu.Unlock()

	c.notifier.Notify(ctx, avvisi.LevelSuccess, MsgItemAdded)
}

// UpdateQuantity applies delta to the quantity of id. Reaching zero removes
// the line; unknown ids are ignored.
func (c *Cart) UpdateQuantity(ctx context.Context, id int64, delta int) {
	ctx, span := c.start(ctx, "update", itemAttr(id))
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexLocked(id)
	if idx < 0 {
		return
	}
	if c.items[idx].Quantity+delta <= 0 {
		c.removeLocked(ctx, id)
		return
	}
	c.items[idx].Quantity += delta
	c.saveLocked(ctx)
	c.renderLocked(ctx)
}

func (c *Cart) RemoveItem(ctx context.Context, id int64) {
	ctx, span := c.start(ctx, "remove", itemAttr(id))
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(ctx, id)
}

func (c *Cart) Clear(ctx context.Context) {
	ctx, span := c.start(ctx, "clear")
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = []LineItem{}
	c.saveLocked(ctx)
	c.renderLocked(ctx)
}

// Snapshot returns a copy the caller may keep or modify.
func (c *Cart) Snapshot() []LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneItems(c.items)
}

func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return totalQuantity(c.items)
}

// Render redraws the view without changing anything.
func (c *Cart) Render(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderLocked(ctx)
}

// Close flushes the cart one last time.
func (c *Cart) Close(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Save(ctx, c.items)
}

func (c *Cart) start(ctx context.Context, op string, spanAttrs ...attribute.KeyValue) (context.Context, trace.Span) {
	opAttr := attribute.String("op", op)
	c.mutations.Add(ctx, 1, metric.WithAttributes(opAttr))
	return tracer.Start(ctx, "Cart."+op, trace.WithAttributes(append(spanAttrs, opAttr)...))
}

func itemAttr(id int64) attribute.KeyValue {
	return attribute.Int64("carrello.item_id", id)
}

func (c *Cart) indexLocked(id int64) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Cart) removeLocked(ctx context.Context, id int64) {
	kept := c.items[:0:0]
	for _, item := range c.items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	c.items = kept
	c.saveLocked(ctx)
	c.renderLocked(ctx)
}

func (c *Cart) saveLocked(ctx context.Context) {
	c.store.Save(ctx, c.items)
	c.view.ShowCount(ctx, totalQuantity(c.items))
}

func (c *Cart) renderLocked(ctx context.Context) {
	c.view.ShowCart(ctx, Project(c.items))
}

func totalQuantity(items []LineItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}
