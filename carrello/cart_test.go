package carrello

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taldoflemis/trattoria/avvisi"
)

type spyView struct {
	counts  []int
	renders []Projection
}

func (s *spyView) ShowCount(_ context.Context, n int)       { s.counts = append(s.counts, n) }
func (s *spyView) ShowCart(_ context.Context, p Projection) { s.renders = append(s.renders, p) }
func (s *spyView) lastCount() int                           { return s.counts[len(s.counts)-1] }

type spyNotifier struct {
	mu       sync.Mutex
	messages []string
	levels   []avvisi.Level
}

func (s *spyNotifier) Notify(_ context.Context, level avvisi.Level, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels = append(s.levels, level)
	s.messages = append(s.messages, msg)
}

func openCart(t *testing.T, slot Slot) (*Cart, *spyView, *spyNotifier) {
	t.Helper()
	view := &spyView{}
	notifier := &spyNotifier{}
	cart, err := Open(context.Background(), NewStore(slot), WithView(view), WithNotifier(notifier))
	require.NoError(t, err)
	return cart, view, notifier
}

func persisted(t *testing.T, slot Slot) []LineItem {
	t.Helper()
	return NewStore(slot).Load(context.Background())
}

// quantities reduces items to id -> quantity; decimals are not DeepEqual
// across a JSON round trip.
func quantities(items []LineItem) map[int64]int {
	out := make(map[int64]int, len(items))
	for _, item := range items {
		out[item.ID] = item.Quantity
	}
	return out
}

func TestOpenHydratesFromStore(t *testing.T) {
	// Arrange
	slot := NewMemorySlot()
	NewStore(slot).Save(context.Background(), []LineItem{
		{ID: 1, Name: "Pizza", UnitPrice: decimal.NewFromInt(10), Quantity: 2},
		{ID: 2, Name: "Cola", UnitPrice: decimal.NewFromInt(2), Quantity: 1},
	})

	// Act
	cart, view, _ := openCart(t, slot)

	// Assert
	assert.Len(t, cart.Snapshot(), 2)
	assert.Equal(t, 3, cart.Count())
	assert.Equal(t, []int{3}, view.counts)
}

func TestAddItem(t *testing.T) {
	tests := []struct {
		name      string
		adds      []int64
		wantLen   int
		wantQty   map[int64]int
		wantBadge int
	}{
		{name: "new item", adds: []int64{1}, wantLen: 1, wantQty: map[int64]int{1: 1}, wantBadge: 1},
		{name: "same item twice", adds: []int64{1, 1}, wantLen: 1, wantQty: map[int64]int{1: 2}, wantBadge: 2},
		{name: "two items", adds: []int64{1, 2, 1}, wantLen: 2, wantQty: map[int64]int{1: 2, 2: 1}, wantBadge: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			slot := NewMemorySlot()
			cart, view, notifier := openCart(t, slot)

			// Act
			for _, id := range tt.adds {
				cart.AddItem(context.Background(), id, "Dish", decimal.RequireFromString("9.90"), "/img.jpg")
			}

			// Assert
			snapshot := cart.Snapshot()
			require.Len(t, snapshot, tt.wantLen)
			for _, item := range snapshot {
				assert.Equal(t, tt.wantQty[item.ID], item.Quantity)
			}
			assert.Equal(t, quantities(snapshot), quantities(persisted(t, slot)))
			assert.Equal(t, tt.wantBadge, view.lastCount())
			assert.Empty(t, view.renders)
			assert.Len(t, notifier.messages, len(tt.adds))
			assert.Equal(t, MsgItemAdded, notifier.messages[0])
			assert.Equal(t, avvisi.LevelSuccess, notifier.levels[0])
		})
	}
}

func TestAddItemSurvivesReopen(t *testing.T) {
	// Arrange
	slot := NewMemorySlot()
	cart, _, _ := openCart(t, slot)
	ctx := context.Background()

	// Act
	cart.AddItem(ctx, 5, "Pizza", decimal.NewFromInt(10), "")
	cart.AddItem(ctx, 0, "Water", decimal.NewFromInt(1), "")
	cart.AddItem(ctx, 0, "Water", decimal.NewFromInt(1), "")
	cart.AddItem(ctx, 7, "Bread", decimal.Zero, "")
	reopened, view, _ := openCart(t, slot)

	// Assert
	assert.Equal(t, map[int64]int{5: 1, 0: 2, 7: 1}, quantities(reopened.Snapshot()))
	assert.Equal(t, quantities(cart.Snapshot()), quantities(reopened.Snapshot()))
	assert.Equal(t, []int{4}, view.counts)
}

func TestAddItemRejectsNegativePrice(t *testing.T) {
	// Arrange
	slot := NewMemorySlot()
	cart, view, notifier := openCart(t, slot)
	ctx := context.Background()
	cart.AddItem(ctx, 1, "Pizza", decimal.NewFromInt(10), "")

	// Act
	cart.AddItem(ctx, 6, "Refund", decimal.NewFromInt(-3), "")

	// Assert
	assert.Equal(t, map[int64]int{1: 1}, quantities(cart.Snapshot()))
	assert.Equal(t, map[int64]int{1: 1}, quantities(persisted(t, slot)))
	assert.Equal(t, []int{0, 1}, view.counts)
	require.Len(t, notifier.messages, 2)
	assert.Equal(t, MsgInvalidPrice, notifier.messages[1])
	assert.Equal(t, avvisi.LevelError, notifier.levels[1])
}

func TestUpdateQuantity(t *testing.T) {
	tests := []struct {
		name    string
		id      int64
		delta   int
		wantQty int
		wantLen int
		renders int
	}{
		{name: "increment", id: 1, delta: 1, wantQty: 3, wantLen: 1, renders: 1},
		{name: "decrement", id: 1, delta: -1, wantQty: 1, wantLen: 1, renders: 1},
		{name: "down to zero removes", id: 1, delta: -2, wantLen: 0, renders: 1},
		{name: "below zero removes", id: 1, delta: -5, wantLen: 0, renders: 1},
		{name: "unknown id is a no-op", id: 99, delta: 1, wantQty: 2, wantLen: 1, renders: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			slot := NewMemorySlot()
			NewStore(slot).Save(context.Background(), []LineItem{{ID: 1, Name: "Pizza", UnitPrice: decimal.NewFromInt(10), Quantity: 2}})
			cart, view, _ := openCart(t, slot)

			// Act
			cart.UpdateQuantity(context.Background(), tt.id, tt.delta)

			// Assert
			snapshot := cart.Snapshot()
			require.Len(t, snapshot, tt.wantLen)
			if tt.wantLen > 0 {
				assert.Equal(t, tt.wantQty, snapshot[0].Quantity)
			}
			assert.Equal(t, quantities(snapshot), quantities(persisted(t, slot)))
			assert.Len(t, view.renders, tt.renders)
		})
	}
}

func TestRemoveItemAndClear(t *testing.T) {
	// Arrange
	slot := NewMemorySlot()
	cart, view, _ := openCart(t, slot)
	ctx := context.Background()
	cart.AddItem(ctx, 1, "Pizza", decimal.NewFromInt(10), "")
	cart.AddItem(ctx, 2, "Cola", decimal.NewFromInt(2), "")

	// Act
	cart.RemoveItem(ctx, 1)
	cart.RemoveItem(ctx, 42)

	// Assert
	snapshot := cart.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, int64(2), snapshot[0].ID)
	assert.Equal(t, quantities(snapshot), quantities(persisted(t, slot)))

	cart.Clear(ctx)
	assert.Empty(t, cart.Snapshot())
	assert.Empty(t, persisted(t, slot))
	assert.Equal(t, 0, view.lastCount())
	assert.True(t, view.renders[len(view.renders)-1].Empty())
}

func TestSnapshotIsACopy(t *testing.T) {
	cart, _, _ := openCart(t, NewMemorySlot())
	cart.AddItem(context.Background(), 1, "Pizza", decimal.NewFromInt(10), "")

	snapshot := cart.Snapshot()
	snapshot[0].Quantity = 50

	assert.Equal(t, 1, cart.Snapshot()[0].Quantity)
}

func TestCloseFlushes(t *testing.T) {
	slot := NewMemorySlot()
	cart, _, _ := openCart(t, slot)
	cart.AddItem(context.Background(), 5, "Lasagna", decimal.NewFromInt(12), "")
	require.NoError(t, slot.Put(context.Background(), []byte(`garbage`)))

	cart.Close(context.Background())

	assert.Len(t, persisted(t, slot), 1)
}

func TestProjection(t *testing.T) {
	// Arrange
	items := []LineItem{
		{ID: 1, Name: "Pizza", UnitPrice: decimal.RequireFromString("10.50"), Quantity: 2},
		{ID: 2, Name: "Cola", UnitPrice: decimal.RequireFromString("1.99"), Quantity: 3},
	}

	// Act
	p := Project(items)

	// Assert
	require.Len(t, p.Rows, 2)
	assert.Equal(t, "21.00", FormatMoney(p.Rows[0].LineTotal))
	assert.Equal(t, "5.97", FormatMoney(p.Rows[1].LineTotal))
	assert.Equal(t, "26.97", FormatMoney(p.GrandTotal))
	assert.Equal(t, 5, p.ItemCount)
	assert.False(t, p.Empty())
}

func TestProjectionEmpty(t *testing.T) {
	p := Project(nil)

	assert.True(t, p.Empty())
	assert.True(t, p.GrandTotal.IsZero())
	assert.Equal(t, "0.00", FormatMoney(p.GrandTotal))
}

func TestRenderText(t *testing.T) {
	tests := []struct {
		name  string
		items []LineItem
		want  string
	}{
		{name: "empty", items: nil, want: "Cart is empty\n"},
		{
			name:  "one line",
			items: []LineItem{{ID: 1, Name: "Pizza", UnitPrice: decimal.NewFromInt(10), Quantity: 2}},
			want:  "#1 Pizza  10.00 x 2 = 20.00\nTotal: 20.00 (2 items)\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			err := RenderText(&buf, Project(tt.items))

			require.NoError(t, err)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
