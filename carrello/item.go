// Package carrello keeps the shopping cart: its durable slot, the mutation
// API used by the storefront commands and the derived totals.
package carrello

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// LineItem is one dish in the cart. The same shape is stored in the slot and
// sent inside the order payload.
type LineItem struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"quantity" validate:"min=1"`
}

// MarshalJSON writes the price as a JSON number instead of decimal's default
// quoted string.
func (l LineItem) MarshalJSON() ([]byte, error) {
	type wire LineItem
	return json.Marshal(struct {
		wire
		UnitPrice json.Number `json:"price"`
	}{
		wire:      wire(l),
		UnitPrice: json.Number(l.UnitPrice.String()),
	})
}

func cloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
