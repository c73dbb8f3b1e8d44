package ordinazione

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/taldoflemis/trattoria/carrello"
)

// OrderRequest is the body POSTed to the order endpoint.
type OrderRequest struct {
	Items           []carrello.LineItem `json:"items"`
	DeliveryAddress string              `json:"delivery_address,omitempty"`
	Phone           string              `json:"phone"`
	Notes           string              `json:"notes"`
	OrderType       string              `json:"order_type,omitempty"`
	ReservationTime *time.Time          `json:"reservation_time,omitempty"`
	GuestsCount     int                 `json:"guests_count,omitempty"`
}

// OrderID accepts both numeric and string ids from the server.
type OrderID string

func (o *OrderID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*o = OrderID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("order_id: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("order_id %q is not an integer", n)
	}
	*o = OrderID(n.String())
	return nil
}

// Receipt is the body of a successful order response.
type Receipt struct {
	Success bool    `json:"success"`
	OrderID OrderID `json:"order_id"`
}

type rejection struct {
	Error string `json:"error"`
}
