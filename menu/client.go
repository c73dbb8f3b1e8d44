// Package menu reads the restaurant menu and renders it for the terminal.
package menu

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/taldoflemis/trattoria/avvisi"
)

var tracer = otel.Tracer("menu")

const (
	DefaultImage  = "/static/images/default-dish.jpg"
	MsgLoadFailed = "Failed to load menu. Try again later."
)

type Item struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
}

// ImageOrDefault is what the storefront shows for the dish.
func (i Item) ImageOrDefault() string {
	if i.Image == "" {
		return DefaultImage
	}
	return i.Image
}

type Category struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Items       []Item `json:"items"`
}

// Client fetches the menu and remembers the last successful result so
// items can be looked up by id.
type Client struct {
	http     *http.Client
	endpoint string
	notifier avvisi.Notifier

	mu   sync.RWMutex
	last []Category
}

func NewClient(client *http.Client, baseURL string, notifier avvisi.Notifier) *Client {
	if notifier == nil {
		notifier = avvisi.NopNotifier{}
	}
	return &Client{
		http:     client,
		endpoint: strings.TrimRight(baseURL, "/") + "/api/menu",
		notifier: notifier,
	}
}

func (c *Client) Fetch(ctx context.Context) ([]Category, error) {
	ctx, span := tracer.Start(ctx, "Client.Fetch")
	defer span.End()

	categories, err := c.fetch(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load menu", slog.Any("err", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load menu")
		c.notifier.Notify(ctx, avvisi.LevelError, MsgLoadFailed)
		return nil, err
	}

	span.SetAttributes(attribute.Int("menu.categories", len(categories)))
	c.mu.Lock()
	c.last = categories
	c.mu.Unlock()
	return categories, nil
}

func (c *Client) fetch(ctx context.Context) ([]Category, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("menu endpoint returned %d", resp.StatusCode)
	}

	var categories []Category
	if err := json.NewDecoder(resp.Body).Decode(&categories); err != nil {
		return nil, fmt.Errorf("decoding menu: %w", err)
	}
	return categories, nil
}

// Find looks id up in the last fetched menu.
func (c *Client) Find(id int64) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, category := range c.last {
		for _, item := range category.Items {
			if item.ID == id {
				return item, true
			}
		}
	}
	return Item{}, false
}

// Filter keeps the categories whose name matches, ignoring case. An empty
// name keeps everything.
func Filter(categories []Category, name string) []Category {
	if name == "" {
		return categories
	}
	var out []Category
	for _, category := range categories {
		if strings.EqualFold(category.Name, name) {
			out = append(out, category)
		}
	}
	return out
}
