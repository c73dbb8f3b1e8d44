package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	healthgo "github.com/hellofresh/health-go/v5"
	"github.com/nats-io/nats.go"

	"github.com/taldoflemis/trattoria/carrello"
)

// newHealth builds the checks reported by the doctor command. nc may be nil.
func newHealth(settings *Settings, slot carrello.Slot, client *http.Client, nc *nats.Conn) (*healthgo.Health, error) {
	checks := []healthgo.Option{
		healthgo.WithComponent(healthgo.Component{
			Name:    settings.App.Name,
			Version: settings.App.Version,
		}),
		healthgo.WithChecks(healthgo.Config{
			Name:    "cart-storage",
			Timeout: 2 * time.Second,
			Check: func(ctx context.Context) error {
				if p, ok := slot.(carrello.Pinger); ok {
					return p.Ping(ctx)
				}
				_, err := slot.Get(ctx)
				if errors.Is(err, carrello.ErrSlotEmpty) {
					return nil
				}
				return err
			},
		}),
		healthgo.WithChecks(healthgo.Config{
			Name:    "restaurant-api",
			Timeout: settings.HTTP.Timeout(),
			Check: func(ctx context.Context) error {
				url := strings.TrimRight(settings.HTTP.BaseURL, "/") + "/api/menu"
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
				if err != nil {
					return err
				}
				resp, err := client.Do(req)
				if err != nil {
					return err
				}
				defer resp.Body.Close()
				if resp.StatusCode >= http.StatusInternalServerError {
					return fmt.Errorf("restaurant api returned %d", resp.StatusCode)
				}
				return nil
			},
		}),
	}

	if nc != nil {
		checks = append(checks, healthgo.WithChecks(healthgo.Config{
			Name: "nats",
			Check: func(context.Context) error {
				if !nc.IsConnected() {
					return errors.New("NATS connection is not active")
				}
				return nil
			},
		}))
	}

	return healthgo.New(checks...)
}
