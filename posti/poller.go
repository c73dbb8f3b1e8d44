// Package posti polls the restaurant for free seats while the ordering view
// is open.
package posti

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/taldoflemis/trattoria/avvisi"
	"github.com/taldoflemis/trattoria/pacchetto"
)

var (
	tracer = otel.Tracer("posti")
	meter  = otel.Meter("posti")
)

const (
	DefaultInterval  = 10 * time.Second
	DefaultThreshold = 10
)

type Config struct {
	Interval     time.Duration
	Threshold    int
	JitterFactor float64
	Seed         uint64
}

type availability struct {
	AvailableSeats *int `json:"available_seats"`
}

type Poller struct {
	client   *http.Client
	endpoint string
	notifier avvisi.Notifier
	report   func(ctx context.Context, seats int)
	cfg      Config

	seats metric.Int64Gauge
}

// NewPoller creates a Poller; report may be nil.
func NewPoller(client *http.Client, baseURL string, notifier avvisi.Notifier, report func(ctx context.Context, seats int), cfg Config) (*Poller, error) {
	seats, err := meter.Int64Gauge(
		"posti.available_seats",
		metric.WithDescription("Last reported number of free seats"),
		metric.WithUnit("{seat}"),
	)
	if err != nil {
		return nil, err
	}

	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if notifier == nil {
		notifier = avvisi.NopNotifier{}
	}
	if report == nil {
		report = func(context.Context, int) {}
	}

	return &Poller{
		client:   client,
		endpoint: strings.TrimRight(baseURL, "/") + "/api/available_seats",
		notifier: notifier,
		report:   report,
		cfg:      cfg,
		seats:    seats,
	}, nil
}

// Run checks immediately and then once per interval until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	slog.InfoContext(ctx, "seat poller started", slog.Duration("interval", p.cfg.Interval))

	for tick := uint64(0); ; tick++ {
		if _, err := p.Check(ctx); err != nil && ctx.Err() == nil {
			slog.WarnContext(ctx, "failed to check available seats", slog.Any("err", err))
		}

		timer := time.NewTimer(pacchetto.Jitter(p.cfg.Seed+tick, p.cfg.Interval, p.cfg.JitterFactor))
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.InfoContext(ctx, "seat poller stopped")
			return
		case <-timer.C:
		}
	}
}

// Check fetches the seat count once, reports it and warns when seats are
// running out.
func (p *Poller) Check(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "Poller.Check")
	defer span.End()

	seats, err := p.fetch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch seats")
		return 0, err
	}

	span.SetAttributes(attribute.Int("posti.available_seats", seats))
	p.seats.Record(ctx, int64(seats))
	p.report(ctx, seats)
	if seats < p.cfg.Threshold {
		p.notifier.Notify(ctx, avvisi.LevelWarning, "Only "+strconv.Itoa(seats)+" seats left!")
	}
	return seats, nil
}

func (p *Poller) fetch(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("seats endpoint returned %d", resp.StatusCode)
	}

	var body availability
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decoding seats: %w", err)
	}
	if body.AvailableSeats == nil {
		return 0, fmt.Errorf("response has no available_seats")
	}
	return *body.AvailableSeats, nil
}
