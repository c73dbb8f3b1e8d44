package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/taldoflemis/trattoria/avvisi"
	"github.com/taldoflemis/trattoria/carrello"
	"github.com/taldoflemis/trattoria/menu"
	"github.com/taldoflemis/trattoria/ordinazione"
	"github.com/taldoflemis/trattoria/pacchetto"
	"github.com/taldoflemis/trattoria/pacchetto/telemetry"
	"github.com/taldoflemis/trattoria/posti"
)

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()
	retcode := 0
	defer func() {
		os.Exit(retcode)
	}()

	slog.InfoContext(ctx, "Loading config")
	settings, err := pacchetto.LoadConfig[Settings]("VETRINA", baseConfig)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", slog.Any("err", err))
		retcode = 1
		return
	}

	otelShutdown, err := telemetry.SetupOTelSDK(ctx, settings.App, settings.OpenTelemetry, telemetry.WithLogWriter(os.Stderr))
	if err != nil {
		slog.ErrorContext(ctx, "failed to setup telemetry", slog.Any("err", err))
		retcode = 1
		return
	}
	defer func() {
		err = errors.Join(err, otelShutdown(context.WithoutCancel(ctx)))
		if err != nil {
			slog.ErrorContext(ctx, "failed to shutdown opentelemetry providers", slog.Any("err", err))
			retcode = 1
		}
	}()

	var nc *nats.Conn
	if settings.needsNats() {
		slog.InfoContext(ctx, "Connecting to NATS")
		nc, err = settings.Nats.GetNatsClient(settings.App.Name)
		if err != nil {
			slog.ErrorContext(ctx, "failed to connect to NATS", slog.Any("err", err))
			retcode = 1
			return
		}
		defer nc.Close()
	}

	slot, closeSlot, err := openSlot(ctx, settings, nc)
	if err != nil {
		slog.ErrorContext(ctx, "failed to open cart storage", slog.String("driver", settings.Storage.Driver), slog.Any("err", err))
		retcode = 1
		return
	}
	defer closeSlot()

	out := &syncWriter{w: os.Stdout}
	sinks := []avvisi.Sink{avvisi.NewTerminalSink(out, settings.Storefront.Color)}
	if settings.Notifications.PublishToNats {
		sinks = append(sinks, avvisi.NewNATSSink(nc, settings.Notifications.SubjectPrefix))
	}
	notifications := avvisi.NewCenter(settings.Notifications.Duration(), sinks...)
	defer notifications.Close()

	view := newTerminalView(out)
	cart, err := carrello.Open(ctx, carrello.NewStore(slot), carrello.WithView(view), carrello.WithNotifier(notifications))
	if err != nil {
		slog.ErrorContext(ctx, "failed to open cart", slog.Any("err", err))
		retcode = 1
		return
	}
	defer cart.Close(context.WithoutCancel(ctx))

	httpClient := pacchetto.CreateHTTPClient(settings.HTTP)
	flow, err := ordinazione.NewFlow(
		cart,
		ordinazione.NewHTTPDispatcher(httpClient, settings.HTTP.BaseURL, settings.Storefront.OrderPath),
		notifications,
		view,
		ordinazione.Config{
			RedirectDelay: settings.Storefront.RedirectDelay(),
			HistoryPath:   settings.Storefront.HistoryPath,
		},
	)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create order flow", slog.Any("err", err))
		retcode = 1
		return
	}

	health, err := newHealth(settings, slot, httpClient, nc)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create health checker", slog.Any("err", err))
		retcode = 1
		return
	}

	if settings.Seats.Enabled {
		poller, err := posti.NewPoller(httpClient, settings.HTTP.BaseURL, notifications, view.ReportSeats, posti.Config{
			Interval:     time.Duration(settings.Seats.IntervalInSeconds) * time.Second,
			Threshold:    settings.Seats.Threshold,
			JitterFactor: settings.Seats.JitterFactor,
			Seed:         uint64(time.Now().UnixNano()),
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to create seat poller", slog.Any("err", err))
			retcode = 1
			return
		}
		go poller.Run(ctx)
	}

	sh := newShell(os.Stdin, out, shellDeps{
		Cart:     cart,
		Menu:     menu.NewClient(httpClient, settings.HTTP.BaseURL, notifications),
		Flow:     flow,
		Health:   health,
		Notifier: notifications,
		View:     view,
		Layout:   settings.Storefront.ReservationLayout,
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- sh.Run(ctx)
	}()

	select {
	case err = <-errChan:
		if err != nil {
			slog.ErrorContext(ctx, "reading commands failed", slog.Any("err", err))
			retcode = 1
		}
	case <-ctx.Done():
		// Wait for first Signal arrives
	}

	slog.InfoContext(ctx, "Shutting down")
}

// openSlot picks the cart storage driver. The returned func releases its
// resources.
func openSlot(ctx context.Context, settings *Settings, nc *nats.Conn) (carrello.Slot, func(), error) {
	storage := settings.Storage
	switch storage.Driver {
	case "memory":
		return carrello.NewMemorySlot(), func() {}, nil
	case "file":
		return carrello.NewFileSlot(storage.FilePath), func() {}, nil
	case "nats":
		slot, err := carrello.NewNATSSlot(ctx, nc, storage.Bucket, storage.Key)
		if err != nil {
			return nil, nil, err
		}
		return slot, func() {}, nil
	case "postgres":
		pool, err := settings.Postgres.GetPostgresPool(ctx)
		if err != nil {
			return nil, nil, err
		}
		slot, err := carrello.NewPostgresSlot(ctx, pool, storage.Key)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return slot, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", storage.Driver)
	}
}
