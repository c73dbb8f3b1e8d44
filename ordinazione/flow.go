// Package ordinazione validates an order form, sends the cart to the
// restaurant and reports the outcome.
package ordinazione

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/taldoflemis/trattoria/avvisi"
	"github.com/taldoflemis/trattoria/carrello"
)

var (
	tracer = otel.Tracer("ordinazione")
	meter  = otel.Meter("ordinazione")
)

type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateSending    State = "sending"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

const (
	DefaultRedirectDelay = 2 * time.Second
	DefaultHistoryPath   = "/profile/orders"
)

// Navigator moves the user to another view.
type Navigator interface {
	Navigate(ctx context.Context, path string)
}

type Config struct {
	RedirectDelay time.Duration
	HistoryPath   string
	Now           func() time.Time
}

// Result is the outcome of one submission. Trace lists every state visited.
type Result struct {
	State   State
	OrderID OrderID
	Err     error
	Trace   []State
}

type Flow struct {
	cart       *carrello.Cart
	dispatcher Dispatcher
	notifier   avvisi.Notifier
	navigator  Navigator
	cfg        Config

	submissions metric.Int64Counter
}

func NewFlow(cart *carrello.Cart, dispatcher Dispatcher, notifier avvisi.Notifier, navigator Navigator, cfg Config) (*Flow, error) {
	submissions, err := meter.Int64Counter(
		"ordinazione.submissions",
		metric.WithDescription("Number of order submissions by mode and outcome"),
		metric.WithUnit("{submission}"),
	)
	if err != nil {
		return nil, err
	}

	if cfg.RedirectDelay <= 0 {
		cfg.RedirectDelay = DefaultRedirectDelay
	}
	if cfg.HistoryPath == "" {
		cfg.HistoryPath = DefaultHistoryPath
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if notifier == nil {
		notifier = avvisi.NopNotifier{}
	}

	return &Flow{
		cart:        cart,
		dispatcher:  dispatcher,
		notifier:    notifier,
		navigator:   navigator,
		cfg:         cfg,
		submissions: submissions,
	}, nil
}

func (f *Flow) SubmitDelivery(ctx context.Context, form DeliveryForm) Result {
	return f.Submit(ctx, form)
}

func (f *Flow) SubmitDineIn(ctx context.Context, form DineInForm) Result {
	return f.Submit(ctx, form)
}

// Submit runs one submission. Validation failures never reach the network
// and the cart is only cleared once the server confirmed the order.
func (f *Flow) Submit(ctx context.Context, form Form) Result {
	mode := form.Mode()
	ctx, span := tracer.Start(ctx, "Flow.Submit", trace.WithAttributes(
		attribute.String("ordinazione.mode", string(mode)),
	))
	defer span.End()

	res := Result{State: StateIdle, Trace: []State{StateIdle}}
	advance := func(s State) {
		res.State = s
		res.Trace = append(res.Trace, s)
		span.AddEvent("state", trace.WithAttributes(attribute.String("ordinazione.state", string(s))))
	}

	advance(StateValidating)
	form = form.normalized()
	items := f.cart.Snapshot()
	if err := check(form, items, f.cfg.Now()); err != nil {
		advance(StateFailed)
		return f.fail(ctx, span, mode, res, err)
	}

	advance(StateSending)
	slog.InfoContext(ctx, "sending order", slog.String("mode", string(mode)), slog.Int("lines", len(items)))
	receipt, err := f.dispatcher.Send(ctx, form.request(items))
	if err != nil {
		advance(StateFailed)
		var submitErr *SubmitError
		if !errors.As(err, &submitErr) {
			submitErr = newSubmitError(ReasonNetworkFailure, MsgNetworkFailure, err)
		}
		return f.fail(ctx, span, mode, res, submitErr)
	}

	advance(StateSucceeded)
	res.OrderID = receipt.OrderID
	f.cart.Clear(ctx)
	f.notifier.Notify(ctx, avvisi.LevelSuccess, successMessage(mode, receipt.OrderID))
	f.submissions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", string(mode)),
		attribute.String("outcome", string(StateSucceeded)),
	))
	slog.InfoContext(ctx, "order created", slog.String("mode", string(mode)), slog.String("order-id", string(receipt.OrderID)))

	if f.navigator != nil {
		navCtx := context.WithoutCancel(ctx)
		time.AfterFunc(f.cfg.RedirectDelay, func() {
			f.navigator.Navigate(navCtx, f.cfg.HistoryPath)
		})
	}
	return res
}

func (f *Flow) fail(ctx context.Context, span trace.Span, mode Mode, res Result, err *SubmitError) Result {
	res.Err = err
	span.SetStatus(codes.Error, string(err.Reason))
	if err.Err != nil {
		span.RecordError(err.Err)
	}
	f.submissions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", string(mode)),
		attribute.String("outcome", string(err.Reason)),
	))
	slog.WarnContext(ctx, "order not submitted", slog.String("mode", string(mode)), slog.String("reason", string(err.Reason)), slog.Any("err", err))
	f.notifier.Notify(ctx, avvisi.LevelError, err.Message)
	return res
}

func successMessage(mode Mode, id OrderID) string {
	if mode == ModeDineIn {
		return "Order and reservation created! Order number: " + string(id)
	}
	return "Order created! Order number: " + string(id)
}
