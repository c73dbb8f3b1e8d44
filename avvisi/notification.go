// Package avvisi shows short-lived user notifications on one or more sinks.
//
// Every notification has a message, a level and a display duration; once the
// duration elapses it is dismissed on every sink it was shown on.
package avvisi

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("avvisi")

const DefaultDuration = 3 * time.Second

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Color is the hex colour of the level; unknown levels fall back to info.
func (l Level) Color() string {
	switch l {
	case LevelSuccess:
		return "#27ae60"
	case LevelError:
		return "#e74c3c"
	case LevelWarning:
		return "#f39c12"
	default:
		return "#3498db"
	}
}

type Notification struct {
	ID        uuid.UUID     `json:"id"`
	Message   string        `json:"message"`
	Level     Level         `json:"level"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// Notifier is what the rest of the storefront depends on.
type Notifier interface {
	Notify(ctx context.Context, level Level, message string)
}

type Sink interface {
	Show(ctx context.Context, n Notification) error
	Dismiss(ctx context.Context, n Notification) error
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Level, string) {}

var _ Notifier = NopNotifier{}

type Center struct {
	sinks    []Sink
	duration time.Duration
	now      func() time.Time

	mu     sync.Mutex
	active map[uuid.UUID]*activeNotification
}

type activeNotification struct {
	notification Notification
	timer        *time.Timer
}

var _ Notifier = (*Center)(nil)

// NewCenter creates a Center; a non-positive duration means DefaultDuration.
func NewCenter(duration time.Duration, sinks ...Sink) *Center {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Center{
		sinks:    sinks,
		duration: duration,
		now:      time.Now,
		active:   make(map[uuid.UUID]*activeNotification),
	}
}

// Notify implements Notifier with the center's default duration.
func (c *Center) Notify(ctx context.Context, level Level, message string) {
	c.Show(ctx, level, message, c.duration)
}

// Show displays message on every sink and schedules its dismissal.
func (c *Center) Show(ctx context.Context, level Level, message string, duration time.Duration) Notification {
	ctx, span := tracer.Start(ctx, "Center.Show", trace.WithAttributes(
		attribute.String("avvisi.level", string(level)),
	))
	defer span.End()

	if duration <= 0 {
		duration = c.duration
	}

	n := Notification{
		ID:        uuid.New(),
		Message:   message,
		Level:     level,
		Duration:  duration,
		CreatedAt: c.now(),
	}

	for _, sink := range c.sinks {
		if err := sink.Show(ctx, n); err != nil {
			slog.WarnContext(ctx, "failed to show notification", slog.String("notification-id", n.ID.String()), slog.Any("err", err))
		}
	}

	dismissCtx := context.WithoutCancel(ctx)
	c.mu.Lock()
	c.active[n.ID] = &activeNotification{
		notification: n,
		timer:        time.AfterFunc(duration, func() { c.dismiss(dismissCtx, n.ID) }),
	}
	c.mu.Unlock()

	return n
}

func (c *Center) dismiss(ctx context.Context, id uuid.UUID) {
	c.mu.Lock()
	entry, ok := c.active[id]
	if ok {
		delete(c.active, id)
	}
	c.mu.Unlock()
	if !ok {
		return
	}

	for _, sink := range c.sinks {
		if err := sink.Dismiss(ctx, entry.notification); err != nil {
			slog.WarnContext(ctx, "failed to dismiss notification", slog.String("notification-id", id.String()), slog.Any("err", err))
		}
	}
}

// Dismiss removes a notification before its duration elapses.
func (c *Center) Dismiss(ctx context.Context, id uuid.UUID) {
	c.mu.Lock()
	if entry, ok := c.active[id]; ok {
		entry.timer.Stop()
	}
	c.mu.Unlock()
	c.dismiss(ctx, id)
}

// Active returns the notifications still on screen, oldest first.
func (c *Center) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Notification, 0, len(c.active))
	for _, entry := range c.active {
		out = append(out, entry.notification)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Close stops pending dismissal timers without touching the sinks.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, entry := range c.active {
		entry.timer.Stop()
		delete(c.active, id)
	}
}
