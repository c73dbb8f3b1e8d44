package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/taldoflemis/trattoria/carrello"
	"github.com/taldoflemis/trattoria/ordinazione"
)

// syncWriter serializes writes coming from the prompt, notification timers
// and the seat poller.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// terminalView draws the cart and follows navigation requests.
type terminalView struct {
	out   io.Writer
	seats atomic.Int64
	path  atomic.Value
}

var (
	_ carrello.View         = (*terminalView)(nil)
	_ ordinazione.Navigator = (*terminalView)(nil)
)

func newTerminalView(out io.Writer) *terminalView {
	v := &terminalView{out: out}
	v.seats.Store(-1)
	v.path.Store("/")
	return v
}

func (v *terminalView) ShowCount(_ context.Context, count int) {
	fmt.Fprintf(v.out, "cart: %d\n", count)
}

func (v *terminalView) ShowCart(ctx context.Context, p carrello.Projection) {
	if err := carrello.RenderText(v.out, p); err != nil {
		slog.WarnContext(ctx, "failed to render cart", slog.Any("err", err))
	}
}

func (v *terminalView) Navigate(ctx context.Context, path string) {
	v.path.Store(path)
	slog.InfoContext(ctx, "navigating", slog.String("path", path))
	fmt.Fprintf(v.out, "-> %s\n", path)
}

// Location is the path of the view the user is on.
func (v *terminalView) Location() string {
	return v.path.Load().(string)
}

func (v *terminalView) ReportSeats(_ context.Context, seats int) {
	v.seats.Store(int64(seats))
}

// Seats returns the last reported seat count, or -1 when unknown.
func (v *terminalView) Seats() int {
	return int(v.seats.Load())
}
