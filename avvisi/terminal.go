package avvisi

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// TerminalSink prints notifications as coloured lines.
type TerminalSink struct {
	mu    sync.Mutex
	w     io.Writer
	color bool
}

var _ Sink = (*TerminalSink)(nil)

func NewTerminalSink(w io.Writer, color bool) *TerminalSink {
	return &TerminalSink{w: w, color: color}
}

func (t *TerminalSink) Show(_ context.Context, n Notification) error {
	label := "[" + strings.ToUpper(string(n.Level)) + "]"
	if t.color {
		label = ansiColor(n.Level.Color()) + label + "\x1b[0m"
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintf(t.w, "%s %s\n", label, n.Message)
	return err
}

// Dismiss is a no-op: printed lines stay in the scrollback.
func (t *TerminalSink) Dismiss(context.Context, Notification) error {
	return nil
}

// ansiColor converts "#rrggbb" to a 24-bit foreground escape sequence.
func ansiColor(hex string) string {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return ""
	}
	rgb, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("\x1b[38;2;%d;%d;%dm", rgb>>16&0xff, rgb>>8&0xff, rgb&0xff)
}
