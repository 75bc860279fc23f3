// Package log routes slog records into the running TUI while keeping a
// bounded tail for display.
package log

import (
	"context"
	"log/slog"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

const tailSize = 20

// Msg is a tea.Msg carrying one log record.
type Msg slog.Record

// Handler is a slog.Handler that forwards records to a tea program and
// retains the most recent ones.
type Handler struct {
	slog.Handler

	mu   sync.Mutex
	ch   chan<- tea.Msg
	tail []slog.Record
}

// NewHandler wraps an inner handler. Records pass through to it as well.
func NewHandler(inner slog.Handler) *Handler {
	return &Handler{Handler: inner}
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	h.tail = append(h.tail, r)
	if len(h.tail) > tailSize {
		h.tail = h.tail[1:]
	}
	ch := h.ch
	h.mu.Unlock()

	if ch != nil {
		ch <- Msg(r)
	}
	return h.Handler.Handle(ctx, r)
}

// SetOutput directs future records at a tea program's message channel.
func (h *Handler) SetOutput(ch chan<- tea.Msg) {
	h.mu.Lock()
	h.ch = ch
	h.mu.Unlock()
}

// Tail returns the retained records, oldest first.
func (h *Handler) Tail() []slog.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]slog.Record{}, h.tail...)
}

var defaultHandler *Handler

// Init installs a forwarding handler as the slog default.
func Init(inner slog.Handler) {
	defaultHandler = NewHandler(inner)
	slog.SetDefault(slog.New(defaultHandler))
}

// SetOutput directs the default handler at a tea program.
func SetOutput(ch chan<- tea.Msg) {
	if defaultHandler != nil {
		defaultHandler.SetOutput(ch)
	}
}

// Tail returns the default handler's retained records.
func Tail() []slog.Record {
	if defaultHandler == nil {
		return nil
	}
	return defaultHandler.Tail()
}
