package logging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"
)

// SentryHandler reports ERROR+ records as Sentry events. Attributes become
// event extras; an "error" attribute also becomes the exception.
type SentryHandler struct {
	hub   *sentry.Hub
	attrs []slog.Attr
}

func NewSentryHandler(hub *sentry.Hub) *SentryHandler {
	return &SentryHandler{hub: hub}
}

func (h *SentryHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelError
}

func (h *SentryHandler) Handle(ctx context.Context, record slog.Record) error {
	hub := h.hub
	if ctxHub := sentry.GetHubFromContext(ctx); ctxHub != nil {
		hub = ctxHub
	}
	if hub == nil {
		return nil
	}

	event := sentry.NewEvent()
	event.Level = sentry.LevelError
	event.Message = record.Message
	event.Timestamp = record.Time

	var cause error
	add := func(a slog.Attr) bool {
		if a.Key == "error" {
			if err, ok := a.Value.Any().(error); ok {
				cause = err
			}
		}
		event.Extra[a.Key] = a.Value.Any()
		return true
	}
	for _, a := range h.attrs {
		add(a)
	}
	record.Attrs(add)

	if cause != nil {
		event.Exception = []sentry.Exception{{
			Type:  fmt.Sprintf("%T", cause),
			Value: cause.Error(),
		}}
	}
	hub.CaptureEvent(event)
	return nil
}

func (h *SentryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &SentryHandler{hub: h.hub, attrs: merged}
}

func (h *SentryHandler) WithGroup(string) slog.Handler {
	return h
}
