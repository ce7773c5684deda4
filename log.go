package threadpool

import (
	"context"
	"log/slog"
)

// discardHandler drops every record, it is the default when Options.Logger is nil.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }

func workerAttr(id int) slog.Attr {
	return slog.Int("worker_id", id)
}
