// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package neo2

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards all records. Enabled returns false, so
// disabled logging skips message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// logger stores the active logger. SetLogger may be called
// concurrently with logging, so access is atomic.
var logger atomic.Pointer[slog.Logger]

func init() {
	l := slog.New(nopHandler{})
	logger.Store(l)
}

// SetLogger sets the logger this package logs through.
// Nothing is logged by default; device selection and surface
// negotiation log at Info, swap chain rebuilds at Debug.
// Passing nil restores the silent default.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	logger.Store(l)
}

// Logger returns the logger in use.
func Logger() *slog.Logger { return logger.Load() }
