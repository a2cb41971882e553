// Package cli implements the stackpm command-line interface.
//
// The CLI is a thin layer over [pipeline.Runner]: it loads settings through
// [config], overlays command-line flags, picks the archive cache backend and
// renders results with lipgloss.
//
// # Commands
//
//   - install: resolve, optimize and link a project's dependencies
//   - tree: print the dependency tree as text, DOT or SVG
//   - cache: show or clear the archive cache
//   - completion: generate shell completion scripts
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which also
// logs every registry request and cache lookup. Loggers are passed through
// context.Context.
//
// [pipeline.Runner]: github.com/matzehuels/stackpm/pkg/pipeline.Runner
// [config]: github.com/matzehuels/stackpm/pkg/config
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger that timestamps lines as "HH:MM:SS.ms".
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx, or log.Default() if
// none is attached.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
