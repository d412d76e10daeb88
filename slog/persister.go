package slog

import (
	"context"
	"log/slog"

	"github.com/fwojciec/webgrab"
)

// Ensure LoggingPersister implements webgrab.Persister.
var _ webgrab.Persister = (*LoggingPersister)(nil)

// LoggingPersister wraps a Persister with logging. Rejections and
// suspicious files are logged at warning level.
type LoggingPersister struct {
	next   webgrab.Persister
	logger *slog.Logger
}

// NewLoggingPersister creates a new LoggingPersister.
func NewLoggingPersister(next webgrab.Persister, logger *slog.Logger) *LoggingPersister {
	return &LoggingPersister{next: next, logger: logger}
}

// Save delegates to the wrapped persister and logs the outcome.
func (p *LoggingPersister) Save(ctx context.Context, url string, declared webgrab.ResourceType, content webgrab.ContentFunc) (outcome *webgrab.Outcome, err error) {
	defer func() {
		level := slog.LevelInfo
		attrs := []any{"url", url, "declared", declared}
		switch {
		case err != nil:
			level = slog.LevelError
			attrs = append(attrs, "err", err)
		case !outcome.Accepted():
			level = slog.LevelWarn
			if outcome != nil {
				attrs = append(attrs, "reason", outcome.Reason)
			}
		default:
			attrs = append(attrs,
				"type", outcome.File.Type,
				"path", outcome.File.Path,
				"existing", outcome.Existing,
			)
			if outcome.Warning != "" {
				level = slog.LevelWarn
				attrs = append(attrs, "warning", outcome.Warning)
			}
		}
		p.logger.Log(ctx, level, "save", attrs...)
	}()
	return p.next.Save(ctx, url, declared, content)
}
