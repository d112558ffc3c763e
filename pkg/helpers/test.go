package helpers

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/GregMSThompson/finance-tracker/pkg/logger"
)

// TestCtx returns a context carrying a logger that discards everything.
func TestCtx() context.Context {
	log := slog.New(logger.NewTestHandler(slog.LevelInfo))
	return logger.ToContext(context.Background(), log)
}

// CaptureCtx returns a context whose logger writes Cloud Run JSON lines at
// level and above into the returned buffer.
func CaptureCtx(level slog.Level) (context.Context, *bytes.Buffer) {
	buf := new(bytes.Buffer)
	log := slog.New(logger.NewCloudRunHandlerTo(buf, level))
	return logger.ToContext(context.Background(), log), buf
}
