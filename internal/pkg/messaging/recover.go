package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/shandysiswandi/clovigo/internal/pkg/stacktrace"
)

// handle runs handler with panic recovery and applies auto-ack.
func handle(ctx context.Context, kind string, handler Handler, msg Message, autoAck bool) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			stack := debug.Stack()
			if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
				slog.ErrorContext(ctx, "panic in messaging handler", "kind", kind, "panic", rvr, "stack", paths)
			} else {
				slog.ErrorContext(ctx, "panic in messaging handler", "kind", kind, "panic", rvr, "stack", string(stack))
			}
			err = fmt.Errorf("pkgmessage: panic in %s handler: %v", kind, rvr)
		}

		if !autoAck {
			return
		}
		if err == nil {
			if aerr := msg.Ack(ctx); aerr != nil {
				slog.WarnContext(ctx, "failed to ack message", "kind", kind, "error", aerr)
			}
			return
		}
		if nerr := msg.Nack(ctx); nerr != nil {
			slog.WarnContext(ctx, "failed to nack message", "kind", kind, "error", nerr)
		}
	}()

	return handler(ctx, msg)
}
