package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/stacktrace"
)

// dispatch runs handler with the message correlation id in ctx and turns a
// panic into an error so the broker redelivers instead of the process dying.
func dispatch(ctx context.Context, driver string, handler Handler, msg *Message) (err error) {
	if cID := msg.Header(HeaderCorrelationID); cID != "" {
		ctx = instrument.SetCorrelationID(ctx, cID)
	}

	defer func() {
		if rvr := recover(); rvr != nil {
			stack := debug.Stack()
			if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
				slog.ErrorContext(ctx, "panic in messaging handler", "driver", driver, "topic", msg.Topic, "panic", rvr, "stack", paths)
			} else {
				slog.ErrorContext(ctx, "panic in messaging handler", "driver", driver, "topic", msg.Topic, "panic", rvr, "stack", string(stack))
			}
			err = fmt.Errorf("messaging: panic in %s handler: %v", driver, rvr)
		}
	}()

	return handler(ctx, msg)
}
