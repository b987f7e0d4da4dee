package hooks

import (
	"context"
	"log/slog"
)

// Runner holds the configured hooks and runs them for a given event,
// sequentially, in configuration order.
type Runner struct {
	hooks       []Hook
	stopOnError bool
	logger      *slog.Logger
}

// NewRunner builds a Runner over hooks. stopOnError resolves an
// otherwise-unspecified behavior: by default (false) a hook that errors or
// times out only logs a warning and the remaining hooks still run; when
// true, an error aborts the rest of the hooks for that event (still not
// treated as a deny).
func NewRunner(hooks []Hook, stopOnError bool, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{hooks: hooks, stopOnError: stopOnError, logger: logger}
}

// Outcome is the net effect of running every hook configured for an event.
type Outcome struct {
	Denied bool
	Reason string
}

// RunEvent runs every hook bound to ev in order. The first deny wins and
// short-circuits the remaining hooks (first-deny-wins). A hook that
// errors or times out is logged as a warning; whether that also stops
// evaluation of later hooks depends on r.stopOnError.
func (r *Runner) RunEvent(ctx context.Context, ev Event, input Input) Outcome {
	input.Event = ev
	for _, h := range r.hooks {
		if h.Event != ev {
			continue
		}
		result := h.Run(ctx, input)
		switch result.Verdict {
		case VerdictDeny:
			return Outcome{Denied: true, Reason: result.Reason}
		case VerdictError:
			r.logger.Warn("hook exited with an error or timed out",
				"event", ev, "command", h.Command, "reason", result.Reason, "error", result.Err)
			if r.stopOnError {
				return Outcome{}
			}
		case VerdictApprove:
			// continue to the next hook
		}
	}
	return Outcome{}
}
