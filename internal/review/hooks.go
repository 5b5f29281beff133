package review

import (
	"context"
	"fmt"

	"github.com/joescharf/reviewbot/internal/metrics"
)

// hook is a side effect run after a successful state change.
type hook struct {
	name string
	fn   func(ctx context.Context) error
}

// runHooks runs each hook in its own failure boundary. Errors and panics are
// logged and counted; they never reach the caller and never stop later hooks.
func (s *Service) runHooks(ctx context.Context, op, reviewID string, hooks ...hook) {
	for _, h := range hooks {
		err := safeCall(ctx, h.fn)
		if err != nil {
			metrics.Notifications.WithLabelValues(h.name, "failed").Inc()
			s.logger.Warn().
				Err(err).
				Str("op", op).
				Str("hook", h.name).
				Str("review_id", reviewID).
				Msg("notification failed")
			continue
		}
		metrics.Notifications.WithLabelValues(h.name, "sent").Inc()
		s.logger.Debug().
			Str("op", op).
			Str("hook", h.name).
			Str("review_id", reviewID).
			Msg("notification sent")
	}
}

func safeCall(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
