package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type ReapOutput struct {
	ChallengesDeleted int64
	SessionsDeleted   int64
}

// Reap purges challenges past the retention horizon and sessions past
// expiry. Reads never depend on it having run.
func (s *Usecase) Reap(ctx context.Context) (*ReapOutput, error) {
	ctx, span := s.startSpan(ctx, "Reap")
	defer span.End()

	st := s.settings()
	now := s.clock.Now()
	out := &ReapOutput{}

	var errs []error

	sctx, cancel := s.storeCtx(ctx)
	n, err := s.store.DeleteChallengesCreatedBefore(sctx, now.Add(-st.retention))
	cancel()
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo delete old challenges", "error", err)
		errs = append(errs, err)
	}
	out.ChallengesDeleted = n

	sctx, cancel = s.storeCtx(ctx)
	n, err = s.store.DeleteSessionsExpiredAt(sctx, now)
	cancel()
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo delete expired sessions", "error", err)
		errs = append(errs, err)
	}
	out.SessionsDeleted = n

	s.reaped.Add(ctx, out.ChallengesDeleted, metric.WithAttributes(attribute.String("kind", "challenge")))
	s.reaped.Add(ctx, out.SessionsDeleted, metric.WithAttributes(attribute.String("kind", "session")))

	if len(errs) > 0 {
		return out, errTransient(errors.Join(errs...))
	}

	prev := s.lastReap.Load()
	s.lastReap.Store(now)
	slog.InfoContext(ctx, "reaper pass finished",
		"challenges_deleted", out.ChallengesDeleted,
		"sessions_deleted", out.SessionsDeleted,
		"previous_run", prev,
	)

	return out, nil
}

// LastReap returns when the last fully successful pass finished, or the zero
// time.
func (s *Usecase) LastReap() time.Time {
	return s.lastReap.Load()
}
