package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type DeleteUserSessionsInput struct {
	UserID int64 `validate:"required,gt=0"`
}

// DeleteUserSessions cascades a user deletion in the identity service to
// every session bound to that user. It is safe to repeat.
func (s *Usecase) DeleteUserSessions(ctx context.Context, in DeleteUserSessionsInput) error {
	ctx, span := s.startSpan(ctx, "DeleteUserSessions")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	n, err := s.store.DeleteSessionsByUser(sctx, in.UserID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo delete sessions by user", "user_id", in.UserID, "error", err)
		return errTransient(err)
	}

	slog.InfoContext(ctx, "user sessions deleted", "user_id", in.UserID, "deleted", n)
	return nil
}
