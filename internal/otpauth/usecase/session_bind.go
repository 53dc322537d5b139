package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type BindUserInput struct {
	Token  string `validate:"required"`
	UserID int64  `validate:"required,gt=0"`
}

func (s *Usecase) BindUser(ctx context.Context, in BindUserInput) error {
	ctx, span := s.startSpan(ctx, "BindUser")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	tokenHash, err := s.tokenHash.Hash(in.Token)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash session token", "error", err)
		return goerror.NewServer(err)
	}

	sctx, cancel := s.storeCtx(ctx)
	err = s.store.BindSessionUser(sctx, string(tokenHash), in.UserID, s.clock.Now())
	cancel()

	switch {
	case err == nil:
		return nil
	case errors.Is(err, goerror.ErrNotFound):
		return errSessionNotFound()
	case errors.Is(err, entity.ErrSessionExpired):
		return errSessionExpired()
	case errors.Is(err, entity.ErrIdentityConflict):
		slog.WarnContext(ctx, "session already bound to another user", "user_id", in.UserID)
		return errIdentityConflict()
	default:
		slog.ErrorContext(ctx, "failed to repo bind session user", "user_id", in.UserID, "error", err)
		return errTransient(err)
	}
}
