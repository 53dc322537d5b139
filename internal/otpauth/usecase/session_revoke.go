package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type RevokeSessionInput struct {
	Token string `validate:"required"`
}

// RevokeSession deletes one session. An unknown token is not an error.
func (s *Usecase) RevokeSession(ctx context.Context, in RevokeSessionInput) error {
	ctx, span := s.startSpan(ctx, "RevokeSession")
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
	defer cancel()

	if err := s.store.DeleteSession(sctx, string(tokenHash)); err != nil {
		slog.ErrorContext(ctx, "failed to repo delete session", "error", err)
		return errTransient(err)
	}

	return nil
}

type ResetSessionsInput struct {
	Email string `validate:"required,email,max=254"`
}

// ResetSessions deletes every session issued for an email.
func (s *Usecase) ResetSessions(ctx context.Context, in ResetSessionsInput) error {
	ctx, span := s.startSpan(ctx, "ResetSessions")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	n, err := s.store.DeleteSessionsByEmail(sctx, entity.NormalizeEmail(in.Email))
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo delete sessions by email", "error", err)
		return errTransient(err)
	}

	slog.InfoContext(ctx, "sessions reset", "deleted", n)
	return nil
}
