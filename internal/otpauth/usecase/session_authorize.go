package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type AuthorizeInput struct {
	Token           string `validate:"required"`
	RequiredPurpose string `validate:"required"`
}

type AuthorizeOutput struct {
	Email     string
	UserID    int64 // 0 when no user is bound yet
	Purpose   entity.Purpose
	ExpiresAt time.Time
}

// Authorize is the read-side gate other subsystems call before a purpose
// bound action. It never writes.
func (s *Usecase) Authorize(ctx context.Context, in AuthorizeInput) (*AuthorizeOutput, error) {
	ctx, span := s.startSpan(ctx, "Authorize")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	required, err := entity.ParsePurpose(in.RequiredPurpose)
	if err != nil {
		return nil, errInvalidPurpose()
	}

	tokenHash, err := s.tokenHash.Hash(in.Token)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash session token", "error", err)
		return nil, goerror.NewServer(err)
	}

	sctx, cancel := s.storeCtx(ctx)
	sess, err := s.store.GetSession(sctx, string(tokenHash))
	cancel()
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, errSessionNotFound()
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get session", "error", err)
		return nil, errTransient(err)
	}

	switch err := sess.CheckAuthorize(required, s.clock.Now()); {
	case errors.Is(err, entity.ErrSessionExpired):
		return nil, errSessionExpired()
	case errors.Is(err, entity.ErrPurposeMismatch):
		slog.WarnContext(ctx, "session purpose mismatch", "session_id", sess.ID,
			"purpose", sess.Purpose.String(), "required_purpose", required.String())
		return nil, errPurposeMismatch()
	}

	return &AuthorizeOutput{
		Email:     sess.Email,
		UserID:    sess.UserID,
		Purpose:   sess.Purpose,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}
