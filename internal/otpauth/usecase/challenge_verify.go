package usecase

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type VerifyInput struct {
	Email   string `validate:"required,email,max=254"`
	Purpose string `validate:"required"`
	Code    string `validate:"required,otp_code"`
}

type VerifyOutput struct {
	Token     string
	Purpose   entity.Purpose
	ExpiresAt time.Time
}

func (s *Usecase) Verify(ctx context.Context, in VerifyInput) (*VerifyOutput, error) {
	ctx, span := s.startSpan(ctx, "Verify")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	purpose, err := entity.ParsePurpose(in.Purpose)
	if err != nil {
		return nil, errInvalidPurpose()
	}

	// a malformed code never reaches the store, so it costs no attempt
	if !s.otp.Valid(in.Code) {
		return nil, goerror.NewInvalidInput(nil, "code", "code must be "+strconv.Itoa(s.otp.Digits())+" digits")
	}

	token := s.token.Generate()
	tokenHash, err := s.tokenHash.Hash(token)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash session token", "error", err)
		return nil, goerror.NewServer(err)
	}

	st := s.settings()
	now := s.clock.Now()
	email := entity.NormalizeEmail(in.Email)

	sctx, cancel := s.storeCtx(ctx)
	res, err := s.store.VerifyChallenge(sctx, entity.VerifyAttempt{
		Email:   email,
		Purpose: purpose,
		Now:     now,
		Match: func(codeHash string) bool {
			return s.codeHash.Verify(codeHash, in.Code)
		},
		Session: entity.Session{
			ID:         s.uid.Generate(),
			TokenHash:  string(tokenHash),
			VerifiedAt: now,
			ExpiresAt:  now.Add(st.sessionTTL),
		},
	})
	cancel()
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo verify challenge", "purpose", purpose.String(), "error", err)
		return nil, errTransient(err)
	}

	dec := res.Decision
	s.verified.Add(ctx, 1, metric.WithAttributes(
		attribute.String("purpose", purpose.String()),
		attribute.String("result", dec.Status.String()),
	))

	switch dec.Status {
	case entity.VerifyMatched:
		return &VerifyOutput{
			Token:     token,
			Purpose:   purpose,
			ExpiresAt: res.Session.ExpiresAt,
		}, nil

	case entity.VerifyMismatch:
		slog.WarnContext(ctx, "otp code mismatch", "purpose", purpose.String(), "attempts_remaining", dec.Remaining)
		return nil, errCodeMismatch(dec.Remaining)

	case entity.VerifyExhausted:
		slog.WarnContext(ctx, "otp attempts exhausted", "purpose", purpose.String())
		return nil, errAttemptsExceeded()

	default:
		return nil, errNoActiveChallenge()
	}
}
