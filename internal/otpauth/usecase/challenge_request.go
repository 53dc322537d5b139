package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type RequestChallengeInput struct {
	Email   string `validate:"required,email,max=254"`
	Purpose string `validate:"required"`
}

type RequestChallengeOutput struct {
	// Accepted is false when the resend cooldown for (email, purpose) is open.
	Accepted    bool
	ChallengeID int64
	// Code is the plaintext code handed to delivery. It must not cross the
	// HTTP boundary.
	Code string
}

func (s *Usecase) RequestChallenge(ctx context.Context, in RequestChallengeInput) (*RequestChallengeOutput, error) {
	ctx, span := s.startSpan(ctx, "RequestChallenge")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	purpose, err := entity.ParsePurpose(in.Purpose)
	if err != nil {
		return nil, errInvalidPurpose()
	}

	st := s.settings()
	email := entity.NormalizeEmail(in.Email)
	cooldownKey := "otp:" + purpose.String() + ":" + email

	acquired, left, err := s.cooldown.Acquire(ctx, cooldownKey, st.resendCooldown)
	if err != nil {
		// the guard is best-effort; issuing stays available without redis
		slog.WarnContext(ctx, "failed to acquire resend cooldown", "purpose", purpose.String(), "error", err)
		acquired = true
	}
	if !acquired {
		slog.InfoContext(ctx, "challenge request within cooldown", "purpose", purpose.String(), "retry_after", left.String())
		return &RequestChallengeOutput{Accepted: false}, nil
	}

	code, err := s.otp.Generate()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate otp code", "error", err)
		return nil, goerror.NewServer(err)
	}

	codeHash, err := s.codeHash.Hash(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash otp code", "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	ch := entity.Challenge{
		ID:          s.uid.Generate(),
		Email:       email,
		Purpose:     purpose,
		CodeHash:    string(codeHash),
		Verified:    false,
		Attempts:    0,
		MaxAttempts: st.maxAttempts,
		CreatedAt:   now,
		ExpiresAt:   now.Add(st.challengeTTL),
	}

	sctx, cancel := s.storeCtx(ctx)
	err = s.store.CreateChallenge(sctx, ch)
	cancel()
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo create challenge", "challenge_id", ch.ID, "error", err)
		if rErr := s.cooldown.Release(ctx, cooldownKey); rErr != nil {
			slog.WarnContext(ctx, "failed to release resend cooldown", "error", rErr)
		}
		return nil, errTransient(err)
	}

	s.issued.Add(ctx, 1, metric.WithAttributes(attribute.String("purpose", purpose.String())))

	err = s.delivery.Send(ctx, entity.CodeDelivery{
		Email:    email,
		Code:     code,
		Purpose:  purpose,
		ValidFor: st.challengeTTL,
	})
	if err != nil {
		// the challenge stays usable; the caller may request delivery again
		// once the cooldown closes
		slog.ErrorContext(ctx, "failed to deliver otp code", "challenge_id", ch.ID, "purpose", purpose.String(), "error", err)
	}

	return &RequestChallengeOutput{
		Accepted:    true,
		ChallengeID: ch.ID,
		Code:        code,
	}, nil
}
