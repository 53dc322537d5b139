package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/shared/mailtpl"
)

type ConsumeOTPDeliveryInput struct {
	Email   string `validate:"required,email"`
	Code    string `validate:"required,numeric"`
	Purpose string `validate:"required"`
	// ValidFor is zero for events published without a ttl; the template
	// then falls back to mailtpl.DefaultValidFor.
	ValidFor time.Duration `validate:"gte=0"`
}

// ConsumeOTPDelivery mails a code published by the OTP engine. An invalid
// payload is reported as invalid input so the caller can drop it.
func (s *Usecase) ConsumeOTPDelivery(ctx context.Context, in ConsumeOTPDeliveryInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeOTPDelivery")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "error", err)
		return goerror.NewInvalidInput(err)
	}

	msg, err := mailtpl.OTP(mailtpl.OTPData{
		To:          in.Email,
		Code:        in.Code,
		Purpose:     in.Purpose,
		ValidFor:    in.ValidFor,
		CompanyName: s.cfg.GetString("app.name"),
		Now:         s.clock.Now(),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to render otp email", "purpose", in.Purpose, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.repoMail.Send(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "failed to repo send otp email", "purpose", in.Purpose, "error", err)
		return err
	}

	slog.InfoContext(ctx, "otp email sent", "purpose", in.Purpose)

	return nil
}
