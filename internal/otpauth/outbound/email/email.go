package email

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
	"github.com/shandysiswandi/otpgate/internal/shared/mailtpl"
	"go.opentelemetry.io/otel/codes"
)

// Mail delivers codes by sending the email inline on the request path.
type Mail struct {
	client mail.Mail
	cfg    config.Config
	clock  clock.Clocker
	ins    instrument.Instrumentation
}

func New(client mail.Mail, cfg config.Config, clk clock.Clocker, ins instrument.Instrumentation) *Mail {
	return &Mail{client: client, cfg: cfg, clock: clk, ins: ins}
}

func (m *Mail) Send(ctx context.Context, d entity.CodeDelivery) error {
	ctx, span := m.ins.Tracer("otpauth.outbound.email").Start(ctx, "Send")
	defer span.End()

	msg, err := mailtpl.OTP(mailtpl.OTPData{
		To:          d.Email,
		Code:        d.Code,
		Purpose:     d.Purpose.String(),
		ValidFor:    d.ValidFor,
		CompanyName: m.cfg.GetString("app.name"),
		Now:         m.clock.Now(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if timeout := m.cfg.GetSecond("modules.otpauth.delivery.timeout_seconds"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := m.client.Send(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

