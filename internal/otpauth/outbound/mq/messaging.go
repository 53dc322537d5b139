package mq

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

// Messaging delivers codes by publishing an event for the notification
// worker.
type Messaging struct {
	client messaging.Publisher
	cfg    config.Config
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Publisher, cfg config.Config, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, cfg: cfg, ins: ins}
}

func (m *Messaging) Send(ctx context.Context, d entity.CodeDelivery) error {
	ctx, span := m.ins.Tracer("otpauth.outbound.mq").Start(ctx, "PublishOTPDelivery")
	defer span.End()

	// keyed by email so one recipient's codes stay ordered on partitioned brokers
	msg, err := messaging.NewJSONMessage(ctx, d.Email, event.OTPDeliveryMessage{
		Email:           d.Email,
		Code:            d.Code,
		Purpose:         d.Purpose.String(),
		ValidForSeconds: int64(d.ValidFor.Seconds()),
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

	if err := m.client.Publish(ctx, event.OTPDeliveryDestination, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
