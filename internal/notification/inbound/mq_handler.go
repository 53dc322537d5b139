package inbound

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/otpgate/internal/notification/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
)

type MQHandler struct {
	uc  uc
	ins instrument.Instrumentation
}

func (h *MQHandler) OTPDeliveryNotification(ctx context.Context, msg *messaging.Message) error {
	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "OTPDeliveryNotification")
	defer span.End()

	// the body carries a clear text code; only the id is logged
	slog.InfoContext(ctx, "consume: otp delivery notification", "msg_id", msg.ID, "attempt", msg.Attempt)

	var payload event.OTPDeliveryMessage
	if err := messaging.DecodeJSON(msg, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of otp delivery", "msg_id", msg.ID, "error", err)
		return err
	}

	err := h.uc.ConsumeOTPDelivery(ctx, usecase.ConsumeOTPDeliveryInput{
		Email:    payload.Email,
		Code:     payload.Code,
		Purpose:  payload.Purpose,
		ValidFor: time.Duration(payload.ValidForSeconds) * time.Second,
	})
	if err == nil {
		return nil
	}

	if goerror.CodeOf(err) == goerror.CodeInvalidInput {
		return messaging.ErrDrop
	}

	slog.ErrorContext(ctx, "failed to consume otp delivery", "msg_id", msg.ID, "error", err)
	return err
}
