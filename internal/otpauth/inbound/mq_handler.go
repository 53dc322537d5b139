package inbound

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/otpauth/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
)

type MQHandler struct {
	uc  uc
	ins instrument.Instrumentation
}

// UserDeleted drops every session bound to a deleted user.
func (h *MQHandler) UserDeleted(ctx context.Context, msg *messaging.Message) error {
	ctx, span := h.ins.Tracer("otpauth.inbound.mq").Start(ctx, "UserDeleted")
	defer span.End()

	var payload event.UserDeletedMessage
	if err := messaging.DecodeJSON(msg, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of user deleted", "msg_id", msg.ID, "error", err)
		return err
	}

	err := h.uc.DeleteUserSessions(ctx, usecase.DeleteUserSessionsInput{UserID: payload.UserID})
	if err == nil {
		return nil
	}

	if goerror.CodeOf(err) == goerror.CodeInvalidInput {
		slog.WarnContext(ctx, "drop user deleted message with invalid user id", "user_id", payload.UserID)
		return messaging.ErrDrop
	}

	slog.ErrorContext(ctx, "failed to consume user deleted", "user_id", payload.UserID, "error", err)
	return err
}
