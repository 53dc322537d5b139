package inbound

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
)

func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	consumer messaging.Consumer,
	uc uc,
	ins instrument.Instrumentation,
) {
	h := &MQHandler{uc: uc, ins: ins}

	concurrency := cfg.GetInt("modules.otpauth.consumer.concurrency")
	if concurrency <= 0 {
		concurrency = 4
	}

	routine.Go(ctx, event.UserDeletedDestinationConsumerOTPAuth, func(ctx context.Context) error {
		slog.InfoContext(ctx, "Running job for handling consumer", "consumer", event.UserDeletedDestinationConsumerOTPAuth)
		return consumer.Consume(ctx,
			event.UserDeletedDestination,
			h.UserDeleted,
			messaging.WithGroup(event.UserDeletedDestinationConsumerOTPAuth),
			messaging.WithConcurrency(concurrency),
			messaging.WithMaxAttempts(5),
		)
	})
}
