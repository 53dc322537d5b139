package inbound

import (
	"context"
	"log/slog"
	"slices"

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
	mqHandler := &MQHandler{uc: uc, ins: ins}

	enableConsumerNames := cfg.GetArray("modules.notification.consumer_names")

	var consumers = []struct {
		name    string
		topic   string // destination where publisher sent message
		group   string
		handler messaging.Handler
	}{
		{
			name:    event.OTPDeliveryDestinationConsumerNotification,
			topic:   event.OTPDeliveryDestination,
			group:   event.OTPDeliveryDestinationConsumerNotification,
			handler: mqHandler.OTPDeliveryNotification,
		},
	}

	concurrency := cfg.GetInt("modules.notification.concurrency")
	if concurrency <= 0 {
		concurrency = 10
	}
	maxAttempts := cfg.GetInt("modules.notification.max_attempts")
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	for _, c := range consumers {
		if len(enableConsumerNames) > 0 && !slices.Contains(enableConsumerNames, c.name) {
			continue
		}
		routine.Go(ctx, c.name, func(pCtx context.Context) error {
			slog.InfoContext(ctx, "Running job for handling consumer", "consumer", c.name)
			return consumer.Consume(pCtx,
				c.topic,
				c.handler,
				messaging.WithGroup(c.group),
				messaging.WithConcurrency(concurrency),
				messaging.WithMaxAttempts(maxAttempts),
			)
		})
	}
}
