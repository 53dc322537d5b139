package mq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
)

// stalledPublisher blocks until the publish context is done.
type stalledPublisher struct{}

func (stalledPublisher) Publish(ctx context.Context, _ string, _ messaging.OutgoingMessage) error {
	<-ctx.Done()
	return ctx.Err()
}

func newTestConfig(t *testing.T, raw string) config.Config {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(raw))
	if err != nil {
		t.Fatalf("config err = %v", err)
	}
	t.Cleanup(func() { _ = cfg.Close() })
	return cfg
}

func TestMessaging_Send(t *testing.T) {
	delivery := entity.CodeDelivery{
		Email:    "a@b.com",
		Code:     "042913",
		Purpose:  entity.PurposeLogin,
		ValidFor: 5 * time.Minute,
	}

	t.Run("publishes the delivery event", func(t *testing.T) {
		// Arrange
		broker := messaging.NewMemory(messaging.MemoryConfig{})
		broker.Subscribe(event.OTPDeliveryDestination, "test")
		m := NewMessaging(broker, newTestConfig(t, "{}"), instrument.NewNoop())

		got := make(chan event.OTPDeliveryMessage, 1)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			_ = broker.Consume(ctx, event.OTPDeliveryDestination, func(_ context.Context, msg *messaging.Message) error {
				var payload event.OTPDeliveryMessage
				if err := messaging.DecodeJSON(msg, &payload); err != nil {
					return err
				}
				got <- payload
				return nil
			}, messaging.WithGroup("test"))
		}()

		// Act
		err := m.Send(context.Background(), delivery)

		// Assert
		if err != nil {
			t.Fatalf("Send() err = %v", err)
		}
		select {
		case payload := <-got:
			if payload.Email != "a@b.com" || payload.Code != "042913" || payload.Purpose != "login" || payload.ValidForSeconds != 300 {
				t.Fatalf("payload = %+v", payload)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no delivery event consumed")
		}
	})

	t.Run("stalled broker is bounded by the delivery timeout", func(t *testing.T) {
		// Arrange
		cfg := newTestConfig(t, `
modules:
  otpauth:
    delivery:
      timeout_seconds: 1
`)
		m := NewMessaging(stalledPublisher{}, cfg, instrument.NewNoop())
		start := time.Now()

		// Act
		err := m.Send(context.Background(), delivery)

		// Assert
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("Send() err = %v, want deadline exceeded", err)
		}
		if elapsed := time.Since(start); elapsed > 3*time.Second {
			t.Fatalf("Send() took %s", elapsed)
		}
	})
}
