package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
)

type fakeMail struct {
	sent []mail.Message
	err  error
}

func (f *fakeMail) Send(_ context.Context, msg mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newTestUsecase(t *testing.T, m *fakeMail) *Usecase {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(`
app:
  name: OTP Gate
`))
	if err != nil {
		t.Fatalf("config err = %v", err)
	}
	val, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("validator err = %v", err)
	}

	return NewNotification(Dependency{
		Config:     cfg,
		Clock:      clock.NewManual(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)),
		Validator:  val,
		RepoMail:   m,
		Instrument: instrument.NewNoop(),
	})
}

func TestUsecase_ConsumeOTPDelivery(t *testing.T) {
	tests := []struct {
		name       string
		in         ConsumeOTPDeliveryInput
		mailErr    error
		wantCode   goerror.Code
		wantErr    bool
		wantSent   bool
		wantExpiry string
	}{
		{
			name:       "sends rendered mail",
			in:         ConsumeOTPDeliveryInput{Email: "a@b.com", Code: "042913", Purpose: "login", ValidFor: 2 * time.Minute},
			wantSent:   true,
			wantExpiry: "2 minutes",
		},
		{
			name:       "event without ttl uses the default",
			in:         ConsumeOTPDeliveryInput{Email: "a@b.com", Code: "042913", Purpose: "login"},
			wantSent:   true,
			wantExpiry: "5 minutes",
		},
		{
			name:     "invalid payload",
			in:       ConsumeOTPDeliveryInput{Email: "nope", Code: "042913", Purpose: "login"},
			wantErr:  true,
			wantCode: goerror.CodeInvalidInput,
		},
		{
			name:     "provider failure is returned for redelivery",
			in:       ConsumeOTPDeliveryInput{Email: "a@b.com", Code: "042913", Purpose: "transaction"},
			mailErr:  errors.New("smtp: 421"),
			wantErr:  true,
			wantCode: goerror.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			m := &fakeMail{err: tt.mailErr}
			uc := newTestUsecase(t, m)

			// Act
			err := uc.ConsumeOTPDelivery(context.Background(), tt.in)

			// Assert
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && goerror.CodeOf(err) != tt.wantCode {
				t.Fatalf("code = %s, want %s", goerror.CodeOf(err), tt.wantCode)
			}
			if !tt.wantSent {
				return
			}
			if len(m.sent) != 1 {
				t.Fatalf("sent = %d, want 1", len(m.sent))
			}
			msg := m.sent[0]
			if msg.To[0] != "a@b.com" || !strings.Contains(msg.TextBody, "042913") || !strings.Contains(msg.HTMLBody, "042913") {
				t.Fatalf("message = %+v", msg)
			}
			if !strings.Contains(msg.TextBody, tt.wantExpiry) {
				t.Fatalf("text body = %q, want expiry %q", msg.TextBody, tt.wantExpiry)
			}
		})
	}
}
