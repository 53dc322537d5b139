package mailtpl

import (
	"strings"
	"testing"
	"time"
)

func TestOTP(t *testing.T) {
	tests := []struct {
		name        string
		purpose     string
		validFor    time.Duration
		wantSubject string
		wantExpiry  string
	}{
		{name: "login", purpose: "login", validFor: 5 * time.Minute, wantSubject: "Your sign-in code", wantExpiry: "5 minutes"},
		{name: "transaction", purpose: "transaction", validFor: time.Minute, wantSubject: "Confirm your transaction", wantExpiry: "1 minute"},
		{name: "unknown purpose", purpose: "x", validFor: 90 * time.Second, wantSubject: "Your verification code", wantExpiry: "1m30s"},
		{name: "unset ttl", purpose: "login", validFor: 0, wantSubject: "Your sign-in code", wantExpiry: "5 minutes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			msg, err := OTP(OTPData{
				To:          "a@b.com",
				Code:        "012345",
				Purpose:     tt.purpose,
				ValidFor:    tt.validFor,
				CompanyName: "OTP Gate",
				Now:         time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			})

			// Assert
			if err != nil {
				t.Fatalf("OTP() err = %v", err)
			}
			if msg.Subject != tt.wantSubject {
				t.Fatalf("subject = %q, want %q", msg.Subject, tt.wantSubject)
			}
			if len(msg.To) != 1 || msg.To[0] != "a@b.com" {
				t.Fatalf("to = %v", msg.To)
			}
			for _, body := range []string{msg.TextBody, msg.HTMLBody} {
				if !strings.Contains(body, "012345") {
					t.Fatalf("body does not carry the code: %q", body)
				}
				if !strings.Contains(body, tt.wantExpiry) {
					t.Fatalf("body does not carry expiry %q: %q", tt.wantExpiry, body)
				}
				if !strings.Contains(body, "2025") {
					t.Fatalf("body does not carry year: %q", body)
				}
			}
		})
	}
}
