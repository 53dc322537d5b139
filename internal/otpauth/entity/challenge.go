package entity

import (
	"strings"
	"time"
)

// Challenge is one OTP issuance for an (email, purpose) pair. Only the HMAC
// digest of the code is kept.
type Challenge struct {
	ID          int64
	Email       string
	Purpose     Purpose
	CodeHash    string
	Verified    bool
	Attempts    int32
	MaxAttempts int32
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// CodeDelivery is what a delivery channel needs to send one code.
type CodeDelivery struct {
	Email    string
	Code     string
	Purpose  Purpose
	ValidFor time.Duration
}

// IsTerminal reports whether the challenge can never succeed again.
func (c Challenge) IsTerminal() bool {
	return c.Verified || c.Attempts >= c.MaxAttempts
}

// IsExpired reports whether ttl has elapsed at now. The expiry instant itself
// counts as expired.
func (c Challenge) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// IsLive reports whether the challenge may still be verified at now.
func (c Challenge) IsLive(now time.Time) bool {
	return !c.IsTerminal() && !c.IsExpired(now)
}

// Remaining returns the attempts left before the challenge becomes terminal.
func (c Challenge) Remaining() int32 {
	if c.Attempts >= c.MaxAttempts {
		return 0
	}
	return c.MaxAttempts - c.Attempts
}

// NormalizeEmail lower-cases and trims an address so lookups are stable.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
