package entity

import "time"

// Session is the purpose-scoped grant created by a successful verification.
// It is addressed by the HMAC digest of its bearer token.
type Session struct {
	ID         int64
	TokenHash  string
	Email      string
	UserID     int64 // 0 until BindUser
	Purpose    Purpose
	VerifiedAt time.Time
	ExpiresAt  time.Time
}

func (s Session) HasUser() bool {
	return s.UserID != 0
}

// IsExpired reports whether the session is no longer usable at now.
func (s Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// CheckBind decides whether userID may be attached to the session at now.
// A nil result with an already bound user means the call is a no-op.
func (s Session) CheckBind(userID int64, now time.Time) error {
	if s.IsExpired(now) {
		return ErrSessionExpired
	}
	if s.HasUser() && s.UserID != userID {
		return ErrIdentityConflict
	}
	return nil
}

// CheckAuthorize decides whether the session grants required at now.
func (s Session) CheckAuthorize(required Purpose, now time.Time) error {
	if s.IsExpired(now) {
		return ErrSessionExpired
	}
	if s.Purpose != required {
		return ErrPurposeMismatch
	}
	return nil
}
