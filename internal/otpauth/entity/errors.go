package entity

import "errors"

var (
	ErrInvalidPurpose    = errors.New("otpauth: purpose is invalid")
	ErrNoActiveChallenge = errors.New("otpauth: no active challenge")
	ErrAttemptsExceeded  = errors.New("otpauth: attempts exceeded")
	ErrCodeMismatch      = errors.New("otpauth: code mismatch")
	ErrSessionNotFound   = errors.New("otpauth: session not found")
	ErrSessionExpired    = errors.New("otpauth: session expired")
	ErrPurposeMismatch   = errors.New("otpauth: purpose mismatch")
	ErrIdentityConflict  = errors.New("otpauth: session is bound to another user")
	ErrTransientStore    = errors.New("otpauth: store temporarily unavailable")
)
