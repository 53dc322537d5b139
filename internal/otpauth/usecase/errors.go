package usecase

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

// msgInvalidCode is shared by NoActiveChallenge and CodeMismatch so a caller
// cannot tell an unknown email from a wrong guess.
const msgInvalidCode = "invalid or expired code"

func errInvalidPurpose() error {
	names := lo.Map(entity.Purposes(), func(p entity.Purpose, _ int) string { return p.String() })
	return goerror.NewBusinessWrap(entity.ErrInvalidPurpose, "purpose is not supported", goerror.CodeInvalidInput,
		"purpose", "purpose must be one of "+strings.Join(names, ", "))
}

func errNoActiveChallenge() error {
	return goerror.NewBusinessWrap(entity.ErrNoActiveChallenge, msgInvalidCode, goerror.CodeUnauthorized)
}

func errCodeMismatch(remaining int32) error {
	return goerror.NewBusinessWrap(entity.ErrCodeMismatch, msgInvalidCode, goerror.CodeUnauthorized,
		"attempts_remaining", strconv.Itoa(int(remaining)))
}

func errAttemptsExceeded() error {
	return goerror.NewBusinessWrap(entity.ErrAttemptsExceeded, "too many attempts, request a new code", goerror.CodeTooManyRequest)
}

func errSessionNotFound() error {
	return goerror.NewBusinessWrap(entity.ErrSessionNotFound, "session is invalid", goerror.CodeUnauthorized)
}

func errSessionExpired() error {
	return goerror.NewBusinessWrap(entity.ErrSessionExpired, "session has expired", goerror.CodeUnauthorized)
}

func errPurposeMismatch() error {
	return goerror.NewBusinessWrap(entity.ErrPurposeMismatch, "session does not grant this action", goerror.CodeForbidden)
}

func errIdentityConflict() error {
	return goerror.NewBusinessWrap(entity.ErrIdentityConflict, "session is bound to another user", goerror.CodeConflict)
}

// errTransient wraps a store failure so both the sentinel and the cause stay
// reachable through errors.Is.
func errTransient(err error) error {
	return goerror.NewUnavailable(fmt.Errorf("%w: %w", entity.ErrTransientStore, err))
}
