package entity

import "strings"

// Purpose is the action a challenge, and the session promoted from it, is
// scoped to. The set is closed.
type Purpose int16

const (
	// PurposeUnknown is mean purpose is not known / not set.
	PurposeUnknown Purpose = 0

	// PurposeAccountCreation gates signing up a new account.
	PurposeAccountCreation Purpose = 1

	// PurposeTransaction gates a sensitive transaction.
	PurposeTransaction Purpose = 2

	// PurposeLogin gates a login.
	PurposeLogin Purpose = 3
)

func (p Purpose) String() string {
	switch p {
	case PurposeAccountCreation:
		return "account_creation"
	case PurposeTransaction:
		return "transaction"
	case PurposeLogin:
		return "login"
	default:
		return "unknown"
	}
}

func (p Purpose) IsUnknown() bool {
	switch p {
	case PurposeAccountCreation, PurposeTransaction, PurposeLogin:
		return false
	default:
		return true
	}
}

func (p Purpose) Ensure() Purpose {
	if p.IsUnknown() {
		return PurposeUnknown
	}
	return p
}

// ParsePurpose maps the wire name of a purpose to its value. Matching is
// case-insensitive and ignores surrounding spaces.
func ParsePurpose(raw string) (Purpose, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "account_creation":
		return PurposeAccountCreation, nil
	case "transaction":
		return PurposeTransaction, nil
	case "login":
		return PurposeLogin, nil
	default:
		return PurposeUnknown, ErrInvalidPurpose
	}
}

// Purposes lists every valid purpose.
func Purposes() []Purpose {
	return []Purpose{PurposeAccountCreation, PurposeTransaction, PurposeLogin}
}
