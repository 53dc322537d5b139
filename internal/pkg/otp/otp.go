package otp

import (
	"crypto/rand"
	"errors"
	"math/big"

	"github.com/pquerna/otp"
)

const (
	// MinDigits is the shortest code length accepted by NewNumeric.
	MinDigits = 4
	// MaxDigits keeps every code representable as an int32.
	MaxDigits = 9
)

// ErrDigits is returned for a code length outside [MinDigits, MaxDigits].
var ErrDigits = errors.New("otp: digits out of range")

// OTP defines the contract for one-time code generation.
type OTP interface {
	// Generate returns a fresh zero-padded numeric code.
	Generate() (string, error)
	// Valid reports whether code has the expected shape. It says nothing about
	// whether the code was ever issued.
	Valid(code string) bool
	// Digits returns the configured code length.
	Digits() int
}

// Numeric implements OTP with uniformly random decimal codes.
type Numeric struct {
	digits otp.Digits
	limit  *big.Int
}

// NewNumeric constructs a generator for codes of the given length.
func NewNumeric(digits int) (*Numeric, error) {
	if digits < MinDigits || digits > MaxDigits {
		return nil, ErrDigits
	}

	limit := big.NewInt(1)
	ten := big.NewInt(10)
	for range digits {
		limit.Mul(limit, ten)
	}

	return &Numeric{digits: otp.Digits(digits), limit: limit}, nil
}

// Generate returns a fresh zero-padded numeric code.
func (n *Numeric) Generate() (string, error) {
	v, err := rand.Int(rand.Reader, n.limit)
	if err != nil {
		return "", err
	}

	return n.digits.Format(int32(v.Int64())), nil //nolint:gosec // bounded by 10^MaxDigits
}

// Valid reports whether code is exactly Digits() ASCII decimal characters.
func (n *Numeric) Valid(code string) bool {
	if len(code) != n.digits.Length() {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// Digits returns the configured code length.
func (n *Numeric) Digits() int {
	return n.digits.Length()
}
